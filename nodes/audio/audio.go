// Package audio contains the nodes of the audio cycler, which listens for the referee whistle.
package audio

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/robot"
)

// External inputs of the audio cycler.
const (
	InputHardwareSamples = "hardware_samples"
	InputParameters      = "parameters"
)

// Main outputs of the audio cycler.
const (
	SamplesOutput         = "samples"
	WhistleDetectedOutput = "whistle_detected"
)

// Parameters configure the whistle detection.
type Parameters struct {
	MinFrequency float64 `json:"min_frequency"`
	MaxFrequency float64 `json:"max_frequency"`
	// EnergyRatio is the share of the spectrum energy the whistle band needs.
	EnergyRatio float64 `json:"energy_ratio"`
	// MinRMS rejects quiet buffers.
	MinRMS float64 `json:"min_rms"`
}

// DefaultParameters match the usual referee whistles.
func DefaultParameters() Parameters {
	return Parameters{
		MinFrequency: 2000,
		MaxFrequency: 4000,
		EnergyRatio:  0.5,
		MinRMS:       0.01,
	}
}

// Nodes returns the nodes of the audio cycler.
func Nodes() []cycler.Node {
	return []cycler.Node{&MicrophoneReceiver{}, NewWhistleDetection()}
}

// MicrophoneReceiver publishes the buffer that started the tick.
type MicrophoneReceiver struct{}

// Name implements cycler.Node.
func (*MicrophoneReceiver) Name() string { return "microphone_receiver" }

// Inputs implements cycler.Node.
func (*MicrophoneReceiver) Inputs() []string { return []string{InputHardwareSamples} }

// Outputs implements cycler.Node.
func (*MicrophoneReceiver) Outputs() []string { return []string{SamplesOutput} }

// InitialOutputs implements cycler.Node.
func (*MicrophoneReceiver) InitialOutputs() map[string]any {
	return map[string]any{SamplesOutput: robot.Samples{}}
}

// Cycle implements cycler.Node.
func (*MicrophoneReceiver) Cycle(ctx *cycler.Context) error {
	samples, err := cycler.Input[robot.Samples](ctx, InputHardwareSamples)
	if err != nil {
		return err
	}
	return ctx.Write(SamplesOutput, samples)
}

// WhistleDetection looks for a dominant frequency band in the first channel.
type WhistleDetection struct {
	fft *fourier.FFT
}

// NewWhistleDetection returns a WhistleDetection.
func NewWhistleDetection() *WhistleDetection {
	return &WhistleDetection{}
}

// Name implements cycler.Node.
func (*WhistleDetection) Name() string { return "whistle_detection" }

// Inputs implements cycler.Node.
func (*WhistleDetection) Inputs() []string { return []string{SamplesOutput, InputParameters} }

// Outputs implements cycler.Node.
func (*WhistleDetection) Outputs() []string { return []string{WhistleDetectedOutput} }

// InitialOutputs implements cycler.Node.
func (*WhistleDetection) InitialOutputs() map[string]any {
	return map[string]any{WhistleDetectedOutput: false}
}

// Cycle implements cycler.Node.
func (n *WhistleDetection) Cycle(ctx *cycler.Context) error {
	samples, err := cycler.Input[robot.Samples](ctx, SamplesOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	detected, err := n.detect(samples, params)
	if err != nil {
		return err
	}
	if detected {
		ctx.Logger().Debug("whistle detected")
	}
	return ctx.Write(WhistleDetectedOutput, detected)
}

func (n *WhistleDetection) detect(samples robot.Samples, params Parameters) (bool, error) {
	if len(samples.Channels) == 0 || len(samples.Channels[0]) == 0 {
		return false, nil
	}
	if samples.Rate <= 0 {
		return false, errors.Errorf("invalid sample rate %d", samples.Rate)
	}
	signal := make([]float64, len(samples.Channels[0]))
	for i, sample := range samples.Channels[0] {
		signal[i] = float64(sample)
	}
	if floats.Norm(signal, 2)/math.Sqrt(float64(len(signal))) < params.MinRMS {
		return false, nil
	}

	if n.fft == nil || n.fft.Len() != len(signal) {
		n.fft = fourier.NewFFT(len(signal))
	}
	coefficients := n.fft.Coefficients(nil, window.Hann(signal))
	ratio := BandEnergyRatio(coefficients, func(i int) float64 {
		return n.fft.Freq(i) * float64(samples.Rate)
	}, params.MinFrequency, params.MaxFrequency)
	return ratio >= params.EnergyRatio, nil
}

// BandEnergyRatio is the share of spectral energy between low and high Hz. frequency maps a
// coefficient index to Hz.
func BandEnergyRatio(coefficients []complex128, frequency func(i int) float64, low, high float64) float64 {
	energies := make([]float64, len(coefficients))
	var band float64
	for i, c := range coefficients {
		energies[i] = math.Pow(cmplx.Abs(c), 2)
		if f := frequency(i); f >= low && f <= high {
			band += energies[i]
		}
	}
	total := floats.Sum(energies)
	if total == 0 {
		return 0
	}
	return band / total
}
