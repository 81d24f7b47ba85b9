package audio

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
)

const rate = 44100

func tone(frequency, amplitude float64, length int) robot.Samples {
	channel := make([]float32, length)
	for i := range channel {
		channel[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*float64(i)/rate))
	}
	return robot.Samples{Rate: rate, Channels: [][]float32{channel, channel}}
}

func detect(t *testing.T, node *WhistleDetection, samples robot.Samples) bool {
	t.Helper()
	result, err := cycler.RunNode(node, 1, time.Unix(0, 0), map[string]any{
		SamplesOutput:   samples,
		InputParameters: DefaultParameters(),
	}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return result.Main[WhistleDetectedOutput].(bool)
}

func TestWhistleDetection(t *testing.T) {
	node := NewWhistleDetection()
	test.That(t, detect(t, node, tone(3000, 0.5, 2048)), test.ShouldBeTrue)
	test.That(t, detect(t, node, tone(500, 0.5, 2048)), test.ShouldBeFalse)
	// too quiet
	test.That(t, detect(t, node, tone(3000, 0.001, 2048)), test.ShouldBeFalse)
	test.That(t, detect(t, node, robot.Samples{Rate: rate}), test.ShouldBeFalse)
	// the transform is rebuilt for other buffer sizes
	test.That(t, detect(t, node, tone(3000, 0.5, 1024)), test.ShouldBeTrue)
}

func TestWhistleDetectionRejectsInvalidRate(t *testing.T) {
	samples := tone(3000, 0.5, 256)
	samples.Rate = 0
	_, err := cycler.RunNode(NewWhistleDetection(), 1, time.Unix(0, 0), map[string]any{
		SamplesOutput:   samples,
		InputParameters: DefaultParameters(),
	}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBandEnergyRatio(t *testing.T) {
	coefficients := []complex128{0, 1, 1, 2}
	frequency := func(i int) float64 { return float64(i) * 1000 }
	test.That(t, BandEnergyRatio(coefficients, frequency, 1500, 3500), test.ShouldAlmostEqual, 5.0/6)
	test.That(t, BandEnergyRatio(make([]complex128, 4), frequency, 0, 4000), test.ShouldEqual, 0)
}

func TestAudioNodesFormAGraph(t *testing.T) {
	_, err := cycler.BuildGraph(Nodes(), []string{InputHardwareSamples, InputParameters})
	test.That(t, err, test.ShouldBeNil)
}
