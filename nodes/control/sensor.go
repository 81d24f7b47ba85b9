package control

import (
	"time"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/robot"
)

// SensorReceiver publishes the sensor sample that started the tick.
type SensorReceiver struct {
	nodeInfo
}

// NewSensorReceiver returns a SensorReceiver.
func NewSensorReceiver() *SensorReceiver {
	return &SensorReceiver{nodeInfo{
		name:    "sensor_receiver",
		inputs:  []string{InputHardwareSensorData},
		outputs: []string{SensorDataOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *SensorReceiver) InitialOutputs() map[string]any {
	return map[string]any{SensorDataOutput: robot.SensorData{}}
}

// Cycle implements cycler.Node.
func (n *SensorReceiver) Cycle(ctx *cycler.Context) error {
	data, err := cycler.Input[robot.SensorData](ctx, InputHardwareSensorData)
	if err != nil {
		return err
	}
	return ctx.Write(SensorDataOutput, data)
}

// CycleTimer measures the time between tick starts.
type CycleTimer struct {
	nodeInfo
	last time.Time
}

// NewCycleTimer returns a CycleTimer.
func NewCycleTimer() *CycleTimer {
	return &CycleTimer{nodeInfo: nodeInfo{
		name:    "cycle_timer",
		outputs: []string{CycleTimeOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *CycleTimer) InitialOutputs() map[string]any {
	return map[string]any{CycleTimeOutput: CycleTime{}}
}

// Cycle implements cycler.Node.
func (n *CycleTimer) Cycle(ctx *cycler.Context) error {
	start := ctx.StartTime()
	var duration time.Duration
	if !n.last.IsZero() {
		duration = start.Sub(n.last)
	}
	n.last = start
	return ctx.Write(CycleTimeOutput, CycleTime{StartTime: start, LastCycleDuration: duration})
}
