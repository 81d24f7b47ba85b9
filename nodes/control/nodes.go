// Package control contains the nodes of the control cycler. They run once per sensor sample and
// turn sensor data, game controller messages and perception results into motor commands.
package control

import (
	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/robot"
)

// External inputs of the control cycler.
const (
	InputHardwareSensorData = "hardware_sensor_data"
	InputParameters         = "parameters"
	InputVisionTop          = "vision_top"
	InputVisionBottom       = "vision_bottom"
	InputAudio              = "audio"
	InputSplNetwork         = "spl_network"
)

// Main outputs of the control cycler.
const (
	SensorDataOutput           = "sensor_data"
	CycleTimeOutput            = "cycle_time"
	GameControllerStateOutput  = "game_controller_state"
	PrimaryStateOutput         = "primary_state"
	RobotToGroundOutput        = "robot_to_ground"
	ZeroMomentPointOutput      = "zero_moment_point"
	FallStateOutput            = "fall_state"
	BallPositionOutput         = "ball_position"
	GroundToFieldOutput        = "ground_to_field"
	MotionCommandOutput        = "motion_command"
	WalkCommandOutput          = "walk_command"
	WalkingModeOutput          = "walking_mode"
	WalkingMotorCommandsOutput = "walking_motor_commands"
	MotorCommandsOutput        = "motor_commands"
)

type nodeInfo struct {
	name    string
	inputs  []string
	outputs []string
}

func (n nodeInfo) Name() string      { return n.name }
func (n nodeInfo) Inputs() []string  { return n.inputs }
func (n nodeInfo) Outputs() []string { return n.outputs }

// Hardware is what the control nodes write to.
type Hardware interface {
	robot.ActuatorInterface
	robot.NetworkInterface
}

// Nodes returns all nodes of the control cycler. The cycler orders them by their inputs.
func Nodes(hardware Hardware, logger logging.Logger) []cycler.Node {
	return []cycler.Node{
		NewSensorReceiver(),
		NewCycleTimer(),
		NewGameControllerFilter(),
		NewPrimaryStateFilter(),
		NewRobotToGroundEstimator(),
		NewZeroMomentPointEstimator(),
		NewFallStateEstimator(),
		NewBallFilter(),
		NewLocalization(),
		NewMotionSelection(),
		NewWalkCommandNode(),
		NewWalkingEngine(logger.Sublogger("walking")),
		NewMotorCommandCollector(),
		NewMotorCommandWriter(hardware),
		NewGameControllerReturnSender(hardware),
	}
}
