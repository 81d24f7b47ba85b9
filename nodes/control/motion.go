package control

import (
	"context"
	"math"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
	"github.com/naosoccer/stack/walking"
)

const (
	actuatorWriteTimeout = 10 * time.Millisecond
	kickAngleTolerance   = 0.3
)

// MotionSelection decides which motion controls the body.
type MotionSelection struct {
	nodeInfo
}

// NewMotionSelection returns a MotionSelection.
func NewMotionSelection() *MotionSelection {
	return &MotionSelection{nodeInfo{
		name:    "motion_selection",
		inputs:  []string{PrimaryStateOutput, FallStateOutput, BallPositionOutput, InputParameters},
		outputs: []string{MotionCommandOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *MotionSelection) InitialOutputs() map[string]any {
	return map[string]any{MotionCommandOutput: MotionCommand{Kind: MotionUnstiff}}
}

// Cycle implements cycler.Node.
func (n *MotionSelection) Cycle(ctx *cycler.Context) error {
	state, err := cycler.Input[PrimaryState](ctx, PrimaryStateOutput)
	if err != nil {
		return err
	}
	fall, err := cycler.Input[FallState](ctx, FallStateOutput)
	if err != nil {
		return err
	}
	ball, err := cycler.Input[*BallPosition](ctx, BallPositionOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	return ctx.Write(MotionCommandOutput, SelectMotion(state, fall, ball, params.WalkToBall))
}

// SelectMotion is the motion for one cycle. Unstiff wins over everything, falling wins over the
// game.
func SelectMotion(state PrimaryState, fall FallState, ball *BallPosition, params WalkToBallParameters) MotionCommand {
	switch {
	case state == Unstiff:
		return MotionCommand{Kind: MotionUnstiff}
	case fall.Kind != Upright:
		return MotionCommand{Kind: MotionFallProtection, FallDirection: fall.Direction}
	case state == Penalized:
		return MotionCommand{Kind: MotionPenalized}
	case state == Playing && ball != nil:
		return walkToBall(ball.Position, params)
	default:
		return MotionCommand{Kind: MotionStand}
	}
}

func walkToBall(ball spatialmath.Point2[referenceframe.Ground], params WalkToBallParameters) MotionCommand {
	distance := ball.Coords().Norm()
	angle := math.Atan2(ball.Y, ball.X)
	if distance < params.KickDistance && math.Abs(angle) < kickAngleTolerance {
		side := robot.Right
		if ball.Y > 0 {
			side = robot.Left
		}
		return MotionCommand{
			Kind: MotionKick,
			Kick: KickCommand{Variant: params.KickVariant, Side: side, Strength: params.KickStrength},
		}
	}
	// slow down while the ball is off to the side
	forward := math.Min(params.ForwardGain*distance, params.MaxForward) * math.Max(math.Cos(angle), 0)
	turn := utils.ClampAbs(params.TurnGain*angle, params.MaxTurn)
	return MotionCommand{Kind: MotionWalk, Step: walking.Step{Forward: forward, Turn: turn}}
}

// WalkCommandNode translates the motion command into a request for the walking engine.
type WalkCommandNode struct {
	nodeInfo
}

// NewWalkCommandNode returns a WalkCommandNode.
func NewWalkCommandNode() *WalkCommandNode {
	return &WalkCommandNode{nodeInfo{
		name:    "walk_command",
		inputs:  []string{MotionCommandOutput},
		outputs: []string{WalkCommandOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *WalkCommandNode) InitialOutputs() map[string]any {
	return map[string]any{WalkCommandOutput: WalkCommand{Kind: WalkCommandStand}}
}

// Cycle implements cycler.Node.
func (n *WalkCommandNode) Cycle(ctx *cycler.Context) error {
	motion, err := cycler.Input[MotionCommand](ctx, MotionCommandOutput)
	if err != nil {
		return err
	}
	command := WalkCommand{Kind: WalkCommandStand}
	switch motion.Kind {
	case MotionWalk:
		command = WalkCommand{Kind: WalkCommandWalk, Step: motion.Step}
	case MotionKick:
		command = WalkCommand{Kind: WalkCommandKick, Kick: motion.Kick}
	default:
	}
	return ctx.Write(WalkCommandOutput, command)
}

// WalkingEngine runs the walking engine every cycle, also while another motion owns the legs, so
// that it is standing when it gets control back.
type WalkingEngine struct {
	nodeInfo
	logger logging.Logger
	engine *walking.Engine
}

// NewWalkingEngine returns a WalkingEngine. The engine is built with the first parameters.
func NewWalkingEngine(logger logging.Logger) *WalkingEngine {
	return &WalkingEngine{
		nodeInfo: nodeInfo{
			name: "walking_engine",
			inputs: []string{
				WalkCommandOutput, SensorDataOutput, CycleTimeOutput,
				RobotToGroundOutput, ZeroMomentPointOutput, InputParameters,
			},
			outputs: []string{WalkingModeOutput, WalkingMotorCommandsOutput},
		},
		logger: logger,
	}
}

// InitialOutputs implements cycler.Node.
func (n *WalkingEngine) InitialOutputs() map[string]any {
	return map[string]any{
		WalkingModeOutput:          walking.ModeStanding,
		WalkingMotorCommandsOutput: joints.MotorCommands[joints.Joints[float64]]{},
	}
}

// AdditionalOutputs implements cycler.AdditionalOutputsDeclarer.
func (n *WalkingEngine) AdditionalOutputs() []string {
	return []string{walking.StepPlanOutput, walking.ZmpHullOutput}
}

func (n *WalkingEngine) configure(params walking.Parameters) error {
	if n.engine == nil {
		engine, err := walking.NewEngine(params, n.logger)
		if err != nil {
			return err
		}
		n.engine = engine
		return nil
	}
	if cmp.Equal(n.engine.Parameters(), params) {
		return nil
	}
	if err := n.engine.SetParameters(params); err != nil {
		// the engine keeps walking with the previous parameters
		n.logger.Warnw("rejected walking parameters", "error", err)
	}
	return nil
}

// Cycle implements cycler.Node.
func (n *WalkingEngine) Cycle(ctx *cycler.Context) error {
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	if err := n.configure(params.Walking); err != nil {
		return errors.Wrap(err, "cannot create walking engine")
	}
	command, err := cycler.Input[WalkCommand](ctx, WalkCommandOutput)
	if err != nil {
		return err
	}
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	cycleTime, err := cycler.Input[CycleTime](ctx, CycleTimeOutput)
	if err != nil {
		return err
	}
	robotToGround, err := cycler.Input[*spatialmath.Isometry3[referenceframe.Robot, referenceframe.Ground]](
		ctx, RobotToGroundOutput)
	if err != nil {
		return err
	}
	zmp, err := cycler.Input[*spatialmath.Point2[referenceframe.Walk]](ctx, ZeroMomentPointOutput)
	if err != nil {
		return err
	}

	switch command.Kind {
	case WalkCommandWalk:
		n.engine.Walk(command.Step)
	case WalkCommandKick:
		n.engine.Kick(command.Kick.Variant, command.Kick.Side, command.Kick.Strength)
	default:
		n.engine.Stand()
	}
	commands := n.engine.Tick(walking.Context{
		CycleDuration:     cycleTime.LastCycleDuration,
		SensorData:        data,
		RobotToGround:     robotToGround,
		ZeroMomentPoint:   zmp,
		AdditionalOutputs: ctx,
	})
	if err := ctx.Write(WalkingModeOutput, n.engine.Mode()); err != nil {
		return err
	}
	return ctx.Write(WalkingMotorCommandsOutput, commands)
}

// MotorCommandCollector picks the motor commands of the selected motion.
type MotorCommandCollector struct {
	nodeInfo
}

// NewMotorCommandCollector returns a MotorCommandCollector.
func NewMotorCommandCollector() *MotorCommandCollector {
	return &MotorCommandCollector{nodeInfo{
		name:    "motor_command_collector",
		inputs:  []string{MotionCommandOutput, WalkingMotorCommandsOutput, SensorDataOutput, InputParameters},
		outputs: []string{MotorCommandsOutput},
	}}
}

// InitialOutputs implements cycler.Node.
func (n *MotorCommandCollector) InitialOutputs() map[string]any {
	return map[string]any{MotorCommandsOutput: joints.MotorCommands[joints.Joints[float64]]{}}
}

// Cycle implements cycler.Node.
func (n *MotorCommandCollector) Cycle(ctx *cycler.Context) error {
	motion, err := cycler.Input[MotionCommand](ctx, MotionCommandOutput)
	if err != nil {
		return err
	}
	walkingCommands, err := cycler.Input[joints.MotorCommands[joints.Joints[float64]]](ctx, WalkingMotorCommandsOutput)
	if err != nil {
		return err
	}
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	return ctx.Write(MotorCommandsOutput, CollectMotorCommands(motion, walkingCommands, data, params.FallProtection))
}

// CollectMotorCommands returns the commands of the motion owning the body.
func CollectMotorCommands(
	motion MotionCommand,
	walkingCommands joints.MotorCommands[joints.Joints[float64]],
	data robot.SensorData,
	params FallProtectionParameters,
) joints.MotorCommands[joints.Joints[float64]] {
	switch motion.Kind {
	case MotionUnstiff:
		return joints.MotorCommands[joints.Joints[float64]]{
			Positions:   data.PositionsMeasured,
			Stiffnesses: joints.Fill(0.0),
		}
	case MotionFallProtection:
		positions := data.PositionsMeasured
		positions.LeftArm = params.ArmPose
		positions.RightArm = joints.MirrorArm(params.ArmPose)
		positions.Head = joints.HeadJoints[float64]{}
		return joints.MotorCommands[joints.Joints[float64]]{
			Positions: positions,
			Stiffnesses: joints.Joints[float64]{
				Head:     joints.FillHead(params.HeadStiffness),
				LeftArm:  joints.FillArm(params.ArmStiffness),
				RightArm: joints.FillArm(params.ArmStiffness),
				LeftLeg:  joints.FillLeg(0.0),
				RightLeg: joints.FillLeg(0.0),
			},
		}
	default:
		return walkingCommands
	}
}

// MotorCommandWriter sends the motor commands and the status LEDs to the hardware.
type MotorCommandWriter struct {
	nodeInfo
	actuators robot.ActuatorInterface
}

// NewMotorCommandWriter writes to actuators.
func NewMotorCommandWriter(actuators robot.ActuatorInterface) *MotorCommandWriter {
	return &MotorCommandWriter{
		nodeInfo: nodeInfo{
			name:   "motor_command_writer",
			inputs: []string{MotorCommandsOutput, PrimaryStateOutput},
		},
		actuators: actuators,
	}
}

// InitialOutputs implements cycler.Node.
func (n *MotorCommandWriter) InitialOutputs() map[string]any {
	return map[string]any{}
}

// Cycle implements cycler.Node.
func (n *MotorCommandWriter) Cycle(ctx *cycler.Context) error {
	commands, err := cycler.Input[joints.MotorCommands[joints.Joints[float64]]](ctx, MotorCommandsOutput)
	if err != nil {
		return err
	}
	state, err := cycler.Input[PrimaryState](ctx, PrimaryStateOutput)
	if err != nil {
		return err
	}
	color := StateColor(state)
	leds := robot.Leds{Chest: color, LeftEye: color, RightEye: color}
	write := func() error {
		writeContext, cancel := context.WithTimeout(context.Background(), actuatorWriteTimeout)
		defer cancel()
		return n.actuators.WriteToActuators(writeContext, commands.Positions, commands.Stiffnesses, leds)
	}
	err = write()
	if err != nil && robot.IsTransient(err) {
		ctx.Logger().Debugw("retrying transient actuator error", "error", err)
		err = write()
	}
	switch {
	case err == nil:
		return nil
	case robot.IsTransient(err):
		return errors.Wrap(err, "writing actuators")
	default:
		return cycler.NewPersistentHardwareError(errors.Wrap(err, "writing actuators"))
	}
}

// StateColor is the chest color of a primary state as used on the field.
func StateColor(state PrimaryState) [3]float64 {
	var color colorful.Color
	switch state {
	case Ready:
		color = colorful.Hsv(240, 1, 1)
	case Set:
		color = colorful.Hsv(60, 1, 1)
	case Playing:
		color = colorful.Hsv(120, 1, 1)
	case Penalized:
		color = colorful.Hsv(0, 1, 1)
	case Calibration:
		color = colorful.Hsv(300, 1, 1)
	case Unstiff:
		// dim blue
		color = colorful.Hsv(240, 1, 0.2)
	}
	return [3]float64{color.R, color.G, color.B}
}
