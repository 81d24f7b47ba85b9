package control

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/framework"
	"github.com/naosoccer/stack/gamecontroller"
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/kinematics"
	"github.com/naosoccer/stack/logging"
	"github.com/naosoccer/stack/nodes/audio"
	"github.com/naosoccer/stack/nodes/network"
	"github.com/naosoccer/stack/nodes/vision"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/robots/fake"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/walking"
)

func queue(timestamp time.Time, main map[string]any) cycler.Queued[cycler.Database] {
	return cycler.Queued[cycler.Database]{
		Items: []framework.Item[cycler.Database]{{Timestamp: timestamp, Data: cycler.Database{Main: main}}},
	}
}

func standingSensorData(t *testing.T) robot.SensorData {
	t.Helper()
	opts := fake.DefaultOptions()
	opts.CyclePeriod = 0
	data, err := fake.NewRobot(nil, opts).ReadSensorData(context.Background())
	test.That(t, err, test.ShouldBeNil)
	return data
}

func TestControlNodesFormAGraph(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := fake.NewRobot(nil, fake.DefaultOptions())
	external := []string{
		InputHardwareSensorData, InputParameters, InputVisionTop,
		InputVisionBottom, InputAudio, InputSplNetwork,
	}
	graph, err := cycler.BuildGraph(Nodes(r, logger), external)
	test.That(t, err, test.ShouldBeNil)

	order := map[string]int{}
	for i, node := range graph.TopologicalSort() {
		order[node.Name()] = i
	}
	test.That(t, order["sensor_receiver"], test.ShouldBeLessThan, order["fall_state_estimation"])
	test.That(t, order["motion_selection"], test.ShouldBeLessThan, order["walking_engine"])
	test.That(t, order["motor_command_collector"], test.ShouldBeLessThan, order["motor_command_writer"])
}

func TestPrimaryStateFilter(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewPrimaryStateFilter()
	params := DefaultParameters()
	game := gamecontroller.NewState()
	now := time.Unix(10, 0)

	step := func(buttons robot.Buttons, whistle bool) PrimaryState {
		t.Helper()
		data := robot.SensorData{Buttons: buttons}
		result, err := cycler.RunNode(node, 1, now, map[string]any{
			SensorDataOutput:          data,
			GameControllerStateOutput: game,
			InputParameters:           params,
			InputAudio:                queue(now, map[string]any{audio.WhistleDetectedOutput: whistle}),
		}, nil, logger)
		test.That(t, err, test.ShouldBeNil)
		return result.Main[PrimaryStateOutput].(PrimaryState)
	}
	chest := robot.Buttons{ChestPressed: true}
	released := robot.Buttons{}

	test.That(t, step(released, false), test.ShouldEqual, Unstiff)
	test.That(t, step(chest, false), test.ShouldEqual, Initial)
	// holding the button is not another click
	test.That(t, step(chest, false), test.ShouldEqual, Initial)
	test.That(t, step(released, false), test.ShouldEqual, Initial)

	test.That(t, step(robot.Buttons{HeadFront: true, HeadMiddle: true, HeadRear: true}, false), test.ShouldEqual, Calibration)
	test.That(t, step(released, false), test.ShouldEqual, Calibration)

	game.GameState = gamecontroller.Ready
	test.That(t, step(released, false), test.ShouldEqual, Ready)
	game.GameState = gamecontroller.Set
	test.That(t, step(released, false), test.ShouldEqual, Set)
	test.That(t, step(released, true), test.ShouldEqual, Playing)
	test.That(t, step(released, false), test.ShouldEqual, Playing)

	game.GameState = gamecontroller.Playing
	game.Penalties[params.PlayerNumber] = gamecontroller.Penalty{Reason: gamecontroller.PenaltyReason(1)}
	test.That(t, step(released, false), test.ShouldEqual, Penalized)
	delete(game.Penalties, params.PlayerNumber)
	test.That(t, step(released, false), test.ShouldEqual, Playing)

	test.That(t, step(chest, false), test.ShouldEqual, Unstiff)
	test.That(t, step(released, false), test.ShouldEqual, Unstiff)
}

func TestGameControllerFilterSkipsRejectedCommands(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	node := NewGameControllerFilter()
	commands := []gamecontroller.Command{
		gamecontroller.SetGameState{GameState: gamecontroller.Finished},
		gamecontroller.SetGameState{GameState: gamecontroller.Set},
		gamecontroller.Penalize{Player: 3},
	}
	now := time.Unix(10, 0)
	result, err := cycler.RunNode(node, 1, now, map[string]any{
		InputSplNetwork: queue(now, map[string]any{network.GameControllerCommandsOutput: commands}),
	}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	state := result.Main[GameControllerStateOutput].(gamecontroller.State)
	test.That(t, state.GameState, test.ShouldEqual, gamecontroller.Finished)
	test.That(t, state.IsPenalized(3), test.ShouldBeTrue)
	test.That(t, logs.FilterMessage("ignoring game controller command").Len(), test.ShouldEqual, 1)
}

func TestClassifyFall(t *testing.T) {
	params := DefaultParameters().FallState
	for _, tc := range []struct {
		name        string
		roll, pitch float64
		expected    FallState
	}{
		{"upright", 0.1, -0.1, FallState{Kind: Upright}},
		{"falling forward", 0.1, 0.7, FallState{Kind: Falling, Direction: Forward}},
		{"falling backward", 0, -0.7, FallState{Kind: Falling, Direction: Backward}},
		{"falling right", 0.8, 0.2, FallState{Kind: Falling, Direction: Rightward}},
		{"fallen left", -1.4, 0.2, FallState{Kind: Fallen, Direction: Leftward}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, ClassifyFall(params, tc.roll, tc.pitch), test.ShouldResemble, tc.expected)
		})
	}
}

func TestFallStateEstimatorFilters(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewFallStateEstimator()
	params := DefaultParameters()
	params.FallState.LowPassFactor = 0.5
	run := func(pitch float64) FallState {
		data := robot.SensorData{InertialMeasurementUnit: robot.InertialMeasurementUnit{Pitch: pitch}}
		result, err := cycler.RunNode(node, 1, time.Unix(0, 0), map[string]any{
			SensorDataOutput: data, InputParameters: params,
		}, nil, logger)
		test.That(t, err, test.ShouldBeNil)
		return result.Main[FallStateOutput].(FallState)
	}
	test.That(t, run(0).Kind, test.ShouldEqual, Upright)
	// 0 → 0.8 → 1.6 filtered gives 0.4 then 1.0
	test.That(t, run(0.8).Kind, test.ShouldEqual, Upright)
	test.That(t, run(1.6), test.ShouldResemble, FallState{Kind: Falling, Direction: Forward})
}

func TestEstimateRobotToGround(t *testing.T) {
	data := standingSensorData(t)
	robotToGround := EstimateRobotToGround(data, 0.3)
	test.That(t, robotToGround, test.ShouldNotBeNil)

	legLength := -kinematics.LeftSoleToRobot(data.PositionsMeasured.LeftLeg).Translation().Z
	test.That(t, robotToGround.Translation().Z, test.ShouldAlmostEqual, legLength, 1e-9)
	roll, pitch, _ := robotToGround.Rotation().EulerAngles()
	test.That(t, roll, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, pitch, test.ShouldAlmostEqual, 0, 1e-9)

	lifted := data
	lifted.ForceSensitiveResistors = robot.ForceSensitiveResistors{}
	test.That(t, EstimateRobotToGround(lifted, 0.3), test.ShouldBeNil)
}

func TestEstimateZeroMomentPoint(t *testing.T) {
	params := walking.DefaultParameters()
	upright := spatialmath.IdentityIsometry3[referenceframe.Robot, referenceframe.Ground]()
	com := walking.RobotToWalk(params).Transform(spatialmath.Point3[referenceframe.Robot]{})

	resting := EstimateZeroMomentPoint(params, upright, spatialmath.NewVector3[referenceframe.Robot](0, 0, gravity))
	test.That(t, resting.X, test.ShouldAlmostEqual, com.X, 1e-9)
	test.That(t, resting.Y, test.ShouldAlmostEqual, com.Y, 1e-9)

	// accelerating forward moves the zero moment point backwards
	accelerating := EstimateZeroMomentPoint(params, upright, spatialmath.NewVector3[referenceframe.Robot](1, 0, gravity))
	test.That(t, accelerating.X, test.ShouldAlmostEqual, com.X-com.Z/gravity, 1e-9)
}

func TestBallFilter(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewBallFilter()
	params := DefaultParameters()
	seen := time.Unix(100, 0)
	near := vision.Ball{Position: spatialmath.NewPoint2[referenceframe.Ground](0.5, 0.1)}
	far := vision.Ball{Position: spatialmath.NewPoint2[referenceframe.Ground](3, 0)}

	run := func(now time.Time, top cycler.Queued[cycler.Database]) *BallPosition {
		result, err := cycler.RunNode(node, 1, now, map[string]any{
			InputVisionTop:    top,
			InputVisionBottom: cycler.Queued[cycler.Database]{},
			InputParameters:   params,
		}, nil, logger)
		test.That(t, err, test.ShouldBeNil)
		return result.Main[BallPositionOutput].(*BallPosition)
	}

	ball := run(seen, queue(seen, map[string]any{vision.BallsOutput: []vision.Ball{far, near}}))
	test.That(t, ball, test.ShouldNotBeNil)
	test.That(t, ball.Position, test.ShouldResemble, near.Position)
	test.That(t, ball.LastSeen, test.ShouldEqual, seen)

	test.That(t, run(seen.Add(time.Second), cycler.Queued[cycler.Database]{}), test.ShouldNotBeNil)
	test.That(t, run(seen.Add(params.BallFilter.Timeout+time.Millisecond), cycler.Queued[cycler.Database]{}), test.ShouldBeNil)
}

func TestSelectMotion(t *testing.T) {
	params := DefaultParameters().WalkToBall
	upright := FallState{Kind: Upright}
	ahead := &BallPosition{Position: spatialmath.NewPoint2[referenceframe.Ground](2, 0)}
	left := &BallPosition{Position: spatialmath.NewPoint2[referenceframe.Ground](0.1, 0.02)}
	right := &BallPosition{Position: spatialmath.NewPoint2[referenceframe.Ground](0.1, -0.02)}

	test.That(t, SelectMotion(Unstiff, FallState{Kind: Fallen}, nil, params).Kind, test.ShouldEqual, MotionUnstiff)
	test.That(t, SelectMotion(Playing, FallState{Kind: Falling, Direction: Backward}, ahead, params),
		test.ShouldResemble, MotionCommand{Kind: MotionFallProtection, FallDirection: Backward})
	test.That(t, SelectMotion(Penalized, upright, ahead, params).Kind, test.ShouldEqual, MotionPenalized)
	test.That(t, SelectMotion(Ready, upright, ahead, params).Kind, test.ShouldEqual, MotionStand)
	test.That(t, SelectMotion(Playing, upright, nil, params).Kind, test.ShouldEqual, MotionStand)

	walk := SelectMotion(Playing, upright, ahead, params)
	test.That(t, walk.Kind, test.ShouldEqual, MotionWalk)
	test.That(t, walk.Step.Forward, test.ShouldAlmostEqual, params.MaxForward)
	test.That(t, walk.Step.Turn, test.ShouldAlmostEqual, 0)

	sideways := SelectMotion(Playing, upright, &BallPosition{Position: spatialmath.NewPoint2[referenceframe.Ground](0, 2)}, params)
	test.That(t, sideways.Step.Forward, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, sideways.Step.Turn, test.ShouldAlmostEqual, params.MaxTurn)

	test.That(t, SelectMotion(Playing, upright, left, params).Kick,
		test.ShouldResemble, KickCommand{Variant: params.KickVariant, Side: robot.Left, Strength: params.KickStrength})
	test.That(t, SelectMotion(Playing, upright, right, params).Kick.Side, test.ShouldEqual, robot.Right)
}

func TestCollectMotorCommands(t *testing.T) {
	data := standingSensorData(t)
	params := DefaultParameters().FallProtection
	walkingCommands := joints.MotorCommands[joints.Joints[float64]]{
		Positions:   joints.Fill(0.1),
		Stiffnesses: joints.Fill(0.8),
	}

	unstiff := CollectMotorCommands(MotionCommand{Kind: MotionUnstiff}, walkingCommands, data, params)
	test.That(t, unstiff.Stiffnesses, test.ShouldResemble, joints.Fill(0.0))
	test.That(t, unstiff.Positions, test.ShouldResemble, data.PositionsMeasured)

	protecting := CollectMotorCommands(MotionCommand{Kind: MotionFallProtection}, walkingCommands, data, params)
	test.That(t, protecting.Stiffnesses.LeftLeg, test.ShouldResemble, joints.FillLeg(0.0))
	test.That(t, protecting.Stiffnesses.RightArm, test.ShouldResemble, joints.FillArm(params.ArmStiffness))
	test.That(t, protecting.Positions.LeftArm, test.ShouldResemble, params.ArmPose)
	test.That(t, protecting.Positions.RightArm, test.ShouldResemble, joints.MirrorArm(params.ArmPose))

	walkingResult := CollectMotorCommands(MotionCommand{Kind: MotionWalk}, walkingCommands, data, params)
	test.That(t, walkingResult, test.ShouldResemble, walkingCommands)
}

func TestWalkingEngineNode(t *testing.T) {
	logger := logging.NewTestLogger(t)
	node := NewWalkingEngine(logger)
	params := DefaultParameters()
	data := standingSensorData(t)
	robotToGround := EstimateRobotToGround(data, params.GroundContactThreshold)
	start := time.Unix(0, 0)

	run := func(command WalkCommand) cycler.Step {
		result, err := cycler.RunNode(node, 1, start, map[string]any{
			WalkCommandOutput:     command,
			SensorDataOutput:      data,
			CycleTimeOutput:       CycleTime{StartTime: start, LastCycleDuration: 12 * time.Millisecond},
			RobotToGroundOutput:   robotToGround,
			ZeroMomentPointOutput: (*spatialmath.Point2[referenceframe.Walk])(nil),
			InputParameters:       params,
		}, []string{walking.StepPlanOutput}, logger)
		test.That(t, err, test.ShouldBeNil)
		return result
	}

	standing := run(WalkCommand{Kind: WalkCommandStand})
	test.That(t, standing.Main[WalkingModeOutput], test.ShouldEqual, walking.ModeStanding)
	test.That(t, standing.Additional, test.ShouldBeEmpty)

	walkingStep := run(WalkCommand{Kind: WalkCommandWalk, Step: walking.Step{Forward: 0.02}})
	test.That(t, walkingStep.Main[WalkingModeOutput], test.ShouldEqual, walking.ModeStarting)
	test.That(t, walkingStep.Additional, test.ShouldContainKey, walking.StepPlanOutput)
	commands := walkingStep.Main[WalkingMotorCommandsOutput].(joints.MotorCommands[joints.Joints[float64]])
	test.That(t, commands.Stiffnesses.LeftLeg.KneePitch, test.ShouldBeGreaterThan, 0)

	// invalid parameters are rejected and the engine keeps walking
	broken := params
	broken.Walking.GyroLowPassFactor = 0
	params = broken
	test.That(t, run(WalkCommand{Kind: WalkCommandWalk}).Main[WalkingModeOutput], test.ShouldEqual, walking.ModeStarting)
}

func TestMotorCommandWriter(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := fake.NewRobot(nil, fake.DefaultOptions())
	node := NewMotorCommandWriter(r)
	commands := joints.MotorCommands[joints.Joints[float64]]{Positions: joints.Fill(0.2), Stiffnesses: joints.Fill(0.5)}
	_, err := cycler.RunNode(node, 1, time.Unix(0, 0), map[string]any{
		MotorCommandsOutput: commands,
		PrimaryStateOutput:  Playing,
	}, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	written, writes := r.LastActuatorCommand()
	test.That(t, writes, test.ShouldEqual, 1)
	test.That(t, written.Positions, test.ShouldResemble, commands.Positions)
	test.That(t, written.Leds.Chest, test.ShouldResemble, StateColor(Playing))
}

func TestMotorCommandWriterErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	inputs := map[string]any{
		MotorCommandsOutput: joints.MotorCommands[joints.Joints[float64]]{Positions: joints.Fill(0.1)},
		PrimaryStateOutput:  Playing,
	}
	transient := robot.NewTransientError(errors.New("lola socket busy"))

	t.Run("transient_error_is_retried", func(t *testing.T) {
		r := fake.NewRobot(nil, fake.DefaultOptions())
		r.FailNextActuatorWrites(transient)
		_, err := cycler.RunNode(NewMotorCommandWriter(r), 1, time.Unix(0, 0), inputs, nil, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, r.ActuatorWriteAttempts(), test.ShouldEqual, 2)
		_, writes := r.LastActuatorCommand()
		test.That(t, writes, test.ShouldEqual, 1)
	})

	t.Run("repeated_transient_error_fails_the_node", func(t *testing.T) {
		r := fake.NewRobot(nil, fake.DefaultOptions())
		r.FailNextActuatorWrites(transient, transient)
		_, err := cycler.RunNode(NewMotorCommandWriter(r), 1, time.Unix(0, 0), inputs, nil, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, cycler.ErrPersistentHardware), test.ShouldBeFalse)
		test.That(t, r.ActuatorWriteAttempts(), test.ShouldEqual, 2)
	})

	t.Run("persistent_error_ends_the_cycler", func(t *testing.T) {
		r := fake.NewRobot(nil, fake.DefaultOptions())
		r.FailNextActuatorWrites(errors.New("chest board unplugged"))
		_, err := cycler.RunNode(NewMotorCommandWriter(r), 1, time.Unix(0, 0), inputs, nil, logger)
		test.That(t, errors.Is(err, cycler.ErrPersistentHardware), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "chest board unplugged")
		test.That(t, r.ActuatorWriteAttempts(), test.ShouldEqual, 1)
	})
}

func TestGameControllerReturnSender(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := fake.NewRobot(nil, fake.DefaultOptions())
	node := NewGameControllerReturnSender(r)
	params := DefaultParameters()
	seen := time.Unix(100, 0)
	run := func(now time.Time, fall FallState, ball *BallPosition) {
		_, err := cycler.RunNode(node, 1, now, map[string]any{
			InputParameters:    params,
			FallStateOutput:    fall,
			BallPositionOutput: ball,
		}, nil, logger)
		test.That(t, err, test.ShouldBeNil)
	}

	ball := &BallPosition{Position: spatialmath.NewPoint2[referenceframe.Ground](1.5, -0.5), LastSeen: seen}
	run(seen.Add(250*time.Millisecond), FallState{Kind: Upright}, ball)
	// within the interval nothing is sent
	run(seen.Add(500*time.Millisecond), FallState{Kind: Fallen}, nil)
	run(seen.Add(750*time.Millisecond), FallState{Kind: Fallen}, nil)

	sent := r.SentMessages()
	test.That(t, sent, test.ShouldHaveLength, 2)
	first, err := gamecontroller.ParseReturnMessage(sent[0].Payload)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sent[0].Kind, test.ShouldEqual, robot.GameControllerMessage)
	test.That(t, first.PlayerNumber, test.ShouldEqual, params.PlayerNumber)
	test.That(t, first.Fallen, test.ShouldBeFalse)
	test.That(t, *first.BallPosition, test.ShouldResemble, [2]float64{1.5, -0.5})
	test.That(t, first.BallAge, test.ShouldAlmostEqual, 0.25)

	second, err := gamecontroller.ParseReturnMessage(sent[1].Payload)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second.Fallen, test.ShouldBeTrue)
	test.That(t, second.BallPosition, test.ShouldBeNil)
}

func TestStateColor(t *testing.T) {
	test.That(t, StateColor(Playing), test.ShouldResemble, [3]float64{0, 1, 0})
	test.That(t, StateColor(Set), test.ShouldResemble, [3]float64{1, 1, 0})
	test.That(t, StateColor(Penalized), test.ShouldResemble, [3]float64{1, 0, 0})
	test.That(t, StateColor(Unstiff), test.ShouldResemble, [3]float64{0, 0, 0.2})
	test.That(t, StateColor(Initial), test.ShouldResemble, [3]float64{})
}

func TestParametersRoundTripThroughJSON(t *testing.T) {
	encoded, err := json.Marshal(DefaultParameters())
	test.That(t, err, test.ShouldBeNil)
	var decoded Parameters
	test.That(t, json.Unmarshal(encoded, &decoded), test.ShouldBeNil)
	test.That(t, decoded.WalkToBall, test.ShouldResemble, DefaultParameters().WalkToBall)
}
