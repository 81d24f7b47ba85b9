package control

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/gamecontroller"
	"github.com/naosoccer/stack/nodes/audio"
	"github.com/naosoccer/stack/nodes/network"
	"github.com/naosoccer/stack/robot"
)

// GameControllerFilter applies the game controller commands received by the network cycler.
type GameControllerFilter struct {
	nodeInfo
	state gamecontroller.State
}

// NewGameControllerFilter starts in the initial game state.
func NewGameControllerFilter() *GameControllerFilter {
	return &GameControllerFilter{
		nodeInfo: nodeInfo{
			name:    "game_controller_filter",
			inputs:  []string{InputSplNetwork},
			outputs: []string{GameControllerStateOutput},
		},
		state: gamecontroller.NewState(),
	}
}

// InitialOutputs implements cycler.Node.
func (n *GameControllerFilter) InitialOutputs() map[string]any {
	return map[string]any{GameControllerStateOutput: gamecontroller.NewState()}
}

// Cycle implements cycler.Node. Rejected commands are logged and skipped.
func (n *GameControllerFilter) Cycle(ctx *cycler.Context) error {
	batches, err := cycler.PerceptionOutputs[[]gamecontroller.Command](
		ctx, InputSplNetwork, network.GameControllerCommandsOutput)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		for _, command := range batch.Value {
			if err := n.state.Apply(command); err != nil {
				ctx.Logger().Warnw("ignoring game controller command", "command", command.Name(), "error", err)
			}
		}
	}
	return ctx.Write(GameControllerStateOutput, n.state.Clone())
}

// PrimaryStateFilter derives the primary state from the game state and the buttons.
type PrimaryStateFilter struct {
	nodeInfo
	state        PrimaryState
	chestPressed bool
	whistleInSet bool
}

// NewPrimaryStateFilter starts unstiff.
func NewPrimaryStateFilter() *PrimaryStateFilter {
	return &PrimaryStateFilter{
		nodeInfo: nodeInfo{
			name:    "primary_state_filter",
			inputs:  []string{SensorDataOutput, GameControllerStateOutput, InputParameters, InputAudio},
			outputs: []string{PrimaryStateOutput},
		},
		state: Unstiff,
	}
}

// InitialOutputs implements cycler.Node.
func (n *PrimaryStateFilter) InitialOutputs() map[string]any {
	return map[string]any{PrimaryStateOutput: Unstiff}
}

// Cycle implements cycler.Node.
func (n *PrimaryStateFilter) Cycle(ctx *cycler.Context) error {
	data, err := cycler.Input[robot.SensorData](ctx, SensorDataOutput)
	if err != nil {
		return err
	}
	game, err := cycler.Input[gamecontroller.State](ctx, GameControllerStateOutput)
	if err != nil {
		return err
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
	if err != nil {
		return err
	}
	whistles, err := cycler.PerceptionOutputs[bool](ctx, InputAudio, audio.WhistleDetectedOutput)
	if err != nil {
		return err
	}

	chestClicked := data.Buttons.ChestPressed && !n.chestPressed
	n.chestPressed = data.Buttons.ChestPressed

	if game.GameState != gamecontroller.Set {
		n.whistleInSet = false
	}
	for _, whistle := range whistles {
		n.whistleInSet = n.whistleInSet || (whistle.Value && game.GameState == gamecontroller.Set)
	}

	next := n.next(chestClicked, data.Buttons, game, params.PlayerNumber)
	if next != n.state {
		ctx.Logger().Infow("primary state changed", "from", n.state, "to", next)
	}
	n.state = next
	return ctx.Write(PrimaryStateOutput, n.state)
}

func (n *PrimaryStateFilter) next(
	chestClicked bool,
	buttons robot.Buttons,
	game gamecontroller.State,
	player int,
) PrimaryState {
	switch {
	case chestClicked && n.state == Unstiff:
		return fromGameState(game, player, n.whistleInSet)
	case chestClicked:
		return Unstiff
	case n.state == Unstiff:
		return Unstiff
	}
	headTouched := buttons.HeadFront && buttons.HeadMiddle && buttons.HeadRear
	if game.GameState == gamecontroller.Initial && (headTouched || n.state == Calibration) {
		return Calibration
	}
	return fromGameState(game, player, n.whistleInSet)
}

func fromGameState(game gamecontroller.State, player int, whistleInSet bool) PrimaryState {
	if game.IsPenalized(player) {
		return Penalized
	}
	switch game.GameState {
	case gamecontroller.Ready:
		return Ready
	case gamecontroller.Set:
		if whistleInSet {
			return Playing
		}
		return Set
	case gamecontroller.Playing:
		return Playing
	case gamecontroller.Finished:
		return Finished
	default:
		return Initial
	}
}

// returnMessageInterval is how often the game controller expects a return message.
const returnMessageInterval = 500 * time.Millisecond

// GameControllerReturnSender reports fall state and ball to the game controller.
type GameControllerReturnSender struct {
	nodeInfo
	network robot.NetworkInterface
	last    time.Time
}

// NewGameControllerReturnSender sends over network.
func NewGameControllerReturnSender(network robot.NetworkInterface) *GameControllerReturnSender {
	return &GameControllerReturnSender{
		nodeInfo: nodeInfo{
			name:   "game_controller_return_sender",
			inputs: []string{InputParameters, FallStateOutput, BallPositionOutput},
		},
		network: network,
	}
}

// InitialOutputs implements cycler.Node.
func (n *GameControllerReturnSender) InitialOutputs() map[string]any {
	return map[string]any{}
}

// Cycle implements cycler.Node. A message is sent at most once per interval.
func (n *GameControllerReturnSender) Cycle(ctx *cycler.Context) error {
	if !n.last.IsZero() && ctx.StartTime().Sub(n.last) < returnMessageInterval {
		return nil
	}
	params, err := cycler.Input[Parameters](ctx, InputParameters)
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

	message := gamecontroller.ReturnMessage{PlayerNumber: params.PlayerNumber, Fallen: fall.Kind == Fallen}
	if ball != nil {
		message.BallPosition = &[2]float64{ball.Position.X, ball.Position.Y}
		message.BallAge = ctx.StartTime().Sub(ball.LastSeen).Seconds()
	}
	payload, err := gamecontroller.EncodeReturnMessage(message)
	if err != nil {
		return err
	}
	writeContext, cancel := context.WithTimeout(context.Background(), returnMessageInterval)
	defer cancel()
	err = n.network.WriteToNetwork(writeContext, robot.OutgoingMessage{Kind: robot.GameControllerMessage, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "sending return message")
	}
	n.last = ctx.StartTime()
	return nil
}
