// Package network contains the nodes of the SPL network cycler. It receives datagrams and turns
// game controller messages into commands for the control cycler.
package network

import (
	"github.com/naosoccer/stack/cycler"
	"github.com/naosoccer/stack/gamecontroller"
	"github.com/naosoccer/stack/robot"
)

// External inputs of the network cycler.
const (
	InputHardwareMessage = "hardware_message"
)

// Main outputs of the network cycler.
const (
	IncomingMessagesOutput       = "incoming_messages"
	GameControllerCommandsOutput = "game_controller_commands"
)

// Nodes returns the nodes of the network cycler.
func Nodes() []cycler.Node {
	return []cycler.Node{MessageReceiver{}, GameControllerMessageParser{}}
}

// MessageReceiver publishes the datagram that started the tick.
type MessageReceiver struct{}

// Name implements cycler.Node.
func (MessageReceiver) Name() string { return "message_receiver" }

// Inputs implements cycler.Node.
func (MessageReceiver) Inputs() []string { return []string{InputHardwareMessage} }

// Outputs implements cycler.Node.
func (MessageReceiver) Outputs() []string { return []string{IncomingMessagesOutput} }

// InitialOutputs implements cycler.Node.
func (MessageReceiver) InitialOutputs() map[string]any {
	return map[string]any{IncomingMessagesOutput: []robot.IncomingMessage{}}
}

// Cycle implements cycler.Node.
func (MessageReceiver) Cycle(ctx *cycler.Context) error {
	message, err := cycler.Input[robot.IncomingMessage](ctx, InputHardwareMessage)
	if err != nil {
		return err
	}
	return ctx.Write(IncomingMessagesOutput, []robot.IncomingMessage{message})
}

// GameControllerMessageParser decodes game controller messages. It never fails, so a broken
// message cannot leave the commands of the previous tick in place to be applied twice.
type GameControllerMessageParser struct{}

// Name implements cycler.Node.
func (GameControllerMessageParser) Name() string { return "game_controller_message_parser" }

// Inputs implements cycler.Node.
func (GameControllerMessageParser) Inputs() []string { return []string{IncomingMessagesOutput} }

// Outputs implements cycler.Node.
func (GameControllerMessageParser) Outputs() []string {
	return []string{GameControllerCommandsOutput}
}

// InitialOutputs implements cycler.Node.
func (GameControllerMessageParser) InitialOutputs() map[string]any {
	return map[string]any{GameControllerCommandsOutput: []gamecontroller.Command{}}
}

// Cycle implements cycler.Node.
func (GameControllerMessageParser) Cycle(ctx *cycler.Context) error {
	commands := []gamecontroller.Command{}
	messages, err := cycler.Input[[]robot.IncomingMessage](ctx, IncomingMessagesOutput)
	if err != nil {
		ctx.Logger().Warnw("no incoming messages", "error", err)
		return ctx.Write(GameControllerCommandsOutput, commands)
	}
	for _, message := range messages {
		if message.Kind != robot.GameControllerMessage {
			continue
		}
		command, err := gamecontroller.ParseCommand(message.Payload)
		if err != nil {
			ctx.Logger().Warnw("dropping game controller message", "sender", message.Sender, "error", err)
			continue
		}
		commands = append(commands, command)
	}
	return ctx.Write(GameControllerCommandsOutput, commands)
}
