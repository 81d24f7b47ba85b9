package gamecontroller

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// MaxPlayerNumber is the highest jersey number on the field.
const MaxPlayerNumber = 7

// transitions lists the game states reachable from each state.
var transitions = map[GameState][]GameState{
	Initial:  {Standby, Ready, Set, Playing, Finished},
	Standby:  {Initial, Ready},
	Ready:    {Initial, Set, Finished},
	Set:      {Initial, Ready, Playing, Finished},
	Playing:  {Initial, Ready, Set, Finished},
	Finished: {Initial},
}

// Command is one instruction of the game controller.
type Command interface {
	Name() string
	apply(state *State) error
}

// SetGameState moves to another game state.
type SetGameState struct {
	GameState GameState `json:"game_state"`
}

// Name implements Command.
func (SetGameState) Name() string { return "set_game_state" }

func (c SetGameState) apply(state *State) error {
	if c.GameState == state.GameState {
		return nil
	}
	allowed := false
	for _, target := range transitions[state.GameState] {
		allowed = allowed || target == c.GameState
	}
	if !allowed {
		return errors.Errorf("cannot go from %s to %s", state.GameState, c.GameState)
	}
	state.GameState = c.GameState
	if c.GameState != Playing {
		state.SubState = NoSubState
	}
	if c.GameState == Playing {
		state.BallIsFree = false
	}
	return nil
}

// SetSubState starts a set play for the kicking team.
type SetSubState struct {
	SubState    SubState `json:"sub_state"`
	KickingTeam Team     `json:"kicking_team"`
}

// Name implements Command.
func (SetSubState) Name() string { return "set_sub_state" }

func (c SetSubState) apply(state *State) error {
	if state.GameState != Playing && c.SubState != NoSubState {
		return errors.Errorf("set plays need playing, not %s", state.GameState)
	}
	state.SubState = c.SubState
	state.KickingTeam = c.KickingTeam
	state.BallIsFree = false
	return nil
}

// SetKickingTeam changes who kicks off or takes the set play.
type SetKickingTeam struct {
	KickingTeam Team `json:"kicking_team"`
}

// Name implements Command.
func (SetKickingTeam) Name() string { return "set_kicking_team" }

func (c SetKickingTeam) apply(state *State) error {
	state.KickingTeam = c.KickingTeam
	return nil
}

// SetGamePhase changes the phase of the game.
type SetGamePhase struct {
	GamePhase GamePhase `json:"game_phase"`
}

// Name implements Command.
func (SetGamePhase) Name() string { return "set_game_phase" }

func (c SetGamePhase) apply(state *State) error {
	state.GamePhase = c.GamePhase
	return nil
}

// Penalize removes a player.
type Penalize struct {
	Player int           `json:"player"`
	Reason PenaltyReason `json:"reason"`
}

// Name implements Command.
func (Penalize) Name() string { return "penalize" }

func (c Penalize) apply(state *State) error {
	if err := checkPlayer(c.Player); err != nil {
		return err
	}
	state.Penalties[c.Player] = Penalty{Reason: c.Reason}
	return nil
}

// Unpenalize returns a player.
type Unpenalize struct {
	Player int `json:"player"`
}

// Name implements Command.
func (Unpenalize) Name() string { return "unpenalize" }

func (c Unpenalize) apply(state *State) error {
	if err := checkPlayer(c.Player); err != nil {
		return err
	}
	if !state.IsPenalized(c.Player) {
		return errors.Errorf("player %d is not penalized", c.Player)
	}
	delete(state.Penalties, c.Player)
	return nil
}

// Goal counts a goal for a team. The game continues with Ready and the other team kicks off.
type Goal struct {
	Team Team `json:"team"`
}

// Name implements Command.
func (Goal) Name() string { return "goal" }

func (c Goal) apply(state *State) error {
	if state.GameState != Playing {
		return errors.Errorf("goals need playing, not %s", state.GameState)
	}
	state.Score[c.Team]++
	state.GameState = Ready
	state.SubState = NoSubState
	state.BallIsFree = false
	if c.Team == Own {
		state.KickingTeam = Opponent
	} else {
		state.KickingTeam = Own
	}
	return nil
}

// BallIsFree ends the kick off or set play restrictions.
type BallIsFree struct{}

// Name implements Command.
func (BallIsFree) Name() string { return "ball_is_free" }

func (BallIsFree) apply(state *State) error {
	state.SubState = NoSubState
	state.BallIsFree = true
	return nil
}

func checkPlayer(player int) error {
	if player < 1 || player > MaxPlayerNumber {
		return errors.Errorf("no player number %d", player)
	}
	return nil
}

var parsers = map[string]func(data []byte) (Command, error){
	"set_game_state":   decode[SetGameState],
	"set_sub_state":    decode[SetSubState],
	"set_kicking_team": decode[SetKickingTeam],
	"set_game_phase":   decode[SetGamePhase],
	"penalize":         decode[Penalize],
	"unpenalize":       decode[Unpenalize],
	"goal":             decode[Goal],
	"ball_is_free":     decode[BallIsFree],
}

func decode[C Command](data []byte) (Command, error) {
	var command C
	if err := json.Unmarshal(data, &command); err != nil {
		return nil, err
	}
	return command, nil
}

// ParseCommand decodes a command of the form {"command": "<name>", ...fields}.
func ParseCommand(data []byte) (Command, error) {
	var envelope struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Wrap(err, "parsing game controller command")
	}
	parse, ok := parsers[envelope.Command]
	if !ok {
		return nil, errors.Errorf("unknown game controller command %q", envelope.Command)
	}
	command, err := parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", envelope.Command)
	}
	return command, nil
}

// EncodeCommand is the inverse of ParseCommand.
func EncodeCommand(command Command) ([]byte, error) {
	fields, err := json.Marshal(command)
	if err != nil {
		return nil, err
	}
	var document map[string]any
	if err := json.Unmarshal(fields, &document); err != nil {
		return nil, err
	}
	if document == nil {
		document = map[string]any{}
	}
	document["command"] = command.Name()
	return json.Marshal(document)
}
