// Package gamecontroller tracks the game state announced by the referee's game controller.
package gamecontroller

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// GameState is the primary state of the game.
type GameState int

// The game states.
const (
	Initial GameState = iota
	Standby
	Ready
	Set
	Playing
	Finished
)

var gameStateNames = []string{"initial", "standby", "ready", "set", "playing", "finished"}

func (s GameState) String() string { return enumName(gameStateNames, int(s)) }

// MarshalJSON writes the state name.
func (s GameState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON reads a state name.
func (s *GameState) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, gameStateNames, "game state", (*int)(s))
}

// SubState is a set play that interrupts Playing.
type SubState int

// The sub states.
const (
	NoSubState SubState = iota
	PenaltyKick
	CornerKick
	GoalKick
	KickIn
	PushingFreeKick
)

var subStateNames = []string{"none", "penalty_kick", "corner_kick", "goal_kick", "kick_in", "pushing_free_kick"}

func (s SubState) String() string { return enumName(subStateNames, int(s)) }

// MarshalJSON writes the sub state name.
func (s SubState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON reads a sub state name.
func (s *SubState) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, subStateNames, "sub state", (*int)(s))
}

// Team is our team or the opponent.
type Team int

// The teams.
const (
	Own Team = iota
	Opponent
)

var teamNames = []string{"own", "opponent"}

func (t Team) String() string { return enumName(teamNames, int(t)) }

// MarshalText allows teams as map keys in JSON.
func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText reads a team name.
func (t *Team) UnmarshalText(text []byte) error {
	index := slices.Index(teamNames, string(text))
	if index < 0 {
		return errors.Errorf("unknown team %q", text)
	}
	*t = Team(index)
	return nil
}

// GamePhase distinguishes regular play from shootouts and breaks.
type GamePhase int

// The game phases.
const (
	Normal GamePhase = iota
	PenaltyShootout
	Overtime
	Timeout
)

var gamePhaseNames = []string{"normal", "penalty_shootout", "overtime", "timeout"}

func (p GamePhase) String() string { return enumName(gamePhaseNames, int(p)) }

// MarshalJSON writes the phase name.
func (p GamePhase) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

// UnmarshalJSON reads a phase name.
func (p *GamePhase) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, gamePhaseNames, "game phase", (*int)(p))
}

// PenaltyReason tells why a player was removed from the field.
type PenaltyReason int

// The penalty reasons.
const (
	IllegalBallContact PenaltyReason = iota
	PlayerPushing
	IllegalMotionInSet
	InactivePlayer
	IllegalPosition
	LeavingTheField
	RequestForPickup
	LocalGameStuck
	IllegalPositionInSet
	PlayerStance
	Substitute
	Manual
)

var penaltyReasonNames = []string{
	"illegal_ball_contact", "player_pushing", "illegal_motion_in_set", "inactive_player",
	"illegal_position", "leaving_the_field", "request_for_pickup", "local_game_stuck",
	"illegal_position_in_set", "player_stance", "substitute", "manual",
}

func (r PenaltyReason) String() string { return enumName(penaltyReasonNames, int(r)) }

// MarshalJSON writes the reason name.
func (r PenaltyReason) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// UnmarshalJSON reads a reason name.
func (r *PenaltyReason) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, penaltyReasonNames, "penalty reason", (*int)(r))
}

// Penalty is an active penalty of one of our players.
type Penalty struct {
	Reason PenaltyReason `json:"reason"`
}

func enumName(names []string, value int) string {
	if value < 0 || value >= len(names) {
		return fmt.Sprintf("unknown(%d)", value)
	}
	return names[value]
}

func unmarshalEnum(data []byte, names []string, kind string, out *int) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	index := slices.Index(names, name)
	if index < 0 {
		return errors.Errorf("unknown %s %q", kind, name)
	}
	*out = index
	return nil
}

// State is everything the game controller announced so far.
type State struct {
	GameState   GameState       `json:"game_state"`
	SubState    SubState        `json:"sub_state"`
	KickingTeam Team            `json:"kicking_team"`
	GamePhase   GamePhase       `json:"game_phase"`
	Penalties   map[int]Penalty `json:"penalties"`
	Score       map[Team]int    `json:"score"`
	BallIsFree  bool            `json:"ball_is_free"`
}

// NewState is the state before the first command.
func NewState() State {
	return State{
		Penalties: map[int]Penalty{},
		Score:     map[Team]int{Own: 0, Opponent: 0},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	clone := s
	clone.Penalties = make(map[int]Penalty, len(s.Penalties))
	for player, penalty := range s.Penalties {
		clone.Penalties[player] = penalty
	}
	clone.Score = make(map[Team]int, len(s.Score))
	for team, goals := range s.Score {
		clone.Score[team] = goals
	}
	return clone
}

// IsPenalized reports whether player currently serves a penalty.
func (s State) IsPenalized(player int) bool {
	_, ok := s.Penalties[player]
	return ok
}

// PenalizedPlayers returns the penalized player numbers in ascending order.
func (s State) PenalizedPlayers() []int {
	players := lo.Keys(s.Penalties)
	slices.Sort(players)
	return players
}

// ActivePlayers returns the player numbers 1 to teamSize that are not penalized.
func (s State) ActivePlayers(teamSize int) []int {
	return lo.Filter(lo.RangeFrom(1, teamSize), func(player, _ int) bool {
		return !s.IsPenalized(player)
	})
}

// Apply changes the state according to command. A rejected command leaves the state unchanged.
func (s *State) Apply(command Command) error {
	next := s.Clone()
	if next.Penalties == nil || next.Score == nil {
		fresh := NewState()
		if next.Penalties == nil {
			next.Penalties = fresh.Penalties
		}
		if next.Score == nil {
			next.Score = fresh.Score
		}
	}
	if err := command.apply(&next); err != nil {
		return errors.Wrapf(err, "rejected %s", command.Name())
	}
	*s = next
	return nil
}
