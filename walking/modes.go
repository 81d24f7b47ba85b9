package walking

import (
	"github.com/naosoccer/stack/joints"
	"github.com/naosoccer/stack/referenceframe"
	"github.com/naosoccer/stack/robot"
	"github.com/naosoccer/stack/spatialmath"
	"github.com/naosoccer/stack/utils"
)

// ModeName names the state of the engine.
type ModeName string

// Engine modes.
const (
	ModeStanding ModeName = "Standing"
	ModeStarting ModeName = "Starting"
	ModeWalking  ModeName = "Walking"
	ModeKicking  ModeName = "Kicking"
	ModeCatching ModeName = "Catching"
	ModeStopping ModeName = "Stopping"
)

// tickInput is what a mode needs from one control cycle.
type tickInput struct {
	context    *Context
	gyro       spatialmath.Vector3[referenceframe.Robot]
	torsoRoll  float64
	torsoPitch float64
}

// mode is one state of the walking engine. Every method returns the mode to continue with.
type mode interface {
	name() ModeName
	// stepState is nil while standing.
	stepState() *StepState
	walk(e *Engine, step Step) mode
	kick(e *Engine, request KickRequest) mode
	stand(e *Engine) mode
	tick(e *Engine, input tickInput) mode
}

// clampStep limits the change of the requested step against the last requested one. The forward
// component has to pass through zero before it changes sign.
func clampStep(params Parameters, requested, last Step) Step {
	acceleration := params.MaxForwardAcceleration
	low, high := last.Forward-acceleration, last.Forward+acceleration
	switch {
	case last.Forward > 0:
		low = max(low, 0)
	case last.Forward < 0:
		high = min(high, 0)
	}
	forward := utils.Clamp(requested.Forward, low, high)

	turnAcceleration := params.MaxTurnAcceleration
	if forward > params.ForwardTurnThreshold || forward < -params.ForwardTurnThreshold {
		turnAcceleration *= params.ForwardTurnReduction
	}
	turn := utils.Clamp(requested.Turn, last.Turn-turnAcceleration, last.Turn+turnAcceleration)

	return Step{Forward: forward, Left: requested.Left, Turn: turn}
}

// advance ticks state and reports whether it ended. A timeout wins over a support switch.
func advance(e *Engine, state *StepState, input tickInput) bool {
	state.tick(e.params, input.context.CycleDuration, input.gyro, input.torsoRoll, input.torsoPitch)
	if state.TimedOut() {
		return true
	}
	return state.IsSupportSwitched(e.params, input.context.SensorData.ForceSensitiveResistors)
}

// nextStep decides the step following a finished step of a walking mode.
func nextStep(e *Engine, finished *StepState, lastRequested Step) mode {
	support := finished.Plan.SupportSide.Opposite()
	if e.standRequested {
		return newStoppingMode(e, support)
	}
	if finished.TimedOut() {
		return newWalkingMode(e, ZeroStep, ZeroStep, support)
	}
	if e.pendingKick != nil {
		return startKick(e, *e.pendingKick, support)
	}
	step := clampStep(e.params, e.requestedStep, lastRequested)
	return newWalkingMode(e, step, step, support)
}

// startKick kicks on the next step if support fits the kick, otherwise it takes a step in place
// to get the kicking foot free.
func startKick(e *Engine, request KickRequest, support robot.Side) mode {
	if support != request.SupportSide() {
		return newWalkingMode(e, ZeroStep, ZeroStep, support)
	}
	e.pendingKick = nil
	kicking, err := newKickingMode(e, request)
	if err != nil {
		e.logger.Warnw("cannot kick", "variant", request.Variant, "error", err)
		step := clampStep(e.params, e.requestedStep, ZeroStep)
		return newWalkingMode(e, step, step, support)
	}
	return kicking
}

type standingMode struct{}

func (standingMode) name() ModeName        { return ModeStanding }
func (standingMode) stepState() *StepState { return nil }

func (m standingMode) walk(e *Engine, _ Step) mode {
	return newStartingMode(e)
}

func (m standingMode) kick(e *Engine, request KickRequest) mode {
	e.pendingKick = &request
	return newStartingMode(e)
}

func (m standingMode) stand(*Engine) mode { return m }

func (m standingMode) tick(*Engine, tickInput) mode { return m }

type startingMode struct {
	state *StepState
}

func newStartingMode(e *Engine) *startingMode {
	support := e.params.StartingSide
	return &startingMode{state: NewStepState(NewStepPlan(e.params, ZeroStep, support, e.startFeet(support)))}
}

func (m *startingMode) name() ModeName        { return ModeStarting }
func (m *startingMode) stepState() *StepState { return m.state }
func (m *startingMode) walk(*Engine, Step) mode {
	return m
}

func (m *startingMode) kick(e *Engine, request KickRequest) mode {
	e.pendingKick = &request
	return m
}

func (m *startingMode) stand(*Engine) mode { return m }

func (m *startingMode) tick(e *Engine, input tickInput) mode {
	if !advance(e, m.state, input) {
		return m
	}
	support := m.state.Plan.SupportSide.Opposite()
	if e.standRequested {
		return newStoppingMode(e, support)
	}
	if e.pendingKick != nil {
		return startKick(e, *e.pendingKick, support)
	}
	step := clampStep(e.params, e.requestedStep, ZeroStep)
	return newWalkingMode(e, step, step, support)
}

type walkingMode struct {
	state         *StepState
	lastRequested Step
}

func newWalkingMode(e *Engine, step, lastRequested Step, support robot.Side) *walkingMode {
	return &walkingMode{
		state:         NewStepState(NewStepPlan(e.params, step, support, e.startFeet(support))),
		lastRequested: lastRequested,
	}
}

func (m *walkingMode) name() ModeName        { return ModeWalking }
func (m *walkingMode) stepState() *StepState { return m.state }
func (m *walkingMode) walk(*Engine, Step) mode {
	return m
}

func (m *walkingMode) kick(e *Engine, request KickRequest) mode {
	e.pendingKick = &request
	return m
}

func (m *walkingMode) stand(*Engine) mode { return m }

func (m *walkingMode) tick(e *Engine, input tickInput) mode {
	if advance(e, m.state, input) {
		return nextStep(e, m.state, m.lastRequested)
	}
	if e.catch(m.state, input) {
		return &catchingMode{state: m.state, lastRequested: m.lastRequested}
	}
	return m
}

// catchingMode executes a step that was replanned to catch the robot. The requested step resumes
// after it.
type catchingMode struct {
	state         *StepState
	lastRequested Step
}

func (m *catchingMode) name() ModeName        { return ModeCatching }
func (m *catchingMode) stepState() *StepState { return m.state }
func (m *catchingMode) walk(*Engine, Step) mode {
	return m
}

func (m *catchingMode) kick(e *Engine, request KickRequest) mode {
	e.pendingKick = &request
	return m
}

func (m *catchingMode) stand(*Engine) mode { return m }

func (m *catchingMode) tick(e *Engine, input tickInput) mode {
	if advance(e, m.state, input) {
		return nextStep(e, m.state, m.lastRequested)
	}
	e.catch(m.state, input)
	return m
}

type kickingMode struct {
	request   KickRequest
	steps     []KickStep
	index     int
	state     *StepState
	overrides kickOverrides
}

func newKickingMode(e *Engine, request KickRequest) (*kickingMode, error) {
	steps, err := e.params.Kicks.Steps(request.Variant)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, errNoKickSteps
	}
	m := &kickingMode{request: request, steps: steps}
	if err := m.begin(e, 0); err != nil {
		return nil, err
	}
	return m, nil
}

// begin starts kick step index. Kick steps alternate the swing foot starting with the kicking foot.
func (m *kickingMode) begin(e *Engine, index int) error {
	swing := m.request.Side
	if index%2 == 1 {
		swing = swing.Opposite()
	}
	step := m.steps[index]
	overrides, err := newKickOverrides(step, m.request.Strength)
	if err != nil {
		return err
	}
	m.index = index
	m.overrides = overrides
	m.state = NewStepState(step.plan(e.params, swing, e.startFeet(swing.Opposite())))
	return nil
}

func (m *kickingMode) name() ModeName        { return ModeKicking }
func (m *kickingMode) stepState() *StepState { return m.state }
func (m *kickingMode) walk(*Engine, Step) mode {
	return m
}

func (m *kickingMode) kick(*Engine, KickRequest) mode { return m }

func (m *kickingMode) stand(*Engine) mode { return m }

func (m *kickingMode) tick(e *Engine, input tickInput) mode {
	if !advance(e, m.state, input) {
		return m
	}
	if m.index+1 < len(m.steps) {
		if err := m.begin(e, m.index+1); err == nil {
			return m
		}
	}
	support := m.state.Plan.SupportSide.Opposite()
	if e.standRequested {
		return newStoppingMode(e, support)
	}
	step := clampStep(e.params, e.requestedStep, ZeroStep)
	return newWalkingMode(e, step, step, support)
}

// adjustLegs adds the kick overrides to the swing leg.
func (m *kickingMode) adjustLegs(left, right joints.LegJoints[float64]) (joints.LegJoints[float64], joints.LegJoints[float64]) {
	if m.state.Plan.SupportSide == robot.Left {
		return left, m.overrides.apply(right, m.state.TimeSinceStart)
	}
	return m.overrides.apply(left, m.state.TimeSinceStart), right
}

type stoppingMode struct {
	state *StepState
}

func newStoppingMode(e *Engine, support robot.Side) *stoppingMode {
	return &stoppingMode{state: NewStepState(NewStepPlan(e.params, ZeroStep, support, e.startFeet(support)))}
}

func (m *stoppingMode) name() ModeName        { return ModeStopping }
func (m *stoppingMode) stepState() *StepState { return m.state }

// walk resumes walking with the step in flight.
func (m *stoppingMode) walk(*Engine, Step) mode {
	return &walkingMode{state: m.state, lastRequested: ZeroStep}
}

func (m *stoppingMode) kick(e *Engine, request KickRequest) mode {
	e.pendingKick = &request
	return &walkingMode{state: m.state, lastRequested: ZeroStep}
}

func (m *stoppingMode) stand(*Engine) mode { return m }

func (m *stoppingMode) tick(e *Engine, input tickInput) mode {
	if advance(e, m.state, input) {
		return standingMode{}
	}
	return m
}
