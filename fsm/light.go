package fsm

import "time"

type LightState string

const (
	LightIdle   LightState = "idle"
	LightGreen  LightState = "green"
	LightYellow LightState = "yellow"
	LightRed    LightState = "red"
	LightOff    LightState = "off"
)

type LightEvent string

const (
	LightTaskStart LightEvent = "task_start"
	LightTimeout   LightEvent = "t"
	LightTasksDone LightEvent = "tasks_done"
)

// Light asset identifiers handed to the display callback.
const (
	GreenLight  = "green_light"
	YellowLight = "yellow_light"
	RedLight    = "red_light"
	GreenOff    = "green_off"
)

var lightAssets = map[LightState]string{
	LightGreen:  GreenLight,
	LightYellow: YellowLight,
	LightRed:    RedLight,
	LightOff:    GreenOff,
}

var lightTable = table[LightState, LightEvent]{
	{LightIdle, LightTaskStart}:   LightGreen,
	{LightGreen, LightTimeout}:    LightYellow,
	{LightYellow, LightTimeout}:   LightRed,
	{LightGreen, LightTaskStart}:  LightGreen,
	{LightYellow, LightTaskStart}: LightGreen,
	{LightRed, LightTaskStart}:    LightGreen,
	{LightGreen, LightTasksDone}:  LightOff,
	{LightYellow, LightTasksDone}: LightOff,
	{LightRed, LightTasksDone}:    LightOff,
}

// LightTransition returns the state reached from s on event e.
func LightTransition(s LightState, e LightEvent) (LightState, error) {
	return lightTable.next(s, e)
}

// Light simulates a traffic light for the task a group is working on. Green
// and yellow each last half of the task's duration; red lasts until the next
// task starts or all tasks are done.
type Light struct {
	state     LightState
	durations []time.Duration
	index     int
	entered   bool
	gen       int
}

// NewLight returns a light for tasks with the given durations in minutes.
func NewLight(minutes []int) *Light {
	durations := make([]time.Duration, len(minutes))
	for i, m := range minutes {
		durations[i] = time.Duration(m) * time.Minute
	}
	return &Light{state: LightIdle, durations: durations}
}

func (l *Light) State() LightState { return l.state }

// TaskIndex is the zero-based index of the task the light is timing.
func (l *Light) TaskIndex() int { return l.index }

// HalfDuration is how long the current task stays green, and then yellow.
func (l *Light) HalfDuration() time.Duration {
	if len(l.durations) == 0 {
		return 0
	}
	return l.durations[l.index] / 2
}

// Fire applies an external event.
func (l *Light) Fire(e LightEvent) ([]Effect, error) {
	if e == LightTimeout {
		return nil, ErrInvalidTransition
	}
	return l.fire(e)
}

// Timeout reports an expiration of the timer started with generation gen.
// Expirations of cancelled or replaced timers are ignored.
func (l *Light) Timeout(gen int) ([]Effect, error) {
	if gen != l.gen {
		return nil, nil
	}
	return l.fire(LightTimeout)
}

func (l *Light) fire(e LightEvent) ([]Effect, error) {
	to, err := LightTransition(l.state, e)
	if err != nil {
		return nil, err
	}
	var effects []Effect
	if l.state != LightIdle {
		l.gen++
		effects = append(effects, CancelTimer{})
	}
	l.state = to
	switch to {
	case LightGreen:
		if l.entered && e == LightTaskStart && l.index < len(l.durations)-1 {
			l.index++
		}
		l.entered = true
		effects = append(effects, StartTimer{Delay: l.HalfDuration(), Gen: l.gen})
	case LightYellow:
		effects = append(effects, StartTimer{Delay: l.HalfDuration(), Gen: l.gen})
	case LightOff:
		effects = append(effects, SetLight{Light: lightAssets[to]}, Terminate{})
		return effects, nil
	}
	return append(effects, SetLight{Light: lightAssets[to]}), nil
}
