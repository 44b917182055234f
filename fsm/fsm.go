// Package fsm holds the state machines of the lab session: the status light,
// the group session and the TA session.
//
// Machines are plain values. Firing an event returns the effects the owner
// has to carry out (start or cancel a timer, change the light); the machines
// never touch timers or the bus themselves.
package fsm

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid transition")

type edge[S, E ~string] struct {
	from  S
	event E
}

// table maps (state, event) to the next state.
type table[S, E ~string] map[edge[S, E]]S

func (t table[S, E]) next(from S, event E) (S, error) {
	to, ok := t[edge[S, E]{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, event)
	}
	return to, nil
}

// Effect is a side effect requested by a transition.
type Effect interface {
	isEffect()
}

// StartTimer asks the owner to (re)start the machine's timer. Expirations
// must be reported back with the same Gen; stale generations are ignored.
type StartTimer struct {
	Delay time.Duration
	Gen   int
}

// CancelTimer asks the owner to stop the machine's timer.
type CancelTimer struct{}

// SetLight asks the owner to display a light.
type SetLight struct {
	Light string
}

// Terminate reports that the machine reached a final state.
type Terminate struct{}

func (StartTimer) isEffect()  {}
func (CancelTimer) isEffect() {}
func (SetLight) isEffect()    {}
func (Terminate) isEffect()   {}
