// Package labhelp coordinates a lab session between student groups and
// teaching assistants over a publish/subscribe bus.
//
// Every participant is an actor with its own event loop. TAs keep their own
// copy of the task list, the help queue, the active help assignments and the
// group status table, and keep these copies in step using broadcasts only;
// there is no central coordinator.
package labhelp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Raytar/labhelp/bus"
	"github.com/Raytar/labhelp/models"
	"github.com/Raytar/labhelp/protocol"
	"github.com/Raytar/labhelp/timer"
)

const (
	DefaultReminder    = 10 * time.Second
	DefaultSyncTimeout = 2 * time.Second
)

type Config struct {
	Bus    bus.Bus
	Topics protocol.Topics
	Timers timer.Service
	Log    *logrus.Logger
	// Journal records the help requests a TA observes. Optional.
	Journal Journal
	// Reminder is how often a group waiting for help is reminded that it is
	// still waiting. Negative disables the reminder.
	Reminder time.Duration
	// SyncTimeout is how long a joining TA waits for a snapshot from its
	// siblings before announcing itself.
	SyncTimeout time.Duration
	// Clock stamps help requests. Defaults to time.Now.
	Clock func() time.Time
}

// Journal is implemented by *database.Database.
type Journal interface {
	RecordRequest(req models.HelpRequest) error
	RecordClaim(a models.Assignment) error
	RecordResolved(group string) error
}

type nopJournal struct{}

func (nopJournal) RecordRequest(models.HelpRequest) error { return nil }
func (nopJournal) RecordClaim(models.Assignment) error    { return nil }
func (nopJournal) RecordResolved(string) error            { return nil }

// Observer receives the changes a user interface has to display. Callbacks
// run on the actor's event loop and must not call back into the actor.
type Observer interface {
	// OnStatusLightChanged reports the light asset to show for the current task.
	OnStatusLightChanged(light string)
	OnGroupStatusChanged(group, status string)
	OnQueueNumberChanged(n int)
	OnTAPresenceChanged(present bool)
	OnTasksReceived(tasks []models.Task)
	// OnHelpStateChanged reports a line of feedback about the group's help request.
	OnHelpStateChanged(text string)
	OnQueueChanged(queue []models.HelpRequest)
}

// NopObserver ignores every callback. Embed it to implement only some of them.
type NopObserver struct{}

func (NopObserver) OnStatusLightChanged(string)         {}
func (NopObserver) OnGroupStatusChanged(string, string) {}
func (NopObserver) OnQueueNumberChanged(int)            {}
func (NopObserver) OnTAPresenceChanged(bool)            {}
func (NopObserver) OnTasksReceived([]models.Task)       {}
func (NopObserver) OnHelpStateChanged(string)           {}
func (NopObserver) OnQueueChanged([]models.HelpRequest) {}

var ErrClosed = errors.New("session closed")

// Session owns the actors running in this process.
type Session struct {
	cfg Config

	mu     sync.Mutex
	actors []*actor
	closed bool
}

func New(cfg Config) (*Session, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("labhelp: no bus configured")
	}
	if cfg.Topics.Prefix == "" {
		cfg.Topics = protocol.NewTopics(protocol.DefaultPrefix)
	}
	if cfg.Timers == nil {
		cfg.Timers = timer.New()
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Journal == nil {
		cfg.Journal = nopJournal{}
	}
	if cfg.Reminder == 0 {
		cfg.Reminder = DefaultReminder
	}
	if cfg.SyncTimeout == 0 {
		cfg.SyncTimeout = DefaultSyncTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{cfg: cfg}, nil
}

// JoinAsGroup starts a group actor and announces it to the TAs. Surrounding
// whitespace is trimmed from name.
func (s *Session) JoinAsGroup(ctx context.Context, name string, obs Observer) (*Group, error) {
	name = strings.TrimSpace(name)
	a, err := s.start(name, "group")
	if err != nil {
		return nil, err
	}
	g := newGroup(a, name, s.cfg, obs)
	if err := g.join(ctx); err != nil {
		s.stop(a)
		return nil, fmt.Errorf("join as group %s: %w", name, err)
	}
	return g, nil
}

// JoinAsTA starts a TA actor and asks the running TAs for their tables.
func (s *Session) JoinAsTA(ctx context.Context, name string, obs Observer) (*Assistant, error) {
	name = strings.TrimSpace(name)
	a, err := s.start(name, "ta")
	if err != nil {
		return nil, err
	}
	ta := newAssistant(a, name, s.cfg, obs)
	if err := ta.join(ctx); err != nil {
		s.stop(a)
		return nil, fmt.Errorf("join as TA %s: %w", name, err)
	}
	return ta, nil
}

func (s *Session) start(name, role string) (*actor, error) {
	if protocol.Slug(name) == "" {
		return nil, fmt.Errorf("labhelp: empty %s name", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	a := newActor(s.cfg, protocol.Slug(name), role)
	s.actors = append(s.actors, a)
	go a.run()
	return a, nil
}

func (s *Session) stop(a *actor) {
	a.close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.actors {
		if other == a {
			s.actors = append(s.actors[:i:i], s.actors[i+1:]...)
			return
		}
	}
}

// Close stops every actor and the timers. The bus is left open.
func (s *Session) Close() error {
	s.mu.Lock()
	actors := s.actors
	s.actors = nil
	s.closed = true
	s.mu.Unlock()

	for _, a := range actors {
		a.close()
	}
	s.cfg.Timers.Stop()
	return nil
}
