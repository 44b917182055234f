package labhelp

import (
	"context"
	"fmt"
	"time"

	"github.com/Raytar/labhelp/fsm"
	"github.com/Raytar/labhelp/models"
	"github.com/Raytar/labhelp/protocol"
)

// Assistant is a TA. It keeps its own copy of the session tables, hands out
// tasks, and claims and resolves help requests.
type Assistant struct {
	a       *actor
	name    string
	obs     Observer
	journal Journal

	commands commandMap

	state   SessionState
	session *fsm.TA

	syncTimeout time.Duration
	synced      bool
	announced   bool
}

// AssistantView is a copy of a TA's state for display.
type AssistantView struct {
	Name   string
	State  fsm.TAState
	Synced bool
	Tables models.Snapshot
}

func newAssistant(a *actor, name string, cfg Config, obs Observer) *Assistant {
	if obs == nil {
		obs = NopObserver{}
	}
	ta := &Assistant{
		a:           a,
		name:        name,
		obs:         obs,
		journal:     cfg.Journal,
		session:     fsm.NewTA(),
		syncTimeout: cfg.SyncTimeout,
	}
	ta.commands = commandMap{
		protocol.RequestHelp:           ta.handleRequestHelp,
		protocol.GroupPresent:          ta.handleGroupPresent,
		protocol.ReportCurrentTask:     ta.handleGroupProgress,
		protocol.TasksDone:             ta.handleGroupDone,
		protocol.TAUpdateTasks:         ta.handleUpdateTasks,
		protocol.TAUpdateReceivingHelp: ta.handleUpdateReceivingHelp,
		protocol.TAUpdateReceivedHelp:  ta.handleUpdateReceivedHelp,
		protocol.RequestUpdateOfTables: ta.handleRequestUpdateOfTables,
		protocol.TAUpdateTables:        ta.handleUpdateTables,
	}
	return ta
}

func (t *Assistant) join(ctx context.Context) error {
	topics := t.a.topics
	h := t.a.dispatch(t.commands)
	for _, topic := range []string{
		topics.All("request"),
		topics.All("present"),
		topics.All("progress"),
		topics.All("done"),
		topics.TAUpdate(),
		topics.TA(t.name),
	} {
		if err := t.a.subscribe(topic, h); err != nil {
			return err
		}
	}
	return t.a.call(ctx, func() error {
		t.a.log.Infoln("Joined as TA", t.name)
		t.startSync()
		return nil
	})
}

func (t *Assistant) Name() string { return t.name }

// SubmitTasks hands out the task list to every group. Tasks are numbered
// in the order given. It can only succeed once per session, and only after
// at least one group is present.
func (t *Assistant) SubmitTasks(ctx context.Context, tasks []models.Task) error {
	return t.a.call(ctx, func() error {
		numbered, err := t.state.SubmitTasks(tasks)
		if err != nil {
			return err
		}
		t.a.log.Infof("Submitting %d tasks", len(numbered))
		t.a.publish(t.a.topics.Tasks(), protocol.SubmitTasks, numbered)
		t.a.publish(t.a.topics.TAUpdate(), protocol.TAUpdateTasks, numbered)
		t.notifyGroups()
		return nil
	})
}

// AssignGettingHelp claims the help request of group. Nothing stops two TAs
// from claiming the same group at the same time. Each TA then applies the
// other's claim last, so the replicas disagree on who is helping the group;
// the conflict is only logged.
func (t *Assistant) AssignGettingHelp(ctx context.Context, group string) error {
	return t.a.call(ctx, func() error {
		a, err := t.state.AssignGettingHelp(group, t.name)
		if err != nil {
			return err
		}
		t.a.log.Infof("Helping %s with %q", a.Group, a.Description)
		for g, pos := range t.state.Positions() {
			t.sendQueueNumber(g, pos)
		}
		t.a.publish(t.a.topics.TAUpdate(), protocol.TAUpdateReceivingHelp, a)
		t.a.publish(t.a.topics.GettingHelp(a.Group), protocol.GettingHelp, protocol.GroupBody{Group: a.Group})
		if err := t.session.Fire(fsm.TAHelpGroup); err != nil {
			t.a.log.Errorln("Failed to start helping:", err)
		}
		if err := t.journal.RecordClaim(a); err != nil {
			t.a.log.Errorln("Failed to record claim:", err)
		}
		t.obs.OnQueueChanged(clone(t.state.Queue))
		return nil
	})
}

// AssignGotHelp resolves the active assignment of group. Any TA may
// resolve any assignment.
func (t *Assistant) AssignGotHelp(ctx context.Context, group string) error {
	return t.a.call(ctx, func() error {
		a, err := t.state.AssignGotHelp(group)
		if err != nil {
			return err
		}
		t.a.log.Infoln("Done helping", a.Group)
		t.a.publish(t.a.topics.TAUpdate(), protocol.TAUpdateReceivedHelp, protocol.GroupBody{Group: a.Group})
		t.a.publish(t.a.topics.ReceivedHelp(a.Group), protocol.ReceivedHelp, protocol.GroupBody{Group: a.Group})
		t.stopHelping(a)
		if err := t.journal.RecordResolved(a.Group); err != nil {
			t.a.log.Errorln("Failed to record resolution:", err)
		}
		return nil
	})
}

// View returns a copy of the TA's state.
func (t *Assistant) View(ctx context.Context) (view AssistantView, err error) {
	err = t.a.call(ctx, func() error {
		view = AssistantView{
			Name:   t.name,
			State:  t.session.State(),
			Synced: t.synced,
			Tables: t.state.Snapshot(),
		}
		return nil
	})
	return view, err
}

// stopHelping ends the TA session once the last of this TA's own
// assignments is resolved, whoever resolved it.
func (t *Assistant) stopHelping(a models.Assignment) {
	if a.TA != t.name || t.state.HasAssignments(t.name) {
		return
	}
	if err := t.session.Fire(fsm.TAHelpReceived); err != nil {
		t.a.log.Errorln("Failed to stop helping:", err)
	}
}

func (t *Assistant) sendQueueNumber(group string, pos int) {
	t.a.publish(t.a.topics.QueueNumber(group), protocol.QueueNumber, protocol.QueueNumberBody{QueueNumber: models.Number(pos)})
}

func (t *Assistant) notifyGroups() {
	for _, g := range t.state.Groups {
		t.obs.OnGroupStatusChanged(g.Group, g.Status)
	}
}

// handleRequestHelp queues the request and tells the requesting group its
// position, as well as every other group whose position moved.
func (t *Assistant) handleRequestHelp(env *protocol.Envelope) error {
	var req models.HelpRequest
	if err := env.Bind(&req); err != nil {
		return err
	}
	if req.Group == "" {
		return fmt.Errorf("%w: help request without group", protocol.ErrMalformed)
	}
	if claimed, ok := t.state.Assignment(req.Group); ok && claimed.Time == req.Time {
		t.a.log.Debugf("Ignoring repeated help request from %s, already claimed by %s", req.Group, claimed.TA)
		return nil
	}
	before := t.state.Positions()
	pos := t.state.RequestHelp(req)
	t.a.log.Infof("%s requested help at %s, queue number %d", req.Group, req.Time, pos)
	for g, p := range t.state.Positions() {
		if g == req.Group || before[g] != p {
			t.sendQueueNumber(g, p)
		}
	}
	if err := t.journal.RecordRequest(req); err != nil {
		t.a.log.Errorln("Failed to record help request:", err)
	}
	t.obs.OnQueueChanged(clone(t.state.Queue))
	return nil
}

func (t *Assistant) handleGroupPresent(env *protocol.Envelope) error {
	var body protocol.GroupBody
	if err := env.Bind(&body); err != nil {
		return err
	}
	if t.state.GroupPresent(body.Group) {
		status, _ := t.state.Status(body.Group)
		t.a.log.Infoln("Group present:", body.Group)
		t.obs.OnGroupStatusChanged(body.Group, status)
	}
	if t.state.TasksSubmitted {
		t.a.publish(t.a.topics.TasksLate(body.Group), protocol.SubmitTasksLate, t.state.Tasks)
	}
	t.a.publish(t.a.topics.TAReady(body.Group), protocol.TAPresent, protocol.TABody{TA: t.name})
	return nil
}

func (t *Assistant) handleGroupProgress(env *protocol.Envelope) error {
	var body protocol.ProgressBody
	if err := env.Bind(&body); err != nil {
		return err
	}
	if err := t.state.GroupProgress(body.Group, int(body.CurrentTask)); err != nil {
		return err
	}
	status, _ := t.state.Status(body.Group)
	t.obs.OnGroupStatusChanged(body.Group, status)
	return nil
}

func (t *Assistant) handleGroupDone(env *protocol.Envelope) error {
	var body protocol.GroupBody
	if err := env.Bind(&body); err != nil {
		return err
	}
	if err := t.state.GroupDone(body.Group); err != nil {
		return err
	}
	t.a.log.Infoln("Group done:", body.Group)
	t.obs.OnGroupStatusChanged(body.Group, models.StatusDone)
	return nil
}

// handleUpdateTasks stores the task list submitted by another TA.
func (t *Assistant) handleUpdateTasks(env *protocol.Envelope) error {
	var tasks []models.Task
	if err := env.Bind(&tasks); err != nil {
		return err
	}
	if !t.state.ApplyTasks(tasks) {
		t.a.log.Warnf("Ignoring tasks from %s, tasks already submitted", env.Header)
		return nil
	}
	t.notifyGroups()
	return nil
}

// handleUpdateReceivingHelp mirrors another TA's claim. Queue numbers are
// left to the claiming TA.
func (t *Assistant) handleUpdateReceivingHelp(env *protocol.Envelope) error {
	var a models.Assignment
	if err := env.Bind(&a); err != nil {
		return err
	}
	if !t.state.MirrorClaim(a) {
		t.a.log.Warnf("Conflicting claim: %s claimed %s, which is not queued here", a.TA, a.Group)
	}
	if err := t.journal.RecordClaim(a); err != nil {
		t.a.log.Errorln("Failed to record claim:", err)
	}
	t.obs.OnQueueChanged(clone(t.state.Queue))
	return nil
}

func (t *Assistant) handleUpdateReceivedHelp(env *protocol.Envelope) error {
	var body protocol.GroupBody
	if err := env.Bind(&body); err != nil {
		return err
	}
	a, ok := t.state.MirrorResolve(body.Group)
	if !ok {
		t.a.log.Warnf("%s resolved %s, which has no assignment here", env.Header, body.Group)
		return nil
	}
	t.a.log.Infof("%s resolved %s for %s", env.Header, a.Group, a.TA)
	t.stopHelping(a)
	if err := t.journal.RecordResolved(body.Group); err != nil {
		t.a.log.Errorln("Failed to record resolution:", err)
	}
	return nil
}
