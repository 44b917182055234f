package labhelp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Raytar/labhelp/fsm"
	"github.com/Raytar/labhelp/models"
	"github.com/Raytar/labhelp/protocol"
)

var (
	ErrAlreadyRequesting = errors.New("already requesting help")
	ErrNoTA              = errors.New("no TA is present")
	ErrEmptyDescription  = errors.New("empty help description")
	ErrFinished          = errors.New("all tasks are done")
)

// Help feedback reported through Observer.OnHelpStateChanged.
const (
	HelpRequested    = "Request successfully sent!"
	HelpGetting      = "Getting help!"
	HelpReceived     = "Received help!"
	HelpStillWaiting = "Still waiting for help"
)

const (
	lightTimer    = "light"
	reminderTimer = "reminder"

	requestTimeFormat = "15:04:05"
)

// Group is a student group working through the task list. It runs the
// group session and the status light, asks TAs for help and reports its
// progress to them.
type Group struct {
	a     *actor
	name  string
	obs   Observer
	clock func() time.Time

	commands commandMap

	session    *fsm.Group
	light      *fsm.Light
	tasks      []models.Task
	current    int // index into tasks; len(tasks) once all are done
	haveTasks  bool
	requesting bool
	taPresent  bool
	queueNum   int
}

// GroupView is a copy of a group's state for display.
type GroupView struct {
	Name        string
	State       fsm.GroupState
	Light       fsm.LightState
	Tasks       []models.Task
	CurrentTask int // 1-based; 0 before tasks arrive
	QueueNumber int
	TAPresent   bool
	Requesting  bool
}

func newGroup(a *actor, name string, cfg Config, obs Observer) *Group {
	if obs == nil {
		obs = NopObserver{}
	}
	g := &Group{
		a:       a,
		name:    name,
		obs:     obs,
		clock:   cfg.Clock,
		session: fsm.NewGroup(cfg.Reminder),
	}
	g.commands = commandMap{
		protocol.SubmitTasks:     g.handleTasks,
		protocol.SubmitTasksLate: g.handleTasks,
		protocol.QueueNumber:     g.handleQueueNumber,
		protocol.GettingHelp:     g.handleGettingHelp,
		protocol.ReceivedHelp:    g.handleReceivedHelp,
		protocol.TAPresent:       g.handleTAPresent,
		protocol.TAPresentAll:    g.handleTAPresentAll,
	}
	return g
}

func (g *Group) join(ctx context.Context) error {
	t := g.a.topics
	h := g.a.dispatch(g.commands)
	for _, topic := range []string{
		t.Tasks(),
		t.TasksLate(g.name),
		t.QueueNumber(g.name),
		t.GettingHelp(g.name),
		t.ReceivedHelp(g.name),
		t.TAReady(g.name),
		t.TAReadyAll(),
	} {
		if err := g.a.subscribe(topic, h); err != nil {
			return err
		}
	}
	return g.a.call(ctx, func() error {
		g.a.log.Infoln("Joined as group", g.name)
		g.announce()
		return nil
	})
}

func (g *Group) Name() string { return g.name }

func (g *Group) announce() {
	g.a.publish(g.a.topics.Present(g.name), protocol.GroupPresent, protocol.GroupBody{Group: g.name})
}

// RequestHelp asks the TAs for help with description. The request is
// rejected if no TA has announced itself, if the group is already waiting
// for help, or if description is empty.
func (g *Group) RequestHelp(ctx context.Context, description string) error {
	return g.a.call(ctx, func() error {
		description = strings.TrimSpace(description)
		switch {
		case !g.taPresent:
			return ErrNoTA
		case g.requesting:
			return ErrAlreadyRequesting
		case description == "":
			return ErrEmptyDescription
		}
		if err := g.fire(fsm.GroupRequestHelp); err != nil {
			return err
		}
		req := models.HelpRequest{
			Group:       g.name,
			Description: description,
			Time:        g.clock().Format(requestTimeFormat),
		}
		g.a.publish(g.a.topics.Request(g.name), protocol.RequestHelp, req)
		g.requesting = true
		g.obs.OnHelpStateChanged(HelpRequested)
		return nil
	})
}

// MarkCurrentTaskDone completes the current task. The next task becomes
// current and the TAs are told about it; after the last task the TAs are
// told the group is done and the light goes off.
func (g *Group) MarkCurrentTaskDone(ctx context.Context) error {
	return g.a.call(ctx, func() error {
		switch {
		case len(g.tasks) == 0:
			return ErrNoTasks
		case g.current >= len(g.tasks):
			return ErrFinished
		}
		g.current++
		if g.current < len(g.tasks) {
			g.a.publish(g.a.topics.Progress(g.name), protocol.ReportCurrentTask, protocol.ProgressBody{
				Group:       g.name,
				CurrentTask: g.tasks[g.current].Number,
			})
			g.startTask()
			return nil
		}
		g.a.log.Infoln("All tasks are done")
		g.a.publish(g.a.topics.Done(g.name), protocol.TasksDone, protocol.GroupBody{Group: g.name})
		if err := g.fire(fsm.GroupTasksDone); err != nil {
			g.a.log.Errorln("Failed to finish session:", err)
		}
		g.fireLight(fsm.LightTasksDone)
		return nil
	})
}

// View returns a copy of the group's state.
func (g *Group) View(ctx context.Context) (view GroupView, err error) {
	err = g.a.call(ctx, func() error {
		view = GroupView{
			Name:        g.name,
			State:       g.session.State(),
			Light:       fsm.LightIdle,
			Tasks:       clone(g.tasks),
			QueueNumber: g.queueNum,
			TAPresent:   g.taPresent,
			Requesting:  g.requesting,
		}
		if g.light != nil {
			view.Light = g.light.State()
		}
		if g.haveTasks {
			view.CurrentTask = min(g.current+1, len(g.tasks))
		}
		return nil
	})
	return view, err
}

func (g *Group) handleTasks(env *protocol.Envelope) error {
	if g.haveTasks {
		g.a.log.Debugf("Ignoring %s, tasks already received", env.Command)
		return nil
	}
	var tasks []models.Task
	if err := env.Bind(&tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		return ErrNoTasks
	}
	g.haveTasks = true
	g.tasks = tasks
	g.current = 0
	g.a.log.Infof("Received %d tasks", len(tasks))
	g.obs.OnTasksReceived(clone(tasks))

	durations := make([]int, len(tasks))
	for i, t := range tasks {
		durations[i] = int(t.Duration)
	}
	g.light = fsm.NewLight(durations)
	g.startTask()
	return nil
}

// startTask fires task_start on the session and the light. The light
// follows the task list even if the session cannot start the task.
func (g *Group) startTask() {
	if err := g.fire(fsm.GroupTaskStart); err != nil {
		g.a.log.Warnln("Task started while", g.session.State()+":", err)
	}
	g.fireLight(fsm.LightTaskStart)
}

func (g *Group) handleQueueNumber(env *protocol.Envelope) error {
	var body protocol.QueueNumberBody
	if err := env.Bind(&body); err != nil {
		return err
	}
	g.queueNum = int(body.QueueNumber)
	g.obs.OnQueueNumberChanged(g.queueNum)
	return nil
}

func (g *Group) handleGettingHelp(env *protocol.Envelope) error {
	if err := g.fire(fsm.GroupReceiveHelp); err != nil {
		return err
	}
	g.queueNum = 0
	g.obs.OnHelpStateChanged(HelpGetting)
	return nil
}

func (g *Group) handleReceivedHelp(env *protocol.Envelope) error {
	if err := g.fire(fsm.GroupReceivedHelp); err != nil {
		return err
	}
	g.requesting = false
	g.obs.OnHelpStateChanged(HelpReceived)
	return nil
}

func (g *Group) handleTAPresent(env *protocol.Envelope) error {
	g.setTAPresent()
	return nil
}

// handleTAPresentAll re-announces the group so that a TA that joined after
// the group learns about it.
func (g *Group) handleTAPresentAll(env *protocol.Envelope) error {
	if g.setTAPresent() {
		g.announce()
	}
	return nil
}

func (g *Group) setTAPresent() bool {
	if g.taPresent {
		return false
	}
	g.a.log.Infoln("TA is ready")
	g.taPresent = true
	g.obs.OnTAPresenceChanged(true)
	return true
}

func (g *Group) fire(e fsm.GroupEvent) error {
	effects, err := g.session.Fire(e)
	if err != nil {
		return err
	}
	g.apply(effects)
	return nil
}

func (g *Group) apply(effects []fsm.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case fsm.StartTimer:
			gen := e.Gen
			g.a.schedule(reminderTimer, e.Delay, func() { g.remind(gen) })
		case fsm.CancelTimer:
			g.a.cancelTimer(reminderTimer)
		case fsm.Terminate:
			g.a.log.Infoln("Session finished")
		}
	}
}

func (g *Group) remind(gen int) {
	effects, err := g.session.Timeout(gen)
	if err != nil {
		g.a.log.Errorln("Failed to handle reminder:", err)
		return
	}
	if effects == nil {
		return
	}
	g.a.log.Infoln(HelpStillWaiting)
	g.obs.OnHelpStateChanged(HelpStillWaiting)
	g.apply(effects)
}

func (g *Group) fireLight(e fsm.LightEvent) {
	effects, err := g.light.Fire(e)
	if err != nil {
		g.a.log.Errorf("Failed to fire %s on the status light: %v", e, err)
		return
	}
	g.applyLight(effects)
}

func (g *Group) lightTimeout(gen int) {
	effects, err := g.light.Timeout(gen)
	if err != nil {
		g.a.log.Errorln("Failed to handle light timeout:", err)
		return
	}
	g.applyLight(effects)
}

func (g *Group) applyLight(effects []fsm.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case fsm.StartTimer:
			gen := e.Gen
			g.a.schedule(lightTimer, e.Delay, func() { g.lightTimeout(gen) })
		case fsm.CancelTimer:
			g.a.cancelTimer(lightTimer)
		case fsm.SetLight:
			g.obs.OnStatusLightChanged(e.Light)
		case fsm.Terminate:
			g.a.log.Debugln("Status light off")
		}
	}
}
