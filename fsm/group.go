package fsm

import "time"

type GroupState string

const (
	GroupNotWorking GroupState = "not_working_on_task"
	GroupWorking    GroupState = "working_on_task"
	GroupWaiting    GroupState = "waiting_for_help"
	GroupReceiving  GroupState = "receiving_help"
	GroupFinished   GroupState = "finished"
)

type GroupEvent string

const (
	GroupTaskStart    GroupEvent = "task_start"
	GroupRequestHelp  GroupEvent = "request_help"
	GroupReceiveHelp  GroupEvent = "receive_help"
	GroupReceivedHelp GroupEvent = "received_help"
	GroupTasksDone    GroupEvent = "tasks_done"
	GroupReminder     GroupEvent = "t"
)

var groupTable = table[GroupState, GroupEvent]{
	{GroupNotWorking, GroupTaskStart}:   GroupWorking,
	{GroupWorking, GroupTaskStart}:      GroupWorking,
	{GroupWorking, GroupRequestHelp}:    GroupWaiting,
	{GroupNotWorking, GroupRequestHelp}: GroupWaiting,
	{GroupWaiting, GroupReminder}:       GroupWaiting,
	{GroupWaiting, GroupReceiveHelp}:    GroupReceiving,
	{GroupReceiving, GroupReceivedHelp}: GroupWorking,
	{GroupWorking, GroupTasksDone}:      GroupFinished,
}

// GroupTransition returns the state reached from s on event e.
func GroupTransition(s GroupState, e GroupEvent) (GroupState, error) {
	return groupTable.next(s, e)
}

// Group tracks a group's progress through its session. While waiting for
// help it keeps a reminder timer running.
type Group struct {
	state    GroupState
	reminder time.Duration
	gen      int
}

// NewGroup returns a group session. A zero reminder disables the waiting
// reminder.
func NewGroup(reminder time.Duration) *Group {
	return &Group{state: GroupNotWorking, reminder: reminder}
}

func (g *Group) State() GroupState { return g.state }

// Fire applies e and returns the timer effects of leaving and entering states.
func (g *Group) Fire(e GroupEvent) ([]Effect, error) {
	if e == GroupReminder {
		return nil, ErrInvalidTransition
	}
	return g.fire(e)
}

// Timeout reports an expiration of the reminder started with generation gen.
func (g *Group) Timeout(gen int) ([]Effect, error) {
	if gen != g.gen {
		return nil, nil
	}
	return g.fire(GroupReminder)
}

func (g *Group) fire(e GroupEvent) ([]Effect, error) {
	to, err := GroupTransition(g.state, e)
	if err != nil {
		return nil, err
	}
	var effects []Effect
	if g.state == GroupWaiting && g.reminder > 0 {
		g.gen++
		effects = append(effects, CancelTimer{})
	}
	if to == GroupWaiting && g.reminder > 0 {
		effects = append(effects, StartTimer{Delay: g.reminder, Gen: g.gen})
	}
	g.state = to
	if to == GroupFinished {
		effects = append(effects, Terminate{})
	}
	return effects, nil
}
