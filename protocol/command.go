package protocol

// Command names the action carried by an envelope.
type Command string

const (
	SubmitTasks           Command = "submit_tasks"
	SubmitTasksLate       Command = "submit_tasks_late"
	RequestHelp           Command = "request_help"
	GroupPresent          Command = "group_present"
	ReportCurrentTask     Command = "report_current_task"
	TasksDone             Command = "tasks_done"
	QueueNumber           Command = "queue_number"
	GettingHelp           Command = "getting_help"
	ReceivedHelp          Command = "received_help"
	TAPresent             Command = "ta_present"
	TAPresentAll          Command = "ta_present_all"
	TAUpdateTasks         Command = "ta_update_tasks"
	TAUpdateReceivingHelp Command = "ta_update_receiving_help"
	TAUpdateReceivedHelp  Command = "ta_update_received_help"
	RequestUpdateOfTables Command = "request_update_of_tables"
	TAUpdateTables        Command = "ta_update_tables"
)

var commands = map[Command]struct{}{
	SubmitTasks:           {},
	SubmitTasksLate:       {},
	RequestHelp:           {},
	GroupPresent:          {},
	ReportCurrentTask:     {},
	TasksDone:             {},
	QueueNumber:           {},
	GettingHelp:           {},
	ReceivedHelp:          {},
	TAPresent:             {},
	TAPresentAll:          {},
	TAUpdateTasks:         {},
	TAUpdateReceivingHelp: {},
	TAUpdateReceivedHelp:  {},
	RequestUpdateOfTables: {},
	TAUpdateTables:        {},
}

// Valid reports whether c is part of the protocol.
func (c Command) Valid() bool {
	_, ok := commands[c]
	return ok
}

func (c Command) String() string {
	return string(c)
}
