package protocol

import "github.com/Raytar/labhelp/models"

// GroupBody is the body of group_present, tasks_done, getting_help,
// received_help and ta_update_received_help.
type GroupBody struct {
	Group string `json:"group"`
}

// ProgressBody is the body of report_current_task.
type ProgressBody struct {
	Group       string        `json:"group"`
	CurrentTask models.Number `json:"current_task"`
}

// QueueNumberBody is the body of queue_number.
type QueueNumberBody struct {
	QueueNumber models.Number `json:"queue_number"`
}

// TABody is the body of ta_present.
type TABody struct {
	TA string `json:"ta"`
}

// Empty is the body of messages that carry no data.
type Empty struct{}
