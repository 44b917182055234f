package models

import (
	"time"

	"gorm.io/gorm"
)

// Status texts shown in a TA's group table.
const (
	StatusAwaitingTasks = "Awaiting tasks"
	StatusDone          = "Done"
)

// TaskInProgress returns the status text for a group working on task n.
func TaskInProgress(n int) string {
	return "Task " + Number(n).String() + " in progress"
}

// Task is one entry of the task list submitted by a TA. Tasks are numbered
// from 1 in submission order and never change afterwards.
type Task struct {
	Number      Number `json:"task"`
	Description string `json:"description"`
	Duration    Number `json:"duration"` // minutes
}

// HelpRequest is a pending request in the help queue.
type HelpRequest struct {
	Group       string `json:"group"`
	Description string `json:"description"`
	Time        string `json:"time"` // HH:MM:SS
}

// Assignment records that a TA has claimed a group's help request.
type Assignment struct {
	Group       string `json:"group"`
	Description string `json:"description"`
	Time        string `json:"time"`
	TA          string `json:"ta"`
}

// GroupStatus is a TA's projection of a group.
type GroupStatus struct {
	Group  string `json:"group"`
	Status string `json:"status"`
}

// Snapshot is a point-in-time copy of a TA's replicated tables.
type Snapshot struct {
	Tasks       []Task        `json:"assigned_tasks"`
	Queue       []HelpRequest `json:"help_queue"`
	Assignments []Assignment  `json:"active_assignments"`
	Groups      []GroupStatus `json:"group_status_table"`
}

// Empty reports whether the snapshot carries no state at all.
func (s Snapshot) Empty() bool {
	return len(s.Tasks) == 0 && len(s.Queue) == 0 && len(s.Assignments) == 0 && len(s.Groups) == 0
}

// HelpRecord is a journal row describing one help interaction as observed by a TA.
type HelpRecord struct {
	gorm.Model
	RecordID      string `gorm:"uniqueIndex"`
	Group         string `gorm:"column:group_name;index"`
	Description   string
	RequestedAt   string
	AssistantName string
	Claimed       bool
	ClaimedAt     time.Time
	Done          bool
	Reason        string
	DoneAt        time.Time
}

// Reasons a journal record is closed.
const (
	ReasonHelped      = "helped"
	ReasonResubmitted = "resubmitted"
)
