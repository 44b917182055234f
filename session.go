package labhelp

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Raytar/labhelp/models"
)

var (
	ErrTasksAlreadySubmitted = errors.New("tasks have already been submitted")
	ErrNoGroups              = errors.New("no groups are present")
	ErrNoTasks               = errors.New("no tasks to submit")
	ErrGroupNotQueued        = errors.New("group is not in the help queue")
	ErrNoAssignment          = errors.New("group is not being helped")
	ErrUnknownGroup          = errors.New("unknown group")
)

// SessionState is one TA's copy of the session: the task list, the help
// queue ordered by request time, the active help assignments and the status
// of every group. Each TA owns its own value; copies only travel in messages.
type SessionState struct {
	Tasks          []models.Task
	Queue          []models.HelpRequest
	Assignments    []models.Assignment
	Groups         []models.GroupStatus
	TasksSubmitted bool
}

// RequestHelp queues req, replacing any earlier request from the same group,
// and returns the group's 1-based position.
func (s *SessionState) RequestHelp(req models.HelpRequest) int {
	s.dequeue(req.Group)
	s.Queue = append(s.Queue, req)
	sort.SliceStable(s.Queue, func(i, j int) bool {
		return s.Queue[i].Time < s.Queue[j].Time
	})
	return s.QueuePosition(req.Group)
}

// QueuePosition returns the 1-based position of group, or 0 if it is not queued.
func (s *SessionState) QueuePosition(group string) int {
	for i, r := range s.Queue {
		if r.Group == group {
			return i + 1
		}
	}
	return 0
}

// Positions returns the position of every queued group.
func (s *SessionState) Positions() map[string]int {
	positions := make(map[string]int, len(s.Queue))
	for i, r := range s.Queue {
		positions[r.Group] = i + 1
	}
	return positions
}

func (s *SessionState) dequeue(group string) (models.HelpRequest, bool) {
	for i, r := range s.Queue {
		if r.Group == group {
			s.Queue = append(s.Queue[:i:i], s.Queue[i+1:]...)
			return r, true
		}
	}
	return models.HelpRequest{}, false
}

// AssignGettingHelp moves group from the queue to the assignments of ta.
func (s *SessionState) AssignGettingHelp(group, ta string) (models.Assignment, error) {
	req, ok := s.dequeue(group)
	if !ok {
		return models.Assignment{}, fmt.Errorf("%w: %s", ErrGroupNotQueued, group)
	}
	a := models.Assignment{Group: req.Group, Description: req.Description, Time: req.Time, TA: ta}
	s.assign(a)
	return a, nil
}

// MirrorClaim applies a claim made by another TA. It reports false if the
// group was not queued here, i.e. the claim conflicts with what this TA has
// seen; the assignment is recorded regardless.
func (s *SessionState) MirrorClaim(a models.Assignment) bool {
	_, queued := s.dequeue(a.Group)
	s.assign(a)
	return queued
}

func (s *SessionState) assign(a models.Assignment) {
	for i, cur := range s.Assignments {
		if cur.Group == a.Group {
			s.Assignments[i] = a
			return
		}
	}
	s.Assignments = append(s.Assignments, a)
}

// Assignment returns the active assignment of group.
func (s *SessionState) Assignment(group string) (models.Assignment, bool) {
	for _, a := range s.Assignments {
		if a.Group == group {
			return a, true
		}
	}
	return models.Assignment{}, false
}

// AssignGotHelp removes the assignment of group.
func (s *SessionState) AssignGotHelp(group string) (models.Assignment, error) {
	for i, a := range s.Assignments {
		if a.Group == group {
			s.Assignments = append(s.Assignments[:i:i], s.Assignments[i+1:]...)
			return a, nil
		}
	}
	return models.Assignment{}, fmt.Errorf("%w: %s", ErrNoAssignment, group)
}

// MirrorResolve applies another TA's resolution. It returns the removed
// assignment, and false if group had no assignment here.
func (s *SessionState) MirrorResolve(group string) (models.Assignment, bool) {
	a, err := s.AssignGotHelp(group)
	return a, err == nil
}

// HasAssignments reports whether ta is assigned to any group.
func (s *SessionState) HasAssignments(ta string) bool {
	for _, a := range s.Assignments {
		if a.TA == ta {
			return true
		}
	}
	return false
}

// SubmitTasks numbers tasks from 1, stores them and marks every known group
// as working on task 1. The returned slice is the numbered task list.
func (s *SessionState) SubmitTasks(tasks []models.Task) ([]models.Task, error) {
	switch {
	case s.TasksSubmitted:
		return nil, ErrTasksAlreadySubmitted
	case len(tasks) == 0:
		return nil, ErrNoTasks
	case len(s.Groups) == 0:
		return nil, ErrNoGroups
	}
	numbered := make([]models.Task, len(tasks))
	for i, t := range tasks {
		t.Number = models.Number(i + 1)
		numbered[i] = t
	}
	s.ApplyTasks(numbered)
	return numbered, nil
}

// ApplyTasks stores a task list submitted elsewhere. It returns false if
// tasks were already submitted.
func (s *SessionState) ApplyTasks(tasks []models.Task) bool {
	if s.TasksSubmitted {
		return false
	}
	s.Tasks = clone(tasks)
	s.TasksSubmitted = true
	for i := range s.Groups {
		s.Groups[i].Status = models.TaskInProgress(1)
	}
	return true
}

// GroupPresent starts tracking group. A group that is already tracked keeps
// its status, and false is returned.
func (s *SessionState) GroupPresent(group string) bool {
	if _, ok := s.Status(group); ok {
		return false
	}
	status := models.StatusAwaitingTasks
	if s.TasksSubmitted {
		status = models.TaskInProgress(1)
	}
	s.Groups = append(s.Groups, models.GroupStatus{Group: group, Status: status})
	return true
}

// GroupProgress records that group is working on task.
func (s *SessionState) GroupProgress(group string, task int) error {
	return s.setStatus(group, models.TaskInProgress(task))
}

// GroupDone records that group finished all tasks.
func (s *SessionState) GroupDone(group string) error {
	return s.setStatus(group, models.StatusDone)
}

func (s *SessionState) setStatus(group, status string) error {
	for i := range s.Groups {
		if s.Groups[i].Group == group {
			s.Groups[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownGroup, group)
}

// Status returns the status text of group.
func (s *SessionState) Status(group string) (string, bool) {
	for _, g := range s.Groups {
		if g.Group == group {
			return g.Status, true
		}
	}
	return "", false
}

// Empty reports whether there is nothing worth sending to a joining TA.
func (s *SessionState) Empty() bool {
	return len(s.Tasks) == 0 && len(s.Queue) == 0 && len(s.Assignments) == 0 && len(s.Groups) == 0
}

// Snapshot returns a copy of the tables.
func (s *SessionState) Snapshot() models.Snapshot {
	return models.Snapshot{
		Tasks:       clone(s.Tasks),
		Queue:       clone(s.Queue),
		Assignments: clone(s.Assignments),
		Groups:      clone(s.Groups),
	}
}

// Restore replaces the tables with snap.
func (s *SessionState) Restore(snap models.Snapshot) {
	s.Tasks = clone(snap.Tasks)
	s.Queue = clone(snap.Queue)
	s.Assignments = clone(snap.Assignments)
	s.Groups = clone(snap.Groups)
	s.TasksSubmitted = len(s.Tasks) > 0
}

func clone[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}
