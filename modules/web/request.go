package web

import (
	"strconv"
	"strings"
)

// Form actions understood by the page.
const (
	ActionAdd      = "add"
	ActionComplete = "complete"
	ActionDelete   = "delete"
)

// Request is a parsed form submission. It is one of AddTask, CompleteTask,
// DeleteTask or Unknown.
type Request interface {
	kind() string
}

// AddTask asks for a new pending task.
type AddTask struct {
	Title       string
	Description string
}

// CompleteTask asks for a task to be marked completed.
type CompleteTask struct {
	ID int64
}

// DeleteTask asks for a task to be removed.
type DeleteTask struct {
	ID int64
}

// Unknown is any submission that maps to no operation. It never mutates.
type Unknown struct {
	Action string
}

func (AddTask) kind() string      { return ActionAdd }
func (CompleteTask) kind() string { return ActionComplete }
func (DeleteTask) kind() string   { return ActionDelete }
func (Unknown) kind() string      { return "unknown" }

// FormValues is the subset of form fields the page submits.
type FormValues struct {
	Action      string
	Title       string
	Description string
	ID          string
}

// ParseRequest turns raw form fields into a typed request. Unrecognized
// actions and non-integer ids yield Unknown.
func ParseRequest(f FormValues) Request {
	switch f.Action {
	case ActionAdd:
		return AddTask{Title: f.Title, Description: f.Description}
	case ActionComplete:
		id, ok := parseID(f.ID)
		if !ok {
			return Unknown{Action: f.Action}
		}
		return CompleteTask{ID: id}
	case ActionDelete:
		id, ok := parseID(f.ID)
		if !ok {
			return Unknown{Action: f.Action}
		}
		return DeleteTask{ID: id}
	default:
		return Unknown{Action: f.Action}
	}
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
