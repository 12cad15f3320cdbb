package domain

// EventKind identifies a domain event emitted by the lifecycle engine.
type EventKind string

const (
	EventTaskCreated       EventKind = "task-created"
	EventTaskUpdated       EventKind = "task-updated"
	EventTaskAssigned      EventKind = "task-assigned"
	EventTaskUnassigned    EventKind = "task-unassigned"
	EventTaskStatusChanged EventKind = "task-status-changed"
	EventTaskCompleted     EventKind = "task-completed"
	EventCommentCreated    EventKind = "comment-created"
	EventChecklistCreated  EventKind = "checklist-created"
	EventAttachmentAdded   EventKind = "attachment-added"
)

// StatusChange is the payload of a status transition event.
type StatusChange struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// Event is a tagged domain event. Kind selects which of the optional payload
// fields is populated; Task is always set.
type Event struct {
	Kind       EventKind         `json:"kind"`
	Task       Task              `json:"task"`
	User       *User             `json:"user,omitempty"`
	Status     *StatusChange     `json:"status,omitempty"`
	Comment    *Comment          `json:"comment,omitempty"`
	Checklist  *ChecklistElement `json:"checklist,omitempty"`
	Attachment *Attachment       `json:"attachment,omitempty"`
}

func NewTaskCreated(t Task) Event { return Event{Kind: EventTaskCreated, Task: t} }

func NewTaskUpdated(t Task) Event { return Event{Kind: EventTaskUpdated, Task: t} }

func NewTaskAssigned(t Task, u User) Event {
	return Event{Kind: EventTaskAssigned, Task: t, User: &u}
}

func NewTaskUnassigned(t Task, u User) Event {
	return Event{Kind: EventTaskUnassigned, Task: t, User: &u}
}

func NewTaskStatusChanged(t Task, from, to Status) Event {
	return Event{Kind: EventTaskStatusChanged, Task: t, Status: &StatusChange{From: from, To: to}}
}

func NewTaskCompleted(t Task) Event { return Event{Kind: EventTaskCompleted, Task: t} }

func NewCommentCreated(t Task, c Comment) Event {
	return Event{Kind: EventCommentCreated, Task: t, Comment: &c}
}

func NewChecklistCreated(t Task, e ChecklistElement) Event {
	return Event{Kind: EventChecklistCreated, Task: t, Checklist: &e}
}

func NewAttachmentAdded(t Task, a Attachment) Event {
	return Event{Kind: EventAttachmentAdded, Task: t, Attachment: &a}
}
