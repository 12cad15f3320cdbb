package domain

import "time"

// ChecklistElement is one checklist row of a task. Identity is stable across
// edits; submissions reference elements by id.
type ChecklistElement struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
	Name   string `json:"name"`
	Done   bool   `json:"done"`
	Sort   int    `json:"sort"`
}

// ChecklistAttrs are the submittable attributes of a checklist element. Nil
// fields leave the persisted value untouched.
type ChecklistAttrs struct {
	Name *string `json:"name"`
	Done *bool   `json:"done"`
	Sort *int    `json:"sort"`
}

func (a ChecklistAttrs) ApplyTo(e *ChecklistElement) {
	if a.Name != nil {
		e.Name = *a.Name
	}
	if a.Done != nil {
		e.Done = *a.Done
	}
	if a.Sort != nil {
		e.Sort = *a.Sort
	}
}

// Link is a URL attached to a task.
type Link struct {
	ID     string `json:"id"`
	TaskID string `json:"taskId"`
	URL    string `json:"url"`
	Label  string `json:"label,omitempty"`
}

// LinkAttrs are the submittable attributes of a link.
type LinkAttrs struct {
	URL   *string `json:"url"`
	Label *string `json:"label"`
}

func (a LinkAttrs) ApplyTo(l *Link) {
	if a.URL != nil {
		l.URL = *a.URL
	}
	if a.Label != nil {
		l.Label = *a.Label
	}
}

// Attachment is a stored file belonging to a task. Attachments are created
// only through an explicit upload and are never deleted by reconciliation.
type Attachment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CardShow  bool      `json:"cardShow"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttachmentAttrs are the attributes of an existing attachment a submission
// may change.
type AttachmentAttrs struct {
	Name     *string `json:"name"`
	CardShow *bool   `json:"cardShow"`
}

func (a AttachmentAttrs) ApplyTo(att *Attachment) {
	if a.Name != nil {
		att.Name = *a.Name
	}
	if a.CardShow != nil {
		att.CardShow = *a.CardShow
	}
}

// Comment is an immutable note on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskUserAssignment links a user to a task. At most one row exists per
// (task, user) pair.
type TaskUserAssignment struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId"`
}
