package domain

import "time"

// Status enumerates the settable task states. StatusLate is derived from the
// end date at read time and is never persisted or accepted as input.
type Status int

const (
	StatusNotBegun Status = iota
	StatusInProgress
	StatusDone
	StatusLate
)

func (s Status) String() string {
	switch s {
	case StatusNotBegun:
		return "not-begun"
	case StatusInProgress:
		return "in-progress"
	case StatusDone:
		return "done"
	case StatusLate:
		return "late"
	}
	return "unknown"
}

// Settable reports whether the status may be assigned by a caller.
func (s Status) Settable() bool {
	return s == StatusNotBegun || s == StatusInProgress || s == StatusDone
}

// Task represents a single board item.
type Task struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	BucketID    string     `json:"bucketId"`
	Subject     string     `json:"subject"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	TicketID    string     `json:"ticketId,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// EffectiveStatus returns the status to display: StatusLate when the end date
// has passed and the task is not done, the stored status otherwise.
func (t Task) EffectiveStatus(now time.Time) Status {
	if t.Status != StatusDone && t.EndDate != nil && t.EndDate.Before(now) {
		return StatusLate
	}
	return t.Status
}

// Validate checks the primary task attributes and returns field-scoped
// reasons for every violation.
func (t Task) Validate() error {
	var errs ValidationErrors
	if t.Subject == "" {
		errs.Add("subject", "subject must not be empty")
	}
	if t.BucketID == "" {
		errs.Add("bucket_id", "task must belong to a bucket")
	}
	if !t.Status.Settable() {
		errs.Add("status", "status must be one of not-begun, in-progress, done")
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		errs.Add("end_date", "end date must not precede start date")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// TaskPatch carries partial scalar updates for a task. Nil fields are left
// unchanged.
type TaskPatch struct {
	BucketID    *string    `json:"bucketId"`
	Subject     *string    `json:"subject"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	TicketID    *string    `json:"ticketId"`
}

// Apply overwrites the task's fields with the patch's non-nil values.
func (p TaskPatch) Apply(t *Task) {
	if p.BucketID != nil {
		t.BucketID = *p.BucketID
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.StartDate != nil {
		t.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = p.EndDate
	}
	if p.TicketID != nil {
		t.TicketID = *p.TicketID
	}
}
