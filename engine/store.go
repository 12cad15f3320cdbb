package engine

import (
	"context"
	"io"

	"kanban-api/domain"
)

// Store abstracts persistence for the lifecycle engine. Lookups return nil
// without error when the entity does not exist. InsertAssignment returns
// domain.ErrAlreadyExists when the (task, user) pair is already persisted.
type Store interface {
	GetBoard(ctx context.Context, id string) (*domain.Board, error)
	GetBucket(ctx context.Context, id string) (*domain.Bucket, error)

	GetTask(ctx context.Context, id string) (*domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	// DeleteTask removes the task and cascades over every dependent
	// collection (checklist, links, attachments, comments, assignments).
	DeleteTask(ctx context.Context, id string) error

	ListChecklist(ctx context.Context, taskID string) ([]domain.ChecklistElement, error)
	InsertChecklistElement(ctx context.Context, e domain.ChecklistElement) error
	UpdateChecklistElement(ctx context.Context, e domain.ChecklistElement) error
	DeleteChecklistElements(ctx context.Context, taskID string, ids []string) error

	ListLinks(ctx context.Context, taskID string) ([]domain.Link, error)
	InsertLink(ctx context.Context, l domain.Link) error
	UpdateLink(ctx context.Context, l domain.Link) error
	DeleteLinks(ctx context.Context, taskID string, ids []string) error

	ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error)
	InsertAttachment(ctx context.Context, a domain.Attachment) error
	UpdateAttachment(ctx context.Context, a domain.Attachment) error

	InsertComment(ctx context.Context, c domain.Comment) error

	ListAssignments(ctx context.Context, taskID string) ([]domain.TaskUserAssignment, error)
	InsertAssignment(ctx context.Context, a domain.TaskUserAssignment) error
	DeleteAssignment(ctx context.Context, taskID, userID string) error
	// DeleteAssignmentsNotIn prunes every assignment of the task whose user
	// is outside the given set.
	DeleteAssignmentsNotIn(ctx context.Context, taskID string, userIDs []string) error
}

// EventBus is the engine's event dispatch point. Delivery is best-effort;
// implementations log failures instead of surfacing them.
type EventBus interface {
	Trigger(ctx context.Context, ev domain.Event)
}

// TicketSyncAdapter pushes task state to a linked external ticket. The push
// is one-directional; the engine never reads ticket state back.
type TicketSyncAdapter interface {
	PushStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	MirrorComment(ctx context.Context, ticketID string, c domain.Comment) error
}

// IdentityResolver turns a user id into a display-capable record.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (domain.User, error)
}

// FileStore persists uploaded binaries and returns a stable path.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// FileUpload is one uploaded binary submitted with a task update.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}
