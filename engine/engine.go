package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Engine orchestrates the task lifecycle: create, update, copy, status and
// date mutation, assignment and deletion. Primary writes abort on failure;
// every secondary write is isolated per item and reported through
// ChildOutcome values.
type Engine struct {
	store   Store
	bus     EventBus
	tickets TicketSyncAdapter
	users   IdentityResolver
	files   FileStore
	log     *log.Logger

	now   func() time.Time
	newID func() string
}

// New creates an Engine. store is required; the remaining collaborators may
// be nil, which disables the corresponding side effects.
func New(store Store, bus EventBus, tickets TicketSyncAdapter, users IdentityResolver, files FileStore, logger *log.Logger) *Engine {
	if store == nil {
		panic("engine.New: store is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		store:   store,
		bus:     bus,
		tickets: tickets,
		users:   users,
		files:   files,
		log:     logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if e.bus == nil {
		return
	}
	e.bus.Trigger(ctx, ev)
}

func (e *Engine) resolveUser(ctx context.Context, userID string) domain.User {
	if e.users == nil {
		return domain.Unassigned(userID)
	}
	u, err := e.users.Resolve(ctx, userID)
	if err != nil {
		e.log.WithFields(log.Fields{"user": userID, "error": err}).Warn("identity lookup failed")
		return domain.Unassigned(userID)
	}
	return u
}

func (e *Engine) findTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (e *Engine) logOutcomes(op string, outcomes []ChildOutcome) {
	for _, o := range outcomes {
		if !o.Failed() {
			continue
		}
		e.log.WithFields(log.Fields{
			"operation": op,
			"kind":      o.Kind,
			"op":        string(o.Op),
			"id":        o.ID,
			"error":     o.Err,
		}).Error("secondary write failed")
	}
}

// SetStatus sets the task status, pushes the mapped state to a linked ticket
// and emits the status events. StatusLate is derived only and rejected here.
func (e *Engine) SetStatus(ctx context.Context, actor, taskID string, status domain.Status) (*domain.Task, []ChildOutcome, error) {
	if !status.Settable() {
		var errs domain.ValidationErrors
		errs.Add("status", "status must be one of not-begun, in-progress, done")
		return nil, nil, errs
	}
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	prev := task.Status
	task.Status = status
	task.UpdatedAt = e.now()
	if err := e.store.UpdateTask(ctx, *task); err != nil {
		return nil, nil, err
	}

	outcomes := e.syncTicketStatus(ctx, *task)
	e.emit(ctx, domain.NewTaskStatusChanged(*task, prev, status))
	if status == domain.StatusDone {
		e.emit(ctx, domain.NewTaskCompleted(*task))
	}

	e.logOutcomes("set-status", outcomes)
	return task, outcomes, nil
}

// SetDates sets the start and/or end date. Nil arguments leave the stored
// value untouched; the resulting pair must satisfy start <= end.
func (e *Engine) SetDates(ctx context.Context, actor, taskID string, start, end *time.Time) (*domain.Task, error) {
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if start != nil {
		task.StartDate = start
	}
	if end != nil {
		task.EndDate = end
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.UpdatedAt = e.now()
	if err := e.store.UpdateTask(ctx, *task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes the task and cascades over all dependent collections. Only
// the task's creator may delete it.
func (e *Engine) Delete(ctx context.Context, actor, taskID string) error {
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.CreatedBy != actor {
		return fmt.Errorf("delete task %s: %w", taskID, domain.ErrForbidden)
	}
	return e.store.DeleteTask(ctx, taskID)
}

// AssignUser adds a single assignment. Assigning an already assigned user is
// an idempotent no-op.
func (e *Engine) AssignUser(ctx context.Context, actor, taskID, userID string) (*domain.Task, error) {
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	err = e.store.InsertAssignment(ctx, domain.TaskUserAssignment{TaskID: taskID, UserID: userID})
	switch {
	case err == nil:
		e.emit(ctx, domain.NewTaskAssigned(*task, e.resolveUser(ctx, userID)))
	case isAlreadyExists(err):
	default:
		return nil, err
	}
	return task, nil
}

// ExpelUser removes a single assignment. Only the task's creator may expel.
func (e *Engine) ExpelUser(ctx context.Context, actor, taskID, userID string) (*domain.Task, error) {
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != actor {
		return nil, fmt.Errorf("expel from task %s: %w", taskID, domain.ErrForbidden)
	}
	if err := e.store.DeleteAssignment(ctx, taskID, userID); err != nil {
		return nil, err
	}
	e.emit(ctx, domain.NewTaskUnassigned(*task, e.resolveUser(ctx, userID)))
	return task, nil
}

// syncTicketStatus pushes the task's mapped status to its linked ticket.
// Tasks without a ticket reference produce no ticket interaction at all.
func (e *Engine) syncTicketStatus(ctx context.Context, task domain.Task) []ChildOutcome {
	if task.TicketID == "" || e.tickets == nil {
		return nil
	}
	err := e.tickets.PushStatus(ctx, task.TicketID, domain.TicketStatusFor(task.Status))
	return []ChildOutcome{{Kind: "ticket", Op: OpSync, ID: task.TicketID, Err: err}}
}

func (e *Engine) reconcileChecklist(ctx context.Context, task domain.Task, sub Submission[domain.ChecklistAttrs]) []ChildOutcome {
	return reconcileChildren(ctx, task.ID, childOps[domain.ChecklistElement, domain.ChecklistAttrs]{
		kind:   "checklist",
		list:   e.store.ListChecklist,
		id:     func(el domain.ChecklistElement) string { return el.ID },
		apply:  func(el *domain.ChecklistElement, a domain.ChecklistAttrs) { a.ApplyTo(el) },
		create: e.newChecklistElement,
		insert: e.store.InsertChecklistElement,
		update: e.store.UpdateChecklistElement,
		delete: e.store.DeleteChecklistElements,
		onInsert: func(ctx context.Context, el domain.ChecklistElement) {
			e.emit(ctx, domain.NewChecklistCreated(task, el))
		},
	}, sub)
}

func (e *Engine) newChecklistElement(taskID string, a domain.ChecklistAttrs) domain.ChecklistElement {
	el := domain.ChecklistElement{ID: e.newID(), TaskID: taskID}
	a.ApplyTo(&el)
	return el
}

func (e *Engine) reconcileLinks(ctx context.Context, task domain.Task, sub Submission[domain.LinkAttrs]) []ChildOutcome {
	return reconcileChildren(ctx, task.ID, childOps[domain.Link, domain.LinkAttrs]{
		kind:  "link",
		list:  e.store.ListLinks,
		id:    func(l domain.Link) string { return l.ID },
		apply: func(l *domain.Link, a domain.LinkAttrs) { a.ApplyTo(l) },
		create: func(taskID string, a domain.LinkAttrs) domain.Link {
			l := domain.Link{ID: e.newID(), TaskID: taskID}
			a.ApplyTo(&l)
			return l
		},
		insert: e.store.InsertLink,
		update: e.store.UpdateLink,
		delete: e.store.DeleteLinks,
	}, sub)
}

// reconcileAttachmentAttrs updates attributes of existing attachments.
// Attachments are never implicitly deleted and never created here, so the
// reconciler runs with no delete phase and no "new" rows.
func (e *Engine) reconcileAttachmentAttrs(ctx context.Context, task domain.Task, attrs map[string]domain.AttachmentAttrs) []ChildOutcome {
	if len(attrs) == 0 {
		return nil
	}
	return reconcileChildren(ctx, task.ID, childOps[domain.Attachment, domain.AttachmentAttrs]{
		kind: "attachment",
		list: e.store.ListAttachments,
		id:   func(a domain.Attachment) string { return a.ID },
		apply: func(att *domain.Attachment, a domain.AttachmentAttrs) {
			a.ApplyTo(att)
			att.UpdatedAt = e.now()
		},
		insert: e.store.InsertAttachment,
		update: e.store.UpdateAttachment,
	}, Submission[domain.AttachmentAttrs]{Existing: attrs})
}
