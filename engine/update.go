package engine

import (
	"context"
	"errors"

	"kanban-api/domain"
)

var errNoFileStore = errors.New("no file store configured")

// UpdateInput is the full desired state submitted with a task update.
// Checklist and Links follow reconcile-by-presence semantics; Assignees is
// the complete target user set; Attachments carries attribute changes for
// already stored files and NewFiles the uploads to add.
type UpdateInput struct {
	Patch       domain.TaskPatch
	Checklist   Submission[domain.ChecklistAttrs]
	Links       Submission[domain.LinkAttrs]
	Assignees   []string
	Comment     string
	Attachments map[string]domain.AttachmentAttrs
	NewFiles    []FileUpload
}

// UpdateResult reports the saved task and the per-item outcomes of every
// secondary write attempted.
type UpdateResult struct {
	Task     domain.Task
	Outcomes []ChildOutcome
}

// Update applies the scalar patch, then independently reconciles checklist,
// links and assignments, appends at most one comment, stores new uploads,
// synchronizes the linked ticket on a status change, and emits the domain
// events for each transition. Validation failures on the task itself abort
// before any write; failures in the child collections are isolated per item
// and never roll back the primary save.
func (e *Engine) Update(ctx context.Context, actor, taskID string, in UpdateInput) (*UpdateResult, error) {
	task, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	prevStatus := task.Status
	in.Patch.Apply(task)
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.UpdatedAt = e.now()
	if err := e.store.UpdateTask(ctx, *task); err != nil {
		return nil, err
	}

	res := &UpdateResult{Task: *task}
	res.Outcomes = append(res.Outcomes, e.reconcileChecklist(ctx, *task, in.Checklist)...)
	res.Outcomes = append(res.Outcomes, e.reconcileLinks(ctx, *task, in.Links)...)
	res.Outcomes = append(res.Outcomes, e.reconcileAssignments(ctx, *task, in.Assignees)...)

	if in.Comment != "" {
		res.Outcomes = append(res.Outcomes, e.appendComment(ctx, *task, actor, in.Comment)...)
	}

	res.Outcomes = append(res.Outcomes, e.reconcileAttachmentAttrs(ctx, *task, in.Attachments)...)
	res.Outcomes = append(res.Outcomes, e.storeUploads(ctx, *task, actor, in.NewFiles)...)

	if task.Status != prevStatus {
		res.Outcomes = append(res.Outcomes, e.syncTicketStatus(ctx, *task)...)
		e.emit(ctx, domain.NewTaskStatusChanged(*task, prevStatus, task.Status))
		if task.Status == domain.StatusDone {
			e.emit(ctx, domain.NewTaskCompleted(*task))
		}
	}

	e.emit(ctx, domain.NewTaskUpdated(*task))

	e.logOutcomes("update", res.Outcomes)
	return res, nil
}

// appendComment persists the comment and, for ticket-linked tasks, mirrors
// the same text, author and timestamp into the ticket's comment thread as an
// independent record.
func (e *Engine) appendComment(ctx context.Context, task domain.Task, actor, text string) []ChildOutcome {
	comment := domain.Comment{
		ID:        e.newID(),
		TaskID:    task.ID,
		Text:      text,
		CreatedBy: actor,
		CreatedAt: e.now(),
	}
	if err := e.store.InsertComment(ctx, comment); err != nil {
		return []ChildOutcome{{Kind: "comment", Op: OpInsert, ID: comment.ID, Err: err}}
	}
	outcomes := []ChildOutcome{{Kind: "comment", Op: OpInsert, ID: comment.ID}}

	if task.TicketID != "" && e.tickets != nil {
		err := e.tickets.MirrorComment(ctx, task.TicketID, comment)
		outcomes = append(outcomes, ChildOutcome{Kind: "ticket-comment", Op: OpSync, ID: comment.ID, Err: err})
	}

	e.emit(ctx, domain.NewCommentCreated(task, comment))
	return outcomes
}

// storeUploads saves each uploaded file and records an attachment row for
// it. A file that fails to store is skipped; the remaining files still
// process.
func (e *Engine) storeUploads(ctx context.Context, task domain.Task, actor string, uploads []FileUpload) []ChildOutcome {
	if len(uploads) == 0 {
		return nil
	}
	var outcomes []ChildOutcome
	for _, up := range uploads {
		if e.files == nil {
			outcomes = append(outcomes, ChildOutcome{Kind: "attachment", Op: OpSave, ID: up.Name, Err: errNoFileStore})
			continue
		}
		path, err := e.files.Save(ctx, up.Name, up.Content)
		if err != nil {
			outcomes = append(outcomes, ChildOutcome{Kind: "attachment", Op: OpSave, ID: up.Name, Err: err})
			continue
		}
		now := e.now()
		att := domain.Attachment{
			ID:        e.newID(),
			TaskID:    task.ID,
			Name:      up.Name,
			Path:      path,
			MimeType:  up.MimeType,
			Size:      up.Size,
			CreatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = e.store.InsertAttachment(ctx, att)
		outcomes = append(outcomes, ChildOutcome{Kind: "attachment", Op: OpInsert, ID: att.ID, Err: err})
		if err != nil {
			continue
		}
		e.emit(ctx, domain.NewAttachmentAdded(task, att))
	}
	return outcomes
}
