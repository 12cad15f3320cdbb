package engine

import (
	"context"
	"fmt"

	"kanban-api/domain"
)

// CopyOptions selects which slices of the source task the copy inherits.
// Subject and BucketID default to the source's values when empty; every
// other slice is gated by its toggle.
type CopyOptions struct {
	Subject  string
	BucketID string

	Description bool
	Dates       bool
	Status      bool
	Assignment  bool
	Checklist   bool
	Attachments bool
	Links       bool
}

// CopyResult reports the new task and the child-copy outcomes.
type CopyResult struct {
	Task     domain.Task
	Outcomes []ChildOutcome
}

// Copy produces one new task from the source, duplicating only the slices
// the options enable. Children are copied under fresh identities; child-copy
// failures are isolated per row.
func (e *Engine) Copy(ctx context.Context, actor, taskID string, opts CopyOptions) (*CopyResult, error) {
	src, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if opts.Subject == "" {
		opts.Subject = src.Subject
	}
	if opts.BucketID == "" {
		opts.BucketID = src.BucketID
	}
	bucket, err := e.store.GetBucket(ctx, opts.BucketID)
	if err != nil {
		return nil, err
	}
	if bucket == nil {
		var errs domain.ValidationErrors
		errs.Add("bucket_id", "target bucket does not exist")
		return nil, errs
	}

	now := e.now()
	task := domain.Task{
		ID:        e.newID(),
		BoardID:   bucket.BoardID,
		BucketID:  bucket.ID,
		Subject:   opts.Subject,
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if opts.Description {
		task.Description = src.Description
	}
	if opts.Dates {
		task.StartDate = src.StartDate
		task.EndDate = src.EndDate
	}
	if opts.Status {
		task.Status = src.Status
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}

	res := &CopyResult{Task: task}

	if opts.Assignment {
		assignments, err := e.store.ListAssignments(ctx, src.ID)
		if err != nil {
			res.Outcomes = append(res.Outcomes, ChildOutcome{Kind: "assignment", Op: OpList, Err: err})
		} else {
			users := make([]string, len(assignments))
			for i, a := range assignments {
				users[i] = a.UserID
			}
			res.Outcomes = append(res.Outcomes, e.reconcileAssignments(ctx, task, users)...)
		}
	}
	if opts.Checklist {
		res.Outcomes = append(res.Outcomes, e.copyChecklist(ctx, src.ID, task.ID)...)
	}
	if opts.Attachments {
		res.Outcomes = append(res.Outcomes, e.copyAttachments(ctx, src.ID, task)...)
	}
	if opts.Links {
		res.Outcomes = append(res.Outcomes, e.copyLinks(ctx, src.ID, task.ID)...)
	}

	e.logOutcomes("copy", res.Outcomes)
	return res, nil
}

// CopyPerUserResult reports the clones created and the per-item outcomes.
type CopyPerUserResult struct {
	Tasks    []domain.Task
	Outcomes []ChildOutcome
}

// CopyPerUser produces one full duplicate of the source task (checklist,
// attachments, links included) per selected user, each assigned to exactly
// that user. A duplicate that fails to persist is skipped; the remaining
// users are still processed.
func (e *Engine) CopyPerUser(ctx context.Context, actor, taskID string, userIDs []string) (*CopyPerUserResult, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("copy per user: %w", domain.ErrInvalidGrouping)
	}
	src, err := e.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	res := &CopyPerUserResult{}
	for _, uid := range userIDs {
		clone := *src
		clone.ID = e.newID()
		clone.CreatedBy = actor
		now := e.now()
		clone.CreatedAt = now
		clone.UpdatedAt = now
		if err := e.store.InsertTask(ctx, clone); err != nil {
			res.Outcomes = append(res.Outcomes, ChildOutcome{Kind: "task", Op: OpInsert, ID: clone.ID, Err: err})
			continue
		}
		res.Tasks = append(res.Tasks, clone)

		res.Outcomes = append(res.Outcomes, e.copyChecklist(ctx, src.ID, clone.ID)...)
		res.Outcomes = append(res.Outcomes, e.copyAttachments(ctx, src.ID, clone)...)
		res.Outcomes = append(res.Outcomes, e.copyLinks(ctx, src.ID, clone.ID)...)
		res.Outcomes = append(res.Outcomes, e.reconcileAssignments(ctx, clone, []string{uid})...)
	}

	e.logOutcomes("copy-per-user", res.Outcomes)
	return res, nil
}

func (e *Engine) copyChecklist(ctx context.Context, srcID, dstID string) []ChildOutcome {
	elements, err := e.store.ListChecklist(ctx, srcID)
	if err != nil {
		return []ChildOutcome{{Kind: "checklist", Op: OpList, Err: err}}
	}
	var outcomes []ChildOutcome
	for _, el := range elements {
		dup := domain.ChecklistElement{ID: e.newID(), TaskID: dstID, Name: el.Name, Sort: el.Sort}
		err := e.store.InsertChecklistElement(ctx, dup)
		outcomes = append(outcomes, ChildOutcome{Kind: "checklist", Op: OpInsert, ID: dup.ID, Err: err})
	}
	return outcomes
}

func (e *Engine) copyAttachments(ctx context.Context, srcID string, dst domain.Task) []ChildOutcome {
	attachments, err := e.store.ListAttachments(ctx, srcID)
	if err != nil {
		return []ChildOutcome{{Kind: "attachment", Op: OpList, Err: err}}
	}
	var outcomes []ChildOutcome
	for _, att := range attachments {
		dup := att
		dup.ID = e.newID()
		dup.TaskID = dst.ID
		dup.CreatedBy = dst.CreatedBy
		dup.CreatedAt = dst.CreatedAt
		dup.UpdatedAt = dst.CreatedAt
		err := e.store.InsertAttachment(ctx, dup)
		outcomes = append(outcomes, ChildOutcome{Kind: "attachment", Op: OpInsert, ID: dup.ID, Err: err})
	}
	return outcomes
}

func (e *Engine) copyLinks(ctx context.Context, srcID, dstID string) []ChildOutcome {
	links, err := e.store.ListLinks(ctx, srcID)
	if err != nil {
		return []ChildOutcome{{Kind: "link", Op: OpList, Err: err}}
	}
	var outcomes []ChildOutcome
	for _, l := range links {
		dup := domain.Link{ID: e.newID(), TaskID: dstID, URL: l.URL, Label: l.Label}
		err := e.store.InsertLink(ctx, dup)
		outcomes = append(outcomes, ChildOutcome{Kind: "link", Op: OpInsert, ID: dup.ID, Err: err})
	}
	return outcomes
}
