package engine

import (
	"context"
	"fmt"
	"time"

	"kanban-api/domain"
)

type groupingKind int

const (
	groupNone groupingKind = iota
	groupBucket
	groupAssignee
	groupStatus
	groupDueDate
)

// Grouping is the dimension a new task is created under. Exactly one
// dimension is carried; the zero value is invalid and rejected by Create.
type Grouping struct {
	kind     groupingKind
	bucketID string
	userID   string
	status   domain.Status
	dueDate  time.Time
}

func GroupByBucket(bucketID string) Grouping {
	return Grouping{kind: groupBucket, bucketID: bucketID}
}

func GroupByAssignee(userID string) Grouping {
	return Grouping{kind: groupAssignee, userID: userID}
}

func GroupByStatus(status domain.Status) Grouping {
	return Grouping{kind: groupStatus, status: status}
}

func GroupByDueDate(due time.Time) Grouping {
	return Grouping{kind: groupDueDate, dueDate: due}
}

// Label names the grouping dimension for response placement.
func (g Grouping) Label() string {
	switch g.kind {
	case groupBucket:
		return "bucket"
	case groupAssignee:
		return "assignee"
	case groupStatus:
		return "status"
	case groupDueDate:
		return "date"
	}
	return ""
}

// CreateInput is the desired state of a new task plus the assignment and
// fan-out directives.
type CreateInput struct {
	BucketID    string
	Subject     string
	Description string
	Status      domain.Status
	StartDate   *time.Time
	EndDate     *time.Time
	TicketID    string

	Assignees []string
	// CopyPerUser clones the task once per assignee beyond the first, with
	// one assignment per clone.
	CopyPerUser bool
}

// CreateResult reports the created task, any per-assignee clones, the
// grouping label for placement, and the secondary-write outcomes.
type CreateResult struct {
	Task     domain.Task
	Clones   []domain.Task
	Group    string
	Outcomes []ChildOutcome
}

// Create persists a new task under the given grouping context. The grouping
// pre-populates the corresponding field; a missing grouping is an
// invalid-request error rejected before any write. A task-created event is
// emitted exactly once, followed by one task-assigned event per successful
// assignment; assignment failures are isolated per assignee.
func (e *Engine) Create(ctx context.Context, actor, boardID string, group Grouping, in CreateInput) (*CreateResult, error) {
	if group.kind == groupNone {
		return nil, domain.ErrInvalidGrouping
	}

	board, err := e.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board == nil {
		return nil, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}

	now := e.now()
	task := domain.Task{
		ID:          e.newID(),
		BoardID:     board.ID,
		BucketID:    in.BucketID,
		Subject:     in.Subject,
		Description: in.Description,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		TicketID:    in.TicketID,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch group.kind {
	case groupBucket:
		task.BucketID = group.bucketID
	case groupStatus:
		task.Status = group.status
	case groupDueDate:
		due := group.dueDate
		task.EndDate = &due
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}

	res := &CreateResult{Task: task, Group: group.Label()}

	if group.kind == groupAssignee {
		err := e.store.InsertAssignment(ctx, domain.TaskUserAssignment{TaskID: task.ID, UserID: group.userID})
		if err != nil && !isAlreadyExists(err) {
			res.Outcomes = append(res.Outcomes, ChildOutcome{Kind: "assignment", Op: OpInsert, ID: group.userID, Err: err})
		}
	}

	e.emit(ctx, domain.NewTaskCreated(task))

	// The first assignee joins the task just created; with CopyPerUser set,
	// every further assignee gets a fresh clone of the scalar attributes.
	target := task
	for i, assignee := range in.Assignees {
		if in.CopyPerUser && i > 0 {
			clone := target
			clone.ID = e.newID()
			if err := e.store.InsertTask(ctx, clone); err != nil {
				res.Outcomes = append(res.Outcomes, ChildOutcome{Kind: "task", Op: OpInsert, ID: clone.ID, Err: err})
				continue
			}
			res.Clones = append(res.Clones, clone)
			target = clone
		}
		err := e.store.InsertAssignment(ctx, domain.TaskUserAssignment{TaskID: target.ID, UserID: assignee})
		if err != nil {
			if !isAlreadyExists(err) {
				res.Outcomes = append(res.Outcomes, ChildOutcome{Kind: "assignment", Op: OpInsert, ID: assignee, Err: err})
			}
			continue
		}
		e.emit(ctx, domain.NewTaskAssigned(target, e.resolveUser(ctx, assignee)))
	}

	e.logOutcomes("create", res.Outcomes)
	return res, nil
}
