package engine

import (
	"context"
	"errors"

	"kanban-api/domain"
)

func isAlreadyExists(err error) bool { return errors.Is(err, domain.ErrAlreadyExists) }

// reconcileAssignments brings the task's assignments to the target user set:
// removed = current − target via the bulk prune predicate, added = target −
// current row by row. Duplicate inserts are idempotent no-ops; each actual
// addition emits a task-assigned event with the resolved user.
func (e *Engine) reconcileAssignments(ctx context.Context, task domain.Task, target []string) []ChildOutcome {
	var outcomes []ChildOutcome

	current, err := e.store.ListAssignments(ctx, task.ID)
	if err != nil {
		return append(outcomes, ChildOutcome{Kind: "assignment", Op: OpList, Err: err})
	}
	assigned := make(map[string]bool, len(current))
	for _, a := range current {
		assigned[a.UserID] = true
	}

	targetSet := make(map[string]bool, len(target))
	for _, uid := range target {
		targetSet[uid] = true
	}

	pruned := false
	for _, a := range current {
		if !targetSet[a.UserID] {
			pruned = true
			break
		}
	}
	if pruned {
		err := e.store.DeleteAssignmentsNotIn(ctx, task.ID, target)
		outcomes = append(outcomes, ChildOutcome{Kind: "assignment", Op: OpDelete, Err: err})
	}

	for _, uid := range target {
		if assigned[uid] {
			continue
		}
		err := e.store.InsertAssignment(ctx, domain.TaskUserAssignment{TaskID: task.ID, UserID: uid})
		if isAlreadyExists(err) {
			// Concurrent duplicate insert; treat as already assigned.
			continue
		}
		outcomes = append(outcomes, ChildOutcome{Kind: "assignment", Op: OpInsert, ID: uid, Err: err})
		if err != nil {
			continue
		}
		e.emit(ctx, domain.NewTaskAssigned(task, e.resolveUser(ctx, uid)))
	}

	return outcomes
}
