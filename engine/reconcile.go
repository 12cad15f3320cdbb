package engine

import "context"

// Op labels the effect attempted on one child row.
type Op string

const (
	OpList   Op = "list"
	OpDelete Op = "delete"
	OpUpdate Op = "update"
	OpInsert Op = "insert"
	OpSave   Op = "save"
	OpSync   Op = "sync"
)

// ChildOutcome records one secondary write and its result. Failed outcomes
// are logged and collected, never propagated: one bad child row must not
// fail the rest of the operation.
type ChildOutcome struct {
	Kind string
	Op   Op
	ID   string
	Err  error
}

func (o ChildOutcome) Failed() bool { return o.Err != nil }

// Submission is the desired state for one child collection: attributes keyed
// by existing identity, plus attribute sets for rows to create. Persisted
// rows absent from Existing are deleted.
type Submission[A any] struct {
	Existing map[string]A `json:"existing"`
	New      []A          `json:"new"`
}

// childOps configures the reconciler for one child entity kind. delete may
// be nil for collections that are never implicitly deleted, create may be
// nil for collections whose rows enter through another path (attachments);
// onInsert, when set, runs after each successful insert.
type childOps[T any, A any] struct {
	kind     string
	list     func(ctx context.Context, taskID string) ([]T, error)
	id       func(T) string
	apply    func(*T, A)
	create   func(taskID string, attrs A) T
	insert   func(ctx context.Context, item T) error
	update   func(ctx context.Context, item T) error
	delete   func(ctx context.Context, taskID string, ids []string) error
	onInsert func(ctx context.Context, item T)
}

// reconcileChildren diffs the submission against the persisted rows and
// applies delete, update and insert sets. Deletes are computed from the
// persisted set as it was before any mutation. Submitted ids that no longer
// exist are skipped silently.
func reconcileChildren[T any, A any](ctx context.Context, taskID string, ops childOps[T, A], sub Submission[A]) []ChildOutcome {
	var outcomes []ChildOutcome

	current, err := ops.list(ctx, taskID)
	if err != nil {
		return append(outcomes, ChildOutcome{Kind: ops.kind, Op: OpList, Err: err})
	}

	byID := make(map[string]T, len(current))
	for _, item := range current {
		byID[ops.id(item)] = item
	}

	if ops.delete != nil {
		var stale []string
		for _, item := range current {
			if _, ok := sub.Existing[ops.id(item)]; !ok {
				stale = append(stale, ops.id(item))
			}
		}
		if len(stale) > 0 {
			err := ops.delete(ctx, taskID, stale)
			for _, id := range stale {
				outcomes = append(outcomes, ChildOutcome{Kind: ops.kind, Op: OpDelete, ID: id, Err: err})
			}
		}
	}

	for id, attrs := range sub.Existing {
		item, ok := byID[id]
		if !ok {
			continue
		}
		ops.apply(&item, attrs)
		err := ops.update(ctx, item)
		outcomes = append(outcomes, ChildOutcome{Kind: ops.kind, Op: OpUpdate, ID: id, Err: err})
	}

	if ops.create == nil {
		return outcomes
	}
	for _, attrs := range sub.New {
		item := ops.create(taskID, attrs)
		err := ops.insert(ctx, item)
		outcomes = append(outcomes, ChildOutcome{Kind: ops.kind, Op: OpInsert, ID: ops.id(item), Err: err})
		if err == nil && ops.onInsert != nil {
			ops.onInsert(ctx, item)
		}
	}

	return outcomes
}
