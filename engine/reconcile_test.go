package engine

import (
	"context"
	"testing"

	"kanban-api/domain"
)

func TestReconcileSkipsInsertPhaseWithoutCreate(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	s.attachments["a1"] = domain.Attachment{ID: "a1", TaskID: "t1", Name: "plan.md"}

	ops := childOps[domain.Attachment, domain.AttachmentAttrs]{
		kind:   "attachment",
		list:   s.ListAttachments,
		id:     func(a domain.Attachment) string { return a.ID },
		apply:  func(att *domain.Attachment, a domain.AttachmentAttrs) { a.ApplyTo(att) },
		insert: s.InsertAttachment,
		update: s.UpdateAttachment,
	}
	name := "renamed.md"
	outcomes := reconcileChildren(context.Background(), "t1", ops, Submission[domain.AttachmentAttrs]{
		Existing: map[string]domain.AttachmentAttrs{"a1": {Name: &name}},
		New:      []domain.AttachmentAttrs{{Name: &name}},
	})

	if len(s.attachments) != 1 {
		t.Fatalf("rows in New must not be inserted without a create hook, got %d", len(s.attachments))
	}
	if s.attachments["a1"].Name != "renamed.md" {
		t.Fatalf("update phase must still run: %+v", s.attachments["a1"])
	}
	for _, o := range outcomes {
		if o.Op == OpInsert || o.Op == OpDelete {
			t.Fatalf("only updates expected, got %+v", o)
		}
	}
}
