package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kanban-api/domain"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

func statusPtr(s domain.Status) *domain.Status { return &s }

func TestUpdatePatchValidationAborts(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	e, bus := newTestEngine(s, nil, nil)

	_, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Patch:     domain.TaskPatch{Subject: strPtr("")},
		Assignees: []string{"bob"},
	})
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(s.assignments["t1"]) != 0 || len(bus.events) != 0 {
		t.Fatalf("aborted update must not touch children or emit events")
	}
}

func TestUpdateReconcilesChecklist(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	s.checklist["c1"] = domain.ChecklistElement{ID: "c1", TaskID: "t1", Name: "outline", Sort: 0}
	s.checklist["c2"] = domain.ChecklistElement{ID: "c2", TaskID: "t1", Name: "draft", Sort: 1}
	e, bus := newTestEngine(s, nil, nil)

	res, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Checklist: Submission[domain.ChecklistAttrs]{
			Existing: map[string]domain.ChecklistAttrs{
				"c1": {Done: boolPtr(true)},
			},
			New: []domain.ChecklistAttrs{
				{Name: strPtr("review"), Sort: intPtr(2)},
			},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := s.checklist["c2"]; ok {
		t.Fatalf("omitted element must be deleted")
	}
	if !s.checklist["c1"].Done {
		t.Fatalf("submitted attrs not applied")
	}
	if len(s.checklist) != 2 {
		t.Fatalf("expected kept plus inserted element, got %d", len(s.checklist))
	}
	var inserted *domain.ChecklistElement
	for id, el := range s.checklist {
		if id != "c1" {
			el := el
			inserted = &el
		}
	}
	if inserted == nil || inserted.Name != "review" || inserted.Sort != 2 {
		t.Fatalf("inserted element wrong: %+v", inserted)
	}

	var sawChecklistCreated bool
	for _, k := range bus.kinds() {
		if k == domain.EventChecklistCreated {
			sawChecklistCreated = true
		}
	}
	if !sawChecklistCreated {
		t.Fatalf("insert must announce checklist-created, got %v", bus.kinds())
	}
	for _, o := range res.Outcomes {
		if o.Failed() {
			t.Fatalf("unexpected failed outcome %+v", o)
		}
	}
}

func TestUpdateSkipsVanishedChecklistIDs(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	e, _ := newTestEngine(s, nil, nil)

	res, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Checklist: Submission[domain.ChecklistAttrs]{
			Existing: map[string]domain.ChecklistAttrs{
				"gone": {Done: boolPtr(true)},
			},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, o := range res.Outcomes {
		if o.Kind == "checklist" {
			t.Fatalf("vanished id must be skipped silently, got %+v", o)
		}
	}
}

func TestUpdateChildFailureDoesNotChainToOthers(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	s.listChecklistErr = errors.New("table offline")
	e, _ := newTestEngine(s, nil, nil)

	res, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Checklist: Submission[domain.ChecklistAttrs]{
			New: []domain.ChecklistAttrs{{Name: strPtr("x")}},
		},
		Assignees: []string{"bob"},
	})
	if err != nil {
		t.Fatalf("child failure must not fail update: %v", err)
	}
	var listFailure bool
	for _, o := range res.Outcomes {
		if o.Kind == "checklist" && o.Op == OpList && o.Failed() {
			listFailure = true
		}
	}
	if !listFailure {
		t.Fatalf("expected a checklist list outcome, got %v", res.Outcomes)
	}
	if got := s.assigned("t1"); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("assignments must still reconcile, got %v", got)
	}
}

func TestUpdateAssignmentsReconcileToTarget(t *testing.T) {
	s := newFakeStore()
	task := seedTask(s, "t1", "alice")
	s.assignments["t1"] = map[string]bool{"bob": true, "carol": true}
	e, bus := newTestEngine(s, nil, nil)

	_, err := e.Update(context.Background(), "alice", task.ID, UpdateInput{
		Assignees: []string{"carol", "dave"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got := s.assigned("t1")
	if len(got) != 2 {
		t.Fatalf("expected carol and dave, got %v", got)
	}
	for _, uid := range got {
		if uid != "carol" && uid != "dave" {
			t.Fatalf("unexpected assignee %s", uid)
		}
	}
	var assignedEvents int
	for _, ev := range bus.events {
		if ev.Kind == domain.EventTaskAssigned {
			assignedEvents++
			if ev.User == nil || ev.User.ID != "dave" {
				t.Fatalf("only the new assignee may be announced, got %+v", ev.User)
			}
		}
	}
	if assignedEvents != 1 {
		t.Fatalf("expected one assigned event, got %d", assignedEvents)
	}
}

func TestUpdateCommentMirroredToTicket(t *testing.T) {
	s := newFakeStore()
	task := seedTask(s, "t1", "alice")
	task.TicketID = "tic-7"
	s.tasks["t1"] = task
	tickets := newFakeTickets()
	e, bus := newTestEngine(s, tickets, nil)

	_, err := e.Update(context.Background(), "bob", "t1", UpdateInput{Comment: "looks good"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(s.comments) != 1 || s.comments[0].Text != "looks good" || s.comments[0].CreatedBy != "bob" {
		t.Fatalf("comment not stored: %+v", s.comments)
	}
	mirrored := tickets.comments["tic-7"]
	if len(mirrored) != 1 {
		t.Fatalf("comment not mirrored: %+v", tickets.comments)
	}
	if mirrored[0].Text != s.comments[0].Text || mirrored[0].CreatedBy != s.comments[0].CreatedBy ||
		!mirrored[0].CreatedAt.Equal(s.comments[0].CreatedAt) {
		t.Fatalf("mirror must preserve text, author and timestamp: %+v", mirrored[0])
	}
	var sawComment bool
	for _, k := range bus.kinds() {
		if k == domain.EventCommentCreated {
			sawComment = true
		}
	}
	if !sawComment {
		t.Fatalf("comment-created expected, got %v", bus.kinds())
	}
}

func TestUpdateStatusChangeEventOrder(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	e, bus := newTestEngine(s, nil, nil)

	_, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Patch: domain.TaskPatch{Status: statusPtr(domain.StatusDone)},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := []domain.EventKind{domain.EventTaskStatusChanged, domain.EventTaskCompleted, domain.EventTaskUpdated}
	got := bus.kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestUpdateUnchangedStatusSkipsStatusEvents(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	e, bus := newTestEngine(s, nil, nil)

	_, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Patch: domain.TaskPatch{Description: strPtr("more detail")},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := bus.kinds(); len(got) != 1 || got[0] != domain.EventTaskUpdated {
		t.Fatalf("only task-updated expected, got %v", got)
	}
}

func TestUpdateAttachmentAttrsNeverDelete(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	s.attachments["a1"] = domain.Attachment{ID: "a1", TaskID: "t1", Name: "spec.pdf"}
	s.attachments["a2"] = domain.Attachment{ID: "a2", TaskID: "t1", Name: "notes.txt"}
	e, _ := newTestEngine(s, nil, nil)

	_, err := e.Update(context.Background(), "alice", "t1", UpdateInput{
		Attachments: map[string]domain.AttachmentAttrs{
			"a1": {CardShow: boolPtr(true)},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(s.attachments) != 2 {
		t.Fatalf("attachments must never be implicitly deleted, got %d", len(s.attachments))
	}
	if !s.attachments["a1"].CardShow {
		t.Fatalf("attrs not applied")
	}
	if !s.attachments["a1"].UpdatedAt.Equal(testTime) {
		t.Fatalf("update timestamp not set")
	}
}

func TestUpdateStoresUploads(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	files := &fakeFiles{}
	e, bus := newTestEngine(s, nil, files)

	_, err := e.Update(context.Background(), "bob", "t1", UpdateInput{
		NewFiles: []FileUpload{
			{Name: "diagram.png", MimeType: "image/png", Size: 512, Content: strings.NewReader("png-bytes")},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(files.saved) != 1 || files.saved[0] != "diagram.png" {
		t.Fatalf("file not saved: %v", files.saved)
	}
	var att *domain.Attachment
	for _, a := range s.attachments {
		a := a
		att = &a
	}
	if att == nil {
		t.Fatalf("attachment row not stored")
	}
	if att.Path != "/files/diagram.png" || att.Size != 512 || att.CreatedBy != "bob" {
		t.Fatalf("attachment row wrong: %+v", att)
	}
	var sawAdded bool
	for _, k := range bus.kinds() {
		if k == domain.EventAttachmentAdded {
			sawAdded = true
		}
	}
	if !sawAdded {
		t.Fatalf("attachment-added expected, got %v", bus.kinds())
	}
}

func TestUpdateUploadFailureSkipsFile(t *testing.T) {
	s := newFakeStore()
	seedTask(s, "t1", "alice")
	files := &fakeFiles{saveErr: errors.New("disk full")}
	e, _ := newTestEngine(s, nil, files)

	res, err := e.Update(context.Background(), "bob", "t1", UpdateInput{
		NewFiles: []FileUpload{{Name: "big.bin", Content: strings.NewReader("x")}},
	})
	if err != nil {
		t.Fatalf("upload failure must not fail update: %v", err)
	}
	if len(s.attachments) != 0 {
		t.Fatalf("no attachment row for a failed save")
	}
	var saveFailure bool
	for _, o := range res.Outcomes {
		if o.Kind == "attachment" && o.Op == OpSave && o.Failed() {
			saveFailure = true
		}
	}
	if !saveFailure {
		t.Fatalf("expected a failed save outcome, got %v", res.Outcomes)
	}
}
