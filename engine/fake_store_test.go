package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// fakeStore is an in-memory Store with per-method error hooks for failure
// injection.
type fakeStore struct {
	boards      map[string]domain.Board
	buckets     map[string]domain.Bucket
	tasks       map[string]domain.Task
	checklist   map[string]domain.ChecklistElement
	links       map[string]domain.Link
	attachments map[string]domain.Attachment
	comments    []domain.Comment
	assignments map[string]map[string]bool

	insertTaskErr        func(t domain.Task) error
	insertAssignmentErr  func(a domain.TaskUserAssignment) error
	insertChecklistErr   func(e domain.ChecklistElement) error
	insertLinkErr        error
	insertCommentErr     error
	insertAttachmentErr  error
	updateTaskErr        error
	updateChecklistErr   error
	listChecklistErr     error
	deleteTaskCalls      []string
	deletedAssignNotIn   [][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		boards:      map[string]domain.Board{},
		buckets:     map[string]domain.Bucket{},
		tasks:       map[string]domain.Task{},
		checklist:   map[string]domain.ChecklistElement{},
		links:       map[string]domain.Link{},
		attachments: map[string]domain.Attachment{},
		assignments: map[string]map[string]bool{},
	}
}

func (f *fakeStore) GetBoard(_ context.Context, id string) (*domain.Board, error) {
	if b, ok := f.boards[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeStore) GetBucket(_ context.Context, id string) (*domain.Bucket, error) {
	if b, ok := f.buckets[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*domain.Task, error) {
	if t, ok := f.tasks[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeStore) InsertTask(_ context.Context, t domain.Task) error {
	if f.insertTaskErr != nil {
		if err := f.insertTaskErr(t); err != nil {
			return err
		}
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) UpdateTask(_ context.Context, t domain.Task) error {
	if f.updateTaskErr != nil {
		return f.updateTaskErr
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id string) error {
	f.deleteTaskCalls = append(f.deleteTaskCalls, id)
	delete(f.tasks, id)
	for cid, el := range f.checklist {
		if el.TaskID == id {
			delete(f.checklist, cid)
		}
	}
	for lid, l := range f.links {
		if l.TaskID == id {
			delete(f.links, lid)
		}
	}
	for aid, a := range f.attachments {
		if a.TaskID == id {
			delete(f.attachments, aid)
		}
	}
	kept := f.comments[:0]
	for _, c := range f.comments {
		if c.TaskID != id {
			kept = append(kept, c)
		}
	}
	f.comments = kept
	delete(f.assignments, id)
	return nil
}

func (f *fakeStore) ListChecklist(_ context.Context, taskID string) ([]domain.ChecklistElement, error) {
	if f.listChecklistErr != nil {
		return nil, f.listChecklistErr
	}
	var out []domain.ChecklistElement
	for _, el := range f.checklist {
		if el.TaskID == taskID {
			out = append(out, el)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertChecklistElement(_ context.Context, e domain.ChecklistElement) error {
	if f.insertChecklistErr != nil {
		if err := f.insertChecklistErr(e); err != nil {
			return err
		}
	}
	f.checklist[e.ID] = e
	return nil
}

func (f *fakeStore) UpdateChecklistElement(_ context.Context, e domain.ChecklistElement) error {
	if f.updateChecklistErr != nil {
		return f.updateChecklistErr
	}
	f.checklist[e.ID] = e
	return nil
}

func (f *fakeStore) DeleteChecklistElements(_ context.Context, taskID string, ids []string) error {
	for _, id := range ids {
		delete(f.checklist, id)
	}
	return nil
}

func (f *fakeStore) ListLinks(_ context.Context, taskID string) ([]domain.Link, error) {
	var out []domain.Link
	for _, l := range f.links {
		if l.TaskID == taskID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertLink(_ context.Context, l domain.Link) error {
	if f.insertLinkErr != nil {
		return f.insertLinkErr
	}
	f.links[l.ID] = l
	return nil
}

func (f *fakeStore) UpdateLink(_ context.Context, l domain.Link) error {
	f.links[l.ID] = l
	return nil
}

func (f *fakeStore) DeleteLinks(_ context.Context, taskID string, ids []string) error {
	for _, id := range ids {
		delete(f.links, id)
	}
	return nil
}

func (f *fakeStore) ListAttachments(_ context.Context, taskID string) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range f.attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAttachment(_ context.Context, a domain.Attachment) error {
	if f.insertAttachmentErr != nil {
		return f.insertAttachmentErr
	}
	f.attachments[a.ID] = a
	return nil
}

func (f *fakeStore) UpdateAttachment(_ context.Context, a domain.Attachment) error {
	f.attachments[a.ID] = a
	return nil
}

func (f *fakeStore) InsertComment(_ context.Context, c domain.Comment) error {
	if f.insertCommentErr != nil {
		return f.insertCommentErr
	}
	f.comments = append(f.comments, c)
	return nil
}

func (f *fakeStore) ListAssignments(_ context.Context, taskID string) ([]domain.TaskUserAssignment, error) {
	var out []domain.TaskUserAssignment
	for uid := range f.assignments[taskID] {
		out = append(out, domain.TaskUserAssignment{TaskID: taskID, UserID: uid})
	}
	return out, nil
}

func (f *fakeStore) InsertAssignment(_ context.Context, a domain.TaskUserAssignment) error {
	if f.insertAssignmentErr != nil {
		if err := f.insertAssignmentErr(a); err != nil {
			return err
		}
	}
	if f.assignments[a.TaskID][a.UserID] {
		return domain.ErrAlreadyExists
	}
	if f.assignments[a.TaskID] == nil {
		f.assignments[a.TaskID] = map[string]bool{}
	}
	f.assignments[a.TaskID][a.UserID] = true
	return nil
}

func (f *fakeStore) DeleteAssignment(_ context.Context, taskID, userID string) error {
	delete(f.assignments[taskID], userID)
	return nil
}

func (f *fakeStore) DeleteAssignmentsNotIn(_ context.Context, taskID string, userIDs []string) error {
	f.deletedAssignNotIn = append(f.deletedAssignNotIn, userIDs)
	keep := map[string]bool{}
	for _, id := range userIDs {
		keep[id] = true
	}
	for uid := range f.assignments[taskID] {
		if !keep[uid] {
			delete(f.assignments[taskID], uid)
		}
	}
	return nil
}

func (f *fakeStore) assigned(taskID string) []string {
	var out []string
	for uid := range f.assignments[taskID] {
		out = append(out, uid)
	}
	return out
}

type recordingBus struct {
	events []domain.Event
}

func (b *recordingBus) Trigger(_ context.Context, ev domain.Event) {
	b.events = append(b.events, ev)
}

func (b *recordingBus) kinds() []domain.EventKind {
	out := make([]domain.EventKind, len(b.events))
	for i, ev := range b.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeTickets struct {
	statuses map[string]domain.TicketStatus
	comments map[string][]domain.Comment
	pushErr  error
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{
		statuses: map[string]domain.TicketStatus{},
		comments: map[string][]domain.Comment{},
	}
}

func (f *fakeTickets) PushStatus(_ context.Context, ticketID string, status domain.TicketStatus) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.statuses[ticketID] = status
	return nil
}

func (f *fakeTickets) MirrorComment(_ context.Context, ticketID string, c domain.Comment) error {
	f.comments[ticketID] = append(f.comments[ticketID], c)
	return nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, userID string) (domain.User, error) {
	return domain.User{ID: userID, Name: "User " + userID}, nil
}

type fakeFiles struct {
	saved   []string
	saveErr error
}

func (f *fakeFiles) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.saved = append(f.saved, name)
	return "/files/" + name, nil
}

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(s *fakeStore, tickets TicketSyncAdapter, files FileStore) (*Engine, *recordingBus) {
	bus := &recordingBus{}
	logger := log.New()
	logger.SetOutput(io.Discard)
	e := New(s, bus, tickets, fakeResolver{}, files, logger)
	var n int
	e.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	e.now = func() time.Time { return testTime }
	return e, bus
}
