package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

// Tables names the table per entity kind.
type Tables struct {
	Boards      string
	Buckets     string
	Tasks       string
	Checklist   string
	Links       string
	Attachments string
	Comments    string
	Assignments string
	Users       string
}

// Storage implements the engine's Store over Azure Tables.
type Storage struct {
	boardTable      *aztables.Client
	bucketTable     *aztables.Client
	taskTable       *aztables.Client
	checklistTable  *aztables.Client
	linkTable       *aztables.Client
	attachmentTable *aztables.Client
	commentTable    *aztables.Client
	assignmentTable *aztables.Client
	userTable       *aztables.Client
}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		boardTable:      svc.NewClient(tables.Boards),
		bucketTable:     svc.NewClient(tables.Buckets),
		taskTable:       svc.NewClient(tables.Tasks),
		checklistTable:  svc.NewClient(tables.Checklist),
		linkTable:       svc.NewClient(tables.Links),
		attachmentTable: svc.NewClient(tables.Attachments),
		commentTable:    svc.NewClient(tables.Comments),
		assignmentTable: svc.NewClient(tables.Assignments),
		userTable:       svc.NewClient(tables.Users),
	}, nil
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// getEntity fetches one entity; a 404 comes back as (nil, nil).
func getEntity(ctx context.Context, client *aztables.Client, pk, rk string) ([]byte, error) {
	resp, err := client.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		if statusCode(err) == 404 {
			return nil, nil
		}
		return nil, err
	}
	return resp.Value, nil
}

func addEntity(ctx context.Context, client *aztables.Client, ent any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := client.AddEntity(ctx, payload, nil); err != nil {
		if statusCode(err) == 409 {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func mergeEntity(ctx context.Context, client *aztables.Client, ent any) error {
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	return err
}

// deleteEntity removes one row; deleting an absent row is a no-op.
func deleteEntity(ctx context.Context, client *aztables.Client, pk, rk string) error {
	if _, err := client.DeleteEntity(ctx, pk, rk, nil); err != nil && statusCode(err) != 404 {
		return err
	}
	return nil
}

// listPartition returns the raw entities of one partition.
func listPartition(ctx context.Context, client *aztables.Client, pk string) ([][]byte, error) {
	filter := "PartitionKey eq '" + pk + "'"
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var rows [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, resp.Entities...)
	}
	return rows, nil
}

func (s *Storage) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	raw, err := getEntity(ctx, s.boardTable, id, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent boardEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	return &domain.Board{ID: ent.RowKey, Name: ent.Name, IsPublic: ent.IsPublic}, nil
}

func (s *Storage) GetBucket(ctx context.Context, id string) (*domain.Bucket, error) {
	raw, err := getEntity(ctx, s.bucketTable, id, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent bucketEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	return &domain.Bucket{ID: ent.RowKey, BoardID: ent.BoardID, Name: ent.Name}, nil
}

func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	raw, err := getEntity(ctx, s.taskTable, id, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var ent taskEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return nil, err
	}
	task := decodeTask(ent)
	return &task, nil
}

func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	return addEntity(ctx, s.taskTable, encodeTask(t))
}

func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	return mergeEntity(ctx, s.taskTable, encodeTask(t))
}

// DeleteTask removes the task row and cascades over every child partition.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	if err := deleteEntity(ctx, s.taskTable, id, id); err != nil {
		return err
	}
	children := []*aztables.Client{
		s.checklistTable,
		s.linkTable,
		s.attachmentTable,
		s.commentTable,
		s.assignmentTable,
	}
	for _, table := range children {
		rows, err := listPartition(ctx, table, id)
		if err != nil {
			return err
		}
		for _, raw := range rows {
			var ent aztables.Entity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return err
			}
			if err := deleteEntity(ctx, table, ent.PartitionKey, ent.RowKey); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Storage) ListChecklist(ctx context.Context, taskID string) ([]domain.ChecklistElement, error) {
	rows, err := listPartition(ctx, s.checklistTable, taskID)
	if err != nil {
		return nil, err
	}
	elements := make([]domain.ChecklistElement, 0, len(rows))
	for _, raw := range rows {
		var ent checklistEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return nil, err
		}
		elements = append(elements, decodeChecklistElement(ent))
	}
	return elements, nil
}

func (s *Storage) InsertChecklistElement(ctx context.Context, e domain.ChecklistElement) error {
	return addEntity(ctx, s.checklistTable, encodeChecklistElement(e))
}

func (s *Storage) UpdateChecklistElement(ctx context.Context, e domain.ChecklistElement) error {
	return mergeEntity(ctx, s.checklistTable, encodeChecklistElement(e))
}

func (s *Storage) DeleteChecklistElements(ctx context.Context, taskID string, ids []string) error {
	for _, id := range ids {
		if err := deleteEntity(ctx, s.checklistTable, taskID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) ListLinks(ctx context.Context, taskID string) ([]domain.Link, error) {
	rows, err := listPartition(ctx, s.linkTable, taskID)
	if err != nil {
		return nil, err
	}
	links := make([]domain.Link, 0, len(rows))
	for _, raw := range rows {
		var ent linkEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return nil, err
		}
		links = append(links, decodeLink(ent))
	}
	return links, nil
}

func (s *Storage) InsertLink(ctx context.Context, l domain.Link) error {
	return addEntity(ctx, s.linkTable, encodeLink(l))
}

func (s *Storage) UpdateLink(ctx context.Context, l domain.Link) error {
	return mergeEntity(ctx, s.linkTable, encodeLink(l))
}

func (s *Storage) DeleteLinks(ctx context.Context, taskID string, ids []string) error {
	for _, id := range ids {
		if err := deleteEntity(ctx, s.linkTable, taskID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) ListAttachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := listPartition(ctx, s.attachmentTable, taskID)
	if err != nil {
		return nil, err
	}
	attachments := make([]domain.Attachment, 0, len(rows))
	for _, raw := range rows {
		var ent attachmentEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return nil, err
		}
		attachments = append(attachments, decodeAttachment(ent))
	}
	return attachments, nil
}

func (s *Storage) InsertAttachment(ctx context.Context, a domain.Attachment) error {
	return addEntity(ctx, s.attachmentTable, encodeAttachment(a))
}

func (s *Storage) UpdateAttachment(ctx context.Context, a domain.Attachment) error {
	return mergeEntity(ctx, s.attachmentTable, encodeAttachment(a))
}

func (s *Storage) InsertComment(ctx context.Context, c domain.Comment) error {
	return addEntity(ctx, s.commentTable, encodeComment(c))
}

func (s *Storage) ListAssignments(ctx context.Context, taskID string) ([]domain.TaskUserAssignment, error) {
	rows, err := listPartition(ctx, s.assignmentTable, taskID)
	if err != nil {
		return nil, err
	}
	assignments := make([]domain.TaskUserAssignment, 0, len(rows))
	for _, raw := range rows {
		var ent assignmentEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return nil, err
		}
		assignments = append(assignments, domain.TaskUserAssignment{TaskID: ent.PartitionKey, UserID: ent.RowKey})
	}
	return assignments, nil
}

func (s *Storage) InsertAssignment(ctx context.Context, a domain.TaskUserAssignment) error {
	return addEntity(ctx, s.assignmentTable, encodeAssignment(a))
}

func (s *Storage) DeleteAssignment(ctx context.Context, taskID, userID string) error {
	return deleteEntity(ctx, s.assignmentTable, taskID, userID)
}

// DeleteAssignmentsNotIn prunes the task's assignments down to the given
// user set.
func (s *Storage) DeleteAssignmentsNotIn(ctx context.Context, taskID string, userIDs []string) error {
	keep := make(map[string]bool, len(userIDs))
	for _, uid := range userIDs {
		keep[uid] = true
	}
	current, err := s.ListAssignments(ctx, taskID)
	if err != nil {
		return err
	}
	for _, a := range current {
		if keep[a.UserID] {
			continue
		}
		if err := deleteEntity(ctx, s.assignmentTable, taskID, a.UserID); err != nil {
			return err
		}
	}
	return nil
}
