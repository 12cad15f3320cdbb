package storage

import (
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

const edmInt64 = "Edm.Int64"

type boardEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	IsPublic bool   `json:"IsPublic"`
}

type bucketEntity struct {
	aztables.Entity
	BoardID string `json:"BoardId"`
	Name    string `json:"Name"`
}

// taskEntity stores a task with PartitionKey == RowKey == task id, so point
// lookups need no secondary index. Dates are RFC3339 strings, empty when
// unset.
type taskEntity struct {
	aztables.Entity
	BoardID     string `json:"BoardId"`
	BucketID    string `json:"BucketId"`
	Subject     string `json:"Subject"`
	Description string `json:"Description"`
	Status      int    `json:"Status"`
	StartDate   string `json:"StartDate"`
	EndDate     string `json:"EndDate"`
	TicketID    string `json:"TicketId"`
	CreatedBy   string `json:"CreatedBy"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type checklistEntity struct {
	aztables.Entity
	Name string `json:"Name"`
	Done bool   `json:"Done"`
	Sort int    `json:"Sort"`
}

type linkEntity struct {
	aztables.Entity
	URL   string `json:"Url"`
	Label string `json:"Label"`
}

type attachmentEntity struct {
	aztables.Entity
	Name      string `json:"Name"`
	Path      string `json:"Path"`
	MimeType  string `json:"MimeType"`
	Size      int64  `json:"Size,string"`
	SizeType  string `json:"Size@odata.type,omitempty"`
	CardShow  bool   `json:"CardShow"`
	CreatedBy string `json:"CreatedBy"`
	CreatedAt string `json:"CreatedAt"`
	UpdatedAt string `json:"UpdatedAt"`
}

type commentEntity struct {
	aztables.Entity
	Text      string `json:"Text"`
	CreatedBy string `json:"CreatedBy"`
	CreatedAt string `json:"CreatedAt"`
}

// assignmentEntity has PartitionKey == task id and RowKey == user id; the
// table key itself enforces the one-row-per-pair invariant.
type assignmentEntity struct {
	aztables.Entity
}

type userEntity struct {
	aztables.Entity
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeTask(t domain.Task) taskEntity {
	return taskEntity{
		Entity:      aztables.Entity{PartitionKey: t.ID, RowKey: t.ID},
		BoardID:     t.BoardID,
		BucketID:    t.BucketID,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      int(t.Status),
		StartDate:   formatDate(t.StartDate),
		EndDate:     formatDate(t.EndDate),
		TicketID:    t.TicketID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func decodeTask(ent taskEntity) domain.Task {
	return domain.Task{
		ID:          ent.RowKey,
		BoardID:     ent.BoardID,
		BucketID:    ent.BucketID,
		Subject:     ent.Subject,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		StartDate:   parseDate(ent.StartDate),
		EndDate:     parseDate(ent.EndDate),
		TicketID:    ent.TicketID,
		CreatedBy:   ent.CreatedBy,
		CreatedAt:   parseTime(ent.CreatedAt),
		UpdatedAt:   parseTime(ent.UpdatedAt),
	}
}

func encodeChecklistElement(e domain.ChecklistElement) checklistEntity {
	return checklistEntity{
		Entity: aztables.Entity{PartitionKey: e.TaskID, RowKey: e.ID},
		Name:   e.Name,
		Done:   e.Done,
		Sort:   e.Sort,
	}
}

func decodeChecklistElement(ent checklistEntity) domain.ChecklistElement {
	return domain.ChecklistElement{
		ID:     ent.RowKey,
		TaskID: ent.PartitionKey,
		Name:   ent.Name,
		Done:   ent.Done,
		Sort:   ent.Sort,
	}
}

func encodeLink(l domain.Link) linkEntity {
	return linkEntity{
		Entity: aztables.Entity{PartitionKey: l.TaskID, RowKey: l.ID},
		URL:    l.URL,
		Label:  l.Label,
	}
}

func decodeLink(ent linkEntity) domain.Link {
	return domain.Link{
		ID:     ent.RowKey,
		TaskID: ent.PartitionKey,
		URL:    ent.URL,
		Label:  ent.Label,
	}
}

func encodeAttachment(a domain.Attachment) attachmentEntity {
	return attachmentEntity{
		Entity:    aztables.Entity{PartitionKey: a.TaskID, RowKey: a.ID},
		Name:      a.Name,
		Path:      a.Path,
		MimeType:  a.MimeType,
		Size:      a.Size,
		SizeType:  edmInt64,
		CardShow:  a.CardShow,
		CreatedBy: a.CreatedBy,
		CreatedAt: formatTime(a.CreatedAt),
		UpdatedAt: formatTime(a.UpdatedAt),
	}
}

func decodeAttachment(ent attachmentEntity) domain.Attachment {
	return domain.Attachment{
		ID:        ent.RowKey,
		TaskID:    ent.PartitionKey,
		Name:      ent.Name,
		Path:      ent.Path,
		MimeType:  ent.MimeType,
		Size:      ent.Size,
		CardShow:  ent.CardShow,
		CreatedBy: ent.CreatedBy,
		CreatedAt: parseTime(ent.CreatedAt),
		UpdatedAt: parseTime(ent.UpdatedAt),
	}
}

func encodeComment(c domain.Comment) commentEntity {
	return commentEntity{
		Entity:    aztables.Entity{PartitionKey: c.TaskID, RowKey: c.ID},
		Text:      c.Text,
		CreatedBy: c.CreatedBy,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

func encodeAssignment(a domain.TaskUserAssignment) assignmentEntity {
	return assignmentEntity{Entity: aztables.Entity{PartitionKey: a.TaskID, RowKey: a.UserID}}
}
