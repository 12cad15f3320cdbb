package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"kanban-api/domain"
)

// TicketSync pushes task state into the external ticket system's tables.
// Writes are one-directional; nothing is ever read back.
type TicketSync struct {
	ticketTable  *aztables.Client
	commentTable *aztables.Client
}

// NewTicketSync creates a TicketSync from the ticket system's connection
// string.
func NewTicketSync(connStr, ticketTable, commentTable string) (*TicketSync, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:  3,
				RetryDelay:  time.Second * 1,
				StatusCodes: []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TicketSync{
		ticketTable:  svc.NewClient(ticketTable),
		commentTable: svc.NewClient(commentTable),
	}, nil
}

type ticketStatusEntity struct {
	aztables.Entity
	Status string `json:"Status"`
}

type ticketCommentEntity struct {
	aztables.Entity
	Text      string `json:"Text"`
	CreatedBy string `json:"CreatedBy"`
	CreatedAt string `json:"CreatedAt"`
}

// PushStatus merges the mapped status into the ticket row.
func (t *TicketSync) PushStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	ent := ticketStatusEntity{
		Entity: aztables.Entity{PartitionKey: ticketID, RowKey: ticketID},
		Status: status.String(),
	}
	return mergeEntity(ctx, t.ticketTable, ent)
}

// MirrorComment inserts the task comment into the ticket's comment thread as
// an independent record, keeping the original author and timestamp.
func (t *TicketSync) MirrorComment(ctx context.Context, ticketID string, c domain.Comment) error {
	ent := ticketCommentEntity{
		Entity:    aztables.Entity{PartitionKey: ticketID, RowKey: c.ID},
		Text:      c.Text,
		CreatedBy: c.CreatedBy,
		CreatedAt: formatTime(c.CreatedAt),
	}
	return addEntity(ctx, t.commentTable, ent)
}
