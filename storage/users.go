package storage

import (
	"context"
	"encoding/json"

	"kanban-api/domain"
)

// Resolve returns the display record for a user id. Unknown ids come back as
// the "unassigned" placeholder, not an error.
func (s *Storage) Resolve(ctx context.Context, userID string) (domain.User, error) {
	raw, err := getEntity(ctx, s.userTable, userID, userID)
	if err != nil {
		return domain.Unassigned(userID), err
	}
	if raw == nil {
		return domain.Unassigned(userID), nil
	}
	var ent userEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return domain.Unassigned(userID), err
	}
	return domain.User{ID: ent.RowKey, Name: ent.Name, Email: ent.Email}, nil
}
