package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/db"
	"github.com/amoradev/amora-backend/internal/utils/pagination"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// CreateMessage persists a chat message. This is the delivery-of-record:
// it always happens before any live push.
func (r *MessageRepository) CreateMessage(ctx context.Context, message *db.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListMessagesByMatch returns a match's messages in creation order.
//
// Behavior:
//   - Ordered by created_at ASC, id ASC (stable within a millisecond).
//   - Supports cursor-based pagination via paginationToken; the cursor
//     resumes strictly after the last returned message.
//
// Example:
//
//	repo.ListMessagesByMatch(ctx, 7, nil, 50) // first 50 messages of match 7
func (r *MessageRepository) ListMessagesByMatch(
	ctx context.Context,
	matchID uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var messages []db.Message

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Limit(limit + 1)

	if cursor.ID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at > ? OR (created_at = ? AND id > ?))",
			ts, ts, cursor.ID,
		)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ID:          last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
