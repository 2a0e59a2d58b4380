package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/db"
	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/relay"
	"github.com/amoradev/amora-backend/internal/repository"
)

// FrameTypeChatMessage is the live-channel frame type for chat traffic.
// The relay owns the wire constant; this alias keeps the outbound side
// on the same value as the inbound filter.
const FrameTypeChatMessage = relay.FrameTypeChatMessage

// OutboundFrame is what gets pushed over a live connection when a
// message is delivered.
type OutboundFrame struct {
	Type    string     `json:"type"`
	Message db.Message `json:"message"`
}

// Pusher delivers a payload to a user's live connection if one exists.
// Implemented by the relay hub.
type Pusher interface {
	Push(userID uint64, payload []byte) bool
}

// Service relays chat traffic between matched users: at-least-once
// persistence, best-effort live delivery.
type Service struct {
	appCtx   *app.AppContext
	matches  *repository.MatchRepository
	messages *repository.MessageRepository
	pusher   Pusher
}

// NewService creates a chat service with dependencies from AppContext.
// pusher may be nil in contexts without a live channel (tests, CLI).
func NewService(appCtx *app.AppContext, pusher Pusher) *Service {
	return &Service{
		appCtx:   appCtx,
		matches:  repository.NewMatchRepository(appCtx.DB),
		messages: repository.NewMessageRepository(appCtx.DB),
		pusher:   pusher,
	}
}

// Send persists a message and pushes it live.
//
// Behavior:
//  1. The sender must be a participant of the match (Forbidden if not).
//  2. The message is persisted unconditionally: the durable record
//     exists whether or not anyone is online.
//  3. The persisted message is pushed to the counterpart's live
//     connection if there is one, and always echoed back to the
//     sender's own connection as a delivery acknowledgment.
func (s *Service) Send(ctx context.Context, senderID, matchID uint64, content string) (*db.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, svcErr.InvalidArgument("message content must not be empty")
	}

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("match not found")
		}
		return nil, err
	}

	recipientID, ok := counterpart(match, senderID)
	if !ok {
		return nil, svcErr.Forbidden("sender is not part of this match")
	}

	message := db.Message{MatchID: matchID, SenderID: senderID, Content: content}
	if err := s.messages.CreateMessage(ctx, &message); err != nil {
		return nil, err
	}

	// Persistence happened-before any push: a reconnecting client can
	// always backfill what was already pushed.
	if s.pusher != nil {
		payload, err := json.Marshal(OutboundFrame{Type: FrameTypeChatMessage, Message: message})
		if err == nil {
			delivered := s.pusher.Push(recipientID, payload)
			s.pusher.Push(senderID, payload)
			s.appCtx.Logger.Debug("message relayed",
				"match_id", matchID, "message_id", message.ID, "recipient_online", delivered)
		}
	}

	return &message, nil
}

// History returns a match's messages in creation order with cursor
// pagination. Fails with Forbidden if the requester is not a
// participant.
func (s *Service) History(
	ctx context.Context,
	requesterID, matchID uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	if limit <= 0 {
		limit = 50
	}

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, svcErr.NotFound("match not found")
		}
		return nil, nil, err
	}

	if match.User1ID != requesterID && match.User2ID != requesterID {
		return nil, nil, svcErr.Forbidden("requester is not part of this match")
	}

	return s.messages.ListMessagesByMatch(ctx, matchID, paginationToken, limit)
}

// counterpart returns the other participant of a match, or ok=false if
// userID is not a participant at all.
func counterpart(match *db.Match, userID uint64) (uint64, bool) {
	switch userID {
	case match.User1ID:
		return match.User2ID, true
	case match.User2ID:
		return match.User1ID, true
	}
	return 0, false
}
