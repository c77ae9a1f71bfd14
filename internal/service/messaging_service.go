package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "ascai/internal/errors"
	"ascai/internal/model"
	"ascai/internal/repository"
)

// Chat event types published over the broker for connected clients.
const (
	ChatEventMessage  = "message"
	ChatEventTyping   = "typing"
	ChatEventRead     = "read"
	ChatEventPresence = "presence"
)

// ChatEvent is the payload fanned out to websocket clients through the
// pub/sub broker. One event goes to the conversation channel and one to the
// peer's user channel so conversation lists update without an open chat.
type ChatEvent struct {
	Type           string         `json:"type"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	SenderID       uint           `json:"sender_id,omitempty"`
	Message        *model.Message `json:"message,omitempty"`
	IsTyping       bool           `json:"is_typing,omitempty"`
	IsOnline       bool           `json:"is_online,omitempty"`
}

// Broker publishes chat events for fan-out across server instances.
// Implemented by the Redis cache client.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ConversationChannel names the pub/sub channel for a conversation.
func ConversationChannel(id uuid.UUID) string {
	return "conversation:" + id.String()
}

// UserChannel names the pub/sub channel carrying a user's cross-conversation
// events.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// MessagingService manages direct conversations, messages and presence.
type MessagingService interface {
	StartConversation(ctx context.Context, user *model.User, otherUserID uint) (*model.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID, user *model.User) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uint, offset, limit int) ([]model.Conversation, int64, error)

	SendMessage(ctx context.Context, conversationID uuid.UUID, sender *model.User, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, user *model.User, offset, limit int) ([]model.Message, int64, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, user *model.User) error
	CountUnread(ctx context.Context, userID uint) (int64, error)

	NotifyTyping(ctx context.Context, conversationID uuid.UUID, user *model.User, typing bool) error
	SetPresence(ctx context.Context, userID uint, online bool) error
	GetPresence(ctx context.Context, userID uint) (*model.UserPresence, error)
}

type messagingService struct {
	messaging repository.MessagingRepository
	users     repository.UserRepository
	broker    Broker
}

// NewMessagingService creates a new messaging service.
func NewMessagingService(messaging repository.MessagingRepository, users repository.UserRepository, broker Broker) MessagingService {
	return &messagingService{
		messaging: messaging,
		users:     users,
		broker:    broker,
	}
}

// StartConversation returns the conversation between the user and the peer,
// creating it if the pair has never talked.
func (s *messagingService) StartConversation(ctx context.Context, user *model.User, otherUserID uint) (*model.Conversation, error) {
	if user == nil || !user.IsMember() {
		return nil, apperrors.ErrPermissionDenied
	}
	if user.ID == otherUserID {
		return nil, apperrors.ErrSelfConversation
	}

	other, err := s.users.FindByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !other.IsActive {
		return nil, apperrors.ErrNotFound
	}

	conv, err := s.messaging.FindConversationByPair(ctx, user.ID, otherUserID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find conversation: %w", err)
	}

	conv = &model.Conversation{
		ParticipantAID: user.ID,
		ParticipantBID: otherUserID,
	}
	if err := s.messaging.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns a conversation the user participates in.
func (s *messagingService) GetConversation(ctx context.Context, id uuid.UUID, user *model.User) (*model.Conversation, error) {
	if user == nil {
		return nil, apperrors.ErrPermissionDenied
	}

	conv, err := s.messaging.FindConversationByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if !conv.Includes(user.ID) {
		return nil, apperrors.ErrNotParticipant
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recent first.
func (s *messagingService) ListConversations(ctx context.Context, userID uint, offset, limit int) ([]model.Conversation, int64, error) {
	return s.messaging.ListConversations(ctx, userID, offset, limit)
}

// SendMessage persists a message and fans it out to the conversation channel
// and the peer's user channel. The admin flag is frozen from the sender's
// role at send time.
func (s *messagingService) SendMessage(ctx context.Context, conversationID uuid.UUID, sender *model.User, content string) (*model.Message, error) {
	conv, err := s.GetConversation(ctx, conversationID, sender)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, apperrors.NewHTTPError(http.StatusBadRequest, "message content is empty", "EMPTY_MESSAGE")
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        content,
		IsAdminMessage: sender.IsAdmin(),
	}
	if err := s.messaging.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	conv.LastMessageID = &msg.ID
	if err := s.messaging.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	msg.Sender = *sender
	s.publish(ctx, conv, sender.ID, ChatEvent{
		Type:           ChatEventMessage,
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Message:        msg,
	})
	return msg, nil
}

// publish sends the event to the conversation channel and the peer's user
// channel. Broker errors are dropped: the message is already persisted and
// clients recover on the next history fetch.
func (s *messagingService) publish(ctx context.Context, conv *model.Conversation, senderID uint, event ChatEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = s.broker.Publish(ctx, ConversationChannel(conv.ID), payload)
	_ = s.broker.Publish(ctx, UserChannel(conv.OtherParticipant(senderID)), payload)
}

// ListMessages returns a page of the conversation's history, newest first.
func (s *messagingService) ListMessages(ctx context.Context, conversationID uuid.UUID, user *model.User, offset, limit int) ([]model.Message, int64, error) {
	if _, err := s.GetConversation(ctx, conversationID, user); err != nil {
		return nil, 0, err
	}
	return s.messaging.ListMessages(ctx, conversationID, offset, limit)
}

// MarkRead marks the peer's messages as read and notifies them.
func (s *messagingService) MarkRead(ctx context.Context, conversationID uuid.UUID, user *model.User) error {
	conv, err := s.GetConversation(ctx, conversationID, user)
	if err != nil {
		return err
	}

	if err := s.messaging.MarkMessagesRead(ctx, conversationID, user.ID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}

	s.publish(ctx, conv, user.ID, ChatEvent{
		Type:           ChatEventRead,
		ConversationID: conv.ID,
		SenderID:       user.ID,
	})
	return nil
}

// CountUnread returns the user's unread message count across conversations.
func (s *messagingService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.messaging.CountUnreadMessages(ctx, userID)
}

// NotifyTyping fans a typing indicator out to the peer. Nothing is persisted.
func (s *messagingService) NotifyTyping(ctx context.Context, conversationID uuid.UUID, user *model.User, typing bool) error {
	conv, err := s.GetConversation(ctx, conversationID, user)
	if err != nil {
		return err
	}

	s.publish(ctx, conv, user.ID, ChatEvent{
		Type:           ChatEventTyping,
		ConversationID: conv.ID,
		SenderID:       user.ID,
		IsTyping:       typing,
	})
	return nil
}

// SetPresence records the user's online state.
func (s *messagingService) SetPresence(ctx context.Context, userID uint, online bool) error {
	return s.messaging.UpsertPresence(ctx, userID, online)
}

// GetPresence returns a user's presence row.
func (s *messagingService) GetPresence(ctx context.Context, userID uint) (*model.UserPresence, error) {
	presence, err := s.messaging.FindPresence(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find presence: %w", err)
	}
	return presence, nil
}
