package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ascai/internal/model"
)

// MessagingRepository defines persistence for conversations, messages and
// presence.
type MessagingRepository interface {
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	UpdateConversation(ctx context.Context, conv *model.Conversation) error
	FindConversationByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	FindConversationByPair(ctx context.Context, userA, userB uint) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID uint, offset, limit int) ([]model.Conversation, int64, error)

	CreateMessage(ctx context.Context, msg *model.Message) error
	FindMessageByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]model.Message, int64, error)
	MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID uint) error
	CountUnreadMessages(ctx context.Context, userID uint) (int64, error)

	UpsertPresence(ctx context.Context, userID uint, online bool) error
	FindPresence(ctx context.Context, userID uint) (*model.UserPresence, error)
	ListOnlineUsers(ctx context.Context) ([]model.UserPresence, error)
}

type messagingRepository struct {
	db *gorm.DB
}

// NewMessagingRepository creates a new messaging repository.
func NewMessagingRepository(db *gorm.DB) MessagingRepository {
	return &messagingRepository{db: db}
}

func (r *messagingRepository) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *messagingRepository) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Save(conv).Error
}

func (r *messagingRepository) FindConversationByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Preload("ParticipantA").Preload("ParticipantB").Preload("LastMessage").
		Where("id = ?", id).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindConversationByPair looks the pair up in normalized order, matching the
// unique index.
func (r *messagingRepository) FindConversationByPair(ctx context.Context, userA, userB uint) (*model.Conversation, error) {
	if userA > userB {
		userA, userB = userB, userA
	}
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a_id = ? AND participant_b_id = ?", userA, userB).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns a user's conversations, most recently active first.
func (r *messagingRepository) ListConversations(ctx context.Context, userID uint, offset, limit int) ([]model.Conversation, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("participant_a_id = ? OR participant_b_id = ?", userID, userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var convs []model.Conversation
	err := q.Preload("ParticipantA").Preload("ParticipantB").Preload("LastMessage").
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (r *messagingRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messagingRepository) FindMessageByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	if err := r.db.WithContext(ctx).Preload("Sender").Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns a conversation page, newest first.
func (r *messagingRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]model.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Message{}).Where("conversation_id = ?", conversationID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []model.Message
	err := q.Preload("Sender").Order("created_at DESC").Offset(offset).Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// MarkMessagesRead marks all messages sent to the reader in the conversation.
func (r *messagingRepository) MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		UpdateColumn("is_read", true).Error
}

// CountUnreadMessages counts unread messages addressed to the user across all
// their conversations.
func (r *messagingRepository) CountUnreadMessages(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.participant_a_id = ? OR conversations.participant_b_id = ?)", userID, userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// UpsertPresence records the user's online state, creating the row on first
// sighting.
func (r *messagingRepository) UpsertPresence(ctx context.Context, userID uint, online bool) error {
	var presence model.UserPresence
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&presence).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		presence = model.UserPresence{UserID: userID, IsOnline: online}
		return r.db.WithContext(ctx).Create(&presence).Error
	}
	presence.IsOnline = online
	return r.db.WithContext(ctx).Save(&presence).Error
}

func (r *messagingRepository) FindPresence(ctx context.Context, userID uint) (*model.UserPresence, error) {
	var presence model.UserPresence
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&presence).Error; err != nil {
		return nil, err
	}
	return &presence, nil
}

func (r *messagingRepository) ListOnlineUsers(ctx context.Context) ([]model.UserPresence, error) {
	var presences []model.UserPresence
	err := r.db.WithContext(ctx).Where("is_online = ?", true).Find(&presences).Error
	return presences, err
}
