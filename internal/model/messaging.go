package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a direct-message channel between exactly two users. The
// participant pair is stored ordered (lower user ID first) so the unique index
// prevents duplicate conversations for the same pair.
type Conversation struct {
	ID             uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	ParticipantAID uint       `json:"participant_a_id" gorm:"not null;uniqueIndex:idx_conversations_pair"`
	ParticipantBID uint       `json:"participant_b_id" gorm:"not null;uniqueIndex:idx_conversations_pair"`
	LastMessageID  *uuid.UUID `json:"last_message_id,omitempty" gorm:"type:char(36)"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"index"`

	// Relations
	ParticipantA User     `json:"participant_a,omitempty" gorm:"foreignKey:ParticipantAID"`
	ParticipantB User     `json:"participant_b,omitempty" gorm:"foreignKey:ParticipantBID"`
	LastMessage  *Message `json:"last_message,omitempty" gorm:"foreignKey:LastMessageID"`
}

// BeforeCreate sets UUID and normalizes the participant order.
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ParticipantAID > c.ParticipantBID {
		c.ParticipantAID, c.ParticipantBID = c.ParticipantBID, c.ParticipantAID
	}
	return nil
}

// Includes reports whether the user participates in the conversation.
func (c *Conversation) Includes(userID uint) bool {
	return c.ParticipantAID == userID || c.ParticipantBID == userID
}

// OtherParticipant returns the peer of the given user.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if c.ParticipantAID == userID {
		return c.ParticipantBID
	}
	return c.ParticipantAID
}

// Message is a single chat message in a conversation.
type Message struct {
	ID             uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	ConversationID uuid.UUID `json:"conversation_id" gorm:"type:char(36);not null;index:idx_messages_conv_created"`
	SenderID       uint      `json:"sender_id" gorm:"not null;index"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	IsRead         bool      `json:"is_read" gorm:"default:false"`
	// Set at creation from the sender's role so the flag survives later
	// role changes.
	IsAdminMessage bool      `json:"is_admin_message" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"index:idx_messages_conv_created"`

	// Relations
	Sender User `json:"sender,omitempty" gorm:"foreignKey:SenderID"`
}

// BeforeCreate sets UUID before creating the record.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UserPresence tracks a user's online state for the chat layer.
type UserPresence struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	IsOnline   bool      `json:"is_online" gorm:"default:false;index"`
	LastSeenAt time.Time `json:"last_seen_at" gorm:"autoUpdateTime"`
}
