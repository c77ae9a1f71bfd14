package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	apperrors "ascai/internal/errors"
	"ascai/internal/model"
)

type MockMessagingRepository struct {
	mock.Mock
}

func (m *MockMessagingRepository) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockMessagingRepository) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockMessagingRepository) FindConversationByID(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockMessagingRepository) FindConversationByPair(ctx context.Context, userA, userB uint) (*model.Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *MockMessagingRepository) ListConversations(ctx context.Context, userID uint, offset, limit int) ([]model.Conversation, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Conversation), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessagingRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessagingRepository) FindMessageByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessagingRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, offset, limit int) ([]model.Message, int64, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Message), args.Get(1).(int64), args.Error(2)
}

func (m *MockMessagingRepository) MarkMessagesRead(ctx context.Context, conversationID uuid.UUID, readerID uint) error {
	args := m.Called(ctx, conversationID, readerID)
	return args.Error(0)
}

func (m *MockMessagingRepository) CountUnreadMessages(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessagingRepository) UpsertPresence(ctx context.Context, userID uint, online bool) error {
	args := m.Called(ctx, userID, online)
	return args.Error(0)
}

func (m *MockMessagingRepository) FindPresence(ctx context.Context, userID uint) (*model.UserPresence, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPresence), args.Error(1)
}

func (m *MockMessagingRepository) ListOnlineUsers(ctx context.Context) ([]model.UserPresence, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserPresence), args.Error(1)
}

// MockBroker captures published chat events per channel.
type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func testConversation(a, b uint) *model.Conversation {
	return &model.Conversation{
		ID:             uuid.New(),
		ParticipantAID: a,
		ParticipantBID: b,
	}
}

func newTestMessagingService(repo *MockMessagingRepository, users *MockUserRepository, broker *MockBroker) MessagingService {
	return NewMessagingService(repo, users, broker)
}

func TestMessagingService_StartConversation(t *testing.T) {
	t.Run("reuses the existing conversation", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		existing := testConversation(3, 4)
		users.On("FindByID", mock.Anything, uint(4)).Return(memberUser(4), nil)
		repo.On("FindConversationByPair", mock.Anything, uint(3), uint(4)).Return(existing, nil)

		conv, err := svc.StartConversation(context.Background(), memberUser(3), 4)
		assert.NoError(t, err)
		assert.Equal(t, existing.ID, conv.ID)
		repo.AssertNotCalled(t, "CreateConversation", mock.Anything, mock.Anything)
	})

	t.Run("creates the first conversation for a pair", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		users.On("FindByID", mock.Anything, uint(4)).Return(memberUser(4), nil)
		repo.On("FindConversationByPair", mock.Anything, uint(3), uint(4)).Return(nil, gorm.ErrRecordNotFound)
		repo.On("CreateConversation", mock.Anything, mock.AnythingOfType("*model.Conversation")).Return(nil)

		conv, err := svc.StartConversation(context.Background(), memberUser(3), 4)
		assert.NoError(t, err)
		assert.Equal(t, uint(3), conv.ParticipantAID)
		assert.Equal(t, uint(4), conv.ParticipantBID)
	})

	t.Run("no conversation with yourself", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		_, err := svc.StartConversation(context.Background(), memberUser(3), 3)
		assert.ErrorIs(t, err, apperrors.ErrSelfConversation)
	})

	t.Run("deactivated peer looks like a missing user", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		peer := memberUser(4)
		peer.IsActive = false
		users.On("FindByID", mock.Anything, uint(4)).Return(peer, nil)

		_, err := svc.StartConversation(context.Background(), memberUser(3), 4)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestMessagingService_SendMessage(t *testing.T) {
	t.Run("persists and fans out to both channels", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		conv := testConversation(3, 4)
		sender := memberUser(3)

		repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)
		repo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*model.Message")).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Message).ID = uuid.New()
		}).Return(nil)
		repo.On("UpdateConversation", mock.Anything, conv).Return(nil)
		broker.On("Publish", mock.Anything, ConversationChannel(conv.ID), mock.Anything).Return(nil)
		broker.On("Publish", mock.Anything, UserChannel(4), mock.MatchedBy(func(payload []byte) bool {
			var event ChatEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return false
			}
			return event.Type == ChatEventMessage && event.SenderID == 3 && event.ConversationID == conv.ID
		})).Return(nil)

		msg, err := svc.SendMessage(context.Background(), conv.ID, sender, "ciao")
		assert.NoError(t, err)
		assert.Equal(t, "ciao", msg.Content)
		assert.False(t, msg.IsAdminMessage)
		if assert.NotNil(t, conv.LastMessageID) {
			assert.Equal(t, msg.ID, *conv.LastMessageID)
		}
		broker.AssertNumberOfCalls(t, "Publish", 2)
	})

	t.Run("non-participant cannot send", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		conv := testConversation(3, 4)
		repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := svc.SendMessage(context.Background(), conv.ID, memberUser(5), "hi")
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
		repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		conv := testConversation(3, 4)
		repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)

		_, err := svc.SendMessage(context.Background(), conv.ID, memberUser(3), "")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	})

	t.Run("admin messages carry the admin flag", func(t *testing.T) {
		repo := new(MockMessagingRepository)
		users := new(MockUserRepository)
		broker := new(MockBroker)
		svc := newTestMessagingService(repo, users, broker)

		conv := testConversation(1, 4)
		repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)
		repo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*model.Message")).Return(nil)
		repo.On("UpdateConversation", mock.Anything, conv).Return(nil)
		broker.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.SendMessage(context.Background(), conv.ID, adminUser(1), "please read the rules")
		assert.NoError(t, err)
		assert.True(t, msg.IsAdminMessage)
	})
}

func TestMessagingService_MarkRead(t *testing.T) {
	repo := new(MockMessagingRepository)
	users := new(MockUserRepository)
	broker := new(MockBroker)
	svc := newTestMessagingService(repo, users, broker)

	conv := testConversation(3, 4)
	repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)
	repo.On("MarkMessagesRead", mock.Anything, conv.ID, uint(4)).Return(nil)
	broker.On("Publish", mock.Anything, ConversationChannel(conv.ID), mock.Anything).Return(nil)
	broker.On("Publish", mock.Anything, UserChannel(3), mock.MatchedBy(func(payload []byte) bool {
		var event ChatEvent
		return json.Unmarshal(payload, &event) == nil && event.Type == ChatEventRead
	})).Return(nil)

	err := svc.MarkRead(context.Background(), conv.ID, memberUser(4))
	assert.NoError(t, err)
	repo.AssertCalled(t, "MarkMessagesRead", mock.Anything, conv.ID, uint(4))
}

func TestMessagingService_NotifyTyping(t *testing.T) {
	repo := new(MockMessagingRepository)
	users := new(MockUserRepository)
	broker := new(MockBroker)
	svc := newTestMessagingService(repo, users, broker)

	conv := testConversation(3, 4)
	repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)
	broker.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(payload []byte) bool {
		var event ChatEvent
		return json.Unmarshal(payload, &event) == nil && event.Type == ChatEventTyping && event.IsTyping
	})).Return(nil)

	err := svc.NotifyTyping(context.Background(), conv.ID, memberUser(3), true)
	assert.NoError(t, err)
	broker.AssertNumberOfCalls(t, "Publish", 2)
}

func TestMessagingService_BrokerFailureDoesNotLoseMessages(t *testing.T) {
	repo := new(MockMessagingRepository)
	users := new(MockUserRepository)
	broker := new(MockBroker)
	svc := newTestMessagingService(repo, users, broker)

	conv := testConversation(3, 4)
	repo.On("FindConversationByID", mock.Anything, conv.ID).Return(conv, nil)
	repo.On("CreateMessage", mock.Anything, mock.AnythingOfType("*model.Message")).Return(nil)
	repo.On("UpdateConversation", mock.Anything, conv).Return(nil)
	broker.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	msg, err := svc.SendMessage(context.Background(), conv.ID, memberUser(3), "still delivered")
	assert.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestMessagingService_GetPresence(t *testing.T) {
	repo := new(MockMessagingRepository)
	users := new(MockUserRepository)
	broker := new(MockBroker)
	svc := newTestMessagingService(repo, users, broker)

	repo.On("FindPresence", mock.Anything, uint(4)).Return(&model.UserPresence{UserID: 4, IsOnline: true}, nil)
	presence, err := svc.GetPresence(context.Background(), 4)
	assert.NoError(t, err)
	assert.True(t, presence.IsOnline)

	repo.On("FindPresence", mock.Anything, uint(5)).Return(nil, gorm.ErrRecordNotFound)
	_, err = svc.GetPresence(context.Background(), 5)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
