package service

import (
	"context"
	"errors"
	"time"

	"github.com/twara244/feeling-dumb/internal/constant"
	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/repository/memory"
	"github.com/twara244/feeling-dumb/internal/repository/specification"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"
	"github.com/twara244/feeling-dumb/pkg/llm"

	"github.com/google/uuid"
)

var (
	// ErrUnauthorized: the request carried no usable user id.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAllFieldsMandatory: converse requires user_input, mood and chat_id.
	ErrAllFieldsMandatory = errors.New("all the fields are mandatory")
	// ErrMissingChatOrMessage: save_message requires chat_id and message.
	ErrMissingChatOrMessage = errors.New("missing chat_id or message")
	// ErrChatNotFound covers both a missing session and an ownership
	// mismatch; callers are deliberately not told which.
	ErrChatNotFound = errors.New("chat not found or unauthorized")
	// ErrChatMissing: the session document does not exist (delete path,
	// where the original distinguished 404 from 403).
	ErrChatMissing = errors.New("chat not found")
	// ErrMessageNotFound: msg_id given but no such message in the chat.
	ErrMessageNotFound = errors.New("message not found")
	// ErrIdsRequired: delete requires both user_id and chat_id.
	ErrIdsRequired = errors.New("user id and chat id are required")
)

type IChatService interface {
	StartSession(ctx context.Context, userId uuid.UUID) (*dto.StartChatResponse, error)
	SaveOrUpdateMessage(ctx context.Context, req *dto.SaveMessageRequest) (*dto.SaveMessageResponse, error)
	Converse(ctx context.Context, req *dto.ConverseRequest) (*dto.ConverseResponse, error)
	GetChatHistory(ctx context.Context, userId, chatId uuid.UUID) (*dto.ChatHistoryResponse, error)
	GetAllChats(ctx context.Context, userId uuid.UUID) (*dto.ChatListResponse, error)
	Summarize(ctx context.Context, userId, chatId uuid.UUID) (*dto.SummaryResponse, error)
	DeleteSession(ctx context.Context, userId, chatId uuid.UUID) error
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	llmProvider  llm.LLMProvider
	summaryCache *memory.SummaryCache
	logger       logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	summaryCache *memory.SummaryCache,
	sysLogger logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		llmProvider:  llmProvider,
		summaryCache: summaryCache,
		logger:       sysLogger,
	}
}

// StartSession creates a fresh chat session for the user. Concurrent calls
// never conflict: every session gets its own id.
func (s *chatService) StartSession(ctx context.Context, userId uuid.UUID) (*dto.StartChatResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthorized
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	s.logger.Info("chat", "session started", map[string]interface{}{
		"chat_id": chatSession.Id.String(),
		"user_id": userId.String(),
	})

	return &dto.StartChatResponse{ChatId: chatSession.Id}, nil
}

// SaveOrUpdateMessage inserts a new message, or overwrites user_input on an
// existing one when msg_id is given. An empty-after-edit text would be a
// valid overwrite; only a fully absent message field is rejected. Messages
// are never removed through this path.
func (s *chatService) SaveOrUpdateMessage(ctx context.Context, req *dto.SaveMessageRequest) (*dto.SaveMessageResponse, error) {
	if req.ChatId == uuid.Nil || req.Message == "" {
		return nil, ErrMissingChatOrMessage
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	defer s.summaryCache.Invalidate(req.ChatId)

	if req.MsgId != nil {
		message, err := uow.ChatMessageRepository().FindOne(ctx,
			specification.ByID{ID: *req.MsgId},
			specification.ByChatSessionID{ChatSessionID: req.ChatId},
		)
		if err != nil {
			return nil, err
		}
		if message == nil {
			return nil, ErrMessageNotFound
		}

		message.UserInput = req.Message
		message.CreatedAt = time.Now()
		if err := uow.ChatMessageRepository().Update(ctx, message); err != nil {
			return nil, err
		}

		return &dto.SaveMessageResponse{MsgId: message.Id}, nil
	}

	message := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: req.ChatId,
		UserInput:     req.Message,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &message); err != nil {
		return nil, err
	}

	return &dto.SaveMessageResponse{MsgId: message.Id}, nil
}

// Converse sends the user's diary entry through the therapist prompt and,
// only after the model answered, persists one message carrying both sides.
// A model failure persists nothing.
func (s *chatService) Converse(ctx context.Context, req *dto.ConverseRequest) (*dto.ConverseResponse, error) {
	if req.ChatId == uuid.Nil || req.UserInput == "" || req.Mood == "" {
		return nil, ErrAllFieldsMandatory
	}

	prompt := constant.BuildTherapistPrompt(req.Mood, req.UserInput)

	output, err := s.llmProvider.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("chat", "model call failed", map[string]interface{}{
			"chat_id": req.ChatId.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	message := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: req.ChatId,
		UserInput:     req.UserInput,
		Output:        output,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, &message); err != nil {
		return nil, err
	}

	s.summaryCache.Invalidate(req.ChatId)

	return &dto.ConverseResponse{MsgId: message.Id, Output: output}, nil
}

// findOwnedSession loads a session and enforces ownership. A missing
// session and a foreign session produce the same error on read paths.
func (s *chatService) findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, chatId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserId != userId {
		return nil, ErrChatNotFound
	}
	return session, nil
}

func (s *chatService) loadOrderedMessages(ctx context.Context, uow unitofwork.UnitOfWork, chatId uuid.UUID) ([]dto.ChatMessageDTO, error) {
	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
		specification.CanonicalMessageOrder{},
	)
	if err != nil {
		return nil, err
	}

	history := make([]dto.ChatMessageDTO, 0, len(messages))
	for _, msg := range messages {
		history = append(history, dto.ChatMessageDTO{
			UserInput: msg.UserInput,
			Output:    msg.Output,
			Timestamp: msg.CreatedAt,
		})
	}
	return history, nil
}

// GetChatHistory returns one session's messages in canonical chat order.
func (s *chatService) GetChatHistory(ctx context.Context, userId, chatId uuid.UUID) (*dto.ChatHistoryResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthorized
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwnedSession(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	history, err := s.loadOrderedMessages(ctx, uow, chatId)
	if err != nil {
		return nil, err
	}

	return &dto.ChatHistoryResponse{ChatId: chatId, Messages: history}, nil
}

// GetAllChats enumerates the user's sessions and fetches each message list
// sequentially. One session query plus one message query per session; fine
// at diary scale, and the signature leaves room for a batched variant.
func (s *chatService) GetAllChats(ctx context.Context, userId uuid.UUID) (*dto.ChatListResponse, error) {
	if userId == uuid.Nil {
		return nil, ErrUnauthorized
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}

	chats := make([]dto.ChatHistoryResponse, 0, len(sessions))
	for _, session := range sessions {
		history, err := s.loadOrderedMessages(ctx, uow, session.Id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, dto.ChatHistoryResponse{
			ChatId:   session.Id,
			Messages: history,
		})
	}

	return &dto.ChatListResponse{UserId: userId, Chats: chats}, nil
}

// Summarize concatenates every user_input in chat order, with no
// separator, and asks the model for a short second-person summary. The
// result is cached until the next write to the chat.
func (s *chatService) Summarize(ctx context.Context, userId, chatId uuid.UUID) (*dto.SummaryResponse, error) {
	if chatId == uuid.Nil {
		return nil, ErrAllFieldsMandatory
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwnedSession(ctx, uow, userId, chatId); err != nil {
		return nil, err
	}

	if summary, ok := s.summaryCache.Get(chatId); ok {
		return &dto.SummaryResponse{ChatId: chatId, Summary: summary}, nil
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
		specification.CanonicalMessageOrder{},
	)
	if err != nil {
		return nil, err
	}

	chatHistory := ""
	for _, msg := range messages {
		chatHistory += msg.UserInput
	}

	summary, err := s.llmProvider.Generate(ctx, constant.BuildSummaryPrompt(chatHistory))
	if err != nil {
		s.logger.Error("chat", "summary model call failed", map[string]interface{}{
			"chat_id": chatId.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	s.summaryCache.Set(chatId, summary)

	return &dto.SummaryResponse{ChatId: chatId, Summary: summary}, nil
}

// DeleteSession removes the session and all its messages in one
// transaction, so no orphaned messages survive a delete.
func (s *chatService) DeleteSession(ctx context.Context, userId, chatId uuid.UUID) error {
	if userId == uuid.Nil || chatId == uuid.Nil {
		return ErrIdsRequired
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return err
	}
	if session == nil {
		return ErrChatMissing
	}
	if session.UserId != userId {
		return ErrChatNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteAllBySessionId(ctx, chatId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, chatId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.summaryCache.Invalidate(chatId)

	s.logger.Info("chat", "session deleted", map[string]interface{}{
		"chat_id": chatId.String(),
		"user_id": userId.String(),
	})

	return nil
}
