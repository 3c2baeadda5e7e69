package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/twara244/feeling-dumb/internal/dto"
	"github.com/twara244/feeling-dumb/internal/entity"
	"github.com/twara244/feeling-dumb/internal/pkg/logger"
	"github.com/twara244/feeling-dumb/internal/repository/contract"
	"github.com/twara244/feeling-dumb/internal/repository/memory"
	"github.com/twara244/feeling-dumb/internal/repository/specification"
	"github.com/twara244/feeling-dumb/internal/repository/unitofwork"
	"github.com/twara244/feeling-dumb/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes ----

type fakeStore struct {
	sessions    map[uuid.UUID]*entity.ChatSession
	messages    map[uuid.UUID]*entity.ChatMessage
	users       map[uuid.UUID]*entity.User
	resetTokens map[uuid.UUID]*entity.PasswordResetToken
	nextSeq     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:    make(map[uuid.UUID]*entity.ChatSession),
		messages:    make(map[uuid.UUID]*entity.ChatMessage),
		users:       make(map[uuid.UUID]*entity.User),
		resetTokens: make(map[uuid.UUID]*entity.PasswordResetToken),
	}
}

type fakeUow struct {
	store *fakeStore

	inTx      bool
	committed bool

	// staged deletions, applied on Commit
	stagedMessageDeletes []uuid.UUID
	stagedSessionDeletes []uuid.UUID
}

type fakeFactory struct {
	store   *fakeStore
	lastUow *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	f.lastUow = &fakeUow{store: f.store}
	return f.lastUow
}

func (u *fakeUow) Begin(ctx context.Context) error {
	u.inTx = true
	return nil
}

func (u *fakeUow) Commit() error {
	for _, id := range u.stagedMessageDeletes {
		delete(u.store.messages, id)
	}
	for _, id := range u.stagedSessionDeletes {
		delete(u.store.sessions, id)
	}
	u.inTx = false
	u.committed = true
	return nil
}

func (u *fakeUow) Rollback() error {
	u.stagedMessageDeletes = nil
	u.stagedSessionDeletes = nil
	u.inTx = false
	return nil
}

func (u *fakeUow) UserRepository() contract.UserRepository {
	return &fakeUserRepo{store: u.store}
}

func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{uow: u}
}

func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{uow: u}
}

// sessionMatches interprets the query specifications against one session.
func sessionMatches(s *entity.ChatSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if s.Id != sp.ID {
				return false
			}
		case specification.UserOwnedBy:
			if s.UserId != sp.UserID {
				return false
			}
		}
	}
	return true
}

func messageMatches(m *entity.ChatMessage, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch sp := spec.(type) {
		case specification.ByID:
			if m.Id != sp.ID {
				return false
			}
		case specification.ByChatSessionID:
			if m.ChatSessionId != sp.ChatSessionID {
				return false
			}
		}
	}
	return true
}

func wantsCanonicalOrder(specs []specification.Specification) bool {
	for _, spec := range specs {
		if _, ok := spec.(specification.CanonicalMessageOrder); ok {
			return true
		}
	}
	return false
}

type fakeSessionRepo struct {
	uow *fakeUow
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	cp := *session
	r.uow.store.sessions[session.Id] = &cp
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if r.uow.inTx {
		r.uow.stagedSessionDeletes = append(r.uow.stagedSessionDeletes, id)
		return nil
	}
	delete(r.uow.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	for _, s := range r.uow.store.sessions {
		if sessionMatches(s, specs) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	var out []*entity.ChatSession
	for _, s := range r.uow.store.sessions {
		if sessionMatches(s, specs) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var n int64
	for _, s := range r.uow.store.sessions {
		if sessionMatches(s, specs) {
			n++
		}
	}
	return n, nil
}

type fakeMessageRepo struct {
	uow *fakeUow
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.uow.store.nextSeq++
	message.Seq = r.uow.store.nextSeq
	cp := *message
	r.uow.store.messages[message.Id] = &cp
	return nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *entity.ChatMessage) error {
	if _, ok := r.uow.store.messages[message.Id]; !ok {
		return errors.New("no row")
	}
	cp := *message
	r.uow.store.messages[message.Id] = &cp
	return nil
}

func (r *fakeMessageRepo) DeleteAllBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	for id, m := range r.uow.store.messages {
		if m.ChatSessionId == sessionId {
			if r.uow.inTx {
				r.uow.stagedMessageDeletes = append(r.uow.stagedMessageDeletes, id)
			} else {
				delete(r.uow.store.messages, id)
			}
		}
	}
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	for _, m := range r.uow.store.messages {
		if messageMatches(m, specs) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var out []*entity.ChatMessage
	for _, m := range r.uow.store.messages {
		if messageMatches(m, specs) {
			cp := *m
			out = append(out, &cp)
		}
	}
	if wantsCanonicalOrder(specs) {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].Seq < out[j].Seq
		})
	}
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var n int64
	for _, m := range r.uow.store.messages {
		if messageMatches(m, specs) {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	store *fakeStore
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	for _, u := range r.store.users {
		matched := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.ByID:
				if u.Id != sp.ID {
					matched = false
				}
			case specification.ByEmail:
				if u.Email != sp.Email {
					matched = false
				}
			}
		}
		if matched {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.store.users[id]; ok {
		u.LastLoginAt = time.Now()
	}
	return nil
}

func (r *fakeUserRepo) CreatePasswordResetToken(ctx context.Context, token *entity.PasswordResetToken) error {
	cp := *token
	r.store.resetTokens[token.Id] = &cp
	return nil
}

func (r *fakeUserRepo) FindPasswordResetToken(ctx context.Context, specs ...specification.Specification) (*entity.PasswordResetToken, error) {
	for _, tok := range r.store.resetTokens {
		matched := true
		for _, spec := range specs {
			switch sp := spec.(type) {
			case specification.ByID:
				if tok.Id != sp.ID {
					matched = false
				}
			case specification.ByToken:
				if tok.Token != sp.Token {
					matched = false
				}
			}
		}
		if matched {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) MarkPasswordResetTokenUsed(ctx context.Context, id uuid.UUID) error {
	if tok, ok := r.store.resetTokens[id]; ok {
		tok.Used = true
	}
	return nil
}

// fakeLLM returns a canned reply, or fails when told to.
type fakeLLM struct {
	reply      string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestChatService(store *fakeStore, model *fakeLLM) IChatService {
	return NewChatService(
		&fakeFactory{store: store},
		model,
		memory.NewSummaryCache(time.Minute),
		logger.NewNopLogger(),
	)
}

func seedSession(store *fakeStore, userId uuid.UUID) uuid.UUID {
	id := uuid.New()
	store.sessions[id] = &entity.ChatSession{Id: id, UserId: userId, CreatedAt: time.Now()}
	return id
}

// ---- tests ----

func TestStartSession(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	userId := uuid.New()
	res, err := svc.StartSession(context.Background(), userId)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, res.ChatId)

	session := store.sessions[res.ChatId]
	require.NotNil(t, session)
	assert.Equal(t, userId, session.UserId)

	_, err = svc.StartSession(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSaveMessageCreatesNew(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	chatId := seedSession(store, uuid.New())

	res, err := svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "dear diary",
	})
	require.NoError(t, err)

	msg := store.messages[res.MsgId]
	require.NotNil(t, msg)
	assert.Equal(t, "dear diary", msg.UserInput)
	assert.Empty(t, msg.Output)
}

func TestSaveMessageUpdatePreservesCount(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	chatId := seedSession(store, uuid.New())

	first, err := svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "v1",
	})
	require.NoError(t, err)

	updated, err := svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "v2",
		MsgId:   &first.MsgId,
	})
	require.NoError(t, err)

	assert.Equal(t, first.MsgId, updated.MsgId)
	assert.Len(t, store.messages, 1)
	assert.Equal(t, "v2", store.messages[first.MsgId].UserInput)
}

func TestSaveMessageValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	chatId := seedSession(store, uuid.New())

	_, err := svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId: chatId,
	})
	assert.ErrorIs(t, err, ErrMissingChatOrMessage)

	_, err = svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		Message: "orphan",
	})
	assert.ErrorIs(t, err, ErrMissingChatOrMessage)

	ghost := uuid.New()
	_, err = svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "edit",
		MsgId:   &ghost,
	})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestConversePersistsOnSuccess(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "take a deep breath"}
	svc := newTestChatService(store, model)

	chatId := seedSession(store, uuid.New())

	res, err := svc.Converse(context.Background(), &dto.ConverseRequest{
		UserInput: "rough day at work",
		Mood:      "sad",
		ChatId:    chatId,
	})
	require.NoError(t, err)
	assert.Equal(t, "take a deep breath", res.Output)

	msg := store.messages[res.MsgId]
	require.NotNil(t, msg)
	assert.Equal(t, "rough day at work", msg.UserInput)
	assert.Equal(t, "take a deep breath", msg.Output)

	assert.Contains(t, model.lastPrompt, "sad")
	assert.Contains(t, model.lastPrompt, "rough day at work")
}

func TestConversePersistsNothingOnModelFailure(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{err: errors.New("model unavailable")})

	chatId := seedSession(store, uuid.New())

	_, err := svc.Converse(context.Background(), &dto.ConverseRequest{
		UserInput: "hello",
		Mood:      "happy",
		ChatId:    chatId,
	})
	require.Error(t, err)
	assert.Empty(t, store.messages)
}

func TestConverseRequiresAllFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	chatId := seedSession(store, uuid.New())

	cases := []struct {
		name string
		req  dto.ConverseRequest
	}{
		{"missing input", dto.ConverseRequest{Mood: "sad", ChatId: chatId}},
		{"missing mood", dto.ConverseRequest{UserInput: "hi", ChatId: chatId}},
		{"missing chat", dto.ConverseRequest{UserInput: "hi", Mood: "sad"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Converse(context.Background(), &tc.req)
			assert.ErrorIs(t, err, ErrAllFieldsMandatory)
		})
	}
}

func TestGetChatHistoryOrdering(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	userId := uuid.New()
	chatId := seedSession(store, userId)

	// Same created_at for all three: order must fall back to insertion order.
	at := time.Now().Truncate(time.Second)
	for _, text := range []string{"first", "second", "third"} {
		store.nextSeq++
		id := uuid.New()
		store.messages[id] = &entity.ChatMessage{
			Id:            id,
			ChatSessionId: chatId,
			Seq:           store.nextSeq,
			UserInput:     text,
			CreatedAt:     at,
		}
	}

	res, err := svc.GetChatHistory(context.Background(), userId, chatId)
	require.NoError(t, err)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, "first", res.Messages[0].UserInput)
	assert.Equal(t, "second", res.Messages[1].UserInput)
	assert.Equal(t, "third", res.Messages[2].UserInput)
}

func TestGetChatHistoryForbiddenForForeignUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	owner := uuid.New()
	chatId := seedSession(store, owner)

	_, err := svc.GetChatHistory(context.Background(), uuid.New(), chatId)
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, err = svc.GetChatHistory(context.Background(), owner, uuid.New())
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestGetAllChats(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	userId := uuid.New()
	chatA := seedSession(store, userId)
	chatB := seedSession(store, userId)
	seedSession(store, uuid.New()) // someone else's

	for i, chatId := range []uuid.UUID{chatA, chatB} {
		store.nextSeq++
		id := uuid.New()
		store.messages[id] = &entity.ChatMessage{
			Id:            id,
			ChatSessionId: chatId,
			Seq:           store.nextSeq,
			UserInput:     "entry",
			CreatedAt:     time.Now().Add(time.Duration(i) * time.Second),
		}
	}

	res, err := svc.GetAllChats(context.Background(), userId)
	require.NoError(t, err)
	assert.Len(t, res.Chats, 2)
	for _, chat := range res.Chats {
		assert.Len(t, chat.Messages, 1)
	}
}

func TestSummarizeConcatenatesAndCaches(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "you had a hard week"}
	svc := newTestChatService(store, model)

	userId := uuid.New()
	chatId := seedSession(store, userId)

	base := time.Now()
	for i, text := range []string{"monday was rough", "tuesday was better"} {
		store.nextSeq++
		id := uuid.New()
		store.messages[id] = &entity.ChatMessage{
			Id:            id,
			ChatSessionId: chatId,
			Seq:           store.nextSeq,
			UserInput:     text,
			Output:        "model noise, must not leak into summaries",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
	}

	res, err := svc.Summarize(context.Background(), userId, chatId)
	require.NoError(t, err)
	assert.Equal(t, "you had a hard week", res.Summary)

	// Inputs concatenated in order, with nothing between them, and no
	// model output mixed in.
	assert.Contains(t, model.lastPrompt, "monday was roughtuesday was better")
	assert.NotContains(t, model.lastPrompt, "model noise")

	// Second call is served from cache.
	callsBefore := model.calls
	res2, err := svc.Summarize(context.Background(), userId, chatId)
	require.NoError(t, err)
	assert.Equal(t, res.Summary, res2.Summary)
	assert.Equal(t, callsBefore, model.calls)
}

func TestSummarizeCacheInvalidatedOnWrite(t *testing.T) {
	store := newFakeStore()
	model := &fakeLLM{reply: "summary one"}
	svc := newTestChatService(store, model)

	userId := uuid.New()
	chatId := seedSession(store, userId)

	_, err := svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "first entry",
	})
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), userId, chatId)
	require.NoError(t, err)
	callsAfterFirst := model.calls

	_, err = svc.SaveOrUpdateMessage(context.Background(), &dto.SaveMessageRequest{
		ChatId:  chatId,
		Message: "second entry",
	})
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), userId, chatId)
	require.NoError(t, err)
	assert.Greater(t, model.calls, callsAfterFirst)
}

func TestSummarizeForbiddenForForeignUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	chatId := seedSession(store, uuid.New())

	_, err := svc.Summarize(context.Background(), uuid.New(), chatId)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	userId := uuid.New()
	chatId := seedSession(store, userId)
	otherChat := seedSession(store, userId)

	for _, target := range []uuid.UUID{chatId, chatId, otherChat} {
		store.nextSeq++
		id := uuid.New()
		store.messages[id] = &entity.ChatMessage{
			Id:            id,
			ChatSessionId: target,
			Seq:           store.nextSeq,
			UserInput:     "entry",
			CreatedAt:     time.Now(),
		}
	}

	err := svc.DeleteSession(context.Background(), userId, chatId)
	require.NoError(t, err)

	assert.Nil(t, store.sessions[chatId])
	for _, m := range store.messages {
		assert.NotEqual(t, chatId, m.ChatSessionId, "orphaned message survived delete")
	}
	// The other chat is untouched.
	assert.NotNil(t, store.sessions[otherChat])
	assert.Len(t, store.messages, 1)
}

func TestDeleteSessionErrors(t *testing.T) {
	store := newFakeStore()
	svc := newTestChatService(store, &fakeLLM{reply: "ok"})

	userId := uuid.New()
	chatId := seedSession(store, userId)

	err := svc.DeleteSession(context.Background(), uuid.Nil, chatId)
	assert.ErrorIs(t, err, ErrIdsRequired)

	err = svc.DeleteSession(context.Background(), userId, uuid.Nil)
	assert.ErrorIs(t, err, ErrIdsRequired)

	err = svc.DeleteSession(context.Background(), userId, uuid.New())
	assert.ErrorIs(t, err, ErrChatMissing)

	err = svc.DeleteSession(context.Background(), uuid.New(), chatId)
	assert.ErrorIs(t, err, ErrChatNotFound)

	// Still there after the failed attempts.
	assert.NotNil(t, store.sessions[chatId])
}
