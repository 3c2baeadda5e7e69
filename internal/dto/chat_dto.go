package dto

import (
	"time"

	"github.com/google/uuid"
)

// Chat payloads keep the original API's snake_case field names.

type StartChatRequest struct {
	UserId uuid.UUID `json:"user_id"`
}

type StartChatResponse struct {
	ChatId uuid.UUID `json:"chat_id"`
}

type SaveMessageRequest struct {
	ChatId  uuid.UUID  `json:"chat_id"`
	Message string     `json:"message"`
	MsgId   *uuid.UUID `json:"msg_id,omitempty"`
}

type SaveMessageResponse struct {
	MsgId uuid.UUID `json:"msg_id"`
}

type ConverseRequest struct {
	UserInput string    `json:"user_input"`
	Mood      string    `json:"mood"`
	ChatId    uuid.UUID `json:"chat_id"`
}

type ConverseResponse struct {
	MsgId  uuid.UUID `json:"msg_id"`
	Output string    `json:"output"`
}

// ChatMessageDTO is one history entry reduced to its public shape.
type ChatMessageDTO struct {
	UserInput string    `json:"user_input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatHistoryResponse struct {
	ChatId   uuid.UUID        `json:"chat_id"`
	Messages []ChatMessageDTO `json:"messages"`
}

type ChatListResponse struct {
	UserId uuid.UUID             `json:"user_id"`
	Chats  []ChatHistoryResponse `json:"chats"`
}

type SummaryResponse struct {
	ChatId  uuid.UUID `json:"chat_id"`
	Summary string    `json:"summary"`
}
