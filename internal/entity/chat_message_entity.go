package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage belongs to exactly one ChatSession. Seq is assigned by the
// store on insert and breaks ordering ties within a same-timestamp burst.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Seq           int64
	UserInput     string
	Output        string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
