package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is one diary conversation, exclusively owned by its user.
type ChatSession struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	CreatedAt time.Time
}
