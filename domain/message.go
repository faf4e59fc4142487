// Package domain contains core concepts of the chat relay.
// This file defines Message values and related rules.
// Messages are transient and exist only for the duration of one broadcast.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one chat broadcast.
type Message struct {
	ID        uuid.UUID // unique identifier
	Sender    string
	Text      string
	CreatedAt time.Time
}
