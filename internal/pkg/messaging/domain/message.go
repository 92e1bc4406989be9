package domain

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation. Only the Seen flag
// may change after creation, and only false -> true.
type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversationId" json:"conversationId"`
	SenderID       string    `bson:"senderId" json:"senderId"`
	ReceiverID     string    `bson:"receiverId" json:"receiverId"`
	Text           string    `bson:"text" json:"text"`
	Seen           bool      `bson:"seen" json:"seen"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// NewMessage validates and normalizes a message prior to persistence.
// The store (or service) assigns the ID.
func NewMessage(m Message) (*Message, error) {
	if m.SenderID == "" || m.ReceiverID == "" {
		return nil, ErrBadID
	}
	if m.SenderID == m.ReceiverID {
		return nil, ErrSelfMessage
	}

	m.Text = strings.TrimSpace(m.Text)
	if m.Text == "" {
		return nil, ErrEmptyText
	}

	m.Seen = false
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	} else {
		m.CreatedAt = m.CreatedAt.UTC()
	}

	return &m, nil
}
