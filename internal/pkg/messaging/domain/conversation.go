package domain

import (
	"strings"
	"time"
)

// Conversation pairs exactly two users for message exchange. The participant
// pair is unique across the store: a second first-send between the same two
// users must land on the existing conversation, never create a duplicate.
type Conversation struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Participants []string  `bson:"participants" json:"participants"`
	PairKey      string    `bson:"pairKey" json:"-"`
	LastMessage  string    `bson:"lastMessage" json:"lastMessage"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PairKey derives the canonical identity of a participant pair. Order of the
// arguments does not matter; the key is what the unique index hangs off.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// NewConversation builds an unsaved conversation for the given pair.
// The store assigns the ID on upsert.
func NewConversation(a, b string, now time.Time) (*Conversation, error) {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return nil, ErrBadID
	}
	if a == b {
		return nil, ErrSelfMessage
	}
	if b < a {
		a, b = b, a
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Conversation{
		Participants: []string{a, b},
		PairKey:      PairKey(a, b),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// HasParticipant tells whether userID is one of the two members.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
