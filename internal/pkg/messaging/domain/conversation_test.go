package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPairKeyOrderIndependent(t *testing.T) {
	if PairKey("bob", "alice") != PairKey("alice", "bob") {
		t.Error("pair key must not depend on argument order")
	}
	if got, want := PairKey("bob", "alice"), "alice|bob"; got != want {
		t.Errorf("PairKey = %q, want %q", got, want)
	}
}

func TestNewConversation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conv, err := NewConversation("bob", "alice", now)
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if conv.PairKey != "alice|bob" {
		t.Errorf("pairKey = %q", conv.PairKey)
	}
	if len(conv.Participants) != 2 || conv.Participants[0] != "alice" || conv.Participants[1] != "bob" {
		t.Errorf("participants = %v", conv.Participants)
	}
	if !conv.HasParticipant("bob") || conv.HasParticipant("mallory") {
		t.Error("HasParticipant misreports membership")
	}
}

func TestNewConversationRejects(t *testing.T) {
	now := time.Now()
	if _, err := NewConversation("alice", "alice", now); !errors.Is(err, ErrSelfMessage) {
		t.Errorf("self pair: err = %v, want %v", err, ErrSelfMessage)
	}
	if _, err := NewConversation("", "bob", now); !errors.Is(err, ErrBadID) {
		t.Errorf("empty id: err = %v, want %v", err, ErrBadID)
	}
}
