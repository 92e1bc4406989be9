package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	cacheport "github.com/RahidMalik/lms-chat/internal/infrastructure/cache/port"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
)

// fakeRepo is an in-memory Repository with the same atomicity contract as
// the real adapters: one conversation per pair, upsert under a single lock.
type fakeRepo struct {
	mu       sync.Mutex
	convs    map[string]domain.Conversation // id -> conversation
	pairs    map[string]string              // pairKey -> id
	messages []domain.Message

	failUpsert error
	failAppend error
	failList   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs: make(map[string]domain.Conversation),
		pairs: make(map[string]string),
	}
}

func (r *fakeRepo) UpsertConversation(_ context.Context, c domain.Conversation) (*domain.Conversation, error) {
	if r.failUpsert != nil {
		return nil, r.failUpsert
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.pairs[c.PairKey]; ok {
		existing := r.convs[id]
		return &existing, nil
	}
	c.ID = uuid.NewString()
	r.convs[c.ID] = c
	r.pairs[c.PairKey] = c.ID
	return &c, nil
}

func (r *fakeRepo) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *fakeRepo) ListConversationsByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	if r.failList != nil {
		return nil, r.failList
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for _, c := range r.convs {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *fakeRepo) AppendMessage(_ context.Context, m domain.Message) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	if c, ok := r.convs[m.ConversationID]; ok {
		c.LastMessage = m.Text
		c.UpdatedAt = m.CreatedAt
		r.convs[m.ConversationID] = c
	}
	return nil
}

func (r *fakeRepo) ListMessagesByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeRepo) GetMessage(_ context.Context, id string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			m := r.messages[i]
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) MarkMessageSeen(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].Seen = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeRepo) MarkConversationSeen(_ context.Context, conversationID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.ConversationID == conversationID && m.ReceiverID == userID && !m.Seen {
			m.Seen = true
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) Ping(context.Context) error  { return nil }
func (r *fakeRepo) Close(context.Context) error { return nil }

// fakeCache is an in-memory Cache ignoring TTLs; tests drive expiry by
// deleting keys.
type fakeCache struct {
	mu   sync.Mutex
	data map[string]string

	gets, sets, dels int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	if !ok {
		return "", cacheport.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Del(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }
func (c *fakeCache) Close() error               { return nil }
