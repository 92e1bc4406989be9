package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/google/uuid"
)

var (
	bucketConversations = []byte("conversations") // conversation id -> json
	bucketPairs         = []byte("pairs")         // pair key -> conversation id
	bucketMessages      = []byte("messages")      // conv id + "/" + message id -> json
	bucketMessageIndex  = []byte("message_index") // message id -> conv id
)

// BoltRepository is the embedded store. Message keys are ULIDs, so a prefix
// scan over a conversation walks the log in creation order. Every write runs
// inside one bolt transaction, which makes both the pair upsert and the
// append-plus-preview update atomic.
type BoltRepository struct {
	db *bolt.DB
}

var _ port.Repository = (*BoltRepository)(nil)

func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketConversations, bucketPairs, bucketMessages, bucketMessageIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltRepository{db: db}, nil
}

func messageKey(conversationID, messageID string) []byte {
	return []byte(conversationID + "/" + messageID)
}

func (r *BoltRepository) UpsertConversation(ctx context.Context, c domain.Conversation) (*domain.Conversation, error) {
	var out domain.Conversation
	err := r.db.Update(func(tx *bolt.Tx) error {
		pairs := tx.Bucket(bucketPairs)
		convs := tx.Bucket(bucketConversations)

		if id := pairs.Get([]byte(c.PairKey)); id != nil {
			return json.Unmarshal(convs.Get(id), &out)
		}

		c.ID = uuid.NewString()
		c.LastMessage = ""
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := convs.Put([]byte(c.ID), data); err != nil {
			return err
		}
		if err := pairs.Put([]byte(c.PairKey), []byte(c.ID)); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BoltRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var out domain.Conversation
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BoltRepository) ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversations).ForEach(func(_, v []byte) error {
			var c domain.Conversation
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if c.HasParticipant(userID) {
				convs = append(convs, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (r *BoltRepository) AppendMessage(ctx context.Context, m domain.Message) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		convs := tx.Bucket(bucketConversations)
		convData := convs.Get([]byte(m.ConversationID))
		if convData == nil {
			return domain.ErrNotFound
		}

		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketMessages).Put(messageKey(m.ConversationID, m.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketMessageIndex).Put([]byte(m.ID), []byte(m.ConversationID)); err != nil {
			return err
		}

		var c domain.Conversation
		if err := json.Unmarshal(convData, &c); err != nil {
			return err
		}
		c.LastMessage = m.Text
		c.UpdatedAt = m.CreatedAt
		updated, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return convs.Put([]byte(c.ID), updated)
	})
}

func (r *BoltRepository) ListMessagesByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.View(func(tx *bolt.Tx) error {
		prefix := []byte(conversationID + "/")
		c := tx.Bucket(bucketMessages).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var m domain.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			msgs = append(msgs, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *BoltRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var out domain.Message
	err := r.db.View(func(tx *bolt.Tx) error {
		convID := tx.Bucket(bucketMessageIndex).Get([]byte(id))
		if convID == nil {
			return domain.ErrNotFound
		}
		data := tx.Bucket(bucketMessages).Get(messageKey(string(convID), id))
		if data == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BoltRepository) MarkMessageSeen(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		convID := tx.Bucket(bucketMessageIndex).Get([]byte(id))
		if convID == nil {
			return domain.ErrNotFound
		}
		msgs := tx.Bucket(bucketMessages)
		key := messageKey(string(convID), id)
		data := msgs.Get(key)
		if data == nil {
			return domain.ErrNotFound
		}
		var m domain.Message
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		if m.Seen {
			return nil
		}
		m.Seen = true
		updated, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return msgs.Put(key, updated)
	})
}

func (r *BoltRepository) MarkConversationSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	var n int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		prefix := []byte(conversationID + "/")
		msgs := tx.Bucket(bucketMessages)

		// Collect first: putting while a cursor iterates invalidates it.
		type pending struct {
			key  []byte
			data []byte
		}
		var updates []pending
		c := msgs.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var m domain.Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			if m.Seen || m.ReceiverID != userID {
				continue
			}
			m.Seen = true
			updated, err := json.Marshal(m)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: append([]byte(nil), k...), data: updated})
		}
		for _, u := range updates {
			if err := msgs.Put(u.key, u.data); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *BoltRepository) Ping(ctx context.Context) error {
	return r.db.View(func(tx *bolt.Tx) error { return nil })
}

func (r *BoltRepository) Close(ctx context.Context) error {
	return r.db.Close()
}
