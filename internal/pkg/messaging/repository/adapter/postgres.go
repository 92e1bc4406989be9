package adapter

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
)

// PgRepository persists conversations and messages in PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

var _ port.Repository = (*PgRepository)(nil)

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// EnsureSchema creates the chat schema and tables if they do not exist.
func (r *PgRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS chat;
		CREATE TABLE IF NOT EXISTS chat.conversation (
			id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			pair_key      text NOT NULL UNIQUE,
			participant_a text NOT NULL,
			participant_b text NOT NULL,
			last_message  text NOT NULL DEFAULT '',
			created_at    timestamptz NOT NULL,
			updated_at    timestamptz NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat.message (
			id              text PRIMARY KEY,
			conversation_id uuid NOT NULL REFERENCES chat.conversation(id),
			sender_id       text NOT NULL,
			receiver_id     text NOT NULL,
			text            text NOT NULL,
			seen            boolean NOT NULL DEFAULT false,
			created_at      timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS message_conversation_idx
			ON chat.message (conversation_id, created_at, id);
	`)
	return err
}

func (r *PgRepository) UpsertConversation(ctx context.Context, c domain.Conversation) (*domain.Conversation, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict,
	// so concurrent first-sends race on the unique pair_key, not in Go code.
	out := domain.Conversation{Participants: make([]string, 2)}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat.conversation (pair_key, participant_a, participant_b, last_message, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $4)
		ON CONFLICT (pair_key) DO UPDATE SET pair_key = EXCLUDED.pair_key
		RETURNING id::text, pair_key, participant_a, participant_b, last_message, created_at, updated_at
	`, c.PairKey, c.Participants[0], c.Participants[1], c.CreatedAt).Scan(
		&out.ID, &out.PairKey, &out.Participants[0], &out.Participants[1],
		&out.LastMessage, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	out := domain.Conversation{Participants: make([]string, 2)}
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, pair_key, participant_a, participant_b, last_message, created_at, updated_at
		FROM chat.conversation WHERE id = $1::uuid
	`, id).Scan(
		&out.ID, &out.PairKey, &out.Participants[0], &out.Participants[1],
		&out.LastMessage, &out.CreatedAt, &out.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PgRepository) ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, pair_key, participant_a, participant_b, last_message, created_at, updated_at
		FROM chat.conversation
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		c := domain.Conversation{Participants: make([]string, 2)}
		if err := rows.Scan(
			&c.ID, &c.PairKey, &c.Participants[0], &c.Participants[1],
			&c.LastMessage, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (r *PgRepository) AppendMessage(ctx context.Context, m domain.Message) error {
	// Message insert and preview bump commit together: no partial-failure
	// window on this backend.
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat.message (id, conversation_id, sender_id, receiver_id, text, seen, created_at)
		VALUES ($1, $2::uuid, $3, $4, $5, false, $6)
	`, m.ID, m.ConversationID, m.SenderID, m.ReceiverID, m.Text, m.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE chat.conversation SET last_message = $2, updated_at = $3 WHERE id = $1::uuid
	`, m.ConversationID, m.Text, m.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListMessagesByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id::text, sender_id, receiver_id, text, seen, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID,
			&m.Text, &m.Seen, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id, conversation_id::text, sender_id, receiver_id, text, seen, created_at
		FROM chat.message WHERE id = $1
	`, id).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID,
		&m.Text, &m.Seen, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgRepository) MarkMessageSeen(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message SET seen = true WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgRepository) MarkConversationSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.message SET seen = true
		WHERE conversation_id = $1::uuid AND receiver_id = $2 AND seen = false
	`, conversationID, userID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PgRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PgRepository) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}
