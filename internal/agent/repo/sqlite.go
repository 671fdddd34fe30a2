package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/research-agent/internal/agent/model"
	errx "github.com/tanpawarit/research-agent/internal/core/error"
	logx "github.com/tanpawarit/research-agent/pkg/logger"
)

const createConversationsTable = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	messages   TEXT NOT NULL,
	step       INTEGER NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLiteConversationRepository stores one row per conversation.
type SQLiteConversationRepository struct {
	db *sql.DB
}

// NewSQLiteConversationRepository creates the schema when missing.
func NewSQLiteConversationRepository(ctx context.Context, db *sql.DB) (*SQLiteConversationRepository, error) {
	if _, err := db.ExecContext(ctx, createConversationsTable); err != nil {
		return nil, errx.WrapSQLite(fmt.Errorf("create conversations table: %w", err))
	}
	return &SQLiteConversationRepository{db: db}, nil
}

func (r *SQLiteConversationRepository) Load(ctx context.Context, conversationID string) (*model.Checkpoint, error) {
	var (
		raw       string
		step      int
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT messages, step, updated_at FROM conversations WHERE id = ?`, conversationID,
	).Scan(&raw, &step, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to load conversation from sqlite")
		return nil, errx.WrapSQLite(err)
	}

	var msgs []*schema.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &model.Checkpoint{
		ConversationID: conversationID,
		Messages:       msgs,
		Step:           step,
		UpdatedAt:      ts,
	}, nil
}

// Save upserts the row; the step advances inside the statement.
func (r *SQLiteConversationRepository) Save(ctx context.Context, conversationID string, messages []*schema.Message) (*model.Checkpoint, error) {
	if messages == nil {
		messages = []*schema.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}
	now := time.Now().UTC()

	var step int
	err = r.db.QueryRowContext(ctx, `
INSERT INTO conversations (id, messages, step, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	messages = excluded.messages,
	step = conversations.step + 1,
	updated_at = excluded.updated_at
RETURNING step`,
		conversationID, string(raw), model.FirstCheckpointStep, now.Format(time.RFC3339Nano),
	).Scan(&step)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to save conversation to sqlite")
		return nil, errx.WrapSQLite(err)
	}

	return &model.Checkpoint{
		ConversationID: conversationID,
		Messages:       messages,
		Step:           step,
		UpdatedAt:      now,
	}, nil
}

func (r *SQLiteConversationRepository) Delete(ctx context.Context, conversationID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to delete conversation from sqlite")
		return errx.WrapSQLite(err)
	}
	return nil
}

var _ model.ConversationRepository = (*SQLiteConversationRepository)(nil)
