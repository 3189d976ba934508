// internal/store/sqlstore.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/permitwise/permitwise/internal/core/db"
	"github.com/permitwise/permitwise/internal/types"
)

/*
 * SQL-backed store.
 *
 * Conversation state persists as a JSON column with the transcript
 * normalized into a messages table; UUIDv7 message IDs give the transcript
 * its insertion order without a sequence column. Rule expressions persist
 * as the same JSON the engine evaluates, so authoring tooling and the
 * evaluator share one format.
 *
 * PersistTurn wraps the state update and message inserts in a single
 * transaction: state and transcript commit together or not at all.
 */

// SQLStore implements RuleSetStore and ConversationStore over sqlx.
type SQLStore struct {
	queries *db.Queries
}

// NewSQLStore creates a store over loaded named queries.
func NewSQLStore(queries *db.Queries) *SQLStore {
	return &SQLStore{queries: queries}
}

// FindJurisdiction implements RuleSetStore.
func (s *SQLStore) FindJurisdiction(ctx context.Context, name string) (*types.Jurisdiction, error) {
	var j types.Jurisdiction
	err := s.queries.Get(ctx, "find-jurisdiction", &j, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrJurisdictionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find jurisdiction: %w", err)
	}
	return &j, nil
}

// FindActiveRuleSet implements RuleSetStore.
func (s *SQLStore) FindActiveRuleSet(ctx context.Context, jurisdiction, category string) (*types.RuleSet, error) {
	var row struct {
		Jurisdiction string `db:"jurisdiction"`
		Category     string `db:"category"`
		Subcategory  string `db:"subcategory"`
		Version      int    `db:"version"`
		Rules        string `db:"rules"`
	}
	err := s.queries.Get(ctx, "find-active-rule-set", &row, jurisdiction, category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrRuleSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find rule set: %w", err)
	}

	set := types.RuleSet{
		Jurisdiction: row.Jurisdiction,
		Category:     row.Category,
		Subcategory:  row.Subcategory,
		Version:      row.Version,
	}
	if err := json.Unmarshal([]byte(row.Rules), &set.Rules); err != nil {
		return nil, fmt.Errorf("decode rules for %s/%s: %w", jurisdiction, category, err)
	}
	return &set, nil
}

// SaveJurisdiction inserts a jurisdiction record. Used by seeding tooling.
func (s *SQLStore) SaveJurisdiction(ctx context.Context, j types.Jurisdiction) error {
	_, err := s.queries.Exec(ctx, "insert-jurisdiction", j.Name, j.Region)
	return err
}

// ActivateRuleSet installs the set as the single active one for its pair,
// deactivating any predecessor in the same transaction.
func (s *SQLStore) ActivateRuleSet(ctx context.Context, set types.RuleSet) error {
	rulesJSON, err := json.Marshal(set.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	deactivate, err := s.queries.Raw("deactivate-rule-sets")
	if err != nil {
		return err
	}
	insert, err := s.queries.Raw("insert-rule-set")
	if err != nil {
		return err
	}

	tx, err := s.queries.DB().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deactivate, set.Jurisdiction, set.Category); err != nil {
		tx.Rollback()
		return fmt.Errorf("deactivate rule sets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert,
		set.Jurisdiction, set.Category, set.Subcategory, set.Version, string(rulesJSON)); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert rule set: %w", err)
	}
	return tx.Commit()
}

// CreateConversation implements ConversationStore.
func (s *SQLStore) CreateConversation(ctx context.Context, state *types.ConversationState) error {
	encoded, err := encodeState(state)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.queries.Exec(ctx, "insert-conversation",
		string(state.ID), state.CallerID, string(state.Status), encoded, now, now)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// LoadConversation implements ConversationStore, rebuilding the transcript
// from the messages table.
func (s *SQLStore) LoadConversation(ctx context.Context, id types.ConversationID) (*types.ConversationState, error) {
	var row struct {
		ConversationID string `db:"conversation_id"`
		CallerID       string `db:"caller_id"`
		Status         string `db:"status"`
		State          string `db:"state"`
		CreatedAt      string `db:"created_at"`
		UpdatedAt      string `db:"updated_at"`
	}
	err := s.queries.Get(ctx, "get-conversation", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var state types.ConversationState
	if err := json.Unmarshal([]byte(row.State), &state); err != nil {
		return nil, fmt.Errorf("decode conversation state: %w", err)
	}
	if state.Inputs == nil {
		state.Inputs = types.InputSet{}
	}

	var msgs []struct {
		MessageID string `db:"message_id"`
		Role      string `db:"role"`
		Content   string `db:"content"`
		CreatedAt string `db:"created_at"`
	}
	if err := s.queries.Select(ctx, "list-messages", &msgs, string(id)); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	state.Transcript = make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		created, _ := time.Parse(time.RFC3339, m.CreatedAt)
		state.Transcript = append(state.Transcript, types.Message{
			ID:        types.MessageID(m.MessageID),
			Role:      types.MessageRole(m.Role),
			Content:   m.Content,
			CreatedAt: created,
		})
	}
	return &state, nil
}

// PersistTurn implements ConversationStore.
func (s *SQLStore) PersistTurn(ctx context.Context, state *types.ConversationState, newMessages []types.Message) error {
	state.Transcript = append(state.Transcript, newMessages...)
	state.UpdatedAt = time.Now().UTC()

	encoded, err := encodeState(state)
	if err != nil {
		return err
	}

	update, err := s.queries.Raw("update-conversation")
	if err != nil {
		return err
	}
	insertMsg, err := s.queries.Raw("insert-message")
	if err != nil {
		return err
	}

	tx, err := s.queries.DB().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, update,
		string(state.Status), encoded, state.UpdatedAt.Format(time.RFC3339), string(state.ID))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		tx.Rollback()
		return types.ErrConversationNotFound
	}

	for _, m := range newMessages {
		if _, err := tx.ExecContext(ctx, insertMsg,
			string(m.ID), string(state.ID), string(m.Role), m.Content,
			m.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

// encodeState marshals conversation state with the transcript stripped;
// messages live in their own table and would otherwise persist twice.
func encodeState(state *types.ConversationState) (string, error) {
	stripped := *state
	stripped.Transcript = nil
	encoded, err := json.Marshal(&stripped)
	if err != nil {
		return "", fmt.Errorf("encode conversation state: %w", err)
	}
	return string(encoded), nil
}
