package conversation

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"codemate/internal/logging"
)

// SQLitePersister stores conversations in a local SQLite database.
// Messages are serialized as JSON per row; distinct conversations are
// independent, so no cross-conversation locking beyond the connection.
type SQLitePersister struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	messages   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at DESC);
`

// OpenSQLite opens (and creates if needed) the conversation database.
func OpenSQLite(path string) (*SQLitePersister, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLitePersister{db: db, logger: logging.Named("store")}, nil
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error { return p.db.Close() }

// Save upserts one conversation row.
func (p *SQLitePersister) Save(c *Conversation) error {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	_, err = p.db.Exec(
		`INSERT OR REPLACE INTO conversations (id, title, created_at, updated_at, messages)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.Title, c.CreatedAt, c.UpdatedAt, string(messages),
	)
	if err != nil {
		p.logger.Error("failed to save conversation", zap.String("id", c.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

// Delete removes one conversation row.
func (p *SQLitePersister) Delete(id uuid.UUID) error {
	_, err := p.db.Exec(`DELETE FROM conversations WHERE id = ?`, id.String())
	if err != nil {
		p.logger.Error("failed to delete conversation", zap.String("id", id.String()), zap.Error(err))
	}
	return err
}

// LoadAll reads every conversation, most recently updated first.
func (p *SQLitePersister) LoadAll() ([]*Conversation, error) {
	rows, err := p.db.Query(
		`SELECT id, title, created_at, updated_at, messages
		 FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		var (
			idStr    string
			c        Conversation
			messages string
		)
		if err := rows.Scan(&idStr, &c.Title, &c.CreatedAt, &c.UpdatedAt, &messages); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			p.logger.Warn("skipping conversation with invalid id", zap.String("id", idStr))
			continue
		}
		c.ID = id
		if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
			p.logger.Warn("skipping conversation with corrupt messages", zap.String("id", idStr), zap.Error(err))
			continue
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
