package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MessageRecord is one transcript row.
type MessageRecord struct {
	ID        int64
	UserID    string
	Role      string
	Content   string
	CreatedAt time.Time
}

// AddMessage appends a transcript row and trims the user's history to the
// configured size.
func (s *Store) AddMessage(ctx context.Context, userID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	insert := `
		INSERT INTO messages (user_id, role, content, created_at)
		VALUES (?, ?, ?, datetime('now'))`
	if err := s.db.WithContext(ctx).Exec(insert, userID, role, content).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	maxSize := s.HistorySize
	if maxSize <= 0 {
		maxSize = defaultHistorySize
	}
	trim := `
		DELETE FROM messages WHERE user_id = ? AND id NOT IN (
			SELECT id FROM messages
			WHERE user_id = ?
			ORDER BY id DESC
			LIMIT ?
		)`
	if err := s.db.WithContext(ctx).Exec(trim, userID, userID, maxSize).Error; err != nil {
		return fmt.Errorf("trim messages: %w", err)
	}
	return nil
}

// History returns the user's transcript oldest first.
func (s *Store) History(ctx context.Context, userID string) ([]MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, role, content, created_at
		FROM messages
		WHERE user_id = ?
		ORDER BY id ASC`
	rows, err := s.db.WithContext(ctx).Raw(query, userID).Rows()
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		var createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// HistoryAsContext renders the transcript as a block the model can read.
func (s *Store) HistoryAsContext(ctx context.Context, userID string) (string, error) {
	msgs, err := s.History(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("\n\n=== Recent Conversation History ===\n")
	for _, m := range msgs {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("=== End of History ===\n")
	return b.String(), nil
}
