package store

import (
	"context"
	"fmt"
)

// TicketLine is one captured product line of an order ticket.
type TicketLine struct {
	Product   string
	ProductID string
	Quantity  int
	UnitPrice float64
}

// Ticket is a captured order ticket.
type Ticket struct {
	ID      string
	UserID  string
	RawText string
	Total   float64
	Lines   []TicketLine
}

// SaveTicket persists a ticket and its lines in one transaction.
func (s *Store) SaveTicket(ctx context.Context, t Ticket) error {
	if t.ID == "" {
		return fmt.Errorf("ticket id must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin ticket transaction: %w", tx.Error)
	}

	insertTicket := `
		INSERT INTO tickets (id, user_id, raw_text, total, created_at)
		VALUES (?, ?, ?, ?, datetime('now'))`
	if err := tx.Exec(insertTicket, t.ID, t.UserID, t.RawText, t.Total).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("insert ticket: %w", err)
	}

	insertLine := `
		INSERT INTO ticket_lines (ticket_id, product, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?, ?)`
	for _, line := range t.Lines {
		if err := tx.Exec(insertLine, t.ID, line.Product, line.ProductID, line.Quantity, line.UnitPrice).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("insert ticket line: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit ticket: %w", err)
	}
	return nil
}

// TicketCount reports how many tickets a user has recorded.
func (s *Store) TicketCount(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	row := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM tickets WHERE user_id = ?`, userID,
	).Row()
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return n, nil
}
