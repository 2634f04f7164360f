package adapters

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	ports "github.com/hexlane/convomart/cmart/engine/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the store schema to db.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// LibSQLStore persists conversation turns and orders on embedded libsql.
type LibSQLStore struct {
	db *sql.DB
}

func NewLibSQLStore(db *sql.DB) *LibSQLStore {
	return &LibSQLStore{db: db}
}

func (s *LibSQLStore) SaveTurn(ctx context.Context, conversationID string, turn ports.Turn) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (id, conversation_id, sender, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, turn.ID, conversationID, turn.Sender, turn.Content, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// LoadRecent returns at most k turns, most recent first. The rowid tiebreak
// keeps turns created in the same instant in insertion order.
func (s *LibSQLStore) LoadRecent(ctx context.Context, conversationID string, k int) ([]ports.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, content, created_at
		FROM conversation_turns
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, conversationID, k)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var t ports.Turn
		if err := rows.Scan(&t.ID, &t.Sender, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *LibSQLStore) SaveOrder(ctx context.Context, order ports.OrderRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (conversation_id, customer_name, customer_contact, items, notes, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		order.ConversationID,
		order.CustomerName,
		order.CustomerContact,
		order.Items,
		order.Notes,
		order.Status,
		order.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("save order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}
	return id, nil
}

func (s *LibSQLStore) RecentOrders(ctx context.Context, conversationID string, limit int) ([]ports.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, customer_name, customer_contact, items, notes, status, created_at
		FROM orders
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []ports.OrderRecord
	for rows.Next() {
		var o ports.OrderRecord
		if err := rows.Scan(
			&o.ID,
			&o.ConversationID,
			&o.CustomerName,
			&o.CustomerContact,
			&o.Items,
			&o.Notes,
			&o.Status,
			&o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *LibSQLStore) CancelOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = 'CANCELLED' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %d not found", id)
	}
	return nil
}

var (
	_ ports.ConversationStore = (*LibSQLStore)(nil)
	_ ports.OrderStore        = (*LibSQLStore)(nil)
)
