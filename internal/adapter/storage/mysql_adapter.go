package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS products (
	id       VARCHAR(191) NOT NULL PRIMARY KEY,
	name     VARCHAR(255) NOT NULL,
	quantity INT NOT NULL,
	price    DECIMAL(20,4) NOT NULL,
	position INT NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
	id           BIGINT AUTO_INCREMENT PRIMARY KEY,
	logged_at    DATETIME(6) NOT NULL,
	product_id   VARCHAR(191) NOT NULL,
	new_quantity INT NOT NULL,
	actor_role   VARCHAR(16) NOT NULL
)`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the tables if they are missing. The DSN needs
// multiStatements=true.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Load(ctx context.Context) ([]domain.ProductRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, quantity, price
		FROM products ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ProductRecord, 0)
	for rows.Next() {
		var (
			rec   domain.ProductRecord
			price string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Quantity, &price); err != nil {
			return nil, fmt.Errorf("%w: scan product: %v", domain.ErrStorageCorrupt, err)
		}
		rec.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s price %q: %v", domain.ErrStorageCorrupt, rec.ID, price, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return records, nil
}

// Save replaces the products table inside one transaction.
func (m *MySQLAdapter) Save(ctx context.Context, records []domain.ProductRecord) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	for i, rec := range records {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, name, quantity, price, position)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, rec.Quantity, rec.Price.String(), i,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Record(ctx context.Context, entry domain.AuditEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO audit_log (logged_at, product_id, new_quantity, actor_role)
		VALUES (?, ?, ?, ?)`,
		entry.Timestamp, entry.ProductID, entry.NewQuantity, entry.ActorRole.String(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert audit row: %w", domain.ErrLogWrite, err)
	}
	return nil
}

func (m *MySQLAdapter) ReadAll(ctx context.Context) ([]domain.AuditEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT logged_at, product_id, new_quantity, actor_role
		FROM audit_log ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e    domain.AuditEntry
			ts   time.Time
			role string
		)
		if err := rows.Scan(&ts, &e.ProductID, &e.NewQuantity, &role); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Timestamp = ts
		e.ActorRole, err = domain.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("%w: audit row: %v", domain.ErrStorageCorrupt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}
