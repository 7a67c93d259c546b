package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/otoshimono/otoshimono/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		item_id TEXT PRIMARY KEY,
		report_type TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT,
		location TEXT,
		image_source TEXT,
		labels TEXT,
		colors TEXT,
		detected_text TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_report_type ON items(report_type);
	CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// PutItem inserts an item. INSERT OR IGNORE keyed on item_id makes repeated
// inserts of the same id a no-op.
func (s *SQLiteStore) PutItem(ctx context.Context, item *models.Item) error {
	labelsJSON, err := json.Marshal(item.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	colorsJSON, err := json.Marshal(item.Colors)
	if err != nil {
		return fmt.Errorf("marshal colors: %w", err)
	}
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO items
		(item_id, report_type, category, description, location, image_source, labels, colors, detected_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ReportType, item.Category, item.Description, item.Location,
		item.ImageSource, string(labelsJSON), string(colorsJSON), item.DetectedText, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetItem returns the item with the given id, or ErrNotFound.
func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, report_type, category, description, location, image_source, labels, colors, detected_text, created_at
		FROM items WHERE item_id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// ListItems returns items newest first, optionally filtered by report type.
func (s *SQLiteStore) ListItems(ctx context.Context, reportType string, offset, limit int) ([]*models.Item, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT item_id, report_type, category, description, location, image_source, labels, colors, detected_text, created_at
		FROM items`
	args := []interface{}{}
	if reportType != "" {
		query += " WHERE report_type = ?"
		args = append(args, reportType)
	}
	query += " ORDER BY created_at DESC, item_id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountItems returns the total number of stored items.
func (s *SQLiteStore) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var labelsJSON, colorsJSON sql.NullString
	var description, location, imageSource, detectedText sql.NullString
	err := row.Scan(&item.ID, &item.ReportType, &item.Category, &description, &location,
		&imageSource, &labelsJSON, &colorsJSON, &detectedText, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Location = location.String
	item.ImageSource = imageSource.String
	item.DetectedText = detectedText.String
	if labelsJSON.Valid && labelsJSON.String != "" {
		if err := json.Unmarshal([]byte(labelsJSON.String), &item.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	if colorsJSON.Valid && colorsJSON.String != "" {
		if err := json.Unmarshal([]byte(colorsJSON.String), &item.Colors); err != nil {
			return nil, fmt.Errorf("unmarshal colors: %w", err)
		}
	}
	return &item, nil
}
