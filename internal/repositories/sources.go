package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotsync/internal/shared"
)

// SourceRepository stores one configuration document per source class.
//
// Documents are opaque to the repository; the owning connector encodes and decodes them.
type SourceRepository struct {
	db *sql.DB
}

// NewSourceRepository creates a new SourceRepository with the given database connection
func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Save writes document for class, replacing any previous document.
func (r *SourceRepository) Save(class string, document []byte) error {
	if class == "" {
		return fmt.Errorf("%w: source class", shared.ErrMissingArgument)
	}

	now := time.Now()
	query := `
		INSERT INTO sources (class, id, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (class) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, class, shared.GenerateID(), string(document), now, now); err != nil {
		return fmt.Errorf("failed to save source %s: %w", class, err)
	}
	return nil
}

// Load returns the document stored for class, or [shared.ErrSourceNotFound].
func (r *SourceRepository) Load(class string) ([]byte, error) {
	var document string
	err := r.db.QueryRow(`SELECT document FROM sources WHERE class = ?`, class).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, class)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source %s: %w", class, err)
	}
	return []byte(document), nil
}

// Delete removes the document for class.
func (r *SourceRepository) Delete(class string) error {
	result, err := r.db.Exec(`DELETE FROM sources WHERE class = ?`, class)
	if err != nil {
		return fmt.Errorf("failed to delete source %s: %w", class, err)
	}
	return affected(result, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, class))
}

// Classes lists the source classes with a stored document.
func (r *SourceRepository) Classes() ([]string, error) {
	rows, err := r.db.Query(`SELECT class FROM sources ORDER BY class ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return classes, nil
}
