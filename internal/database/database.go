package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"bank-offers-api/internal/models"
)

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist. The unique
// index on (bank, offer_text, offer_description) is the sole backstop
// against duplicate inserts racing past the existence probe.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			bank TEXT NOT NULL,
			offer_text TEXT NOT NULL,
			offer_description TEXT NOT NULL,
			payment_instruments TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_offer_triple
			ON offers(bank, offer_text, offer_description)`,
		`CREATE INDEX IF NOT EXISTS idx_bank ON offers(bank)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// FindByBank returns all offers stored under a normalized bank identifier.
func (db *DB) FindByBank(ctx context.Context, bank string) ([]models.Offer, error) {
	query := `SELECT id, bank, offer_text, offer_description, payment_instruments, created_at
		FROM offers
		WHERE bank = ?
		ORDER BY created_at, id`

	rows, err := db.conn.QueryContext(ctx, query, bank)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers by bank: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		var offer models.Offer
		var instrumentsJSON, createdAtStr string

		err := rows.Scan(
			&offer.ID,
			&offer.Bank,
			&offer.OfferText,
			&offer.OfferDescription,
			&instrumentsJSON,
			&createdAtStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}

		offer.PaymentInstruments = deserializeInstruments(instrumentsJSON)
		offer.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)

		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return offers, nil
}

// FindExisting probes for an offer by its uniqueness triple. Returns nil
// when no matching row exists.
func (db *DB) FindExisting(ctx context.Context, bank, offerText, offerDescription string) (*models.Offer, error) {
	query := `SELECT id, bank, offer_text, offer_description, payment_instruments, created_at
		FROM offers
		WHERE bank = ? AND offer_text = ? AND offer_description = ?`

	var offer models.Offer
	var instrumentsJSON, createdAtStr string

	err := db.conn.QueryRowContext(ctx, query, bank, offerText, offerDescription).Scan(
		&offer.ID,
		&offer.Bank,
		&offer.OfferText,
		&offer.OfferDescription,
		&instrumentsJSON,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to probe existing offer: %w", err)
	}

	offer.PaymentInstruments = deserializeInstruments(instrumentsJSON)
	offer.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)

	return &offer, nil
}

// InsertOffers inserts offers row by row inside a single transaction and
// returns how many were actually inserted. A unique-constraint failure on
// a row means a concurrent request won the race for that triple; the row
// is counted as already existing, not surfaced as an error.
func (db *DB) InsertOffers(ctx context.Context, offers []models.Offer) (int, error) {
	if len(offers) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO offers (
		id, bank, offer_text, offer_description, payment_instruments, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, offer := range offers {
		id := offer.ID
		if id == "" {
			id = uuid.New().String()
		}

		_, err := stmt.ExecContext(ctx,
			id,
			offer.Bank,
			offer.OfferText,
			offer.OfferDescription,
			serializeInstruments(offer.PaymentInstruments),
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			var sqliteErr sqlite3.Error
			if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				continue
			}
			return 0, fmt.Errorf("failed to insert offer for bank %s: %w", offer.Bank, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// serializeInstruments converts a tag set to a JSON string column value.
func serializeInstruments(tags []models.InstrumentTag) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		// Fallback to comma-separated if JSON fails
		strs := make([]string, len(tags))
		for i, t := range tags {
			strs[i] = string(t)
		}
		return strings.Join(strs, ",")
	}
	return string(data)
}

// deserializeInstruments converts a serialized tag set back to a slice.
func deserializeInstruments(serialized string) []models.InstrumentTag {
	if serialized == "" || serialized == "[]" {
		return []models.InstrumentTag{}
	}

	// Try JSON parsing first
	var result []models.InstrumentTag
	if err := json.Unmarshal([]byte(serialized), &result); err == nil {
		return result
	}

	// Fallback to comma-separated format for backward compatibility
	parts := strings.Split(serialized, ",")
	result = make([]models.InstrumentTag, 0, len(parts))
	for _, p := range parts {
		result = append(result, models.InstrumentTag(p))
	}
	return result
}
