// Package storage records scan history in a local SQLite database.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// ErrScanNotFound is returned by LoadScan for an unknown scan ID.
var ErrScanNotFound = errors.New("scan not found")

// occurrenceBatchSize bounds the rows per INSERT so a statement stays under
// SQLite's bound-variable limit (11 variables per row).
const occurrenceBatchSize = 500

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	ContentHash string    `json:"contentHash"`
	Tiers       string    `json:"tiers"`
	Total       int       `json:"total"`
	Malformed   int       `json:"malformed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StoredScan is a scan record together with its occurrences.
type StoredScan struct {
	ScanRecord
	Result *concepts.ScanResult `json:"result"`
}

// Store is the scan history database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path. The parent directory
// is created when missing. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if path == ":memory:" {
		// Each new connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan records result and returns the new scan ID.
func (s *Store) SaveScan(result *concepts.ScanResult, contentHash string) (string, error) {
	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	id := uuid.New().String()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Insert("scans").
		Columns("scan_id", "path", "content_hash", "tiers", "total", "malformed", "summary", "created_at").
		Values(
			id,
			result.Path,
			contentHash,
			tiersOf(result.Summary),
			len(result.Occurrences),
			len(result.Malformed),
			string(summary),
			s.now().UTC().Format(timeLayout),
		).
		RunWith(tx).
		Exec()
	if err != nil {
		return "", fmt.Errorf("failed to insert scan for %s: %w", result.Path, err)
	}

	for start := 0; start < len(result.Occurrences); start += occurrenceBatchSize {
		end := min(start+occurrenceBatchSize, len(result.Occurrences))
		builder := sq.Insert("occurrences").
			Columns("scan_id", "seq", "rule_id", "tier", "category", "label", "line", "col", "identifier", "names", "snippet")
		for i := start; i < end; i++ {
			o := result.Occurrences[i]
			names, err := encodeNames(o.Names)
			if err != nil {
				return "", err
			}
			builder = builder.Values(id, i, o.RuleID, int(o.Tier), string(o.Category), o.Label, o.Line, o.Column, o.Identifier, names, o.Snippet)
		}
		if _, err := builder.RunWith(tx).Exec(); err != nil {
			return "", fmt.Errorf("failed to insert occurrences for %s: %w", result.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// ListScans returns the most recent scans first. A non-empty pathFilter
// keeps scans whose path contains it. A non-positive limit returns all.
func (s *Store) ListScans(pathFilter string, limit int) ([]ScanRecord, error) {
	query := sq.Select("scan_id", "path", "content_hash", "tiers", "total", "malformed", "created_at").
		From("scans").
		OrderBy("created_at DESC", "rowid DESC")
	if pathFilter != "" {
		query = query.Where(sq.Like{"path": "%" + pathFilter + "%"})
	}
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	records := []ScanRecord{}
	for rows.Next() {
		var (
			rec     ScanRecord
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.ContentHash, &rec.Tiers, &rec.Total, &rec.Malformed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scans: %w", err)
	}
	return records, nil
}

// LoadScan returns a recorded scan with its occurrences in report order.
func (s *Store) LoadScan(id string) (*StoredScan, error) {
	var (
		stored  StoredScan
		summary string
		created string
	)
	err := sq.Select("scan_id", "path", "content_hash", "tiers", "total", "malformed", "summary", "created_at").
		From("scans").
		Where(sq.Eq{"scan_id": id}).
		RunWith(s.db).
		QueryRow().
		Scan(&stored.ID, &stored.Path, &stored.ContentHash, &stored.Tiers, &stored.Total, &stored.Malformed, &summary, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}
	if stored.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}

	result := &concepts.ScanResult{Path: stored.Path, Occurrences: []concepts.Occurrence{}}
	if err := json.Unmarshal([]byte(summary), &result.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary of scan %s: %w", id, err)
	}

	rows, err := sq.Select("rule_id", "tier", "category", "label", "line", "col", "identifier", "names", "snippet").
		From("occurrences").
		Where(sq.Eq{"scan_id": id}).
		OrderBy("seq").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to load occurrences of scan %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o        concepts.Occurrence
			tier     int
			category string
			names    sql.NullString
		)
		if err := rows.Scan(&o.RuleID, &tier, &category, &o.Label, &o.Line, &o.Column, &o.Identifier, &names, &o.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		o.Tier = concepts.Tier(tier)
		o.Category = concepts.Category(category)
		if names.Valid {
			if err := json.Unmarshal([]byte(names.String), &o.Names); err != nil {
				return nil, fmt.Errorf("failed to decode names: %w", err)
			}
		}
		result.Occurrences = append(result.Occurrences, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate occurrences: %w", err)
	}

	stored.Result = result
	return &stored, nil
}

// DeleteScan removes a scan and its occurrences.
func (s *Store) DeleteScan(id string) error {
	res, err := sq.Delete("scans").
		Where(sq.Eq{"scan_id": id}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete scan %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrScanNotFound, id)
	}
	return nil
}

func encodeNames(names []string) (any, error) {
	if len(names) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("failed to encode names: %w", err)
	}
	return string(data), nil
}

func tiersOf(summary concepts.Summary) string {
	tiers := make([]int, 0, len(summary.ByTier))
	for t := range summary.ByTier {
		tiers = append(tiers, int(t))
	}
	sort.Ints(tiers)

	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = strconv.Itoa(t)
	}
	return strings.Join(parts, ",")
}
