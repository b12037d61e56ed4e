// Package storage provides the SQLite-backed implementation of the
// repository contracts.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	repository "github.com/rkarimi/encore/internal/adapters/repository"
	"github.com/rkarimi/encore/internal/domain/errs"
	"github.com/rkarimi/encore/internal/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding sets and their comparison history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "encore.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to a single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Wait briefly on concurrent access instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies any embedded SQL migration files not yet recorded.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// parseMigrationVersion extracts the numeric prefix from names like
// "0001_init.sql".
func parseMigrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %s: %w", name, err)
	}
	return version, nil
}

func (s *Store) CreateSet(ctx context.Context, set model.Set) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sets (id, owner_id, title, artist, venue, bucket, rating, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		set.ID, set.OwnerID, set.Title, set.Artist, set.Venue,
		string(set.Bucket), set.Rating, set.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateSet
		}
		return errs.ClassifyStorage(fmt.Errorf("inserting set: %w", err))
	}
	return nil
}

func (s *Store) GetSet(ctx context.Context, id string) (model.Set, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, artist, venue, bucket, rating, created_at
		 FROM sets WHERE id = ?`, id)
	return scanSet(row)
}

func (s *Store) SetsByOwnerAndBucket(ctx context.Context, ownerID string, bucket model.Bucket) ([]model.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, artist, venue, bucket, rating, created_at
		 FROM sets WHERE owner_id = ? AND bucket = ? ORDER BY created_at`,
		ownerID, string(bucket))
	if err != nil {
		return nil, errs.ClassifyStorage(fmt.Errorf("querying bucket sets: %w", err))
	}
	defer rows.Close()
	return collectSets(rows)
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sets WHERE owner_id = ?", ownerID).Scan(&n)
	if err != nil {
		return 0, errs.ClassifyStorage(fmt.Errorf("counting sets: %w", err))
	}
	return n, nil
}

func (s *Store) Rating(ctx context.Context, id string) (float64, error) {
	var rating float64
	err := s.db.QueryRowContext(ctx, "SELECT rating FROM sets WHERE id = ?", id).Scan(&rating)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrSetNotFound
	}
	if err != nil {
		return 0, errs.ClassifyStorage(fmt.Errorf("reading rating: %w", err))
	}
	return rating, nil
}

func (s *Store) CompareAndSetRating(ctx context.Context, id string, oldRating, newRating float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sets SET rating = ? WHERE id = ? AND rating = ?",
		newRating, id, oldRating)
	if err != nil {
		return errs.ClassifyStorage(fmt.Errorf("updating rating: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.ClassifyStorage(fmt.Errorf("updating rating: %w", err))
	}
	if affected == 0 {
		if _, err := s.Rating(ctx, id); err != nil {
			return err
		}
		return repository.ErrRatingConflict
	}
	return nil
}

func (s *Store) TopByOwnerBucket(ctx context.Context, ownerID string, bucket model.Bucket, limit int) ([]model.Set, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, artist, venue, bucket, rating, created_at
		 FROM sets WHERE owner_id = ? AND bucket = ?
		 ORDER BY rating DESC, id LIMIT ?`,
		ownerID, string(bucket), limit)
	if err != nil {
		return nil, errs.ClassifyStorage(fmt.Errorf("querying leaderboard: %w", err))
	}
	defer rows.Close()
	return collectSets(rows)
}

func (s *Store) AppendComparison(ctx context.Context, c model.Comparison) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, owner_id, winner_id, loser_id, dedup_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.WinnerID, c.LoserID, c.DedupKey,
		c.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateComparison
		}
		return errs.ClassifyStorage(fmt.Errorf("inserting comparison: %w", err))
	}
	return nil
}

func (s *Store) ComparisonsByOwner(ctx context.Context, ownerID string, limit int) ([]model.Comparison, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, winner_id, loser_id, dedup_key, created_at
		 FROM comparisons WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, errs.ClassifyStorage(fmt.Errorf("querying comparisons: %w", err))
	}
	defer rows.Close()

	var out []model.Comparison
	for rows.Next() {
		var c model.Comparison
		var createdAt string
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.WinnerID, &c.LoserID, &c.DedupKey, &createdAt); err != nil {
			return nil, errs.ClassifyStorage(fmt.Errorf("scanning comparison: %w", err))
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ClassifyStorage(fmt.Errorf("iterating comparisons: %w", err))
	}
	return out, nil
}

// CommitVote applies the comparison insert and both rating CAS updates in
// one transaction. A crash mid-sequence rolls back; no reader ever sees the
// comparison without the rating updates or vice versa. A dedup-key hit means
// the vote already landed, so the transaction is abandoned and the duplicate
// reconciled silently.
func (s *Store) CommitVote(ctx context.Context, cmp model.Comparison, winnerOld, winnerNew, loserOld, loserNew float64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errs.ClassifyStorage(fmt.Errorf("beginning vote transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comparisons (id, owner_id, winner_id, loser_id, dedup_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cmp.ID, cmp.OwnerID, cmp.WinnerID, cmp.LoserID, cmp.DedupKey,
		cmp.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, errs.ClassifyStorage(fmt.Errorf("inserting comparison: %w", err))
	}

	for _, w := range []struct {
		id       string
		old, new float64
	}{{cmp.WinnerID, winnerOld, winnerNew}, {cmp.LoserID, loserOld, loserNew}} {
		res, err := tx.ExecContext(ctx,
			"UPDATE sets SET rating = ? WHERE id = ? AND rating = ?",
			w.new, w.id, w.old)
		if err != nil {
			return false, errs.ClassifyStorage(fmt.Errorf("updating rating: %w", err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, errs.ClassifyStorage(fmt.Errorf("updating rating: %w", err))
		}
		if affected == 0 {
			return false, repository.ErrRatingConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errs.ClassifyStorage(fmt.Errorf("committing vote: %w", err))
	}
	return true, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSet(row scanner) (model.Set, error) {
	var set model.Set
	var bucket, createdAt string
	err := row.Scan(&set.ID, &set.OwnerID, &set.Title, &set.Artist, &set.Venue,
		&bucket, &set.Rating, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Set{}, repository.ErrSetNotFound
	}
	if err != nil {
		return model.Set{}, errs.ClassifyStorage(fmt.Errorf("scanning set: %w", err))
	}
	set.Bucket = model.Bucket(bucket)
	set.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return set, nil
}

func collectSets(rows *sql.Rows) ([]model.Set, error) {
	var out []model.Set
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.ClassifyStorage(fmt.Errorf("iterating sets: %w", err))
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
