package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/skillvouch/skillvouch/internal/domain/entity"
	"github.com/skillvouch/skillvouch/internal/domain/model"
	"github.com/skillvouch/skillvouch/internal/domain/repository"
	"github.com/skillvouch/skillvouch/internal/infrastructure/sqlite/migrations"
)

// Store is the embedded UserStore: a single users table keyed by user id,
// with the full aggregate serialized as a self-describing JSON record.
// Enumeration order is the table's native key order (ascending id).
type Store struct {
	db   *sql.DB
	path string
}

var _ repository.UserStore = (*Store)(nil)

// NewStore opens (or creates) the database under dataDir and runs pending
// migrations. If dataDir is empty it defaults to ./data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "skillvouch.db")

	// WAL mode for better concurrency between the gin workers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, id string) (*entity.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM users WHERE id = ?`, id)

	var record string
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return decodeUser(record)
}

func (s *Store) Insert(ctx context.Context, id string, u *entity.User) error {
	record, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshalling user: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, record, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at
	`, id, string(record), now, now)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *Store) Items(ctx context.Context) ([]entity.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []entity.User //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u, err := decodeUser(record)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

func decodeUser(record string) (*entity.User, error) {
	var u entity.User
	if err := json.Unmarshal([]byte(record), &u); err != nil {
		return nil, fmt.Errorf("unmarshaling user record: %w", err)
	}
	return &u, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
