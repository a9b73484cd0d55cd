package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// DefaultTable holds plate records in the postgres backend.
const DefaultTable = "plates"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PostgresStore resolves plates against a SQL table with columns
// plate, make, model, year and owner.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// NewPostgresStore opens and pings the database at dsn.
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres lookup backend requires a DSN")
	}
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db, table: table}, nil
}

// ValidateTableName rejects identifiers that would need quoting.
func ValidateTableName(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func (s *PostgresStore) selectQuery() string {
	return "SELECT make, model, year, owner FROM " + s.table + " WHERE plate = $1"
}

func (s *PostgresStore) schemaQuery() string {
	return "CREATE TABLE IF NOT EXISTS " + s.table + ` (
	plate TEXT PRIMARY KEY,
	make TEXT NOT NULL,
	model TEXT NOT NULL,
	year INTEGER NOT NULL,
	owner TEXT NOT NULL
)`
}

func (s *PostgresStore) upsertQuery() string {
	return "INSERT INTO " + s.table + ` (plate, make, model, year, owner)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (plate) DO UPDATE SET make = EXCLUDED.make, model = EXCLUDED.model,
	year = EXCLUDED.year, owner = EXCLUDED.owner`
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, plate string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, s.selectQuery(), Key(plate)).
		Scan(&rec.Make, &rec.Model, &rec.Year, &rec.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("lookup %s: %w", plate, err)
	}
	return rec, nil
}

// EnsureSchema creates the plate table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schemaQuery()); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Import upserts every record of db in one transaction.
func (s *PostgresStore) Import(ctx context.Context, db Database) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return fmt.Errorf("prepare import: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for plate, rec := range db {
		if _, err = stmt.ExecContext(ctx, Key(plate), rec.Make, rec.Model, rec.Year, rec.Owner); err != nil {
			return fmt.Errorf("import %s: %w", plate, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
