package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Supported database drivers. The binary registers them with blank imports
// of github.com/lib/pq and github.com/mattn/go-sqlite3.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const lookupQueryTemplate = `SELECT id, email, name, role, password_hash FROM users WHERE lower(email) = lower(%s) LIMIT 1`

// Database looks users up in a local SQL table through database/sql.
type Database struct {
	db        *sql.DB
	query     string
	verifiers []Verifier
}

// NewDatabase binds a source to an open handle. driver selects the
// placeholder syntax.
func NewDatabase(db *sql.DB, driver string) (*Database, error) {
	if db == nil {
		return nil, errors.New("database source requires a handle")
	}
	placeholder, err := placeholderFor(driver)
	if err != nil {
		return nil, err
	}
	return &Database{
		db:        db,
		query:     fmt.Sprintf(lookupQueryTemplate, placeholder),
		verifiers: []Verifier{HashVerifier{}},
	}, nil
}

// OpenDatabase opens and pings a handle for driver.
func OpenDatabase(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := placeholderFor(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func placeholderFor(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "$1", nil
	case DriverSQLite:
		return "?", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (d *Database) Name() string { return "database" }

func (d *Database) Verifiers() []Verifier { return d.verifiers }

// Lookup implements [Source].
func (d *Database) Lookup(ctx context.Context, email string) (*Record, error) {
	var (
		id                  string
		rowEmail            string
		name, role, pwdHash sql.NullString
	)
	err := d.db.QueryRowContext(ctx, d.query, email).Scan(&id, &rowEmail, &name, &role, &pwdHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: database: %v", ErrUnavailable, err)
	}
	return &Record{
		ID:           id,
		Email:        rowEmail,
		Name:         name.String,
		Role:         role.String,
		PasswordHash: pwdHash.String,
	}, nil
}
