// Package sqlite is a UserDirectory on an embedded SQLite database
// (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/userdir"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Directory stores users in a single users table.
type Directory struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at dsn, for example "file:users.db" or
// "file::memory:?cache=shared". Call ApplyMigrations before first use.
func Open(dsn string) (*Directory, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return &Directory{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (d *Directory) Close() error {
	return d.db.Close()
}

// Ping checks the database connection.
func (d *Directory) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Directory) CreateUser(ctx context.Context, in goSession.CreateUserInput) (goSession.UserRecord, error) {
	now := d.now().UTC()
	id, err := userdir.NewID(now)
	if err != nil {
		return goSession.UserRecord{}, err
	}

	var emailNorm any
	if e := userdir.Normalize(in.Email); e != "" {
		emailNorm = e
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO users (id, login, login_norm, email, email_norm, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, in.Login, userdir.Normalize(in.Login), in.Email, emailNorm, in.PasswordHash, now.UnixMicro(),
	)
	if err != nil {
		return goSession.UserRecord{}, classifyUnique(err)
	}

	return goSession.UserRecord{
		UserID:       id,
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.UnixMicro(now.UnixMicro()).UTC(),
	}, nil
}

func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (goSession.UserRecord, error) {
	key := userdir.Normalize(identifier)
	// login_norm sorts first so a login shadowing someone else's email wins.
	row := d.db.QueryRowContext(ctx,
		`SELECT id, login, email, password_hash, created_at FROM users
		 WHERE login_norm = ? OR email_norm = ?
		 ORDER BY login_norm = ? DESC LIMIT 1`,
		key, key, key,
	)
	return scanUser(row)
}

func (d *Directory) FindByID(ctx context.Context, userID string) (goSession.UserRecord, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, login, email, password_hash, created_at FROM users WHERE id = ?`,
		userID,
	)
	return scanUser(row)
}

func (d *Directory) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

// Delete removes a user row. Live sessions are untouched.
func (d *Directory) Delete(ctx context.Context, userID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func scanUser(row *sql.Row) (goSession.UserRecord, error) {
	var (
		rec     goSession.UserRecord
		created int64
	)
	if err := row.Scan(&rec.UserID, &rec.Login, &rec.Email, &rec.PasswordHash, &created); err != nil {
		return goSession.UserRecord{}, mapNotFound(err)
	}
	rec.CreatedAt = time.UnixMicro(created).UTC()
	return rec, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return goSession.ErrUserNotFound
	}
	return err
}

func classifyUnique(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return err
	}
	if strings.Contains(se.Error(), "users.email_norm") {
		return goSession.ErrEmailTaken
	}
	return goSession.ErrLoginTaken
}
