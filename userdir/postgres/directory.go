// Package postgres is a UserDirectory backed by PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"errors"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/userdir"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Directory stores users in the users table created by ApplyMigrations.
type Directory struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New wraps an open pool. The caller owns the pool.
func New(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool, now: time.Now}
}

// Open parses dsn and connects a new pool.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Ping checks that a connection can be acquired.
func (d *Directory) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Directory) CreateUser(ctx context.Context, in goSession.CreateUserInput) (goSession.UserRecord, error) {
	now := d.now().UTC().Truncate(time.Microsecond)
	id, err := userdir.NewID(now)
	if err != nil {
		return goSession.UserRecord{}, err
	}

	var emailNorm *string
	if e := userdir.Normalize(in.Email); e != "" {
		emailNorm = &e
	}

	_, err = d.pool.Exec(ctx,
		`INSERT INTO users (id, login, login_norm, email, email_norm, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, in.Login, userdir.Normalize(in.Login), in.Email, emailNorm, in.PasswordHash, now,
	)
	if err != nil {
		return goSession.UserRecord{}, classifyUniqueViolation(err)
	}

	return goSession.UserRecord{
		UserID:       id,
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}, nil
}

func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (goSession.UserRecord, error) {
	key := userdir.Normalize(identifier)
	row := d.pool.QueryRow(ctx,
		`SELECT id, login, email, password_hash, created_at FROM users
		 WHERE login_norm = $1 OR email_norm = $1
		 ORDER BY (login_norm = $1) DESC LIMIT 1`,
		key,
	)
	return scanUser(row)
}

func (d *Directory) FindByID(ctx context.Context, userID string) (goSession.UserRecord, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, login, email, password_hash, created_at FROM users WHERE id = $1`,
		userID,
	)
	return scanUser(row)
}

func (d *Directory) SetPasswordHash(ctx context.Context, userID, passwordHash string) error {
	tag, err := d.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return goSession.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (goSession.UserRecord, error) {
	var rec goSession.UserRecord
	if err := row.Scan(&rec.UserID, &rec.Login, &rec.Email, &rec.PasswordHash, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goSession.UserRecord{}, goSession.ErrUserNotFound
		}
		return goSession.UserRecord{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func classifyUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "uq_users_email_norm":
		return goSession.ErrEmailTaken
	case "uq_users_login_norm":
		return goSession.ErrLoginTaken
	default:
		return err
	}
}
