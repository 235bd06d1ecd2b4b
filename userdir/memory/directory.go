// Package memory is an in-process UserDirectory for tests, examples and
// single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/userdir"
)

// Directory keeps users in maps guarded by one RWMutex.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]goSession.UserRecord
	byLogin map[string]string
	byEmail map[string]string
	now     func() time.Time
}

// New returns an empty Directory.
func New() *Directory {
	return &Directory{
		byID:    make(map[string]goSession.UserRecord),
		byLogin: make(map[string]string),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (d *Directory) CreateUser(_ context.Context, in goSession.CreateUserInput) (goSession.UserRecord, error) {
	login := userdir.Normalize(in.Login)
	email := userdir.Normalize(in.Email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byLogin[login]; ok {
		return goSession.UserRecord{}, goSession.ErrLoginTaken
	}
	if email != "" {
		if _, ok := d.byEmail[email]; ok {
			return goSession.UserRecord{}, goSession.ErrEmailTaken
		}
	}

	now := d.now().UTC()
	id, err := userdir.NewID(now)
	if err != nil {
		return goSession.UserRecord{}, err
	}

	rec := goSession.UserRecord{
		UserID:       id,
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}
	d.byID[id] = rec
	d.byLogin[login] = id
	if email != "" {
		d.byEmail[email] = id
	}
	return rec, nil
}

func (d *Directory) FindByIdentifier(_ context.Context, identifier string) (goSession.UserRecord, error) {
	key := userdir.Normalize(identifier)

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byLogin[key]
	if !ok {
		id, ok = d.byEmail[key]
	}
	if !ok {
		return goSession.UserRecord{}, goSession.ErrUserNotFound
	}
	return d.byID[id], nil
}

func (d *Directory) FindByID(_ context.Context, userID string) (goSession.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byID[userID]
	if !ok {
		return goSession.UserRecord{}, goSession.ErrUserNotFound
	}
	return rec, nil
}

func (d *Directory) SetPasswordHash(_ context.Context, userID, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.byID[userID]
	if !ok {
		return goSession.ErrUserNotFound
	}
	rec.PasswordHash = passwordHash
	d.byID[userID] = rec
	return nil
}

// Delete removes a user. Live sessions are untouched; pair it with
// Engine.RevokeUser to end them.
func (d *Directory) Delete(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.byID[userID]
	if !ok {
		return
	}
	delete(d.byID, userID)
	delete(d.byLogin, userdir.Normalize(rec.Login))
	delete(d.byEmail, userdir.Normalize(rec.Email))
}
