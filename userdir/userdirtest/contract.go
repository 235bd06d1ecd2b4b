// Package userdirtest is a behavioral test suite every UserDirectory must pass.
package userdirtest

import (
	"context"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/require"
)

// Run exercises dir. Logins and emails are prefixed with prefix so the suite
// can run against a shared database.
func Run(t *testing.T, dir goSession.UserDirectory, prefix string) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		rec, err := dir.CreateUser(ctx, goSession.CreateUserInput{
			Login:        prefix + "Alice",
			Email:        prefix + "alice@example.com",
			PasswordHash: "hash-1",
		})
		require.NoError(t, err)
		require.NotEmpty(t, rec.UserID)
		require.Equal(t, prefix+"Alice", rec.Login)
		require.False(t, rec.CreatedAt.IsZero())

		byLogin, err := dir.FindByIdentifier(ctx, prefix+"alice")
		require.NoError(t, err)
		require.Equal(t, rec.UserID, byLogin.UserID)
		require.Equal(t, "hash-1", byLogin.PasswordHash)

		byEmail, err := dir.FindByIdentifier(ctx, prefix+"ALICE@example.com")
		require.NoError(t, err)
		require.Equal(t, rec.UserID, byEmail.UserID)

		byID, err := dir.FindByID(ctx, rec.UserID)
		require.NoError(t, err)
		require.Equal(t, prefix+"alice@example.com", byID.Email)
	})

	t.Run("conflicts", func(t *testing.T) {
		_, err := dir.CreateUser(ctx, goSession.CreateUserInput{
			Login:        prefix + "bob",
			Email:        prefix + "bob@example.com",
			PasswordHash: "h",
		})
		require.NoError(t, err)

		_, err = dir.CreateUser(ctx, goSession.CreateUserInput{
			Login:        prefix + "BOB",
			Email:        prefix + "other@example.com",
			PasswordHash: "h",
		})
		require.ErrorIs(t, err, goSession.ErrLoginTaken)

		_, err = dir.CreateUser(ctx, goSession.CreateUserInput{
			Login:        prefix + "bobby",
			Email:        prefix + "Bob@Example.com",
			PasswordHash: "h",
		})
		require.ErrorIs(t, err, goSession.ErrEmailTaken)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := dir.FindByIdentifier(ctx, prefix+"nobody")
		require.ErrorIs(t, err, goSession.ErrUserNotFound)

		_, err = dir.FindByID(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		require.ErrorIs(t, err, goSession.ErrUserNotFound)

		err = dir.SetPasswordHash(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", "h")
		require.ErrorIs(t, err, goSession.ErrUserNotFound)
	})

	t.Run("set password hash", func(t *testing.T) {
		rec, err := dir.CreateUser(ctx, goSession.CreateUserInput{
			Login:        prefix + "carol",
			Email:        prefix + "carol@example.com",
			PasswordHash: "old",
		})
		require.NoError(t, err)

		require.NoError(t, dir.SetPasswordHash(ctx, rec.UserID, "new"))

		got, err := dir.FindByID(ctx, rec.UserID)
		require.NoError(t, err)
		require.Equal(t, "new", got.PasswordHash)
	})
}
