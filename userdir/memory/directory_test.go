package memory

import (
	"context"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/userdir/userdirtest"
	"github.com/stretchr/testify/require"
)

func TestDirectoryContract(t *testing.T) {
	userdirtest.Run(t, New(), "")
}

func TestDelete(t *testing.T) {
	d := New()
	ctx := context.Background()
	rec, err := d.CreateUser(ctx, goSession.CreateUserInput{Login: "dave", Email: "dave@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	d.Delete(rec.UserID)

	_, err = d.FindByID(ctx, rec.UserID)
	require.ErrorIs(t, err, goSession.ErrUserNotFound)
	_, err = d.CreateUser(ctx, goSession.CreateUserInput{Login: "dave", Email: "dave@example.com", PasswordHash: "h"})
	require.NoError(t, err, "login and email are free again after delete")
}
