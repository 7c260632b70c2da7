package access

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSessions_IssueReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	s := NewUserSessions(newFakeUsers(models.User{ID: 1, UserName: "adam"}))

	require.NoError(t, s.Issue(ctx, 1, "first"))
	u, err := s.Lookup(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "adam", u.UserName)

	require.NoError(t, s.Issue(ctx, 1, "second"))
	_, err = s.Lookup(ctx, "first")
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = s.Lookup(ctx, "second")
	require.NoError(t, err)
}

func TestUserSessions_Errors(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(models.User{ID: 1, UserName: "adam"})
	s := NewUserSessions(users)

	require.ErrorIs(t, s.Issue(ctx, 7, "x"), common.ErrNotFound)

	_, err := s.Lookup(ctx, "")
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	users.err = errors.New("db down")
	_, err = s.Lookup(ctx, "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrUnauthenticated), "storage failures are not auth failures")
}
