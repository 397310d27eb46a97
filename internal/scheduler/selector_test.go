package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDuePosts(t *testing.T) {
	due := scheduledPost("due", t0.Add(-time.Minute))
	exact := scheduledPost("exact", t0)
	future := scheduledPost("future", t0.Add(time.Second))
	exhausted := scheduledPost("exhausted", t0.Add(-time.Hour))
	exhausted.RetryCount = 3
	draft := scheduledPost("draft", t0.Add(-time.Hour))
	draft.Status = models.PostStatusDraft
	published := scheduledPost("published", t0.Add(-time.Hour))
	published.Status = models.PostStatusPublished
	retrying := scheduledPost("retrying", t0.Add(-time.Minute))
	retrying.RetryCount = 2

	posts := newMemPosts(due, exact, future, exhausted, draft, published, retrying)
	accounts := &memAccounts{accounts: []*models.SocialAccount{activeAccount(7, 1, models.PlatformFacebook)}}
	s := NewSelector(posts, accounts)

	got, err := s.SelectDuePosts(context.Background(), t0, 3)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, d := range got {
		ids = append(ids, d.Post.ID)
		require.NotNil(t, d.Account)
		assert.Equal(t, int64(7), d.Account.ID)
	}
	assert.ElementsMatch(t, []string{"due", "exact", "retrying"}, ids)
	// One lookup per (user, platform) pair.
	assert.Equal(t, 1, accounts.lookups)
}

func TestSelectDuePosts_KeepsPostsWithoutAccount(t *testing.T) {
	post := scheduledPost("p1", t0)
	post.Platform = models.PlatformInstagram
	s := NewSelector(newMemPosts(post), &memAccounts{})

	got, err := s.SelectDuePosts(context.Background(), t0, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Account)
}

func TestSelectDuePosts_AccountLookupError(t *testing.T) {
	accounts := &memAccounts{err: errors.New("connection refused")}
	s := NewSelector(newMemPosts(scheduledPost("p1", t0)), accounts)

	_, err := s.SelectDuePosts(context.Background(), t0, 3)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSelectDuePosts_RespectsMaxRetries(t *testing.T) {
	post := scheduledPost("p1", t0)
	post.RetryCount = 1
	s := NewSelector(newMemPosts(post), &memAccounts{})

	got, err := s.SelectDuePosts(context.Background(), t0, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.SelectDuePosts(context.Background(), t0, 2)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
