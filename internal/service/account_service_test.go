package service

import (
	"context"
	"testing"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccounts struct {
	repository.SocialAccountRepository
	owned   map[int64]int64
	removed []int64
}

func (s *stubAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for id, owner := range s.owned {
		if owner == userID {
			out = append(out, &models.SocialAccount{ID: id, UserID: owner})
		}
	}
	return out, nil
}

func (s *stubAccounts) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	return s.owned[accountID] == userID, nil
}

func (s *stubAccounts) Remove(ctx context.Context, id int64) error {
	s.removed = append(s.removed, id)
	return nil
}

func TestAccountService(t *testing.T) {
	repo := &stubAccounts{owned: map[int64]int64{7: 1, 8: 2}}
	s := NewAccountService(repo)
	ctx := context.Background()

	accounts, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(7), accounts[0].ID)

	_, err = s.List(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.ErrorIs(t, s.Delete(ctx, 1, 8), repository.ErrAccountNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 1, 0), ErrInvalidInput)
	require.NoError(t, s.Delete(ctx, 1, 7))
	assert.Equal(t, []int64{7}, repo.removed)
}
