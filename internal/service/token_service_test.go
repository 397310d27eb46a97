package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/maheshrc27/postcast/configs"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type tokenStore struct {
	repository.SocialAccountRepository
	accountID int64
	oldToken  string
	updated   *models.SocialAccount
}

func (s *tokenStore) SetToken(ctx context.Context, accountID int64, oldAccessToken string, sa *models.SocialAccount) error {
	s.accountID, s.oldToken, s.updated = accountID, oldAccessToken, sa
	return nil
}

func encrypted(t *testing.T, value string) string {
	t.Helper()
	v, err := utils.Encrypt([]byte(value), []byte(testSecret))
	require.NoError(t, err)
	return v
}

func TestRefreshInstagramToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "old-token", r.URL.Query().Get("access_token"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "new-token", "token_type": "bearer", "expires_in": 5184000})
	}))
	defer srv.Close()

	cfg := config.Config{SecretKey: testSecret, Instagram: config.Instagram{GraphURL: srv.URL}}
	store := &tokenStore{}
	s := NewTokenService(cfg, store, publisher.NewHTTPClient(5*time.Second))

	account := &models.SocialAccount{ID: 3, Platform: models.PlatformInstagram, AccessToken: encrypted(t, "old-token")}
	require.NoError(t, s.RefreshAccountToken(context.Background(), account))

	assert.Equal(t, int64(3), store.accountID)
	assert.Equal(t, account.AccessToken, store.oldToken)
	require.NotNil(t, store.updated)
	plain, err := utils.Decrypt(store.updated.AccessToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "new-token", plain)
	assert.WithinDuration(t, time.Now().Add(60*24*time.Hour), store.updated.TokenExpiresAt, time.Minute)
	assert.Empty(t, store.updated.RefreshToken)
}

func TestRefreshXToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "new-access", "refresh_token": "new-refresh", "token_type": "bearer", "expires_in": 7200,
		})
	}))
	defer srv.Close()

	cfg := config.Config{SecretKey: testSecret, X: config.X{ClientID: "client-id", ClientSecret: "client-secret", TokenURL: srv.URL}}
	store := &tokenStore{}
	s := NewTokenService(cfg, store, publisher.NewHTTPClient(5*time.Second))

	account := &models.SocialAccount{ID: 9, Platform: models.PlatformX, AccessToken: encrypted(t, "old-access"), RefreshToken: encrypted(t, "old-refresh")}
	require.NoError(t, s.RefreshAccountToken(context.Background(), account))

	require.NotNil(t, store.updated)
	refresh, err := utils.Decrypt(store.updated.RefreshToken, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", refresh)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), store.updated.TokenExpiresAt, time.Minute)
}

func TestRefreshUnsupportedPlatform(t *testing.T) {
	s := NewTokenService(config.Config{SecretKey: testSecret}, &tokenStore{}, publisher.NewHTTPClient(time.Second))
	err := s.RefreshAccountToken(context.Background(), &models.SocialAccount{Platform: "tiktok"})
	assert.Error(t, err)
}

func TestNewPublisherRegistry(t *testing.T) {
	r := NewPublisherRegistry(config.Config{SecretKey: testSecret}, publisher.NewHTTPClient(time.Second))
	for _, p := range models.Platforms {
		got, err := r.Get(p)
		require.NoError(t, err)
		assert.Equal(t, p, got.Platform())
	}
}
