package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	config "github.com/maheshrc27/postcast/configs"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/publisher"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/internal/transfer"
	"github.com/maheshrc27/postcast/pkg/utils"
	"golang.org/x/oauth2"
)

type TokenService interface {
	RefreshAccountToken(ctx context.Context, account *models.SocialAccount) error
}

type tokenService struct {
	cfg  config.Config
	sa   repository.SocialAccountRepository
	http *resty.Client
}

func NewTokenService(cfg config.Config, sa repository.SocialAccountRepository, http *resty.Client) TokenService {
	return &tokenService{cfg: cfg, sa: sa, http: http}
}

func (s *tokenService) RefreshAccountToken(ctx context.Context, account *models.SocialAccount) error {
	switch account.Platform {
	case models.PlatformX:
		return s.refreshX(ctx, account)
	case models.PlatformInstagram:
		return s.refreshInstagram(ctx, account)
	case models.PlatformFacebook:
		return s.refreshFacebook(ctx, account)
	}
	return fmt.Errorf("token refresh not supported for %s", account.Platform)
}

func (s *tokenService) refreshX(ctx context.Context, account *models.SocialAccount) error {
	conf := &oauth2.Config{
		ClientID:     s.cfg.X.ClientID,
		ClientSecret: s.cfg.X.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.cfg.X.TokenURL, AuthStyle: oauth2.AuthStyleInHeader},
	}

	decryptedRefreshToken, err := utils.Decrypt(account.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: decryptedRefreshToken}).Token()
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("refresh x token: %w", err)
	}

	return s.store(ctx, account, token.AccessToken, token.RefreshToken, token.Expiry)
}

func (s *tokenService) refreshInstagram(ctx context.Context, account *models.SocialAccount) error {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	var result transfer.OAuthTokenResponse
	var gerr transfer.GraphErrorResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":   "ig_refresh_token",
			"access_token": decrypted,
		}).
		SetResult(&result).
		SetError(&gerr).
		Get(s.cfg.Instagram.GraphURL + "/refresh_access_token")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("instagram token refresh failed: %s", gerr.Error.Message)
	}

	return s.store(ctx, account, result.AccessToken, "", expiresAt(int(result.ExpiresIn)))
}

// refreshFacebook exchanges the current long-lived token for a fresh one.
func (s *tokenService) refreshFacebook(ctx context.Context, account *models.SocialAccount) error {
	decrypted, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	var result transfer.OAuthTokenResponse
	var gerr transfer.GraphErrorResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         s.cfg.Facebook.AppID,
			"client_secret":     s.cfg.Facebook.AppSecret,
			"fb_exchange_token": decrypted,
		}).
		SetResult(&result).
		SetError(&gerr).
		Get(s.cfg.Facebook.GraphURL + "/oauth/access_token")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("facebook token refresh failed: %s", gerr.Error.Message)
	}

	expiry := expiresAt(int(result.ExpiresIn))
	if result.ExpiresIn == 0 {
		// Page tokens derived from a long-lived user token do not expire.
		expiry = time.Now().AddDate(0, 2, 0)
	}
	return s.store(ctx, account, result.AccessToken, "", expiry)
}

func expiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func (s *tokenService) store(ctx context.Context, account *models.SocialAccount, accessToken, refreshToken string, expiresAt time.Time) error {
	if accessToken == "" {
		return fmt.Errorf("%s returned an empty access token", account.Platform)
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(accessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	updated := models.SocialAccount{
		AccessToken:    encryptedAccessToken,
		TokenExpiresAt: expiresAt,
	}
	if refreshToken != "" {
		updated.RefreshToken, err = utils.Encrypt([]byte(refreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	if err := s.sa.SetToken(ctx, account.ID, account.AccessToken, &updated); err != nil {
		return err
	}
	slog.Info("account token refreshed", "account_id", account.ID, "platform", account.Platform, "expires_at", expiresAt)
	return nil
}

// NewPublisherRegistry wires one adapter per supported platform.
func NewPublisherRegistry(cfg config.Config, http *resty.Client) *publisher.Registry {
	return publisher.NewRegistry(
		publisher.NewFacebookPublisher(http, cfg.Facebook.GraphURL, cfg.SecretKey),
		publisher.NewInstagramPublisher(http, cfg.Instagram.GraphURL, cfg.SecretKey),
		publisher.NewXPublisher(cfg.X.APIURL, cfg.SecretKey, cfg.Scheduler.PlatformTimeout),
	)
}
