package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/transfer"
	"golang.org/x/oauth2"
)

const XAPIURL = "https://api.x.com"

type xPublisher struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
}

// NewXPublisher posts through the X API v2 with the account's OAuth 2.0 user
// token. Attached media is linked in the text, counted against the limit.
func NewXPublisher(baseURL, secretKey string, timeout time.Duration) Publisher {
	if baseURL == "" {
		baseURL = XAPIURL
	}
	return &xPublisher{baseURL: baseURL, secretKey: secretKey, timeout: timeout}
}

func (x *xPublisher) Platform() models.Platform {
	return models.PlatformX
}

func (x *xPublisher) client(ctx context.Context, token string) *resty.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return resty.NewWithClient(oauth2.NewClient(ctx, ts)).
		SetTimeout(x.timeout).
		SetBaseURL(x.baseURL).
		SetHeader("Accept", "application/json")
}

func (x *xPublisher) composeText(post *models.Post) string {
	text := ComposeText(post)
	if len(post.Media) == 0 {
		return text
	}
	links := make([]string, 0, len(post.Media))
	for _, m := range post.Media {
		links = append(links, m.URL)
	}
	return strings.TrimSpace(text + "\n" + strings.Join(links, "\n"))
}

func (x *xPublisher) Publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (*Result, error) {
	text := x.composeText(post)
	if err := checkLength(models.PlatformX, text, XMaxChars); err != nil {
		return nil, err
	}

	token, err := accessToken(models.PlatformX, account, x.secretKey)
	if err != nil {
		return nil, err
	}

	var out transfer.XCreateTweetResponse
	var xerr transfer.XErrorResponse
	resp, err := x.client(ctx, token).R().
		SetContext(ctx).
		SetBody(transfer.XCreateTweetRequest{Text: text}).
		SetResult(&out).
		SetError(&xerr).
		Post("/2/tweets")
	if err != nil {
		return nil, transportError(models.PlatformX, err)
	}
	if resp.IsError() {
		return nil, statusError(models.PlatformX, resp.StatusCode(), xerr.Message())
	}
	if out.Data.ID == "" {
		return nil, transportError(models.PlatformX, fmt.Errorf("no tweet id returned"))
	}

	slog.Info("published to x", "post_id", post.ID, "external_id", out.Data.ID)
	return &Result{ID: out.Data.ID, Platform: models.PlatformX}, nil
}

func (x *xPublisher) FetchEngagement(ctx context.Context, post *models.Post, account *models.SocialAccount) (*models.Engagement, error) {
	token, err := accessToken(models.PlatformX, account, x.secretKey)
	if err != nil {
		return nil, err
	}

	var out transfer.XTweetLookupResponse
	var xerr transfer.XErrorResponse
	resp, err := x.client(ctx, token).R().
		SetContext(ctx).
		SetQueryParam("tweet.fields", "public_metrics").
		SetResult(&out).
		SetError(&xerr).
		Get("/2/tweets/" + post.ExternalPostID)
	if err != nil {
		return nil, transportError(models.PlatformX, err)
	}
	if resp.IsError() {
		return nil, statusError(models.PlatformX, resp.StatusCode(), xerr.Message())
	}

	m := out.Data.PublicMetrics
	return &models.Engagement{
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount + m.QuoteCount,
		Impressions: m.ImpressionCount,
	}, nil
}
