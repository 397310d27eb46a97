// Package publisher holds one adapter per target platform. Every adapter turns
// a stored post into platform API calls and reports a uniform outcome.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/pkg/utils"
)

type Result struct {
	ID       string          `json:"id"`
	Platform models.Platform `json:"platform"`
}

type Publisher interface {
	Platform() models.Platform
	Publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (*Result, error)
	// FetchEngagement reports metrics the platform does not expose as 0.
	FetchEngagement(ctx context.Context, post *models.Post, account *models.SocialAccount) (*models.Engagement, error)
}

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindTransport  ErrorKind = "transport"
	KindRejected   ErrorKind = "rejected"
)

type PublishError struct {
	Platform   models.Platform
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *PublishError) Error() string {
	return e.Message
}

// KindOf classifies err. Anything that is not a *PublishError is treated as a
// transport failure.
func KindOf(err error) ErrorKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

func validationError(p models.Platform, format string, args ...any) error {
	return &PublishError{Platform: p, Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func transportError(p models.Platform, err error) error {
	return &PublishError{Platform: p, Kind: KindTransport, Message: fmt.Sprintf("%s request failed: %v", p, err)}
}

// statusError maps an unsuccessful HTTP response onto the error taxonomy:
// 5xx and 429 are transient, other 4xx are platform rejections.
func statusError(p models.Platform, status int, message string) error {
	kind := KindRejected
	if status >= 500 || status == 429 {
		kind = KindTransport
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status code from %s: %d", p, status)
	} else {
		message = fmt.Sprintf("%s rejected the request (status %d): %s", p, status, message)
	}
	return &PublishError{Platform: p, Kind: kind, StatusCode: status, Message: message}
}

var ErrUnsupportedPlatform = errors.New("no publisher registered for platform")

type Registry struct {
	publishers map[models.Platform]Publisher
}

func NewRegistry(publishers ...Publisher) *Registry {
	r := &Registry{publishers: make(map[models.Platform]Publisher, len(publishers))}
	for _, p := range publishers {
		r.publishers[p.Platform()] = p
	}
	return r
}

func (r *Registry) Get(platform models.Platform) (Publisher, error) {
	p, ok := r.publishers[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return p, nil
}

// NewHTTPClient returns the resty client shared by the adapters.
func NewHTTPClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

func accessToken(p models.Platform, account *models.SocialAccount, secretKey string) (string, error) {
	if account == nil || account.AccessToken == "" {
		return "", &PublishError{Platform: p, Kind: KindRejected, Message: "account has no access token"}
	}
	token, err := utils.Decrypt(account.AccessToken, []byte(secretKey))
	if err != nil {
		return "", &PublishError{Platform: p, Kind: KindRejected, Message: fmt.Sprintf("unable to decrypt access token: %v", err)}
	}
	return token, nil
}
