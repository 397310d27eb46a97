package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformX         Platform = "x"
)

var Platforms = []Platform{PlatformFacebook, PlatformInstagram, PlatformX}

func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformX:
		return p, nil
	case "twitter":
		return PlatformX, nil
	}
	return "", fmt.Errorf("unsupported platform %q", s)
}

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusCancelled PostStatus = "cancelled"
)

// IsTerminal reports whether no automatic transition leaves the status.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed || s == PostStatusCancelled
}

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

type MediaAttachment struct {
	Type    MediaType `json:"type"`
	URL     string    `json:"url"`
	Caption string    `json:"caption,omitempty"`
}

// MediaList is stored as a jsonb column.
type MediaList []MediaAttachment

func (m MediaList) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *MediaList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("media: unsupported column type")
	}
	return json.Unmarshal(data, m)
}

type Engagement struct {
	Likes       int64      `db:"likes" json:"likes"`
	Comments    int64      `db:"comments" json:"comments"`
	Shares      int64      `db:"shares" json:"shares"`
	Reach       int64      `db:"reach" json:"reach"`
	Impressions int64      `db:"impressions" json:"impressions"`
	LastUpdated *time.Time `db:"engagement_updated_at" json:"last_updated,omitempty"`
}

type Post struct {
	ID             string     `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	Platform       Platform   `db:"platform" json:"platform"`
	Content        string     `db:"content" json:"content"`
	Media          MediaList  `db:"media" json:"media"`
	Hashtags       []string   `db:"hashtags" json:"hashtags"`
	ScheduledDate  time.Time  `db:"scheduled_date" json:"scheduled_date"`
	Status         PostStatus `db:"status" json:"status"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	ExternalPostID string     `db:"external_post_id" json:"external_post_id,omitempty"`
	RetryCount     int        `db:"retry_count" json:"retry_count"`
	LastError      string     `db:"last_error" json:"last_error,omitempty"`
	Engagement     Engagement `json:"engagement"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type RetryPolicy struct {
	MaxRetries      int
	BackoffInterval time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      3,
	BackoffInterval: 5 * time.Minute,
}

// IsDue reports whether the post is eligible for a publish attempt at now.
func (p *Post) IsDue(now time.Time, maxRetries int) bool {
	return p.Status == PostStatusScheduled && !p.ScheduledDate.After(now) && p.RetryCount < maxRetries
}

// AwaitingRetry is true for a scheduled post that has failed at least once.
func (p *Post) AwaitingRetry() bool {
	return p.Status == PostStatusScheduled && p.RetryCount > 0
}

// MarkPublished records a successful attempt. RetryCount is a historical
// counter and is left untouched.
func (p *Post) MarkPublished(now time.Time, externalID string) {
	publishedAt := now
	p.Status = PostStatusPublished
	p.PublishedAt = &publishedAt
	p.ExternalPostID = externalID
	p.LastError = ""
	p.UpdatedAt = now
}

// MarkAttemptFailed records a failed attempt and either reschedules the post
// after the backoff interval or moves it to failed once retries are exhausted.
func (p *Post) MarkAttemptFailed(now time.Time, reason string, policy RetryPolicy) {
	p.RetryCount++
	p.LastError = reason
	p.UpdatedAt = now
	if p.RetryCount >= policy.MaxRetries {
		p.Status = PostStatusFailed
		return
	}
	p.Status = PostStatusScheduled
	p.ScheduledDate = now.Add(policy.BackoffInterval)
}
