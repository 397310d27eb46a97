package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPublish(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		var body transfer.XCreateTweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Launch day\n\n#go\nhttps://cdn.example.com/a.jpg", body.Text)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"id": "1790", "text": body.Text}})
	})
	srv := newServer(t, mux)

	p := NewXPublisher(srv.URL, testSecret, 5*time.Second)
	post := &models.Post{
		ID:       "p1",
		Content:  "Launch day",
		Hashtags: []string{"go"},
		Media:    models.MediaList{{Type: models.MediaTypeImage, URL: "https://cdn.example.com/a.jpg"}},
	}

	res, err := p.Publish(context.Background(), post, testAccount(t, models.PlatformX, "user-token"))
	require.NoError(t, err)
	assert.Equal(t, "1790", res.ID)
}

func TestXPublish_TooLong(t *testing.T) {
	p := NewXPublisher("http://127.0.0.1:0", testSecret, time.Second)
	post := &models.Post{ID: "p1", Content: strings.Repeat("a", 281)}

	_, err := p.Publish(context.Background(), post, testAccount(t, models.PlatformX, "tok"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestXPublish_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		kind   ErrorKind
		msg    string
	}{
		{"forbidden", http.StatusForbidden, map[string]any{"title": "Forbidden", "detail": "duplicate content"}, KindRejected, "duplicate content"},
		{"rate limited", http.StatusTooManyRequests, map[string]any{"title": "Too Many Requests"}, KindTransport, "Too Many Requests"},
		{"server", http.StatusServiceUnavailable, map[string]any{"errors": []map[string]string{{"message": "over capacity"}}}, KindTransport, "over capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			srv := newServer(t, mux)

			p := NewXPublisher(srv.URL, testSecret, 5*time.Second)
			_, err := p.Publish(context.Background(), &models.Post{ID: "p1", Content: "hi"}, testAccount(t, models.PlatformX, "tok"))
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestXFetchEngagement(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/tweets/1790", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id": "1790",
			"public_metrics": map[string]int{
				"like_count": 8, "reply_count": 2, "retweet_count": 3, "quote_count": 1, "impression_count": 1200,
			},
		}})
	})
	srv := newServer(t, mux)

	p := NewXPublisher(srv.URL, testSecret, 5*time.Second)
	e, err := p.FetchEngagement(context.Background(), &models.Post{ID: "p1", ExternalPostID: "1790"}, testAccount(t, models.PlatformX, "tok"))
	require.NoError(t, err)
	assert.Equal(t, models.Engagement{Likes: 8, Comments: 2, Shares: 4, Reach: 0, Impressions: 1200}, *e)
}
