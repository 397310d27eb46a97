package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/transfer"
)

const FacebookGraphURL = "https://graph.facebook.com/v21.0"

type facebookPublisher struct {
	graph     graphClient
	secretKey string
}

// NewFacebookPublisher publishes to the page identified by the account's
// AccountID using a page access token.
func NewFacebookPublisher(client *resty.Client, baseURL, secretKey string) Publisher {
	if baseURL == "" {
		baseURL = FacebookGraphURL
	}
	return &facebookPublisher{
		graph:     graphClient{platform: models.PlatformFacebook, http: client, baseURL: baseURL},
		secretKey: secretKey,
	}
}

func (f *facebookPublisher) Platform() models.Platform {
	return models.PlatformFacebook
}

func (f *facebookPublisher) Publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (*Result, error) {
	text := ComposeText(post)
	if err := checkLength(models.PlatformFacebook, text, FacebookMaxChars); err != nil {
		return nil, err
	}

	token, err := accessToken(models.PlatformFacebook, account, f.secretKey)
	if err != nil {
		return nil, err
	}

	var id string
	switch {
	case len(post.Media) == 0:
		id, err = f.publishText(ctx, account.AccountID, text, token)
	case len(post.Media) == 1:
		id, err = f.publishSingle(ctx, account.AccountID, post.Media[0], text, token)
	default:
		id, err = f.publishAlbum(ctx, account.AccountID, post.Media, text, token)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("published to facebook", "post_id", post.ID, "external_id", id)
	return &Result{ID: id, Platform: models.PlatformFacebook}, nil
}

func (f *facebookPublisher) publishText(ctx context.Context, pageID, text, token string) (string, error) {
	var out transfer.GraphID
	err := f.graph.post(ctx, "/"+pageID+"/feed", map[string]string{
		"message":      text,
		"access_token": token,
	}, &out)
	if err != nil {
		return "", err
	}
	return f.resultID(&out)
}

func (f *facebookPublisher) publishSingle(ctx context.Context, pageID string, media models.MediaAttachment, text, token string) (string, error) {
	var out transfer.GraphID
	var err error
	if media.Type == models.MediaTypeVideo {
		err = f.graph.post(ctx, "/"+pageID+"/videos", map[string]string{
			"file_url":     media.URL,
			"description":  text,
			"access_token": token,
		}, &out)
	} else {
		err = f.graph.post(ctx, "/"+pageID+"/photos", map[string]string{
			"url":          media.URL,
			"caption":      text,
			"published":    "true",
			"access_token": token,
		}, &out)
	}
	if err != nil {
		return "", err
	}
	return f.resultID(&out)
}

// publishAlbum uploads every image unpublished and attaches them to a single
// feed post.
func (f *facebookPublisher) publishAlbum(ctx context.Context, pageID string, media []models.MediaAttachment, text, token string) (string, error) {
	form := map[string]string{
		"message":      text,
		"access_token": token,
	}
	for i, m := range media {
		if m.Type != models.MediaTypeImage {
			return "", validationError(models.PlatformFacebook, "facebook supports a single video per post")
		}
		var photo transfer.GraphID
		err := f.graph.post(ctx, "/"+pageID+"/photos", map[string]string{
			"url":          m.URL,
			"caption":      m.Caption,
			"published":    "false",
			"access_token": token,
		}, &photo)
		if err != nil {
			return "", err
		}
		if photo.ID == "" {
			return "", transportError(models.PlatformFacebook, fmt.Errorf("no photo id returned for media %d", i))
		}
		form[fmt.Sprintf("attached_media[%d]", i)] = fmt.Sprintf(`{"media_fbid":%q}`, photo.ID)
	}

	var out transfer.GraphID
	if err := f.graph.post(ctx, "/"+pageID+"/feed", form, &out); err != nil {
		return "", err
	}
	return f.resultID(&out)
}

func (f *facebookPublisher) resultID(out *transfer.GraphID) (string, error) {
	if out.PostID != "" {
		return out.PostID, nil
	}
	if out.ID == "" {
		return "", transportError(models.PlatformFacebook, fmt.Errorf("no post id returned"))
	}
	return out.ID, nil
}

func (f *facebookPublisher) FetchEngagement(ctx context.Context, post *models.Post, account *models.SocialAccount) (*models.Engagement, error) {
	token, err := accessToken(models.PlatformFacebook, account, f.secretKey)
	if err != nil {
		return nil, err
	}

	var fields transfer.FacebookPostFields
	err = f.graph.get(ctx, "/"+post.ExternalPostID, map[string]string{
		"fields":       "likes.summary(true).limit(0),comments.summary(true).limit(0),shares",
		"access_token": token,
	}, &fields)
	if err != nil {
		return nil, err
	}

	insights, err := f.graph.insights(ctx, post.ExternalPostID, "post_impressions,post_impressions_unique", token)
	if err != nil {
		return nil, err
	}

	return &models.Engagement{
		Likes:       fields.Likes.Summary.TotalCount,
		Comments:    fields.Comments.Summary.TotalCount,
		Shares:      fields.Shares.Count,
		Reach:       insights.Metric("post_impressions_unique"),
		Impressions: insights.Metric("post_impressions"),
	}, nil
}
