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
)

const (
	InstagramGraphURL    = "https://graph.instagram.com/v21.0"
	instagramMaxCarousel = 10
)

type instagramPublisher struct {
	graph        graphClient
	secretKey    string
	pollInterval time.Duration
	maxPolls     int
}

func NewInstagramPublisher(client *resty.Client, baseURL, secretKey string) Publisher {
	if baseURL == "" {
		baseURL = InstagramGraphURL
	}
	return &instagramPublisher{
		graph:        graphClient{platform: models.PlatformInstagram, http: client, baseURL: baseURL},
		secretKey:    secretKey,
		pollInterval: 3 * time.Second,
		maxPolls:     20,
	}
}

func (ig *instagramPublisher) Platform() models.Platform {
	return models.PlatformInstagram
}

func (ig *instagramPublisher) Publish(ctx context.Context, post *models.Post, account *models.SocialAccount) (*Result, error) {
	if len(post.Media) == 0 {
		return nil, validationError(models.PlatformInstagram, "media required")
	}
	if len(post.Media) > instagramMaxCarousel {
		return nil, validationError(models.PlatformInstagram, "instagram allows at most %d media items", instagramMaxCarousel)
	}

	caption := ComposeText(post)
	if err := checkLength(models.PlatformInstagram, caption, InstagramMaxChars); err != nil {
		return nil, err
	}

	token, err := accessToken(models.PlatformInstagram, account, ig.secretKey)
	if err != nil {
		return nil, err
	}

	var containerID string
	if len(post.Media) == 1 {
		containerID, err = ig.createContainer(ctx, account.AccountID, post.Media[0], caption, false, token)
	} else {
		containerID, err = ig.createCarousel(ctx, account.AccountID, post.Media, caption, token)
	}
	if err != nil {
		return nil, err
	}

	mediaID, err := ig.publishContainer(ctx, account.AccountID, containerID, token)
	if err != nil {
		return nil, err
	}

	slog.Info("published to instagram", "post_id", post.ID, "external_id", mediaID)
	return &Result{ID: mediaID, Platform: models.PlatformInstagram}, nil
}

func (ig *instagramPublisher) createContainer(ctx context.Context, userID string, media models.MediaAttachment, caption string, carouselItem bool, token string) (string, error) {
	form := map[string]string{"access_token": token}
	if carouselItem {
		form["is_carousel_item"] = "true"
	} else {
		form["caption"] = caption
	}
	if media.Type == models.MediaTypeVideo {
		form["video_url"] = media.URL
		if carouselItem {
			form["media_type"] = "VIDEO"
		} else {
			form["media_type"] = "REELS"
		}
	} else {
		form["image_url"] = media.URL
	}

	var out transfer.GraphID
	if err := ig.graph.post(ctx, "/"+userID+"/media", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", transportError(models.PlatformInstagram, fmt.Errorf("no media container id returned"))
	}

	if media.Type == models.MediaTypeVideo {
		if err := ig.waitForContainer(ctx, out.ID, token); err != nil {
			return "", err
		}
	}
	return out.ID, nil
}

func (ig *instagramPublisher) createCarousel(ctx context.Context, userID string, media []models.MediaAttachment, caption, token string) (string, error) {
	children := make([]string, 0, len(media))
	for _, m := range media {
		id, err := ig.createContainer(ctx, userID, m, "", true, token)
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	var out transfer.GraphID
	err := ig.graph.post(ctx, "/"+userID+"/media", map[string]string{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     strings.Join(children, ","),
		"access_token": token,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", transportError(models.PlatformInstagram, fmt.Errorf("no carousel container id returned"))
	}
	return out.ID, nil
}

// waitForContainer polls a video container until Instagram has finished
// processing it.
func (ig *instagramPublisher) waitForContainer(ctx context.Context, containerID, token string) error {
	for i := 0; i < ig.maxPolls; i++ {
		var status transfer.GraphContainerStatus
		err := ig.graph.get(ctx, "/"+containerID, map[string]string{
			"fields":       "status_code,status",
			"access_token": token,
		}, &status)
		if err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return &PublishError{
				Platform: models.PlatformInstagram,
				Kind:     KindRejected,
				Message:  fmt.Sprintf("instagram could not process media: %s", status.Status),
			}
		}

		select {
		case <-ctx.Done():
			return transportError(models.PlatformInstagram, ctx.Err())
		case <-time.After(ig.pollInterval):
		}
	}
	return transportError(models.PlatformInstagram, fmt.Errorf("media container %s not ready after %d checks", containerID, ig.maxPolls))
}

func (ig *instagramPublisher) publishContainer(ctx context.Context, userID, containerID, token string) (string, error) {
	var out transfer.GraphID
	err := ig.graph.post(ctx, "/"+userID+"/media_publish", map[string]string{
		"creation_id":  containerID,
		"access_token": token,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", transportError(models.PlatformInstagram, fmt.Errorf("no media id returned"))
	}
	return out.ID, nil
}

func (ig *instagramPublisher) FetchEngagement(ctx context.Context, post *models.Post, account *models.SocialAccount) (*models.Engagement, error) {
	token, err := accessToken(models.PlatformInstagram, account, ig.secretKey)
	if err != nil {
		return nil, err
	}

	var fields transfer.InstagramMediaFields
	err = ig.graph.get(ctx, "/"+post.ExternalPostID, map[string]string{
		"fields":       "like_count,comments_count",
		"access_token": token,
	}, &fields)
	if err != nil {
		return nil, err
	}

	insights, err := ig.graph.insights(ctx, post.ExternalPostID, "reach,impressions,shares", token)
	if err != nil {
		return nil, err
	}

	return &models.Engagement{
		Likes:       fields.LikeCount,
		Comments:    fields.CommentsCount,
		Shares:      insights.Metric("shares"),
		Reach:       insights.Metric("reach"),
		Impressions: insights.Metric("impressions"),
	}, nil
}
