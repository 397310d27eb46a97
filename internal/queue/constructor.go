package queue

import (
	"context"

	"github.com/maheshrc27/postcast/internal/models"
)

// Publisher runs a single publish attempt for a post outside the
// recurring tick.
type Publisher interface {
	PublishNow(ctx context.Context, postID string) (*models.Post, error)
}

type Queue struct {
	publisher Publisher
}

func NewQueue(publisher Publisher) *Queue {
	return &Queue{publisher: publisher}
}

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
