package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/internal/scheduler"
)

// HandlePublishPostTask runs one attempt for the post named in the task.
// Attempt failures are already recorded on the post, so only store errors
// are reported back to asynq.
func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	post, err := q.publisher.PublishNow(ctx, payload.PostID)
	if errors.Is(err, scheduler.ErrAttemptInProgress) || errors.Is(err, repository.ErrPostNotFound) {
		slog.Info("publish task skipped", "post_id", payload.PostID, "reason", err)
		return nil
	}
	if err != nil {
		slog.Error("publish task failed", "post_id", payload.PostID, "error", err)
		return err
	}

	slog.Info("publish task done", "post_id", post.ID, "status", post.Status, "retry_count", post.RetryCount)
	return nil
}

// Mux routes queue tasks to their handlers.
func (q *Queue) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, q.HandlePublishPostTask)
	return mux
}
