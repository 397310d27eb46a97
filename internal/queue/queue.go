package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const defaultQueue = "default"

// Enqueuer is the part of *asynq.Client used to submit tasks.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the part of *asynq.Inspector used to clear finished tasks
// that still hold a task id.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

type Client struct {
	enqueuer  Enqueuer
	inspector TaskInspector
}

func NewClient(enqueuer Enqueuer, inspector TaskInspector) *Client {
	return &Client{enqueuer: enqueuer, inspector: inspector}
}

func publishTaskID(postID string) string {
	return fmt.Sprintf("publish:%s", postID)
}

// EnqueuePublishPost asks a worker to publish a post immediately. The task id
// is derived from the post id so repeated requests collapse into one pending
// task. An archived or completed task for the post is removed first so it
// does not block new requests.
func (c *Client) EnqueuePublishPost(payload PublishPostPayload) error {
	taskPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	id := publishTaskID(payload.PostID)
	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	_, err = c.enqueuer.Enqueue(task, asynq.TaskID(id), asynq.MaxRetry(0))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		requeue, clearErr := c.clearFinished(id)
		if clearErr != nil {
			slog.Info(clearErr.Error())
			return clearErr
		}
		if !requeue {
			slog.Info("publish task already queued", "post_id", payload.PostID)
			return nil
		}
		_, err = c.enqueuer.Enqueue(task, asynq.TaskID(id), asynq.MaxRetry(0))
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Another request got there first.
			return nil
		}
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	slog.Info("publish task enqueued", "post_id", payload.PostID)
	return nil
}

// clearFinished deletes the task holding id when it will never run again and
// reports whether the id is free.
func (c *Client) clearFinished(id string) (bool, error) {
	info, err := c.inspector.GetTaskInfo(defaultQueue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect task %s: %w", id, err)
	}

	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		if err := c.inspector.DeleteTask(defaultQueue, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, fmt.Errorf("delete task %s: %w", id, err)
		}
		return true, nil
	default:
		return false, nil
	}
}
