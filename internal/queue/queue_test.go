package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/repository"
	"github.com/maheshrc27/postcast/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnqueuer returns errs in order, then nil.
type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	errs  []error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &asynq.TaskInfo{ID: "t1"}, nil
}

type fakeInspector struct {
	info    *asynq.TaskInfo
	err     error
	deleted []string
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	return f.info, f.err
}

func (f *fakeInspector) DeleteTask(queue, id string) error {
	f.deleted = append(f.deleted, queue+"/"+id)
	return nil
}

type fakePublisher struct {
	ids  []string
	post *models.Post
	err  error
}

func (f *fakePublisher) PublishNow(ctx context.Context, postID string) (*models.Post, error) {
	f.ids = append(f.ids, postID)
	return f.post, f.err
}

func TestEnqueuePublishPost(t *testing.T) {
	client := &fakeEnqueuer{}

	require.NoError(t, NewClient(client, &fakeInspector{}).EnqueuePublishPost(PublishPostPayload{PostID: "p1"}))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TaskTypePublishPost, client.tasks[0].Type())

	var payload PublishPostPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &payload))
	assert.Equal(t, "p1", payload.PostID)
	assert.Contains(t, client.opts[0], asynq.TaskID("publish:p1"))
}

func TestEnqueuePublishPost_TaskIDConflict(t *testing.T) {
	tests := []struct {
		name     string
		state    asynq.TaskState
		requeued bool
	}{
		{"pending task is kept", asynq.TaskStatePending, false},
		{"active task is kept", asynq.TaskStateActive, false},
		{"archived task is replaced", asynq.TaskStateArchived, true},
		{"completed task is replaced", asynq.TaskStateCompleted, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
			inspector := &fakeInspector{info: &asynq.TaskInfo{ID: "publish:p1", State: tt.state}}

			require.NoError(t, NewClient(client, inspector).EnqueuePublishPost(PublishPostPayload{PostID: "p1"}))
			if tt.requeued {
				assert.Len(t, client.tasks, 2)
				assert.Equal(t, []string{"default/publish:p1"}, inspector.deleted)
			} else {
				assert.Len(t, client.tasks, 1)
				assert.Empty(t, inspector.deleted)
			}
		})
	}
}

func TestEnqueuePublishPost_ConflictedTaskAlreadyGone(t *testing.T) {
	client := &fakeEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	inspector := &fakeInspector{err: asynq.ErrTaskNotFound}

	require.NoError(t, NewClient(client, inspector).EnqueuePublishPost(PublishPostPayload{PostID: "p1"}))
	assert.Len(t, client.tasks, 2)
	assert.Empty(t, inspector.deleted)
}

func TestEnqueuePublishPost_Errors(t *testing.T) {
	redisDown := errors.New("dial tcp: connection refused")

	client := &fakeEnqueuer{errs: []error{redisDown}}
	assert.ErrorIs(t, NewClient(client, &fakeInspector{}).EnqueuePublishPost(PublishPostPayload{PostID: "p1"}), redisDown)

	client = &fakeEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	err := NewClient(client, &fakeInspector{err: redisDown}).EnqueuePublishPost(PublishPostPayload{PostID: "p1"})
	assert.ErrorIs(t, err, redisDown)
	assert.Len(t, client.tasks, 1)
}

func TestHandlePublishPostTask(t *testing.T) {
	payload, _ := json.Marshal(PublishPostPayload{PostID: "p1"})
	task := asynq.NewTask(TaskTypePublishPost, payload)

	pub := &fakePublisher{post: &models.Post{ID: "p1", Status: models.PostStatusPublished}}
	require.NoError(t, NewQueue(pub).HandlePublishPostTask(context.Background(), task))
	assert.Equal(t, []string{"p1"}, pub.ids)

	for _, skipped := range []error{scheduler.ErrAttemptInProgress, repository.ErrPostNotFound} {
		pub := &fakePublisher{err: skipped}
		assert.NoError(t, NewQueue(pub).HandlePublishPostTask(context.Background(), task))
	}

	storeErr := errors.New("connection reset")
	pub = &fakePublisher{err: storeErr}
	assert.ErrorIs(t, NewQueue(pub).HandlePublishPostTask(context.Background(), task), storeErr)
}

func TestHandlePublishPostTask_BadPayload(t *testing.T) {
	task := asynq.NewTask(TaskTypePublishPost, []byte("{"))
	err := NewQueue(&fakePublisher{}).HandlePublishPostTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
