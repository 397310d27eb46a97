package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/postcast/internal/models"
	"github.com/maheshrc27/postcast/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

type DueSelector interface {
	SelectDuePosts(ctx context.Context, now time.Time, maxRetries int) ([]scheduler.DuePost, error)
}

type PublishAttempter interface {
	AttemptPublish(ctx context.Context, due scheduler.DuePost) error
	Policy() models.RetryPolicy
}

// PublishJob is the publish cadence: select due posts and attempt each one.
type PublishJob struct {
	selector    DueSelector
	attempter   PublishAttempter
	concurrency int
	now         func() time.Time
}

func NewPublishJob(selector DueSelector, attempter PublishAttempter, concurrency int) *PublishJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PublishJob{
		selector:    selector,
		attempter:   attempter,
		concurrency: concurrency,
		now:         time.Now,
	}
}

func (j *PublishJob) Run() {
	if _, err := j.RunOnce(context.Background()); err != nil {
		slog.Error("publish tick aborted", "err", err)
	}
}

// RunOnce processes one tick and returns how many posts were attempted. Posts
// are independent of each other; only a store write failure stops the tick,
// and attempts already running are allowed to finish.
func (j *PublishJob) RunOnce(ctx context.Context) (int, error) {
	logger := slog.With("job", "publish", "trace_id", uuid.NewString())

	policy := j.attempter.Policy()
	due, err := j.selector.SelectDuePosts(ctx, j.now(), policy.MaxRetries)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	logger.Info("due posts selected", "count", len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	attempted := make([]bool, len(due))
	for i, d := range due {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			attempted[i] = true
			return j.attempter.AttemptPublish(ctx, d)
		})
	}
	err = g.Wait()

	count := 0
	for _, ok := range attempted {
		if ok {
			count++
		}
	}
	logger.Info("publish tick finished", "attempted", count, "selected", len(due))
	return count, err
}
