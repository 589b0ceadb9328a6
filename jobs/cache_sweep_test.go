package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/fulfilhub/dashboard/internal/jobs"
	"github.com/fulfilhub/dashboard/internal/query"
)

func TestCacheSweepRemovesInvalidatedEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := query.NewRedisStore(client, time.Hour)
	cache := query.NewCache(store)
	ctx := context.Background()

	fetch := func(context.Context) ([]string, error) { return []string{"a"}, nil }
	require.True(t, query.New(query.NewKey("get-all-brands"), fetch).Run(ctx, cache.Scope("rina")).OK())
	require.True(t, query.New(query.NewKey("get-all-users"), fetch).Run(ctx, cache.Scope("rina")).OK())
	require.NoError(t, cache.Invalidate(ctx, query.NewKey("get-all-brands")))

	task, err := NewCacheSweepTask("test")
	require.NoError(t, err)
	job := NewCacheSweepJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(ctx, task))

	_, ok, err := cache.Peek(ctx, "rina", query.NewKey("get-all-brands"))
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.Peek(ctx, "rina", query.NewKey("get-all-users"))
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingSweeper struct{}

func (failingSweeper) Sweep(context.Context) (int, error) { return 0, errors.New("redis down") }

func TestCacheSweepReportsStoreFailure(t *testing.T) {
	job := NewCacheSweepJob(failingSweeper{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskCacheSweep, nil))
	assert.EqualError(t, err, "redis down")
}

func TestCacheSweepSkipsRetryOnBadPayload(t *testing.T) {
	job := NewCacheSweepJob(failingSweeper{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskCacheSweep, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewCacheSweepTaskPayload(t *testing.T) {
	task, err := NewCacheSweepTask("cron")
	require.NoError(t, err)
	assert.Equal(t, TaskCacheSweep, task.Type())
	var payload CacheSweepPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Reason)
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{})
	assert.Error(t, err)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	task, err := NewCacheSweepTask("cron")
	require.NoError(t, err)
	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: miniredis.RunT(t).Addr()},
		Handlers:  []TaskHandler{{Type: TaskCacheSweep, Handler: NewCacheSweepJob(failingSweeper{}, nil, nil).Handle}},
		Cron:      []CronRegistration{{Spec: "not a cron", Task: task}},
	})
	assert.Error(t, err)
}
