package scheduler

import (
	"context"
	"fmt"
	"time"

	"leaddesk_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// DedupScheduler enqueues background duplicate reconciliation runs.
type DedupScheduler interface {
	ScheduleDedupScan(ctx context.Context, payload DedupScanPayload, runAt time.Time) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDedupScan queues a reconciliation run for immediate processing.
func (c *Client) EnqueueDedupScan(ctx context.Context, windowMinutes int, dryRun bool) error {
	return c.ScheduleDedupScan(ctx, DedupScanPayload{
		WindowMinutes: windowMinutes,
		DryRun:        dryRun,
	}, time.Time{})
}

// ScheduleDedupScan enqueues a reconciliation run at runAt. A zero runAt
// enqueues it for immediate processing.
func (c *Client) ScheduleDedupScan(ctx context.Context, payload DedupScanPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewDedupScanTask(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.Queue(c.queue)}
	if !runAt.IsZero() {
		opts = append(opts, asynq.ProcessAt(runAt))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
