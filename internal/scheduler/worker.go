package scheduler

import (
	"context"
	"fmt"

	"leaddesk_backend/internal/leads/transport"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// DedupRunner is the slice of the leads service the worker needs.
type DedupRunner interface {
	DedupScan(ctx context.Context, windowMinutes int, dryRun bool) (*transport.DedupScanResponse, error)
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	dedup     DedupRunner
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, dedup DedupRunner, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		dedup:  dedup,
		log:    log,
	}

	mux.HandleFunc(TaskDedupScan, w.handleDedupScan)

	if interval := cfg.GetDedupScanInterval(); interval > 0 {
		task, err := NewDedupScanTask(DedupScanPayload{})
		if err != nil {
			return nil, err
		}
		w.scheduler = asynq.NewScheduler(opt, nil)
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := w.scheduler.Register(spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("failed to register periodic dedup scan: %w", err)
		}
	}

	return w, nil
}

func (w *Worker) handleDedupScan(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDedupScanPayload(task)
	if err != nil {
		return err
	}

	summary, err := w.dedup.DedupScan(ctx, payload.WindowMinutes, payload.DryRun)
	if err != nil {
		return err
	}

	w.log.Info("background dedup scan finished",
		"dry_run", summary.DryRun,
		"window_minutes", summary.WindowMinutes,
		"duplicate_groups", summary.DuplicateGroups,
		"deleted_leads", summary.DeletedLeads,
	)
	return nil
}

// Run blocks processing tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.log.Error("failed to start periodic scheduler", "error", err)
		} else {
			defer w.scheduler.Shutdown()
		}
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
