package leads

import (
	"context"
	"testing"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/validator"

	"github.com/google/uuid"
)

type stubConfig struct{}

func (stubConfig) GetDedupeWindowMinutes() int      { return 60 }
func (stubConfig) GetScoringURL() string            { return "" }
func (stubConfig) GetScoringTimeout() time.Duration { return time.Second }
func (stubConfig) GetRulesFile() string             { return "" }

type captureEnqueuer struct {
	calls  int
	window int
	dryRun bool
}

func (c *captureEnqueuer) EnqueueDedupScan(_ context.Context, windowMinutes int, dryRun bool) error {
	c.calls++
	c.window = windowMinutes
	c.dryRun = dryRun
	return nil
}

func TestModuleReactsToLifecycleEvents(t *testing.T) {
	log := logger.New("test")
	m, err := NewModule(nil, stubConfig{}, log, validator.New())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	enq := &captureEnqueuer{}
	m.SetDedupEnqueuer(enq)

	bus := events.NewInMemoryBus(log)
	m.RegisterHandlers(bus)

	ctx := context.Background()
	err = bus.PublishSync(ctx, events.LeadDeduplicated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        uuid.New(),
		WindowMinutes: 45,
	})
	if err != nil {
		t.Fatalf("PublishSync(LeadDeduplicated): %v", err)
	}
	if enq.calls != 1 || enq.window != 45 || !enq.dryRun {
		t.Errorf("follow-up scan = %+v, want one dry scan with window 45", enq)
	}

	err = bus.PublishSync(ctx, events.DedupScanCompleted{
		BaseEvent:     events.NewBaseEvent(),
		DryRun:        true,
		WindowMinutes: 45,
		Groups:        2,
		RowsDeleted:   0,
	})
	if err != nil {
		t.Fatalf("PublishSync(DedupScanCompleted): %v", err)
	}

	// Events the module is not subscribed to must not reach it.
	if err := bus.PublishSync(ctx, events.LeadCreated{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("PublishSync(LeadCreated): %v", err)
	}
	if enq.calls != 1 {
		t.Errorf("enqueuer called %d times, want 1", enq.calls)
	}
}

func TestModuleHandleWithoutEnqueuer(t *testing.T) {
	log := logger.New("test")
	m, err := NewModule(nil, stubConfig{}, log, validator.New())
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}

	// Without a queue client the handler only logs.
	err = m.Handle(context.Background(), events.LeadDeduplicated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        uuid.New(),
		WindowMinutes: 30,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
}
