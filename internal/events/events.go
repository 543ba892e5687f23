// Package events provides domain event definitions for decoupled
// communication between modules. Infrastructure (Bus, Handler) is in
// platform/events.
package events

import (
	"leaddesk_backend/platform/events"
	"leaddesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when intake stores a brand-new lead.
type LeadCreated struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Name    string    `json:"name"`
	Segment string    `json:"segment"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadDeduplicated is published when intake folds a submission into an
// existing lead instead of creating a new row.
type LeadDeduplicated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	WindowMinutes int       `json:"windowMinutes"`
}

func (e LeadDeduplicated) EventName() string { return "leads.lead.deduplicated" }

// LeadRuleApplied is published after a CRM event rule changed a lead's
// score, stage or status.
type LeadRuleApplied struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	RuleCode  string    `json:"ruleCode"`
	Delta     int       `json:"delta"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	ToScore   int       `json:"toScore"`
	GateOpen  bool      `json:"gateOpen"`
}

func (e LeadRuleApplied) EventName() string { return "leads.rule.applied" }

// LeadStageMoved is published after an operator moved a lead on the board.
type LeadStageMoved struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
}

func (e LeadStageMoved) EventName() string { return "leads.stage.moved" }

// LeadScored is published after the external scorer updated a lead.
type LeadScored struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Score  int       `json:"score"`
	Status string    `json:"status"`
	Engine string    `json:"engine"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// DedupScanCompleted is published after a full-table duplicate scan ran,
// whether dry or applied.
type DedupScanCompleted struct {
	BaseEvent
	DryRun        bool `json:"dryRun"`
	WindowMinutes int  `json:"windowMinutes"`
	Groups        int  `json:"groups"`
	RowsDeleted   int  `json:"rowsDeleted"`
}

func (e DedupScanCompleted) EventName() string { return "leads.dedup.completed" }
