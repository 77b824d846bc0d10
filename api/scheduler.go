/*
scheduler.go - Automated reminder scheduler

PURPOSE:
  Periodically checks for claim periods sitting in a waiting state and
  dispatches reminder events for them, so pending data requests get
  re-broadcast to the source systems instead of going quiet.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Scans every employee with stored claims
  - Reminds only states that have something to re-request
  - Reminders go through the mediator like any other event, so they are
    logged, audited, and replayable

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(store, med)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - claim: Reminder handling per period
  - mediator: the dispatch path reminders reuse
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/mediator"
	"github.com/warp/benefit-engine/store/sqlite"
)

// ReminderScheduler re-requests pending data for stalled claim periods.
type ReminderScheduler struct {
	Store         *sqlite.Store
	Mediator      *mediator.Mediator
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex

	// nextRun has its own lock so the run loop never contends with Stop,
	// which holds mu across the goroutine join.
	nextMu  sync.Mutex
	nextRun time.Time
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(store *sqlite.Store, med *mediator.Mediator) *ReminderScheduler {
	return &ReminderScheduler{
		Store:         store,
		Mediator:      med,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.setNextRun(time.Now().Add(rs.CheckInterval))
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.setNextRun(time.Time{})
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	for {
		select {
		case <-rs.ticker.C:
			rs.setNextRun(time.Now().Add(rs.CheckInterval))
			rs.checkAndRemind()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReminderScheduler) checkAndRemind() {
	ctx := context.Background()
	now := time.Now().UTC()

	employees, err := rs.Store.ListEmployees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing employees: %v", err)
		return
	}

	remindedCount := 0

	for _, employeeID := range employees {
		person, err := rs.Mediator.Load(ctx, employeeID)
		if err != nil {
			log.Printf("[Scheduler] Error loading %s: %v", employeeID, err)
			continue
		}

		for _, ec := range person.Employers() {
			for _, period := range ec.Periods() {
				if !remindable(period.State()) {
					continue
				}
				if err := rs.remind(ctx, employeeID, ec.EmployerID(), period, now); err != nil {
					log.Printf("[Scheduler] Error reminding period %s: %v", period.ID(), err)
					continue
				}
				remindedCount++
			}
		}
	}

	if remindedCount > 0 {
		log.Printf("[Scheduler] Completed: %d reminders dispatched", remindedCount)
	}
}

// remindable reports whether a state has pending data worth re-requesting.
// Held periods wait on a sibling, not on the outside world, so they are
// left alone.
func remindable(s claim.State) bool {
	if s.Unsettled() || s == claim.StateAwaitingPriorPeriod {
		return false
	}
	switch {
	case s.CollectingDocuments():
		return true
	case s == claim.StateAwaitingEligibilityCheck,
		s == claim.StateAwaitingBenefitHistory,
		s == claim.StateAwaitingSimulation,
		s == claim.StateAwaitingManualApproval:
		return true
	}
	return false
}

func (rs *ReminderScheduler) remind(ctx context.Context, employeeID, employerID string, period *claim.ClaimPeriod, now time.Time) error {
	reminder := claim.Reminder{
		EventMeta: claim.EventMeta{
			ID:         fmt.Sprintf("reminder-%s-%d", period.ID(), now.UnixNano()),
			EmployeeID: employeeID,
			EmployerID: employerID,
			At:         now,
		},
		PeriodID: period.ID(),
		InState:  period.State(),
	}

	payload, err := json.Marshal(reminder)
	if err != nil {
		return err
	}

	_, err = rs.Mediator.Dispatch(ctx, reminder, payload)
	return err
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.checkAndRemind()
}

func (rs *ReminderScheduler) setNextRun(at time.Time) {
	rs.nextMu.Lock()
	rs.nextRun = at
	rs.nextMu.Unlock()
}

// GetNextRunTime returns when the next scheduled check will occur, or the
// zero time while the scheduler is not running.
func (rs *ReminderScheduler) GetNextRunTime() time.Time {
	rs.nextMu.Lock()
	defer rs.nextMu.Unlock()
	return rs.nextRun
}
