/*
Package mediator connects the engine to its collaborators.

PURPOSE:
  One Dispatch call per inbound event:

    1. append the event to the durable log (duplicates are skipped)
    2. load the employee's snapshot, or start a fresh aggregate
    3. apply the event
    4. persist the new snapshot and the audit entries
    5. hand the outcome's signals to the publisher

  The mediator owns all I/O ordering so the aggregate itself can stay
  pure. The event log is written before the aggregate runs: even a
  rejected event is part of the record.

SEE ALSO:
  - claim: the aggregate being driven
  - store/sqlite: the durable stores
*/
package mediator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/serde"
	"github.com/warp/benefit-engine/store/sqlite"
)

// Store is the persistence surface the mediator needs. *sqlite.Store
// satisfies it.
type Store interface {
	AppendEvent(ctx context.Context, rec sqlite.EventRecord) error
	LoadSnapshot(ctx context.Context, employeeID string) ([]byte, error)
	SaveSnapshot(ctx context.Context, employeeID string, schemaVersion int, snapshot []byte) error
	AppendAudit(ctx context.Context, employeeID string, entries []claim.AuditEntry) error
}

// Publisher receives the outcome's signals for delivery to downstream
// systems.
type Publisher interface {
	Publish(ctx context.Context, employeeID string, signal claim.Signal) error
}

// ErrDuplicateEvent mirrors the store's sentinel for callers that do not
// import the store package.
var ErrDuplicateEvent = sqlite.ErrDuplicateEvent

// Mediator dispatches events through the aggregate.
type Mediator struct {
	store     Store
	publisher Publisher
}

func New(store Store, publisher Publisher) *Mediator {
	return &Mediator{store: store, publisher: publisher}
}

// Dispatch runs one event through the engine. payload is the raw encoded
// event for the durable log. A re-delivered event id returns
// ErrDuplicateEvent without touching the aggregate.
func (m *Mediator) Dispatch(ctx context.Context, ev claim.Event, payload []byte) (claim.Outcome, error) {
	meta := ev.Meta()

	err := m.store.AppendEvent(ctx, sqlite.EventRecord{
		ID:         meta.ID,
		EmployeeID: meta.EmployeeID,
		EmployerID: meta.EmployerID,
		Kind:       eventKind(ev),
		Payload:    payload,
		ProducedAt: meta.At,
	})
	if err != nil {
		if errors.Is(err, sqlite.ErrDuplicateEvent) {
			return claim.Outcome{}, ErrDuplicateEvent
		}
		return claim.Outcome{}, fmt.Errorf("store event %s: %w", meta.ID, err)
	}

	person, err := m.loadPerson(ctx, meta.EmployeeID)
	if err != nil {
		return claim.Outcome{}, err
	}

	out := person.Apply(ev)

	if out.Status != claim.StatusRejected {
		snapshot, err := serde.Marshal(person)
		if err != nil {
			return out, err
		}
		if err := m.store.SaveSnapshot(ctx, meta.EmployeeID, serde.SchemaVersion, snapshot); err != nil {
			return out, fmt.Errorf("save snapshot for %s: %w", meta.EmployeeID, err)
		}
	}

	if err := m.store.AppendAudit(ctx, meta.EmployeeID, out.Audit); err != nil {
		return out, fmt.Errorf("append audit for %s: %w", meta.EmployeeID, err)
	}

	for _, signal := range out.Signals {
		if err := m.publisher.Publish(ctx, meta.EmployeeID, signal); err != nil {
			return out, fmt.Errorf("publish signal for %s: %w", meta.EmployeeID, err)
		}
	}

	return out, nil
}

// Load returns the current aggregate for an employee, or a fresh one.
func (m *Mediator) Load(ctx context.Context, employeeID string) (*claim.Person, error) {
	return m.loadPerson(ctx, employeeID)
}

func (m *Mediator) loadPerson(ctx context.Context, employeeID string) (*claim.Person, error) {
	snapshot, err := m.store.LoadSnapshot(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", employeeID, err)
	}
	if snapshot == nil {
		return claim.NewPerson(employeeID), nil
	}
	person, err := serde.Unmarshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", employeeID, err)
	}
	return person, nil
}

func eventKind(ev claim.Event) string {
	switch ev.(type) {
	case claim.MedicalCertificate:
		return "medical_certificate"
	case claim.ClaimApplication:
		return "claim_application"
	case claim.EmployerNotice:
		return "employer_notice"
	case claim.EligibilityData:
		return "eligibility_data"
	case claim.BenefitHistory:
		return "benefit_history"
	case claim.SimulationResult:
		return "simulation_result"
	case claim.ManualDecision:
		return "manual_decision"
	case claim.PaymentReceipt:
		return "payment_receipt"
	case claim.Reminder:
		return "reminder"
	default:
		return fmt.Sprintf("%T", ev)
	}
}

// LogPublisher writes signals to the process log. The default publisher
// for local runs; production wires a message broker here.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, employeeID string, signal claim.Signal) error {
	switch s := signal.(type) {
	case claim.NeedsData:
		log.Printf("signal employee=%s period=%s needs=%s", employeeID, s.PeriodID, s.Kind)
	case claim.StateChanged:
		log.Printf("signal employee=%s period=%s state %s -> %s", employeeID, s.PeriodID, s.Previous, s.Current)
	case claim.ReadyForPayment:
		log.Printf("signal employee=%s period=%s ready for payment", employeeID, s.PeriodID)
	default:
		log.Printf("signal employee=%s %T", employeeID, signal)
	}
	return nil
}
