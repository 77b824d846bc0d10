package mediator_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/mediator"
	"github.com/warp/benefit-engine/store/sqlite"
	"github.com/warp/benefit-engine/timeline"
)

type capturePublisher struct {
	signals []claim.Signal
}

func (c *capturePublisher) Publish(_ context.Context, _ string, s claim.Signal) error {
	c.signals = append(c.signals, s)
	return nil
}

func setup(t *testing.T) (*mediator.Mediator, *sqlite.Store, *capturePublisher) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	pub := &capturePublisher{}
	return mediator.New(store, pub), store, pub
}

func cert(id string) claim.MedicalCertificate {
	return claim.MedicalCertificate{
		EventMeta: claim.EventMeta{
			ID:         id,
			EmployeeID: "12029912345",
			EmployerID: "org-1",
			At:         time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC),
		},
		Periods: []claim.CertificatePeriod{{
			Interval: claim.Interval{
				From: timeline.NewDate(2018, time.January, 3),
				To:   timeline.NewDate(2018, time.January, 26),
			},
			Grade: 100,
		}},
	}
}

func TestDispatch_PersistsSnapshotAndAudit(t *testing.T) {
	m, store, pub := setup(t)
	ctx := context.Background()

	out, err := m.Dispatch(ctx, cert("cert-1"), []byte(`{"kind":"medical_certificate"}`))
	require.NoError(t, err)
	assert.Equal(t, claim.StatusApplied, out.Status)
	assert.NotEmpty(t, pub.signals)

	snapshot, err := store.LoadSnapshot(ctx, "12029912345")
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	trail, err := store.LoadAudit(ctx, "12029912345")
	require.NoError(t, err)
	assert.NotEmpty(t, trail)

	person, err := m.Load(ctx, "12029912345")
	require.NoError(t, err)
	require.Len(t, person.Employers(), 1)
	assert.Equal(t, claim.StateAwaitingApplicationAndNoticeGap, person.Employers()[0].Periods()[0].State())
}

func TestDispatch_SkipsRedeliveredEvents(t *testing.T) {
	m, _, pub := setup(t)
	ctx := context.Background()

	_, err := m.Dispatch(ctx, cert("cert-1"), []byte(`{}`))
	require.NoError(t, err)
	published := len(pub.signals)

	_, err = m.Dispatch(ctx, cert("cert-1"), []byte(`{}`))

	assert.ErrorIs(t, err, mediator.ErrDuplicateEvent)
	assert.Len(t, pub.signals, published, "a re-delivered event publishes nothing")
}

func TestDispatch_RejectedEventLeavesNoSnapshot(t *testing.T) {
	m, store, _ := setup(t)
	ctx := context.Background()

	malformed := cert("cert-1")
	malformed.Periods = nil

	out, err := m.Dispatch(ctx, malformed, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, claim.StatusRejected, out.Status)

	snapshot, err := store.LoadSnapshot(ctx, "12029912345")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	trail, err := store.LoadAudit(ctx, "12029912345")
	require.NoError(t, err)
	assert.NotEmpty(t, trail, "the rejection itself is audit-logged")
}
