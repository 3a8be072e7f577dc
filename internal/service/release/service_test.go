package release

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	th "github.com/mamadbah2/dairy-dwr/internal/testhelper"
)

type recordingNotifier struct {
	released []models.ReleaseOrder
}

func (n *recordingNotifier) ReleaseConfirmed(_ context.Context, o models.ReleaseOrder, _ models.Receipt) {
	n.released = append(n.released, o)
}

func newTestService(env *th.Env, n notifier) *Service {
	return NewService(env.Store, env.Directory, env.Authority, env.Oracle, n, nil).WithClock(env.Clock.Now)
}

func TestReleaseRoundTrip(t *testing.T) {
	env := th.NewEnv(t)
	n := &recordingNotifier{}
	svc := newTestService(env, n)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptSold)

	o, err := svc.CreateReleaseOrder(ctx, th.Buyer, r.ID, "E-BUY-001", "pickup 07:00")
	require.NoError(t, err)
	assert.Equal(t, models.ReleasePending, o.Status)
	assert.Equal(t, "C-MCC-001", o.CustodianID)

	_, err = svc.CreateReleaseOrder(ctx, th.Buyer, r.ID, "E-BUY-001", "")
	assert.ErrorIs(t, err, models.ErrConflict)

	// Dispatch happens after the lot's shelf life has run out.
	env.Clock.Advance(72 * time.Hour)
	done, err := svc.ConfirmRelease(ctx, th.Custodian, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReleaseReleased, done.Status)
	assert.Equal(t, "mcc", done.ConfirmedBy)
	require.Len(t, n.released, 1)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptReleased, got.Status)
	assert.True(t, got.Status.IsTerminal())

	_, err = svc.ConfirmRelease(ctx, th.Platform, o.ID)
	assert.ErrorIs(t, err, models.ErrNotPending)

	assert.Equal(t, []string{
		models.EventReleaseOrderCreated,
		models.EventReleaseConfirmed,
		models.EventReceiptTransitioned,
	}, th.EventTypes(th.Trail(t, env, r.ID)))
}

func TestCreateReleaseOrder_RequiresSold(t *testing.T) {
	for _, status := range []models.ReceiptStatus{models.ReceiptActive, models.ReceiptPendingSale, models.ReceiptDisputed, models.ReceiptReleased} {
		t.Run(string(status), func(t *testing.T) {
			env := th.NewEnv(t)
			r := th.SeedReceipt(t, env, th.SeedLot(t, env), status)

			_, err := newTestService(env, nil).CreateReleaseOrder(context.Background(), th.Platform, r.ID, "E-BUY-001", "")
			assert.ErrorIs(t, err, models.ErrIllegalTransition)
		})
	}
}

func TestConfirmRelease_Forbidden(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptSold)
	o, err := svc.CreateReleaseOrder(ctx, th.Platform, r.ID, "E-BUY-001", "")
	require.NoError(t, err)

	otherSite := models.Actor{Username: "chiller", Role: models.RoleCustodian, EntityID: "C-CC-001"}
	for _, actor := range []models.Actor{th.Owner, th.Buyer, th.Government, otherSite} {
		_, err := svc.ConfirmRelease(ctx, actor, o.ID)
		assert.ErrorIs(t, err, models.ErrForbidden, actor.Username)
	}

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptSold, got.Status)
}

func TestConfirmRelease_UnknownOrder(t *testing.T) {
	env := th.NewEnv(t)

	_, err := newTestService(env, nil).ConfirmRelease(context.Background(), th.Platform, "RO-NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
