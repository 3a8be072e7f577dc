package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/repository/memory"
	th "github.com/mamadbah2/dairy-dwr/internal/testhelper"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.Settlement
}

func (n *recordingNotifier) SaleSettled(_ context.Context, s models.Settlement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, s)
}

// failingStore breaks the contract update, the step after the advance is
// repaid, to prove settlement is all or nothing.
type failingStore struct {
	*memory.Store
}

func (f failingStore) UpdateContract(context.Context, models.SalesContract) error {
	return errors.New("disk full")
}

func newTestService(env *th.Env, n notifier) *Service {
	return NewService(env.Store, env.Directory, env.Authority, env.Oracle, n, nil).WithClock(env.Clock.Now)
}

func contractInput(receiptID string, price int64) CreateContractInput {
	return CreateContractInput{
		ReceiptID:     receiptID,
		BuyerEntityID: "E-BUY-001",
		Price:         decimal.NewFromInt(price),
		Terms:         models.TermsMobileMoneyInstant,
	}
}

func confirmInput(contractID string) ConfirmPaymentInput {
	return ConfirmPaymentInput{ContractID: contractID, Method: models.MethodOrangeMoney, ProviderRef: "OM-TX-001"}
}

// seedAdvanced stores a receipt in advance_active with a 100,000 + 5,000 advance.
func seedAdvanced(t *testing.T, env *th.Env) (models.Receipt, models.Advance) {
	t.Helper()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptAdvanceActive, func(r *models.Receipt) {
		r.LienActive = true
		r.LienHolderID = "E-PLAT-001"
	})
	adv := models.Advance{
		ID:        "ADV-SEED0001",
		ReceiptID: r.ID,
		Principal: decimal.NewFromInt(100000),
		FeeRate:   decimal.RequireFromString("0.05"),
		Fee:       decimal.NewFromInt(5000),
		TenorDays: 7,
		Status:    models.AdvanceActive,
	}
	require.NoError(t, env.Store.InsertAdvance(context.Background(), adv))
	return r, adv
}

func TestCreateContract(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	c, err := svc.CreateContract(ctx, th.Owner, contractInput(r.ID, 150000))
	require.NoError(t, err)
	assert.Equal(t, models.ContractPendingPayment, c.Status)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptPendingSale, got.Status)

	_, err = svc.CreateContract(ctx, th.Owner, contractInput(r.ID, 160000))
	assert.ErrorIs(t, err, models.ErrConflict, "already listed")
}

func TestCreateContract_ListingGuard(t *testing.T) {
	tests := []struct {
		name    string
		status  models.ReceiptStatus
		dispute bool
		actor   models.Actor
		wantErr error
	}{
		{name: "advance active is listable", status: models.ReceiptAdvanceActive, actor: th.Platform},
		{name: "sold", status: models.ReceiptSold, actor: th.Platform, wantErr: models.ErrNotListable},
		{name: "expired", status: models.ReceiptExpired, actor: th.Platform, wantErr: models.ErrNotListable},
		{name: "disputed", status: models.ReceiptDisputed, dispute: true, actor: th.Platform, wantErr: models.ErrNotListable},
		{name: "buyer forbidden", status: models.ReceiptActive, actor: th.Buyer, wantErr: models.ErrForbidden},
		{name: "other owner forbidden", status: models.ReceiptActive, actor: th.OtherOwner, wantErr: models.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := th.NewEnv(t)
			r := th.SeedReceipt(t, env, th.SeedLot(t, env), tt.status)
			if tt.dispute {
				require.NoError(t, env.Store.InsertDispute(context.Background(), models.Dispute{ID: "DSP-1", ReceiptID: r.ID, Status: models.DisputeOpen}))
			}

			_, err := newTestService(env, nil).CreateContract(context.Background(), tt.actor, contractInput(r.ID, 150000))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateContract_UnknownBuyer(t *testing.T) {
	env := th.NewEnv(t)
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)
	in := contractInput(r.ID, 150000)
	in.BuyerEntityID = "E-NOPE"

	_, err := newTestService(env, nil).CreateContract(context.Background(), th.Platform, in)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateContract_ConcurrentListingsOneWins(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateContract(context.Background(), th.Platform, contractInput(r.ID, int64(150000+i)))
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, models.ErrConflict)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestConfirmPayment_RepaysAdvance(t *testing.T) {
	env := th.NewEnv(t)
	n := &recordingNotifier{}
	svc := newTestService(env, n)
	ctx := context.Background()
	r, adv := seedAdvanced(t, env)

	c, err := svc.CreateContract(ctx, th.Platform, contractInput(r.ID, 150000))
	require.NoError(t, err)

	s, err := svc.ConfirmPayment(ctx, th.Platform, confirmInput(c.ID))
	require.NoError(t, err)

	assert.Equal(t, models.ContractSettled, s.Contract.Status)
	assert.Equal(t, "45000", s.Contract.NetToOwner.String())
	assert.Equal(t, models.ReceiptSold, s.Receipt.Status)
	assert.False(t, s.Receipt.LienActive)
	require.NotNil(t, s.RepaidAdvance)
	assert.Equal(t, adv.ID, s.RepaidAdvance.ID)
	assert.Equal(t, "E-WG-001", s.Payment.PayeeID)
	assert.Equal(t, "150000", s.Payment.Amount.String())

	stored, err := env.Store.GetAdvance(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceRepaid, stored.Status)

	assert.Equal(t, []string{
		models.EventContractCreated,
		models.EventReceiptTransitioned,
		models.EventPaymentConfirmed,
		models.EventAdvanceRepaid,
		models.EventSaleSettled,
		models.EventReceiptTransitioned,
	}, th.EventTypes(th.Trail(t, env, r.ID)))

	require.Len(t, n.calls, 1)
	assert.Equal(t, c.ID, n.calls[0].Contract.ID)

	_, err = svc.ConfirmPayment(ctx, th.Platform, confirmInput(c.ID))
	assert.ErrorIs(t, err, models.ErrNotPending)
}

func TestConfirmPayment_WithoutAdvance(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	c, err := svc.CreateContract(ctx, th.Owner, contractInput(r.ID, 150000))
	require.NoError(t, err)

	s, err := svc.ConfirmPayment(ctx, th.Platform, confirmInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "150000", s.Contract.NetToOwner.String())
	assert.Nil(t, s.RepaidAdvance)
}

func TestConfirmPayment_NegativeNetRecorded(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	ctx := context.Background()
	r, _ := seedAdvanced(t, env)

	c, err := svc.CreateContract(ctx, th.Platform, contractInput(r.ID, 90000))
	require.NoError(t, err)

	s, err := svc.ConfirmPayment(ctx, th.Platform, confirmInput(c.ID))
	require.NoError(t, err)
	assert.Equal(t, "-15000", s.Contract.NetToOwner.String())
}

func TestConfirmPayment_AtomicOnFailure(t *testing.T) {
	env := th.NewEnv(t)
	ctx := context.Background()
	r, adv := seedAdvanced(t, env)

	c, err := newTestService(env, nil).CreateContract(ctx, th.Platform, contractInput(r.ID, 150000))
	require.NoError(t, err)
	before := th.Trail(t, env, r.ID)

	broken := NewService(failingStore{env.Store}, env.Directory, env.Authority, env.Oracle, nil, nil).WithClock(env.Clock.Now)
	_, err = broken.ConfirmPayment(ctx, th.Platform, confirmInput(c.ID))
	require.Error(t, err)

	stored, err := env.Store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractPendingPayment, stored.Status)

	storedAdv, err := env.Store.GetAdvance(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceActive, storedAdv.Status)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptPendingSale, got.Status)
	assert.True(t, got.LienActive)

	assert.Len(t, th.Trail(t, env, r.ID), len(before))
}

func TestConfirmPayment_Guards(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env, nil)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)
	c, err := svc.CreateContract(ctx, th.Owner, contractInput(r.ID, 150000))
	require.NoError(t, err)

	_, err = svc.ConfirmPayment(ctx, th.Owner, confirmInput(c.ID))
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = svc.ConfirmPayment(ctx, th.Platform, ConfirmPaymentInput{ContractID: c.ID, Method: "cash", ProviderRef: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.ConfirmPayment(ctx, th.Platform, confirmInput("SC-NOPE"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
