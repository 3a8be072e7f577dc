package advances

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	th "github.com/mamadbah2/dairy-dwr/internal/testhelper"
)

func newTestService(env *th.Env) *Service {
	policy := Policy{MaxLTV: decimal.RequireFromString("0.7"), LenderID: "E-PLAT-001"}
	return NewService(env.Store, env.Directory, env.Authority, env.Oracle, policy, nil).WithClock(env.Clock.Now)
}

func issueInput(receiptID string) IssueInput {
	return IssueInput{
		ReceiptID: receiptID,
		Principal: decimal.NewFromInt(100000),
		FeeRate:   decimal.RequireFromString("0.05"),
		TenorDays: 7,
	}
}

func TestIssue_Success(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	adv, err := svc.Issue(ctx, th.Owner, issueInput(r.ID))
	require.NoError(t, err)

	assert.Equal(t, models.AdvanceActive, adv.Status)
	assert.True(t, adv.Fee.Equal(decimal.NewFromInt(5000)), "fee %s", adv.Fee)
	assert.Equal(t, th.Now.Add(7*24*time.Hour), adv.DueAt)
	assert.Equal(t, "E-PLAT-001", adv.ProviderID)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptAdvanceActive, got.Status)
	assert.True(t, got.LienActive)
	assert.Equal(t, "E-PLAT-001", got.LienHolderID)

	assert.Equal(t, []string{models.EventAdvanceCreated, models.EventReceiptTransitioned},
		th.EventTypes(th.Trail(t, env, r.ID)))
}

func TestIssue_DuplicateAdvanceLeavesOriginalUntouched(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	first, err := svc.Issue(ctx, th.Platform, issueInput(r.ID))
	require.NoError(t, err)

	in := issueInput(r.ID)
	in.Principal = decimal.NewFromInt(10000)
	_, err = svc.Issue(ctx, th.Platform, in)
	require.ErrorIs(t, err, models.ErrDuplicateAdvance)

	stored, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, stored.Status)
	assert.True(t, first.Principal.Equal(stored.Principal))
	assert.Len(t, th.Trail(t, env, r.ID), 2)
}

func TestIssue_ConcurrentRequestsYieldOneActiveAdvance(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Issue(context.Background(), th.Platform, issueInput(r.ID))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		}
	}
	assert.Equal(t, 1, ok)

	active, err := env.Store.ListActiveAdvances(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestIssue_Guards(t *testing.T) {
	tests := []struct {
		name    string
		actor   models.Actor
		status  models.ReceiptStatus
		lot     func(*models.DairyLot)
		mutate  func(*IssueInput)
		wantErr error
	}{
		{name: "buyer forbidden", actor: th.Buyer, status: models.ReceiptActive, wantErr: models.ErrForbidden},
		{name: "other owner forbidden", actor: th.OtherOwner, status: models.ReceiptActive, wantErr: models.ErrForbidden},
		{name: "pending sale", actor: th.Platform, status: models.ReceiptPendingSale, wantErr: models.ErrReceiptNotActive},
		{name: "disputed", actor: th.Platform, status: models.ReceiptDisputed, wantErr: models.ErrReceiptNotActive},
		{name: "quarantined lot", actor: th.Platform, status: models.ReceiptActive,
			lot: func(l *models.DairyLot) { l.Status = models.LotQuarantined }, wantErr: models.ErrIllegalTransition},
		{name: "over ltv", actor: th.Platform, status: models.ReceiptActive,
			mutate: func(in *IssueInput) { in.Principal = decimal.NewFromInt(175001) }, wantErr: models.ErrOverCollateralized},
		{name: "requested ltv lower", actor: th.Platform, status: models.ReceiptActive,
			mutate: func(in *IssueInput) { in.LTV = decimal.RequireFromString("0.3") }, wantErr: models.ErrOverCollateralized},
		{name: "requested ltv above max", actor: th.Platform, status: models.ReceiptActive,
			mutate: func(in *IssueInput) { in.LTV = decimal.RequireFromString("0.8") }, wantErr: models.ErrValidation},
		{name: "negative fee", actor: th.Platform, status: models.ReceiptActive,
			mutate: func(in *IssueInput) { in.FeeRate = decimal.NewFromInt(-1) }, wantErr: models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := th.NewEnv(t)
			var lotMut []func(*models.DairyLot)
			if tt.lot != nil {
				lotMut = append(lotMut, tt.lot)
			}
			r := th.SeedReceipt(t, env, th.SeedLot(t, env, lotMut...), tt.status)
			in := issueInput(r.ID)
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			_, err := newTestService(env).Issue(context.Background(), tt.actor, in)
			require.ErrorIs(t, err, tt.wantErr)

			got, err := env.Store.GetReceipt(context.Background(), r.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.False(t, got.LienActive)
		})
	}
}

func TestIssue_ExpiredReceipt(t *testing.T) {
	env := th.NewEnv(t)
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)
	env.Clock.Advance(49 * time.Hour)

	_, err := newTestService(env).Issue(context.Background(), th.Platform, issueInput(r.ID))
	require.ErrorIs(t, err, models.ErrExpired)

	_, err = env.Store.FindActiveAdvance(context.Background(), r.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "advance rolled back with the failed transition")
}

func TestEstimateValue_UsesOwnerRegionPrice(t *testing.T) {
	env := th.NewEnv(t)
	env.Directory.SetPrices([]models.ReferencePrice{
		{ProductType: models.ProductRawMilk, Region: "Sikasso", XOFPerLiter: decimal.NewFromInt(450)},
	})
	svc := newTestService(env)

	lot := models.DairyLot{OwnerEntityID: "E-WG-001", ProductType: models.ProductRawMilk, QuantityLiters: decimal.NewFromInt(500)}
	assert.Equal(t, "225000", svc.EstimateValue(lot).String())

	lot.OwnerEntityID = "E-COOP-001"
	assert.Equal(t, "250000", svc.EstimateValue(lot).String(), "falls back to default price")
}

func TestRepay(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	adv, err := svc.Issue(ctx, th.Owner, issueInput(r.ID))
	require.NoError(t, err)

	env.Clock.Advance(time.Hour)
	repaid, err := svc.Repay(ctx, th.Owner, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceRepaid, repaid.Status)
	require.NotNil(t, repaid.RepaidAt)
	assert.Equal(t, th.Now.Add(time.Hour), *repaid.RepaidAt)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptActive, got.Status)
	assert.False(t, got.LienActive)

	events := len(th.Trail(t, env, r.ID))
	again, err := svc.Repay(ctx, th.Owner, adv.ID)
	require.NoError(t, err, "repay is idempotent")
	assert.Equal(t, repaid.RepaidAt, again.RepaidAt)
	assert.Len(t, th.Trail(t, env, r.ID), events, "no event for a no-op repay")

	_, err = svc.Issue(ctx, th.Owner, issueInput(r.ID))
	assert.NoError(t, err, "a new advance may follow repayment")
}

func TestRepay_FrozenWhileDisputed(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	adv, err := svc.Issue(ctx, th.Platform, issueInput(r.ID))
	require.NoError(t, err)

	got, err := env.Store.GetReceipt(ctx, r.ID)
	require.NoError(t, err)
	got.Status = models.ReceiptDisputed
	got.PriorStatus = models.ReceiptAdvanceActive
	require.NoError(t, env.Store.UpdateReceipt(ctx, &got))

	_, err = svc.Repay(ctx, th.Platform, adv.ID)
	require.ErrorIs(t, err, models.ErrIllegalTransition)

	stored, err := svc.Get(ctx, adv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceActive, stored.Status)
}

func TestOverdue(t *testing.T) {
	env := th.NewEnv(t)
	svc := newTestService(env)
	ctx := context.Background()
	r := th.SeedReceipt(t, env, th.SeedLot(t, env), models.ReceiptActive)

	adv, err := svc.Issue(ctx, th.Platform, issueInput(r.ID))
	require.NoError(t, err)

	overdue, err := svc.Overdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	env.Clock.Advance(8 * 24 * time.Hour)
	overdue, err = svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, adv.ID, overdue[0].ID)
}
