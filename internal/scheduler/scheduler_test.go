package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/config"
	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
)

type fakeSweeper struct{ actor models.Actor }

func (f *fakeSweeper) SweepExpired(_ context.Context, actor models.Actor) (int, error) {
	f.actor = actor
	return 2, nil
}

type fakeSLA struct {
	months []string
	err    error
}

func (f *fakeSLA) PreviousMonth() string { return "2026-08" }

func (f *fakeSLA) ComputeMonth(_ context.Context, _ models.Actor, month string) ([]models.SLASnapshot, error) {
	f.months = append(f.months, month)
	return nil, f.err
}

type fakeExporter struct{ months []string }

func (f *fakeExporter) ExportSLA(_ context.Context, month string) (int, error) {
	f.months = append(f.months, month)
	return 3, nil
}

func (f *fakeExporter) SummarizeSLA(_ context.Context, month string) (string, error) {
	return "Cold chain SLA (" + month + "): 3 custodians.", nil
}

type fakePrices struct{ calls int }

func (f *fakePrices) RefreshPrices(ctx context.Context, load directory.PriceLoader) error {
	f.calls++
	_, err := load(ctx)
	return err
}

func schedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		SweepCronSchedule:        "*/15 * * * *",
		SLACronSchedule:          "0 2 1 * *",
		PriceRefreshCronSchedule: "0 5 * * *",
		Timezone:                 "Africa/Bamako",
	}
}

func TestStart_RegistersJobs(t *testing.T) {
	s, err := NewScheduler(schedulerConfig(), "E-PLAT-001", Jobs{Receipts: &fakeSweeper{}, SLA: &fakeSLA{}}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Equal(t, 2, s.Entries())

	loader := func(context.Context) ([]models.ReferencePrice, error) { return nil, nil }
	withPrices, err := NewScheduler(schedulerConfig(), "E-PLAT-001", Jobs{Receipts: &fakeSweeper{}, SLA: &fakeSLA{}, Prices: &fakePrices{}, LoadPrices: loader}, nil)
	require.NoError(t, err)
	require.NoError(t, withPrices.Start())
	defer withPrices.Stop()
	assert.Equal(t, 3, withPrices.Entries())
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	cfg := schedulerConfig()
	cfg.SweepCronSchedule = "every quarter hour"
	s, err := NewScheduler(cfg, "E-PLAT-001", Jobs{Receipts: &fakeSweeper{}, SLA: &fakeSLA{}}, nil)
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	sla := &fakeSLA{}
	exporter := &fakeExporter{}
	prices := &fakePrices{}
	s, err := NewScheduler(schedulerConfig(), "E-PLAT-001", Jobs{
		Receipts:   sweeper,
		SLA:        sla,
		Exporter:   exporter,
		Prices:     prices,
		LoadPrices: func(context.Context) ([]models.ReferencePrice, error) { return nil, nil },
	}, nil)
	require.NoError(t, err)

	s.sweepExpired()
	assert.Equal(t, "system", sweeper.actor.Username)
	assert.Equal(t, models.RolePlatform, sweeper.actor.Role)

	s.snapshotSLA()
	assert.Equal(t, []string{"2026-08"}, sla.months)
	assert.Equal(t, []string{"2026-08"}, exporter.months)

	sla.err = errors.New("store down")
	s.snapshotSLA()
	assert.Len(t, exporter.months, 1, "no export after a failed computation")

	s.refreshPrices()
	assert.Equal(t, 1, prices.calls)
}
