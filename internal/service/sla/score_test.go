package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want float64
	}{
		{name: "no readings", in: Inputs{}, want: 100},
		{name: "within ceiling", in: Inputs{TempMaxC: f(4), TempMinC: f(1), TempAvgC: f(3.5)}, want: 100},
		{name: "one degree over", in: Inputs{TempMaxC: f(5), TempMinC: f(3), TempAvgC: f(4)}, want: 88},
		{name: "freezing", in: Inputs{TempMaxC: f(4), TempMinC: f(-0.5), TempAvgC: f(2)}, want: 94},
		{name: "warm average", in: Inputs{TempMaxC: f(4), TempAvgC: f(4.5)}, want: 97},
		{name: "breaches and disputes", in: Inputs{Breaches: 2, Disputes: 1}, want: 79},
		{name: "clamped at zero", in: Inputs{SpoiledLots: 3, Breaches: 5}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.in), 1e-9)
		})
	}
}

func TestScore_NonIncreasingInBreachesAndSpoilage(t *testing.T) {
	base := Inputs{TempMaxC: f(6), TempMinC: f(2), TempAvgC: f(4.2), Disputes: 1}

	prev := Score(base)
	for b := 1; b <= 15; b++ {
		in := base
		in.Breaches = b
		got := Score(in)
		assert.LessOrEqual(t, got, prev, "breaches=%d", b)
		prev = got
	}

	prev = Score(base)
	for s := 1; s <= 5; s++ {
		in := base
		in.SpoiledLots = s
		got := Score(in)
		assert.LessOrEqual(t, got, prev, "spoiled=%d", s)
		prev = got
	}
}

func TestClassifyAndPenalty(t *testing.T) {
	tests := []struct {
		score    float64
		category models.SLACategory
		color    models.SLAColor
		penalty  models.PenaltyStatus
	}{
		{100, models.SLAExcellent, models.SLAGreen, models.PenaltyOK},
		{90, models.SLAExcellent, models.SLAGreen, models.PenaltyOK},
		{89.9, models.SLAGood, models.SLAGreen, models.PenaltyOK},
		{75, models.SLAGood, models.SLAGreen, models.PenaltyOK},
		{60, models.SLAWatch, models.SLAAmber, models.PenaltyOK},
		{59.9, models.SLABreach, models.SLARed, models.PenaltyWarning},
		{40, models.SLABreach, models.SLARed, models.PenaltyWarning},
		{39.9, models.SLABreach, models.SLARed, models.PenaltySuspendReview},
		{0, models.SLABreach, models.SLARed, models.PenaltySuspendReview},
	}
	for _, tt := range tests {
		category, color := Classify(tt.score)
		assert.Equal(t, tt.category, category, "score %v", tt.score)
		assert.Equal(t, tt.color, color, "score %v", tt.score)
		assert.Equal(t, tt.penalty, Penalty(tt.score), "score %v", tt.score)
	}
}

func TestSummarize(t *testing.T) {
	lots := []models.DairyLot{
		{TempAvgC: 4, TempMinC: 3, TempMaxC: 5, TempBreachCount: 1, Status: models.LotActive},
		{TempAvgC: 5, TempMinC: 2, TempMaxC: 7, TempBreachCount: 2, Status: models.LotSpoiled},
	}
	snap := Summarize("C-1", "2026-09", lots, 4, []models.Dispute{{ID: "DSP-1"}})

	assert.Equal(t, "C-1|2026-09", snap.ID)
	assert.Equal(t, 2, snap.LotsReceived)
	assert.Equal(t, 3, snap.TempBreaches)
	assert.Equal(t, 1, snap.SpoiledLots)
	assert.Equal(t, 0.25, snap.DisputeRate)
	assert.InDelta(t, 4.5, *snap.AvgTempC, 1e-9)
	assert.InDelta(t, 7, *snap.MaxTempC, 1e-9)
	assert.InDelta(t, 2, *snap.MinTempC, 1e-9)
	// 100 - 24 - 36 - 3 - 5 - 25
	assert.InDelta(t, 7, snap.Score, 1e-9)
	assert.Equal(t, models.PenaltySuspendReview, snap.PenaltyStatus)

	empty := Summarize("C-2", "2026-09", nil, 0, nil)
	assert.Nil(t, empty.AvgTempC)
	assert.Equal(t, 100.0, empty.Score)
	assert.Equal(t, models.SLAExcellent, empty.Category)
}
