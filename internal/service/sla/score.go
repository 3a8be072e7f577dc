package sla

import (
	"math"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// ColdChainCeilingC is the highest storage temperature that carries no penalty.
const ColdChainCeilingC = 4.0

// Penalty weights, in points per unit.
const (
	breachWeight    = 8
	overMaxWeight   = 12
	underMinWeight  = 12
	avgExcessWeight = 6
	disputeWeight   = 5
	spoiledWeight   = 25
)

// Inputs are the period aggregates a score is derived from. Nil
// temperatures mean no reading and carry no penalty.
type Inputs struct {
	Breaches    int
	TempMaxC    *float64
	TempMinC    *float64
	TempAvgC    *float64
	Disputes    int
	SpoiledLots int
}

// Score computes the cold-chain score, clamped to [0, 100] and rounded to one
// decimal.
func Score(in Inputs) float64 {
	score := 100.0
	score -= breachWeight * float64(in.Breaches)
	if in.TempMaxC != nil {
		score -= overMaxWeight * math.Max(0, *in.TempMaxC-ColdChainCeilingC)
	}
	if in.TempMinC != nil {
		score -= underMinWeight * math.Max(0, -*in.TempMinC)
	}
	if in.TempAvgC != nil {
		score -= avgExcessWeight * math.Max(0, *in.TempAvgC-ColdChainCeilingC)
	}
	score -= disputeWeight * float64(in.Disputes)
	score -= spoiledWeight * float64(in.SpoiledLots)

	score = math.Min(100, math.Max(0, score))
	return math.Round(score*10) / 10
}

// Classify maps a score to its display category and colour.
func Classify(score float64) (models.SLACategory, models.SLAColor) {
	switch {
	case score >= 90:
		return models.SLAExcellent, models.SLAGreen
	case score >= 75:
		return models.SLAGood, models.SLAGreen
	case score >= 60:
		return models.SLAWatch, models.SLAAmber
	default:
		return models.SLABreach, models.SLARed
	}
}

// Penalty maps a score to the enforcement action it triggers.
func Penalty(score float64) models.PenaltyStatus {
	switch {
	case score < 40:
		return models.PenaltySuspendReview
	case score < 60:
		return models.PenaltyWarning
	default:
		return models.PenaltyOK
	}
}

// Summarize aggregates a custodian's lots, receipts and disputes for one
// period into a scored snapshot. The inputs are only read.
func Summarize(custodianID, month string, lots []models.DairyLot, receiptCount int, disputes []models.Dispute) models.SLASnapshot {
	snap := models.SLASnapshot{
		ID:           models.SnapshotID(custodianID, month),
		CustodianID:  custodianID,
		Month:        month,
		LotsReceived: len(lots),
		Disputes:     len(disputes),
	}

	if len(lots) > 0 {
		var sum float64
		maxT, minT := math.Inf(-1), math.Inf(1)
		for _, l := range lots {
			sum += l.TempAvgC
			maxT = math.Max(maxT, l.TempMaxC)
			minT = math.Min(minT, l.TempMinC)
			snap.TempBreaches += l.TempBreachCount
			if l.Status == models.LotSpoiled {
				snap.SpoiledLots++
			}
		}
		avg := math.Round(sum/float64(len(lots))*100) / 100
		snap.AvgTempC, snap.MaxTempC, snap.MinTempC = &avg, &maxT, &minT
	}
	if receiptCount > 0 {
		snap.DisputeRate = math.Round(float64(len(disputes))/float64(receiptCount)*1000) / 1000
	}

	snap.Score = Score(Inputs{
		Breaches:    snap.TempBreaches,
		TempMaxC:    snap.MaxTempC,
		TempMinC:    snap.MinTempC,
		TempAvgC:    snap.AvgTempC,
		Disputes:    snap.Disputes,
		SpoiledLots: snap.SpoiledLots,
	})
	snap.Category, snap.Color = Classify(snap.Score)
	snap.PenaltyStatus = Penalty(snap.Score)
	return snap
}
