package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

type fakeRepo struct {
	rows [][]interface{}
	err  error
}

func (f *fakeRepo) WriteRows(context.Context, string, [][]interface{}) error { return nil }

func (f *fakeRepo) ReadRange(context.Context, string) ([][]interface{}, error) {
	return f.rows, f.err
}

func TestLoadReferencePrices(t *testing.T) {
	repo := &fakeRepo{rows: [][]interface{}{
		{"product_type", "region", "xof_per_liter"},
		{"raw_milk", "Sikasso", "450"},
		{"yogurt", " Bamako ", 900},
		{"camel_milk", "Gao", "700"},
		{"butter", "Bamako"},
		{"ghee", "Bamako", "-3"},
	}}

	prices, err := LoadReferencePrices(context.Background(), repo, "ReferencePrices!A:C")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, models.ProductRawMilk, prices[0].ProductType)
	assert.Equal(t, "450", prices[0].XOFPerLiter.String())
	assert.Equal(t, "Bamako", prices[1].Region)
}

func TestLoadReferencePrices_PropagatesReadError(t *testing.T) {
	_, err := LoadReferencePrices(context.Background(), &fakeRepo{err: errors.New("quota")}, "x")
	assert.Error(t, err)
}

func TestSLASnapshotRows(t *testing.T) {
	rows := SLASnapshotRows([]models.SLASnapshot{{
		Month: "2026-09", CustodianID: "C-MCC-001", LotsReceived: 4, TempBreaches: 1,
		Score: 92, Category: models.SLAExcellent, PenaltyStatus: models.PenaltyOK,
	}})
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{"2026-09", "C-MCC-001", 4, 1, 0, 0, "92.0", "Excellent", "ok"}, rows[0])
}
