package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

func TestDirectory_Seeds(t *testing.T) {
	d := New(decimal.NewFromInt(500), nil)

	e, err := d.Entity("E-WG-001")
	require.NoError(t, err)
	assert.Equal(t, "Sikasso", e.Region)

	tank, err := d.Tank("T-500-001")
	require.NoError(t, err)
	assert.Equal(t, "C-MCC-001", tank.CustodianID)

	_, err = d.Custodian("C-NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)

	custodians := d.Custodians()
	require.Len(t, custodians, 3)
	assert.Equal(t, "C-CHILL-001", custodians[0].CustodianID)
}

func TestDirectory_PricePerLiter(t *testing.T) {
	d := New(decimal.NewFromInt(500), nil)
	assert.Equal(t, "500", d.PricePerLiter(models.ProductRawMilk, "Sikasso").String())

	err := d.RefreshPrices(context.Background(), func(context.Context) ([]models.ReferencePrice, error) {
		return []models.ReferencePrice{{ProductType: models.ProductRawMilk, Region: "Sikasso", XOFPerLiter: decimal.NewFromInt(450)}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "450", d.PricePerLiter(models.ProductRawMilk, "Sikasso").String())
	assert.Equal(t, "500", d.PricePerLiter(models.ProductRawMilk, "Bamako").String())

	err = d.RefreshPrices(context.Background(), func(context.Context) ([]models.ReferencePrice, error) {
		return nil, errors.New("sheets down")
	})
	require.Error(t, err)
	assert.Equal(t, "450", d.PricePerLiter(models.ProductRawMilk, "Sikasso").String(), "previous table kept")
}
