package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

func TestDecimalCodec_StoresDecimal128(t *testing.T) {
	reg := NewRegistry()
	adv := models.Advance{
		ID:        "ADV-1",
		Principal: decimal.NewFromInt(100000),
		FeeRate:   decimal.RequireFromString("0.05"),
		Fee:       decimal.NewFromInt(5000),
	}

	raw, err := bson.MarshalWithRegistry(reg, adv)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.IsType(t, primitive.Decimal128{}, doc["principal_xof"])

	var back models.Advance
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, adv.Principal.Equal(back.Principal))
	assert.True(t, adv.FeeRate.Equal(back.FeeRate))
	assert.True(t, adv.Outstanding().Equal(back.Outstanding()))
}

func TestDecimalCodec_AcceptsLegacyNumbers(t *testing.T) {
	reg := NewRegistry()
	raw, err := bson.Marshal(bson.M{"_id": "LOT-1", "quantity_liters": 500.5})
	require.NoError(t, err)

	var lot models.DairyLot
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &lot))
	assert.Equal(t, "500.5", lot.QuantityLiters.String())

	raw, err = bson.Marshal(bson.M{"_id": "LOT-2", "quantity_liters": "12.25"})
	require.NoError(t, err)
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &lot))
	assert.Equal(t, "12.25", lot.QuantityLiters.String())
}
