package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// LoadReferencePrices reads product_type, region, xof_per_liter rows. A
// header row and rows with an unparseable price are skipped.
func LoadReferencePrices(ctx context.Context, repo Repository, sheetRange string) ([]models.ReferencePrice, error) {
	rows, err := repo.ReadRange(ctx, sheetRange)
	if err != nil {
		return nil, err
	}
	return ParseReferencePrices(rows), nil
}

// ParseReferencePrices converts raw sheet rows into reference prices.
func ParseReferencePrices(rows [][]interface{}) []models.ReferencePrice {
	var out []models.ReferencePrice
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		product := strings.TrimSpace(fmt.Sprint(row[0]))
		region := strings.TrimSpace(fmt.Sprint(row[1]))
		price, err := decimal.NewFromString(strings.TrimSpace(fmt.Sprint(row[2])))
		if err != nil || !price.IsPositive() {
			continue
		}
		if _, ok := models.ProductType(product).ShelfLife(); !ok {
			continue
		}
		out = append(out, models.ReferencePrice{
			ProductType: models.ProductType(product),
			Region:      region,
			XOFPerLiter: price,
		})
	}
	return out
}

// SLASnapshotRows renders snapshots as sheet rows:
// month, custodian, lots, breaches, spoiled, disputes, score, category, penalty.
func SLASnapshotRows(snaps []models.SLASnapshot) [][]interface{} {
	rows := make([][]interface{}, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []interface{}{
			s.Month,
			s.CustodianID,
			s.LotsReceived,
			s.TempBreaches,
			s.SpoiledLots,
			s.Disputes,
			fmt.Sprintf("%.1f", s.Score),
			string(s.Category),
			string(s.PenaltyStatus),
		})
	}
	return rows
}
