// Package directory serves read-mostly reference data: entities, custodians,
// tanks and the reference price table used for collateral valuation.
package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// PriceLoader fetches the current reference price table.
type PriceLoader func(ctx context.Context) ([]models.ReferencePrice, error)

type priceKey struct {
	product models.ProductType
	region  string
}

// Directory is safe for concurrent use. Only the price table changes after
// construction.
type Directory struct {
	entities   map[string]models.Entity
	custodians map[string]models.Custodian
	tanks      map[string]models.Tank

	mu           sync.RWMutex
	prices       map[priceKey]decimal.Decimal
	defaultPrice decimal.Decimal

	logger *zap.Logger
}

// New builds a Directory from the pilot seeds.
func New(defaultPrice decimal.Decimal, logger *zap.Logger) *Directory {
	return NewWith(SeedEntities, SeedCustodians, SeedTanks, defaultPrice, logger)
}

// NewWith builds a Directory from explicit reference data.
func NewWith(entities []models.Entity, custodians []models.Custodian, tanks []models.Tank, defaultPrice decimal.Decimal, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{
		entities:     make(map[string]models.Entity, len(entities)),
		custodians:   make(map[string]models.Custodian, len(custodians)),
		tanks:        make(map[string]models.Tank, len(tanks)),
		prices:       map[priceKey]decimal.Decimal{},
		defaultPrice: defaultPrice,
		logger:       logger,
	}
	for _, e := range entities {
		d.entities[e.EntityID] = e
	}
	for _, c := range custodians {
		d.custodians[c.CustodianID] = c
	}
	for _, t := range tanks {
		d.tanks[t.TankID] = t
	}
	return d
}

// Entity returns an owner, buyer or platform entity.
func (d *Directory) Entity(id string) (models.Entity, error) {
	e, ok := d.entities[id]
	if !ok {
		return models.Entity{}, fmt.Errorf("entity %s: %w", id, models.ErrNotFound)
	}
	return e, nil
}

// Custodian returns a custodian by id.
func (d *Directory) Custodian(id string) (models.Custodian, error) {
	c, ok := d.custodians[id]
	if !ok {
		return models.Custodian{}, fmt.Errorf("custodian %s: %w", id, models.ErrNotFound)
	}
	return c, nil
}

// Custodians lists every custodian ordered by id.
func (d *Directory) Custodians() []models.Custodian {
	out := make([]models.Custodian, 0, len(d.custodians))
	for _, c := range d.custodians {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustodianID < out[j].CustodianID })
	return out
}

// Tank returns a tank by id.
func (d *Directory) Tank(id string) (models.Tank, error) {
	t, ok := d.tanks[id]
	if !ok {
		return models.Tank{}, fmt.Errorf("tank %s: %w", id, models.ErrNotFound)
	}
	return t, nil
}

// SetPrices replaces the reference price table.
func (d *Directory) SetPrices(prices []models.ReferencePrice) {
	table := make(map[priceKey]decimal.Decimal, len(prices))
	for _, p := range prices {
		table[priceKey{product: p.ProductType, region: p.Region}] = p.XOFPerLiter
	}

	d.mu.Lock()
	d.prices = table
	d.mu.Unlock()
}

// PricePerLiter returns the reference price for a product in a region, or
// the default price when no row matches.
func (d *Directory) PricePerLiter(product models.ProductType, region string) decimal.Decimal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.prices[priceKey{product: product, region: region}]; ok {
		return p
	}
	return d.defaultPrice
}

// RefreshPrices reloads the price table. On failure the previous table is kept.
func (d *Directory) RefreshPrices(ctx context.Context, load PriceLoader) error {
	prices, err := load(ctx)
	if err != nil {
		return fmt.Errorf("load reference prices: %w", err)
	}
	d.SetPrices(prices)
	d.logger.Info("reference prices refreshed", zap.Int("rows", len(prices)))
	return nil
}
