package models

import "github.com/shopspring/decimal"

// EntityType classifies owners, buyers and the platform itself.
type EntityType string

const (
	EntityWomenGroup      EntityType = "women_group"
	EntityWomanIndividual EntityType = "woman_individual"
	EntityCoop            EntityType = "coop"
	EntityCompany         EntityType = "company"
	EntityBuyer           EntityType = "buyer"
	EntityPlatform        EntityType = "platform"
)

// Entity is a party that can own lots, buy them or run the platform.
type Entity struct {
	EntityID      string     `json:"entity_id"`
	EntityType    EntityType `json:"entity_type"`
	Name          string     `json:"name"`
	ContactName   string     `json:"contact_name"`
	Phone         string     `json:"phone"`
	Region        string     `json:"region"`
	LegalStatus   string     `json:"legal_status"`
	MobileMoneyID string     `json:"mobile_money_id"`
}

// Custodian operates cold storage (collection centres, chillers, processors).
type Custodian struct {
	CustodianID   string `json:"custodian_id"`
	CustodianType string `json:"custodian_type"`
	Name          string `json:"name"`
	Region        string `json:"region"`
	LicenseStatus string `json:"license_status"`
	PowerSource   string `json:"power_source"`
	Phone         string `json:"phone"`
}

// Tank is a cooling tank held by a custodian.
type Tank struct {
	TankID         string          `json:"tank_id"`
	CustodianID    string          `json:"custodian_id"`
	CapacityLiters decimal.Decimal `json:"capacity_liters"`
	CoolingType    string          `json:"cooling_type"`
	TempMinC       float64         `json:"temp_min_c"`
	TempMaxC       float64         `json:"temp_max_c"`
	OwnershipModel string          `json:"ownership_model"`
	OwnerEntityID  string          `json:"owner_entity_id"`
}

// ReferencePrice is one row of the reference price table.
type ReferencePrice struct {
	ProductType ProductType     `json:"product_type"`
	Region      string          `json:"region"`
	XOFPerLiter decimal.Decimal `json:"xof_per_liter"`
}
