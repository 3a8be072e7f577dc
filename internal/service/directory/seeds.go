package directory

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
)

// SeedEntities are the pilot's owners, buyer and platform entity.
var SeedEntities = []models.Entity{
	{EntityID: "E-WG-001", EntityType: models.EntityWomenGroup, Name: "Association Femmes Laitières de Sikasso", ContactName: "Awa Traoré", Phone: "+22370000001", Region: "Sikasso", LegalStatus: "informal_registered", MobileMoneyID: "OM-AWA-001"},
	{EntityID: "E-WI-001", EntityType: models.EntityWomanIndividual, Name: "Fatoumata Diallo (Transformatrice)", ContactName: "Fatoumata Diallo", Phone: "+22370000002", Region: "Koulikoro", LegalStatus: "informal_registered", MobileMoneyID: "OM-FAT-001"},
	{EntityID: "E-COOP-001", EntityType: models.EntityCoop, Name: "Coopérative Lait Bamako", ContactName: "Mariama Koné", Phone: "+22370000003", Region: "Bamako", LegalStatus: "formal", MobileMoneyID: "OM-COOP-001"},
	{EntityID: "E-COMP-001", EntityType: models.EntityCompany, Name: "LaitMali SARL", ContactName: "Moussa Keita", Phone: "+22370000004", Region: "Bamako", LegalStatus: "formal", MobileMoneyID: "OM-LAIT-001"},
	{EntityID: "E-BUY-001", EntityType: models.EntityBuyer, Name: "Hôpital Régional Sikasso", ContactName: "Procurement", Phone: "+22370000005", Region: "Sikasso", LegalStatus: "formal", MobileMoneyID: "OM-HOSP-001"},
	{EntityID: "E-PLAT-001", EntityType: models.EntityPlatform, Name: "Mali Dairy DWR Platform", ContactName: "Admin", Phone: "+22370000099", Region: "Bamako", LegalStatus: "formal", MobileMoneyID: "PLAT"},
}

// SeedCustodians are the pilot's cold-storage sites.
var SeedCustodians = []models.Custodian{
	{CustodianID: "C-MCC-001", CustodianType: "mcc", Name: "Centre de Collecte Sikasso", Region: "Sikasso", LicenseStatus: "licensed", PowerSource: "solar+grid"},
	{CustodianID: "C-CHILL-001", CustodianType: "chilling_center", Name: "Chiller Koulikoro", Region: "Koulikoro", LicenseStatus: "licensed", PowerSource: "grid"},
	{CustodianID: "C-PROC-001", CustodianType: "processor", Name: "Mini-Usine Bamako", Region: "Bamako", LicenseStatus: "licensed", PowerSource: "grid"},
}

// SeedTanks are the pilot's cooling tanks.
var SeedTanks = []models.Tank{
	{TankID: "T-500-001", CustodianID: "C-MCC-001", CapacityLiters: decimal.NewFromInt(500), CoolingType: "direct_expansion", TempMinC: 2, TempMaxC: 6, OwnershipModel: "rental", OwnerEntityID: "E-PLAT-001"},
	{TankID: "T-1000-001", CustodianID: "C-CHILL-001", CapacityLiters: decimal.NewFromInt(1000), CoolingType: "ice_bank", TempMinC: 2, TempMaxC: 6, OwnershipModel: "rent_to_own", OwnerEntityID: "E-PLAT-001"},
	{TankID: "T-300-001", CustodianID: "C-PROC-001", CapacityLiters: decimal.NewFromInt(300), CoolingType: "direct_expansion", TempMinC: 2, TempMaxC: 6, OwnershipModel: "owned", OwnerEntityID: "E-COMP-001"},
}
