package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus is the status of a sale contract.
type ContractStatus string

const (
	ContractPendingPayment ContractStatus = "pending_payment"
	ContractSettled        ContractStatus = "settled"
)

// PaymentTerms describes how the buyer pays.
type PaymentTerms string

const (
	TermsMobileMoneyInstant PaymentTerms = "mobile_money_instant"
	TermsMobileMoneyT1      PaymentTerms = "mobile_money_T+1"
	TermsCashOnDelivery     PaymentTerms = "cash_on_delivery"
)

// Valid reports whether the terms are known.
func (t PaymentTerms) Valid() bool {
	switch t {
	case TermsMobileMoneyInstant, TermsMobileMoneyT1, TermsCashOnDelivery:
		return true
	}
	return false
}

// PaymentMethod is the settlement rail.
type PaymentMethod string

const (
	MethodOrangeMoney  PaymentMethod = "orange_money"
	MethodMoovMoney    PaymentMethod = "moov_money"
	MethodWave         PaymentMethod = "wave"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// Valid reports whether the method is known.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodOrangeMoney, MethodMoovMoney, MethodWave, MethodBankTransfer:
		return true
	}
	return false
}

// PaymentStatus is the status of a payment.
type PaymentStatus string

const PaymentConfirmed PaymentStatus = "confirmed"

// SalesContract sells the lot behind a receipt to a buyer.
type SalesContract struct {
	ID            string          `bson:"_id" json:"contract_id"`
	ReceiptID     string          `bson:"receipt_id" json:"receipt_id"`
	BuyerEntityID string          `bson:"buyer_entity_id" json:"buyer_entity_id"`
	Price         decimal.Decimal `bson:"price_xof" json:"price_xof"`
	Terms         PaymentTerms    `bson:"payment_terms" json:"payment_terms"`
	Status        ContractStatus  `bson:"status" json:"status"`
	NetToOwner    decimal.Decimal `bson:"net_to_owner_xof" json:"net_to_owner_xof"`
	PaymentID     string          `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
	SettledAt     *time.Time      `bson:"settled_at,omitempty" json:"settled_at,omitempty"`
}

// Payment records money received for a contract. Immutable once confirmed.
type Payment struct {
	ID          string          `bson:"_id" json:"payment_id"`
	ContractID  string          `bson:"contract_id" json:"ref_id"`
	PayerID     string          `bson:"payer_id" json:"payer_id"`
	PayeeID     string          `bson:"payee_id" json:"payee_id"`
	Amount      decimal.Decimal `bson:"amount_xof" json:"amount_xof"`
	Method      PaymentMethod   `bson:"method" json:"method"`
	Status      PaymentStatus   `bson:"status" json:"status"`
	ProviderRef string          `bson:"provider_ref" json:"provider_ref"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
	ConfirmedAt time.Time       `bson:"confirmed_at" json:"confirmed_at"`
}

// Settlement is everything a confirmed payment changed.
type Settlement struct {
	Contract      SalesContract `json:"contract"`
	Payment       Payment       `json:"payment"`
	Receipt       Receipt       `json:"receipt"`
	RepaidAdvance *Advance      `json:"repaid_advance,omitempty"`
}
