package domain

import (
	"fmt"
	"strings"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/shopspring/decimal"
)

// LedgerType is the closed set of stock ledger movement codes.
type LedgerType string

const (
	LedgerPurchaseIn   LedgerType = "PURCHASE_IN"
	LedgerSalesOut     LedgerType = "SALES_OUT"
	LedgerShipOut      LedgerType = "SHIP_OUT"
	LedgerProductionIn LedgerType = "PRODUCTION_IN"
	LedgerMaterialUsed LedgerType = "MATERIAL_USED"
	LedgerReserve      LedgerType = "RESERVE"
	LedgerUnreserve    LedgerType = "UNRESERVE"
	LedgerWaitIn       LedgerType = "WAIT_IN"
	LedgerWaitOut      LedgerType = "WAIT_OUT"
)

// AllLedgerTypes lists every known ledger type.
var AllLedgerTypes = []LedgerType{
	LedgerPurchaseIn,
	LedgerSalesOut,
	LedgerShipOut,
	LedgerProductionIn,
	LedgerMaterialUsed,
	LedgerReserve,
	LedgerUnreserve,
	LedgerWaitIn,
	LedgerWaitOut,
}

// ledgerTypesByKey indexes the types by their code with separators removed.
var ledgerTypesByKey = func() map[string]LedgerType {
	m := make(map[string]LedgerType, len(AllLedgerTypes))
	for _, t := range AllLedgerTypes {
		m[ledgerTypeKey(string(t))] = t
	}
	return m
}()

func ledgerTypeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(s)))
}

// ParseLedgerType normalizes casing, spacing and separators ("purchase in",
// "Purchase-In", "PURCHASEIN") and rejects anything outside the closed set.
func ParseLedgerType(code string) (LedgerType, error) {
	if t, ok := ledgerTypesByKey[ledgerTypeKey(code)]; ok && code != "" {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown ledger type %q", apperrors.ErrValidation, code)
}

// Effect returns the signed stock and allocation deltas of a movement of qty.
func (t LedgerType) Effect(qty decimal.Decimal) (stockDelta, allocDelta decimal.Decimal) {
	switch t {
	case LedgerPurchaseIn, LedgerProductionIn:
		return qty, decimal.Zero
	case LedgerSalesOut, LedgerShipOut, LedgerMaterialUsed:
		return qty.Neg(), decimal.Zero
	case LedgerReserve:
		return decimal.Zero, qty
	case LedgerUnreserve:
		return decimal.Zero, qty.Neg()
	default:
		return decimal.Zero, decimal.Zero
	}
}

// IsDemand reports whether the movement consumes available stock. Running short
// on a demand movement is a business rejection, not a ledger inconsistency.
func (t LedgerType) IsDemand() bool {
	switch t {
	case LedgerSalesOut, LedgerShipOut, LedgerMaterialUsed, LedgerReserve:
		return true
	}
	return false
}

// IsManual reports whether the type may be posted directly, outside an order flow.
func (t LedgerType) IsManual() bool {
	switch t {
	case LedgerProductionIn, LedgerMaterialUsed, LedgerWaitIn, LedgerWaitOut:
		return true
	}
	return false
}
