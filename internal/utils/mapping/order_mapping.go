package mapping

import (
	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	"github.com/SscSPs/food_erp_fulfillment/internal/models"
)

// ToModelOrder converts a domain Order to its header row
func ToModelOrder(d *domain.Order) models.Order {
	return models.Order{
		Kind:                string(d.Kind),
		Code:                d.Code,
		OrderDate:           d.Date,
		CounterpartyID:      d.CounterpartyID,
		CounterpartyContact: d.CounterpartyContact,
		Remark:              d.Remark,
		LastSeqNo:           d.LastSeqNo,
		Version:             d.Version,
		AuditFields:         models.AuditFields(d.AuditFields),
	}
}

// ToModelOrderLines converts the lines of a domain Order to rows
func ToModelOrderLines(d *domain.Order) []models.OrderLine {
	lines := make([]models.OrderLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = models.OrderLine{
			Kind:                string(d.Kind),
			Code:                d.Code,
			SeqNo:               l.SeqNo,
			ItemID:              l.ItemID,
			Quantity:            l.Quantity,
			UnitCost:            l.UnitCost,
			WarehouseID:         l.WarehouseID,
			Remark:              l.Remark,
			Status:              string(l.Status),
			PendingCommit:       l.PendingCommit,
			ReservedQty:         l.ReservedQty,
			ReservedWarehouseID: l.ReservedWarehouseID,
			CancelReason:        l.CancelReason,
			UpdatedAt:           l.UpdatedAt,
		}
	}
	return lines
}

// ToDomainOrder assembles a domain Order from its header row and line rows
func ToDomainOrder(m models.Order, lines []models.OrderLine) *domain.Order {
	order := &domain.Order{
		Kind: domain.OrderKind(m.Kind),
		Code: m.Code,
		OrderHeader: domain.OrderHeader{
			Date:                m.OrderDate,
			CounterpartyID:      m.CounterpartyID,
			CounterpartyContact: m.CounterpartyContact,
			Remark:              m.Remark,
		},
		Lines:       make([]domain.OrderLine, len(lines)),
		LastSeqNo:   m.LastSeqNo,
		Version:     m.Version,
		AuditFields: domain.AuditFields(m.AuditFields),
	}
	for i, l := range lines {
		order.Lines[i] = domain.OrderLine{
			SeqNo:               l.SeqNo,
			ItemID:              l.ItemID,
			Quantity:            l.Quantity,
			UnitCost:            l.UnitCost,
			WarehouseID:         l.WarehouseID,
			Remark:              l.Remark,
			Status:              domain.LineStatus(l.Status),
			PendingCommit:       l.PendingCommit,
			ReservedQty:         l.ReservedQty,
			ReservedWarehouseID: l.ReservedWarehouseID,
			CancelReason:        l.CancelReason,
			UpdatedAt:           l.UpdatedAt,
		}
	}
	return order
}
