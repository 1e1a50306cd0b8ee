package domain

import (
	"fmt"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/apperrors"
	"github.com/shopspring/decimal"
)

// OrderHeader holds the editable header fields of an order.
type OrderHeader struct {
	Date                time.Time `json:"date"`
	CounterpartyID      string    `json:"counterpartyId"` // vendor for purchase, customer for sales
	CounterpartyContact string    `json:"counterpartyContact"`
	Remark              string    `json:"remark"`
}

// OrderLine is one item/quantity entry of an order. It has no lifecycle outside its order.
type OrderLine struct {
	SeqNo         int             `json:"seqNo"`
	ItemID        string          `json:"itemId"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	WarehouseID   *string         `json:"warehouseId,omitempty"`
	Remark        string          `json:"remark"`
	Status        LineStatus      `json:"status"`
	PendingCommit bool            `json:"pendingCommit"`
	// ReservedQty is the outstanding RESERVE held for the line at ReservedWarehouseID.
	ReservedQty         decimal.Decimal `json:"reservedQty"`
	ReservedWarehouseID *string         `json:"reservedWarehouseId,omitempty"`
	CancelReason        string          `json:"cancelReason,omitempty"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// HasReservation reports whether the line holds an outstanding reservation.
func (l OrderLine) HasReservation() bool {
	return l.ReservedWarehouseID != nil && l.ReservedQty.IsPositive()
}

// Order is the generic purchase/sales order aggregate.
type Order struct {
	Kind OrderKind `json:"kind"`
	Code string    `json:"code"`
	OrderHeader
	Lines     []OrderLine `json:"lines"`
	LastSeqNo int         `json:"lastSeqNo"`
	Version   int64       `json:"version"`
	AuditFields
}

// NewOrder validates the header and lines and builds an unsaved order.
// Line sequence numbers are assigned 1..n in the given order.
func NewOrder(kind OrderKind, header OrderHeader, lines []OrderLine, now time.Time, userID string) (*Order, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown order kind %q", apperrors.ErrValidation, kind)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: an order requires at least one line", apperrors.ErrValidation)
	}

	order := &Order{
		Kind:        kind,
		OrderHeader: header,
		Lines:       make([]OrderLine, 0, len(lines)),
		AuditFields: AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	for _, l := range lines {
		if _, err := order.appendLine(l, now); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func validateHeader(h OrderHeader) error {
	if h.CounterpartyID == "" {
		return fmt.Errorf("%w: counterpartyId is required", apperrors.ErrValidation)
	}
	return nil
}

func validateLine(l OrderLine) error {
	if l.ItemID == "" {
		return fmt.Errorf("%w: itemId is required", apperrors.ErrValidation)
	}
	if !l.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity for item %s must be positive", apperrors.ErrValidation, l.ItemID)
	}
	if l.UnitCost.IsNegative() {
		return fmt.Errorf("%w: unitCost for item %s cannot be negative", apperrors.ErrValidation, l.ItemID)
	}
	return nil
}

// appendLine validates l and appends it with the next sequence number.
func (o *Order) appendLine(l OrderLine, now time.Time) (*OrderLine, error) {
	if err := validateLine(l); err != nil {
		return nil, err
	}
	o.LastSeqNo++
	line := OrderLine{
		SeqNo:       o.LastSeqNo,
		ItemID:      l.ItemID,
		Quantity:    l.Quantity,
		UnitCost:    l.UnitCost,
		Remark:      l.Remark,
		Status:      LineRegistered,
		ReservedQty: decimal.Zero,
		UpdatedAt:   now,
	}
	o.Lines = append(o.Lines, line)
	return &o.Lines[len(o.Lines)-1], nil
}

// Status derives the aggregate status from the line statuses.
func (o *Order) Status() AggregateStatus {
	statuses := make([]LineStatus, len(o.Lines))
	for i, l := range o.Lines {
		statuses[i] = l.Status
	}
	return DeriveStatus(statuses)
}

// AssignCode sets the system-generated code. A code is assigned exactly once.
func (o *Order) AssignCode(code string) error {
	if o.Code != "" {
		return fmt.Errorf("%w: order code %s is immutable", apperrors.ErrValidation, o.Code)
	}
	o.Code = code
	return nil
}

// Line returns the line with the given sequence number.
func (o *Order) Line(seqNo int) (*OrderLine, error) {
	for i := range o.Lines {
		if o.Lines[i].SeqNo == seqNo {
			return &o.Lines[i], nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("line %d of order %s", seqNo, o.Code))
}

// HasAdvancedLine reports whether any line has left REGISTERED.
func (o *Order) HasAdvancedLine() bool {
	for _, l := range o.Lines {
		if l.Status != LineRegistered {
			return true
		}
	}
	return false
}

func (o *Order) lineRef(seqNo int) string {
	return fmt.Sprintf("%s#%d", o.Code, seqNo)
}

// AddLine appends a new line. Only allowed while every line is still REGISTERED.
func (o *Order) AddLine(l OrderLine, now time.Time, userID string) (*OrderLine, error) {
	if o.HasAdvancedLine() {
		return nil, apperrors.NewStateError("order", o.Code, string(o.Status()), "add line to")
	}
	line, err := o.appendLine(l, now)
	if err != nil {
		return nil, err
	}
	o.touch(now, userID)
	return line, nil
}

// RemoveLine deletes a REGISTERED line. The last line of an order cannot be removed.
func (o *Order) RemoveLine(seqNo int, now time.Time, userID string) error {
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if line.Status != LineRegistered {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "remove")
	}
	if len(o.Lines) == 1 {
		return fmt.Errorf("%w: order %s must keep at least one line", apperrors.ErrValidation, o.Code)
	}
	kept := o.Lines[:0]
	for _, l := range o.Lines {
		if l.SeqNo != seqNo {
			kept = append(kept, l)
		}
	}
	o.Lines = kept
	o.touch(now, userID)
	return nil
}

// UpdateHeader applies header edits. Once a line has advanced only the remark may change.
func (o *Order) UpdateHeader(h OrderHeader, now time.Time, userID string) error {
	if err := validateHeader(h); err != nil {
		return err
	}
	if o.HasAdvancedLine() {
		frozenChanged := !h.Date.Equal(o.Date) ||
			h.CounterpartyID != o.CounterpartyID ||
			h.CounterpartyContact != o.CounterpartyContact
		if frozenChanged {
			return apperrors.NewStateError("order", o.Code, string(o.Status()), "edit counterparty or date of")
		}
	}
	o.OrderHeader = h
	o.touch(now, userID)
	return nil
}

// UpdateLine edits the item, quantity, cost and remark of a REGISTERED line.
func (o *Order) UpdateLine(seqNo int, changes OrderLine, now time.Time, userID string) error {
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if line.Status != LineRegistered {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "edit")
	}
	if err := validateLine(changes); err != nil {
		return err
	}
	line.ItemID = changes.ItemID
	line.Quantity = changes.Quantity
	line.UnitCost = changes.UnitCost
	line.Remark = changes.Remark
	line.UpdatedAt = now
	o.touch(now, userID)
	return nil
}

// Confirm moves the given lines, or every REGISTERED line when seqNos is empty,
// to CONFIRMED. It returns the confirmed sequence numbers.
func (o *Order) Confirm(seqNos []int, now time.Time, userID string) ([]int, error) {
	if len(o.Lines) == 0 {
		return nil, fmt.Errorf("%w: order %s has no lines", apperrors.ErrValidation, o.Code)
	}
	if o.Date.IsZero() {
		return nil, fmt.Errorf("%w: order %s has no date", apperrors.ErrValidation, o.Code)
	}

	targets := make([]*OrderLine, 0, len(o.Lines))
	if len(seqNos) == 0 {
		for i := range o.Lines {
			if o.Lines[i].Status == LineRegistered {
				targets = append(targets, &o.Lines[i])
			}
		}
		if len(targets) == 0 {
			return nil, apperrors.NewStateError("order", o.Code, string(o.Status()), "confirm")
		}
	} else {
		for _, seq := range seqNos {
			line, err := o.Line(seq)
			if err != nil {
				return nil, err
			}
			if !canTransition(line.Status, LineConfirmed) {
				return nil, apperrors.NewStateError("order line", o.lineRef(seq), string(line.Status), "confirm")
			}
			targets = append(targets, line)
		}
	}

	confirmed := make([]int, 0, len(targets))
	for _, line := range targets {
		line.Status = LineConfirmed
		line.UpdatedAt = now
		confirmed = append(confirmed, line.SeqNo)
	}
	o.touch(now, userID)
	return confirmed, nil
}

// AssignWarehouse stages a warehouse on a CONFIRMED line. It has no stock effect.
func (o *Order) AssignWarehouse(seqNo int, warehouseID string, now time.Time, userID string) error {
	if warehouseID == "" {
		return fmt.Errorf("%w: warehouseId is required", apperrors.ErrValidation)
	}
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if line.Status != LineConfirmed {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "assign warehouse to")
	}
	wh := warehouseID
	line.WarehouseID = &wh
	line.PendingCommit = true
	line.UpdatedAt = now
	o.touch(now, userID)
	return nil
}

// MarkReserved records the reservation posted for a CONFIRMED line.
func (o *Order) MarkReserved(seqNo int, warehouseID string, qty decimal.Decimal, now time.Time, userID string) error {
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if line.Status != LineConfirmed {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "reserve")
	}
	wh := warehouseID
	line.ReservedWarehouseID = &wh
	line.ReservedQty = qty
	line.UpdatedAt = now
	o.touch(now, userID)
	return nil
}

// CompleteLine moves a staged CONFIRMED line to its done status. Callers must
// post the matching ledger movement in the same unit of work.
func (o *Order) CompleteLine(seqNo int, now time.Time, userID string) error {
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if line.Status != LineConfirmed || line.WarehouseID == nil {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "commit")
	}
	line.Status = o.Kind.DoneStatus()
	line.PendingCommit = false
	line.ReservedQty = decimal.Zero
	line.ReservedWarehouseID = nil
	line.UpdatedAt = now
	o.touch(now, userID)
	return nil
}

// CancelLine cancels an open line. Cancelling twice is an error.
func (o *Order) CancelLine(seqNo int, reason string, now time.Time, userID string) error {
	line, err := o.Line(seqNo)
	if err != nil {
		return err
	}
	if !canTransition(line.Status, LineCancelled) {
		return apperrors.NewStateError("order line", o.lineRef(seqNo), string(line.Status), "cancel")
	}
	line.Status = LineCancelled
	line.CancelReason = reason
	line.PendingCommit = false
	line.ReservedQty = decimal.Zero
	line.ReservedWarehouseID = nil
	line.UpdatedAt = now
	o.touch(now, userID)
	return nil
}

// Clone returns a deep copy, so a failed unit of work leaves the original untouched.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		c.Lines[i] = l
		if l.WarehouseID != nil {
			wh := *l.WarehouseID
			c.Lines[i].WarehouseID = &wh
		}
		if l.ReservedWarehouseID != nil {
			wh := *l.ReservedWarehouseID
			c.Lines[i].ReservedWarehouseID = &wh
		}
	}
	return &c
}
