package services_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/SscSPs/food_erp_fulfillment/internal/core/domain"
	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/core/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/platform/events"
	"github.com/SscSPs/food_erp_fulfillment/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testUser = "user-1"

var testNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// Master data shared by the service suites:
// FLOUR is a material, BREAD a product; WH03 is inactive.
var (
	flour = domain.Item{ItemID: "FLOUR", Name: "Flour", Flag: domain.ItemMaterial, Unit: "kg", MinQty: decimal.NewFromInt(20)}
	bread = domain.Item{ItemID: "BREAD", Name: "Bread", Flag: domain.ItemProduct, Unit: "pc"}

	wh01 = domain.Warehouse{WarehouseID: "WH01", Name: "Dry store", Type: domain.WarehouseMaterial, Active: true}
	wh02 = domain.Warehouse{WarehouseID: "WH02", Name: "Bakery shelf", Type: domain.WarehouseProduct, Active: true}
	wh03 = domain.Warehouse{WarehouseID: "WH03", Name: "Old annex", Type: domain.WarehouseMixed, Active: false}
	wh04 = domain.Warehouse{WarehouseID: "WH04", Name: "Back room", Type: domain.WarehouseMixed, Active: true}
)

// --- Mock Publisher ---
type MockPublisher struct {
	mock.Mock
}

var _ events.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// engineSuite wires every service over one memory store.
type engineSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	svc   *portssvc.ServiceContainer
}

func (s *engineSuite) SetupTest() {
	s.setup()
}

func (s *engineSuite) setup(opts ...services.ServiceOption) {
	s.ctx = context.Background()
	s.store = memory.NewStore(
		memory.WithItems(flour, bread),
		memory.WithWarehouses(wh01, wh02, wh03, wh04),
	)
	clock := func() time.Time { return testNow }
	opts = append([]services.ServiceOption{services.WithClock(clock)}, opts...)
	s.svc = services.NewServiceContainer(memory.NewRepositoryProvider(s.store), opts...)
}

func qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func (s *engineSuite) createOrder(kind domain.OrderKind, lines ...dto.OrderLineRequest) *domain.Order {
	order, err := s.svc.Order.SaveOrder(s.ctx, kind, dto.SaveOrderRequest{
		Date:           testNow,
		CounterpartyID: "PARTNER-1",
		Lines:          lines,
	}, testUser)
	s.Require().NoError(err)
	return order
}

func flourLine(n int64) dto.OrderLineRequest {
	return dto.OrderLineRequest{ItemID: flour.ItemID, Quantity: qty(n), UnitCost: qty(2)}
}

// stage confirms every line of the order and assigns them all to warehouseID.
func (s *engineSuite) stage(kind domain.OrderKind, code, warehouseID string) {
	order, err := s.svc.Fulfillment.Confirm(s.ctx, kind, code, dto.ConfirmOrderRequest{}, testUser)
	s.Require().NoError(err)
	for _, l := range order.Lines {
		_, err := s.svc.Fulfillment.AssignWarehouse(s.ctx, kind, code, l.SeqNo, dto.AssignWarehouseRequest{WarehouseID: warehouseID}, testUser)
		s.Require().NoError(err)
	}
}

// receive books n units of flour into warehouseID through a purchase order.
func (s *engineSuite) receive(n int64, warehouseID string) {
	po := s.createOrder(domain.PurchaseOrder, flourLine(n))
	s.stage(domain.PurchaseOrder, po.Code, warehouseID)
	_, err := s.svc.Fulfillment.Commit(s.ctx, domain.PurchaseOrder, po.Code, testUser)
	s.Require().NoError(err)
}

func (s *engineSuite) balance(itemID, warehouseID string) domain.StockBalance {
	b, err := s.store.FindBalance(s.ctx, domain.StockKey{ItemID: itemID, WarehouseID: warehouseID})
	s.Require().NoError(err)
	return *b
}

func requireQty(t require.TestingT, want int64, got decimal.Decimal) {
	require.Truef(t, got.Equal(qty(want)), "want %d, got %s", want, got)
}

func (s *engineSuite) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
