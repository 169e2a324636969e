package application

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/infrastructure"
)

// fakeGateway 记录调用顺序，按字段返回预设结果
type fakeGateway struct {
	mu sync.Mutex

	// 揽收邮编 -> 是否有快递可达
	serviceable       map[string]bool
	serviceabilityErr map[string]error

	createResult *port.CreateOrderResult
	createErr    error
	awbErr       error
	pickupErr    error
	labelErr     error

	pickupLocations []port.PickupLocation
	added           []port.PickupLocation

	calls []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		serviceable:       map[string]bool{},
		serviceabilityErr: map[string]error{},
		createResult:      &port.CreateOrderResult{OrderID: "98765", ShipmentID: "54321", Status: "NEW"},
	}
}

func (g *fakeGateway) record(name string) {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	g.mu.Unlock()
}

func (g *fakeGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGateway) CheckServiceability(_ context.Context, req port.ServiceabilityRequest) ([]port.CourierOption, error) {
	g.record("serviceability:" + req.PickupPostcode)
	if err := g.serviceabilityErr[req.PickupPostcode]; err != nil {
		return nil, err
	}
	if !g.serviceable[req.PickupPostcode] {
		return nil, nil
	}
	return []port.CourierOption{{CourierID: "10", CourierName: "Delhivery", Rate: 85}}, nil
}

func (g *fakeGateway) CreateOrder(_ context.Context, req port.CreateOrderRequest) (*port.CreateOrderResult, error) {
	g.record("create_order:" + req.PickupLocation)
	if g.createErr != nil {
		return nil, g.createErr
	}
	res := *g.createResult
	return &res, nil
}

func (g *fakeGateway) AssignAWB(_ context.Context, shipmentID, courierID string) (*port.AWBResult, error) {
	g.record("awb:" + shipmentID)
	if g.awbErr != nil {
		return nil, g.awbErr
	}
	return &port.AWBResult{AWBCode: "AWB123", CourierID: "10", CourierName: "Delhivery"}, nil
}

func (g *fakeGateway) GeneratePickup(_ context.Context, shipmentID string) (*port.PickupResult, error) {
	g.record("pickup:" + shipmentID)
	if g.pickupErr != nil {
		return nil, g.pickupErr
	}
	at := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	return &port.PickupResult{ScheduledAt: &at, Token: "Ref 1"}, nil
}

func (g *fakeGateway) GenerateLabel(_ context.Context, shipmentID string) (string, error) {
	g.record("label:" + shipmentID)
	if g.labelErr != nil {
		return "", g.labelErr
	}
	return "https://cdn.example.com/label-" + shipmentID + ".pdf", nil
}

func (g *fakeGateway) ListPickupLocations(context.Context) ([]port.PickupLocation, error) {
	g.record("list_pickup")
	return g.pickupLocations, nil
}

func (g *fakeGateway) AddPickupLocation(_ context.Context, loc port.PickupLocation) (*port.PickupLocation, error) {
	g.record("add_pickup:" + loc.Code)
	g.added = append(g.added, loc)
	loc.ID = "4242"
	return &loc, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.FulfillmentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.FulfillmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	db        *gorm.DB
	carrier   *fakeGateway
	publisher *recordingPublisher
	deps      Dependencies
	shipments *FulfillmentApplicationService
	webhooks  *WebhookService
	sync      *WarehouseSyncService
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := infrastructure.Open("sqlite:" + filepath.Join(t.TempDir(), "fulfillment.db"))
	require.NoError(t, err)
	require.NoError(t, infrastructure.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	h := &harness{
		db:        db,
		carrier:   newFakeGateway(),
		publisher: &recordingPublisher{},
		now:       time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	tracer := otel.Tracer("fulfillment-test")
	h.deps = Dependencies{
		Orders:       infrastructure.NewGormOrderRepository(db),
		Warehouses:   infrastructure.NewGormWarehouseRepository(db),
		Fulfillments: infrastructure.NewGormFulfillmentRepository(db),
		Tracking:     infrastructure.NewGormTrackingEventRepository(db),
		Tx:           infrastructure.NewTxManager(db),
		Carrier:      h.carrier,
		Publisher:    h.publisher,
		Tracer:       tracer,
	}
	selector := NewWarehouseSelector(h.deps.Warehouses, h.carrier, 0.5, tracer)
	h.shipments = NewFulfillmentApplicationService(h.deps, selector, domain.DefaultPackageDefaults)
	h.shipments.now = func() time.Time { return h.now }
	h.webhooks = NewWebhookService(WebhookConfig{Secret: "hook-secret"}, h.deps)
	h.webhooks.now = func() time.Time { return h.now }
	h.webhooks.loc = time.UTC
	h.sync = NewWarehouseSyncService(h.deps.Warehouses, h.carrier, tracer)

	require.NoError(t, db.Create(&infrastructure.ProductModel{ID: "p1", Name: "Banarasi Silk Saree"}).Error)
	require.NoError(t, db.Create(&infrastructure.ProductVariantModel{ID: "v1", ProductID: "p1", Name: "Red", SKU: "BSS-RED"}).Error)
	return h
}

// seedOrder 已确认、预付、收货地址在 400001 的订单
func (h *harness) seedOrder(t *testing.T, id string, status domain.OrderStatus, qty int) {
	t.Helper()
	require.NoError(t, h.db.Create(&infrastructure.OrderModel{
		ID:         id,
		Status:     string(status),
		PaymentRef: "pay_" + id,
		SubTotal:   2500 * float64(qty),
		Shipping: infrastructure.AddressColumns{
			Name: "Asha Rao", Phone: "9876543210", Email: "asha@example.com",
			Line1: "12 MG Road", City: "Mumbai", State: "MH", PostalCode: "400001", Country: "India",
		},
	}).Error)
	if qty > 0 {
		require.NoError(t, h.db.Create(&infrastructure.OrderItemModel{OrderID: id, VariantID: "v1", Quantity: qty, Price: 2500}).Error)
	}
}

// seedWarehouse 已注册揽收点的仓库，stock 为 v1 的可用库存
func (h *harness) seedWarehouse(t *testing.T, id, postcode string, primary bool, stock int) {
	t.Helper()
	require.NoError(t, h.db.Create(&infrastructure.WarehouseModel{
		ID: id, Code: "WH-" + id, Name: "Warehouse " + id, Phone: "9000000000",
		Line1: "Plot 1", City: "Delhi", State: "DL", PostalCode: postcode, Country: "India",
		IsActive: true, IsPrimary: primary, ExternalPickupCode: "WH-" + id,
	}).Error)
	loc := infrastructure.WarehouseLocationModel{ID: id + "-loc", WarehouseID: id, Code: "A1"}
	require.NoError(t, h.db.Create(&loc).Error)
	require.NoError(t, h.db.Create(&infrastructure.InventoryLevelModel{LocationID: loc.ID, VariantID: "v1", OnHand: stock}).Error)
}

func (h *harness) orderStatus(t *testing.T, id string) domain.OrderStatus {
	t.Helper()
	o, err := h.deps.Orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}
