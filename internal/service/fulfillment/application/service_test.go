package application

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/application/saga"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/infrastructure"
)

func TestCreateShipment_Success(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.seedOrder(t, "o1", domain.OrderConfirmed, 3)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPickupScheduled, f.Status)
	assert.Equal(t, "a", f.WarehouseID)
	assert.Equal(t, "98765", f.ExternalOrderID)
	assert.Equal(t, "54321", f.ExternalShipmentID)
	assert.Equal(t, "AWB123", f.AWBCode)
	assert.Equal(t, "Delhivery", f.CourierName)
	assert.Equal(t, saga.TrackingURLPrefix+"AWB123", f.TrackingURL)
	assert.Equal(t, "https://cdn.example.com/label-54321.pdf", f.LabelURL)
	assert.NotNil(t, f.PickupScheduledAt)
	assert.InDelta(t, 1.5, f.Package.WeightKg, 1e-9)
	assert.InDelta(t, 10, f.Package.HeightCm, 1e-9)

	assert.Equal(t, []string{
		"serviceability:110001", "create_order:WH-a", "awb:54321", "pickup:54321", "label:54321",
	}, h.carrier.Calls())
	assert.Equal(t, domain.OrderProcessing, h.orderStatus(t, "o1"))

	stored, err := h.deps.Fulfillments.FindActiveByOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, f.ID, stored.ID)
	assert.Equal(t, domain.StatusPickupScheduled, stored.Status)
	assert.Equal(t, []domain.EventType{domain.EventFulfillmentCreated}, h.publisher.Types())
}

func TestCreateShipment_AWBAssignedAtOrderCreation(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.carrier.createResult = &port.CreateOrderResult{OrderID: "1", ShipmentID: "2", AWBCode: "AWB-EARLY", CourierName: "Xpressbees"}
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "AWB-EARLY", f.AWBCode)
	assert.NotContains(t, h.carrier.Calls(), "awb:2")
}

func TestCreateShipment_AWBNotServiceable(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.carrier.awbErr = errors.New("Pincode not serviceable")
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotServiceable, domain.KindOf(err))
	assert.Equal(t, saga.StepAWB, domain.StepOf(err))
	assert.Equal(t, http.StatusBadRequest, domain.HTTPStatus(err))

	require.NotNil(t, f)
	assert.Equal(t, domain.StatusFailed, f.Status)
	assert.Equal(t, saga.StepAWB, f.FailedStep)
	assert.Equal(t, 1, f.RetryCount)

	stored, err := h.deps.Fulfillments.FindByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, "54321", stored.ExternalShipmentID, "progress before the failing step is kept")
	assert.Contains(t, stored.LastError, "Pincode not serviceable")

	assert.Equal(t, domain.OrderConfirmed, h.orderStatus(t, "o1"))
	assert.NotContains(t, h.carrier.Calls(), "pickup:54321")
	assert.Equal(t, []domain.EventType{domain.EventFulfillmentFailed}, h.publisher.Types())

	// FAILED 记录不占用活跃名额，可以重试
	h.carrier.awbErr = nil
	retry, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.NoError(t, err)
	assert.NotEqual(t, f.ID, retry.ID)

	all, err := h.shipments.ListFulfillments(context.Background(), "o1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCreateShipment_SecondCallConflicts(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	_, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.NoError(t, err)
	calls := len(h.carrier.Calls())

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, http.StatusConflict, domain.HTTPStatus(err))
	assert.Len(t, h.carrier.Calls(), calls, "no carrier calls after a conflict")
}

func TestCreateShipment_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		req   CreateShipmentRequest
		setup func(t *testing.T, h *harness)
		kind  domain.ErrorKind
	}{
		{name: "missing order id", req: CreateShipmentRequest{OrderID: " "}, kind: domain.KindValidation},
		{name: "non positive weight", req: CreateShipmentRequest{OrderID: "o1", Weight: ptr(0.0)}, kind: domain.KindValidation},
		{name: "unknown order", req: CreateShipmentRequest{OrderID: "nope"}, kind: domain.KindNotFound},
		{
			name:  "order not confirmed",
			req:   CreateShipmentRequest{OrderID: "o1"},
			setup: func(t *testing.T, h *harness) { h.seedOrder(t, "o1", domain.OrderPending, 1) },
			kind:  domain.KindPrecondition,
		},
		{
			name:  "order without items",
			req:   CreateShipmentRequest{OrderID: "o1"},
			setup: func(t *testing.T, h *harness) { h.seedOrder(t, "o1", domain.OrderConfirmed, 0) },
			kind:  domain.KindPrecondition,
		},
		{
			name: "order without shipping address",
			req:  CreateShipmentRequest{OrderID: "o1"},
			setup: func(t *testing.T, h *harness) {
				h.seedOrder(t, "o1", domain.OrderConfirmed, 1)
				require.NoError(t, h.db.Model(&infrastructure.OrderModel{}).Where("id = ?", "o1").
					Update("shipping_postal_code", "").Error)
			},
			kind: domain.KindPrecondition,
		},
		{
			name: "override warehouse not registered with carrier",
			req:  CreateShipmentRequest{OrderID: "o1", WarehouseID: "x"},
			setup: func(t *testing.T, h *harness) {
				h.seedOrder(t, "o1", domain.OrderConfirmed, 1)
				require.NoError(t, h.db.Create(&infrastructure.WarehouseModel{ID: "x", Code: "WH-X", IsActive: true}).Error)
			},
			kind: domain.KindValidation,
		},
		{
			name:  "override warehouse missing",
			req:   CreateShipmentRequest{OrderID: "o1", WarehouseID: "ghost"},
			setup: func(t *testing.T, h *harness) { h.seedOrder(t, "o1", domain.OrderConfirmed, 1) },
			kind:  domain.KindNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.setup != nil {
				tt.setup(t, h)
			}
			f, err := h.shipments.CreateShipment(context.Background(), &tt.req)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Empty(t, h.carrier.Calls())

			var n int64
			require.NoError(t, h.db.Model(&infrastructure.FulfillmentModel{}).Count(&n).Error)
			assert.Zero(t, n, "rejected requests leave no fulfillment behind")
		})
	}
}

func TestCreateShipment_NoServiceableWarehouse(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotServiceable, domain.KindOf(err))
	assert.Equal(t, saga.StepResolveWarehouse, domain.StepOf(err))

	require.NotNil(t, f)
	assert.Equal(t, domain.StatusFailed, f.Status)
	assert.Empty(t, f.WarehouseID)

	list, err := h.shipments.ListFulfillments(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, string(domain.StatusFailed), list[0].Status)
	assert.Equal(t, saga.StepResolveWarehouse, list[0].FailedStep)
}

func TestCreateShipment_WarehouseOverrideSkipsSelection(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.seedWarehouse(t, "b", "560001", false, 0)
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{
		OrderID: "o1", WarehouseID: "b", CourierID: "10", Weight: ptr(2.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "b", f.WarehouseID)
	assert.InDelta(t, 2.0, f.Package.WeightKg, 1e-9)
	assert.Equal(t, "create_order:WH-b", h.carrier.Calls()[0])
}

func TestCreateShipment_PickupTimeout(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.carrier.pickupErr = domain.E(domain.KindTimeout, "generate_pickup", "carrier request timed out after 20s")
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)

	f, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.Error(t, err)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(err))
	assert.Equal(t, http.StatusGatewayTimeout, domain.HTTPStatus(err))
	assert.Equal(t, saga.StepPickup, domain.StepOf(err))

	stored, err := h.deps.Fulfillments.FindByID(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Equal(t, "AWB123", stored.AWBCode)
}

type countingLocker struct {
	locks, unlocks atomic.Int32
	err            error
}

func (l *countingLocker) Lock(context.Context, string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locks.Add(1)
	return func() { l.unlocks.Add(1) }, nil
}

func TestCreateShipment_OrderLock(t *testing.T) {
	h := newHarness(t)
	h.seedWarehouse(t, "a", "110001", true, 5)
	h.carrier.serviceable["110001"] = true
	h.seedOrder(t, "o1", domain.OrderConfirmed, 1)
	h.seedOrder(t, "o2", domain.OrderConfirmed, 1)

	locker := &countingLocker{}
	h.shipments.deps.Locker = locker
	_, err := h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), locker.locks.Load())
	assert.Equal(t, int32(1), locker.unlocks.Load())

	// 锁服务不可用时仍然继续，唯一索引兜底
	h.shipments.deps.Locker = &countingLocker{err: errors.New("zk: connection closed")}
	_, err = h.shipments.CreateShipment(context.Background(), &CreateShipmentRequest{OrderID: "o2"})
	require.NoError(t, err)
}

func TestListFulfillments_RequiresOrderID(t *testing.T) {
	h := newHarness(t)
	_, err := h.shipments.ListFulfillments(context.Background(), "")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	list, err := h.shipments.ListFulfillments(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func ptr[T any](v T) *T { return &v }
