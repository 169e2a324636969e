package infrastructure

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

func TestFulfillmentRepository_OneActivePerOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFulfillmentRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.NewPendingFulfillment("order-1", "wh-1", domain.PackageDimensions{WeightKg: 1}, now)
	require.NoError(t, repo.Create(ctx, first))

	second := domain.NewPendingFulfillment("order-1", "wh-2", domain.PackageDimensions{}, now)
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	active, err := repo.FindActiveByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	// 失败之后释放名额
	first.MarkFailed("awb", "boom", now)
	require.NoError(t, repo.Update(ctx, first))
	_, err = repo.FindActiveByOrder(ctx, "order-1")
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, repo.Create(ctx, second))
	list, err := repo.ListByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestFulfillmentRepository_Lookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFulfillmentRepository(db)
	ctx := context.Background()

	f := domain.NewPendingFulfillment("order-2", "wh-1", domain.PackageDimensions{WeightKg: 1.5, HeightCm: 10}, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, f))
	f.ExternalOrderID = "9001"
	f.ExternalShipmentID = "8001"
	f.AWBCode = "AWB123"
	f.CourierName = "Delhivery"
	require.NoError(t, repo.Update(ctx, f))

	got, err := repo.FindByAWB(ctx, "AWB123")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "wh-1", got.WarehouseID)
	assert.InDelta(t, 1.5, got.Package.WeightKg, 1e-9)

	got, err = repo.FindByShipmentID(ctx, "8001")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)

	got, err = repo.FindByExternalOrderID(ctx, "9001")
	require.NoError(t, err)
	assert.Equal(t, "Delhivery", got.CourierName)

	_, err = repo.FindByAWB(ctx, "missing")
	assert.True(t, domain.IsNotFound(err))
	_, err = repo.FindByAWB(ctx, "")
	assert.True(t, domain.IsNotFound(err))

	got, err = repo.FindByIDForUpdate(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestFulfillmentRepository_FailedWithoutWarehouse(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFulfillmentRepository(db)
	ctx := context.Background()

	f := domain.NewPendingFulfillment("order-3", "", domain.PackageDimensions{}, time.Now().UTC())
	f.MarkFailed("resolve_warehouse", "no serviceable warehouse found", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, f))

	got, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.WarehouseID)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, 1, got.RetryCount)
}

func TestTrackingEventRepository_Dedup(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTrackingEventRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inserted, err := repo.Insert(ctx, domain.NewTrackingEvent("f-1", domain.StatusInTransit, "Bag added", "Mumbai", at, []byte(`{}`)))
	require.NoError(t, err)
	assert.True(t, inserted)

	near, err := repo.ExistsNear(ctx, "f-1", domain.StatusInTransit, at.Add(800*time.Millisecond), domain.DuplicateEventWindow)
	require.NoError(t, err)
	assert.True(t, near)

	near, err = repo.ExistsNear(ctx, "f-1", domain.StatusInTransit, at.Add(3*time.Second), domain.DuplicateEventWindow)
	require.NoError(t, err)
	assert.False(t, near)

	near, err = repo.ExistsNear(ctx, "f-1", domain.StatusDelivered, at, domain.DuplicateEventWindow)
	require.NoError(t, err)
	assert.False(t, near)

	// 同一秒内的并发重复由唯一索引拦截
	inserted, err = repo.Insert(ctx, domain.NewTrackingEvent("f-1", domain.StatusInTransit, "Bag added", "Mumbai", at.Add(300*time.Millisecond), nil))
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = repo.Insert(ctx, domain.NewTrackingEvent("f-1", domain.StatusDelivered, "Delivered", "Pune", at.Add(time.Hour), nil))
	require.NoError(t, err)
	assert.True(t, inserted)

	events, err := repo.ListByFulfillment(ctx, "f-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StatusInTransit, events[0].Status)
	assert.Equal(t, domain.StatusDelivered, events[1].Status)
}

func TestTrackingEventRepository_DuplicateInsideTx(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTrackingEventRepository(db)
	tx := NewTxManager(db)
	at := time.Now().UTC()

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		ok, err := repo.Insert(ctx, domain.NewTrackingEvent("f-9", domain.StatusPicked, "", "", at, nil))
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = repo.Insert(ctx, domain.NewTrackingEvent("f-9", domain.StatusPicked, "", "", at, nil))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)

	events, err := repo.ListByFulfillment(context.Background(), "f-9")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestTrackingEventRepository_TruncatesOnRuneBoundary(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTrackingEventRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)

	activity := strings.Repeat("क", 600)
	location := strings.Repeat("दिल्ली", 100)
	ok, err := repo.Insert(ctx, domain.NewTrackingEvent("f-utf8", domain.StatusInTransit, activity, location, at, nil))
	require.NoError(t, err)
	require.True(t, ok)

	events, err := repo.ListByFulfillment(ctx, "f-utf8")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, utf8.ValidString(events[0].Message))
	assert.Equal(t, maxMessageLen, utf8.RuneCountInString(events[0].Message))
	assert.True(t, utf8.ValidString(events[0].Location))
	assert.Equal(t, maxLocationLen, utf8.RuneCountInString(events[0].Location))
	assert.True(t, strings.HasPrefix(location, events[0].Location))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "Bag added", 20, "Bag added"},
		{"ascii", "abcdef", 3, "abc"},
		{"multibyte", "कखगघ", 2, "कख"},
		{"exact", "कख", 2, "कख"},
		{"invalid bytes", "ab\xffcd", 3, "ab\uFFFD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestWarehouseRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormWarehouseRepository(db)
	ctx := context.Background()

	seedWarehouse(t, db, WarehouseModel{ID: "wh-b", Code: "B", IsActive: true, ExternalPickupCode: "PB", PostalCode: "110001"}, map[string]int{"v1": 5})
	seedWarehouse(t, db, WarehouseModel{ID: "wh-a", Code: "A", IsActive: true, IsPrimary: true, ExternalPickupCode: "PA", PostalCode: "560001"}, map[string]int{"v1": 1})
	seedWarehouse(t, db, WarehouseModel{ID: "wh-c", Code: "C", IsActive: true, PostalCode: "400001"}, nil)
	seedWarehouse(t, db, WarehouseModel{ID: "wh-d", Code: "D", IsActive: false, ExternalPickupCode: "PD"}, nil)

	// 第二个库位
	require.NoError(t, db.Create(&WarehouseLocationModel{ID: "wh-b-loc2", WarehouseID: "wh-b", Code: "B2"}).Error)
	require.NoError(t, db.Create(&InventoryLevelModel{LocationID: "wh-b-loc2", VariantID: "v1", OnHand: 4, Reserved: 2}).Error)

	list, err := repo.ListShippable(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Code, "primary first")
	assert.Equal(t, "B", list[1].Code)

	stock, err := repo.AvailableStock(ctx, "wh-b", []string{"v1", "v2"})
	require.NoError(t, err)
	assert.Equal(t, 7, stock["v1"])
	assert.Equal(t, 0, stock["v2"])

	written, err := repo.SetExternalPickup(ctx, "wh-c", "77", "PC")
	require.NoError(t, err)
	assert.True(t, written)

	written, err = repo.SetExternalPickup(ctx, "wh-c", "88", "OTHER")
	require.NoError(t, err)
	assert.False(t, written)

	w, err := repo.FindByID(ctx, "wh-c")
	require.NoError(t, err)
	assert.Equal(t, "77", w.ExternalPickupID)
	assert.Equal(t, "PC", w.ExternalPickupCode)

	_, err = repo.SetExternalPickup(ctx, "missing", "1", "X")
	assert.True(t, domain.IsNotFound(err))
}

func TestOrderRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&ProductModel{ID: "p1", Name: "Banarasi Silk Saree"}).Error)
	require.NoError(t, db.Create(&ProductVariantModel{ID: "v1", ProductID: "p1", Name: "Red", SKU: "BSS-RED"}).Error)
	require.NoError(t, db.Create(&OrderModel{
		ID: "o1", Status: string(domain.OrderConfirmed), PaymentRef: "pay_1", SubTotal: 2500,
		Shipping: AddressColumns{Name: "Asha Rao", Line1: "12 MG Road", City: "Mumbai", PostalCode: "400001", Country: "India"},
	}).Error)
	require.NoError(t, db.Create(&OrderItemModel{OrderID: "o1", VariantID: "v1", Quantity: 2, Price: 1250}).Error)

	o, err := repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderConfirmed, o.Status)
	require.NotNil(t, o.ShippingAddress)
	assert.Nil(t, o.BillingAddress)
	assert.Equal(t, o.ShippingAddress, o.Billing())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Banarasi Silk Saree", o.Items[0].ProductName)
	assert.Equal(t, "BSS-RED", o.Items[0].SKU)
	assert.Equal(t, 2, o.TotalQuantity())

	require.NoError(t, repo.UpdateStatus(ctx, "o1", domain.OrderProcessing))
	o, err = repo.FindByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderProcessing, o.Status)

	_, err = repo.FindByID(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(repo.UpdateStatus(ctx, "nope", domain.OrderShipped)))
}

func TestTxManagerRollback(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormFulfillmentRepository(db)
	tx := NewTxManager(db)

	f := domain.NewPendingFulfillment("order-9", "wh", domain.PackageDimensions{}, time.Now().UTC())
	boom := errors.New("boom")
	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, repo.Create(ctx, f))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.FindByID(context.Background(), f.ID)
	assert.True(t, domain.IsNotFound(err))
}
