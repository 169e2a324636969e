package infrastructure

import (
	"time"
)

// AddressColumns 以前缀形式嵌入订单表
type AddressColumns struct {
	Name       string `gorm:"size:128"`
	Phone      string `gorm:"size:32"`
	Email      string `gorm:"size:128"`
	Line1      string `gorm:"size:255"`
	Line2      string `gorm:"size:255"`
	City       string `gorm:"size:64"`
	State      string `gorm:"size:64"`
	PostalCode string `gorm:"size:16"`
	Country    string `gorm:"size:64"`
}

// OrderModel 对应 orders 表，由下单流程写入
type OrderModel struct {
	ID         string         `gorm:"primaryKey;size:64"`
	Status     string         `gorm:"size:32;index"`
	PaymentRef string         `gorm:"size:128"`
	SubTotal   float64        `gorm:"type:decimal(12,2)"`
	Shipping   AddressColumns `gorm:"embedded;embeddedPrefix:shipping_"`
	// 账单地址 line1 为空表示与收货地址相同
	Billing   AddressColumns `gorm:"embedded;embeddedPrefix:billing_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OrderModel) TableName() string { return "orders" }

type OrderItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:64;index"`
	VariantID string `gorm:"size:64"`
	Quantity  int
	Price     float64 `gorm:"type:decimal(12,2)"`
}

func (OrderItemModel) TableName() string { return "order_items" }

type ProductModel struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"size:255"`
}

func (ProductModel) TableName() string { return "products" }

type ProductVariantModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	ProductID string `gorm:"size:64;index"`
	Name      string `gorm:"size:255"`
	SKU       string `gorm:"size:64;uniqueIndex"`
}

func (ProductVariantModel) TableName() string { return "product_variants" }

// WarehouseModel 对应 warehouses 表
type WarehouseModel struct {
	ID                 string `gorm:"primaryKey;size:64"`
	Code               string `gorm:"size:64;uniqueIndex"`
	Name               string `gorm:"size:128"`
	Phone              string `gorm:"size:32"`
	Email              string `gorm:"size:128"`
	Line1              string `gorm:"size:255"`
	Line2              string `gorm:"size:255"`
	City               string `gorm:"size:64"`
	State              string `gorm:"size:64"`
	PostalCode         string `gorm:"size:16"`
	Country            string `gorm:"size:64"`
	IsActive           bool   `gorm:"index"`
	IsPrimary          bool
	ExternalPickupID   string `gorm:"size:64"`
	ExternalPickupCode string `gorm:"size:128"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (WarehouseModel) TableName() string { return "warehouses" }

type WarehouseLocationModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	WarehouseID string `gorm:"size:64;index"`
	Code        string `gorm:"size:64"`
}

func (WarehouseLocationModel) TableName() string { return "warehouse_locations" }

// InventoryLevelModel 可用库存 = on_hand - reserved
type InventoryLevelModel struct {
	ID         uint   `gorm:"primaryKey"`
	LocationID string `gorm:"size:64;uniqueIndex:uniq_location_variant"`
	VariantID  string `gorm:"size:64;uniqueIndex:uniq_location_variant"`
	OnHand     int
	Reserved   int
}

func (InventoryLevelModel) TableName() string { return "inventory_levels" }

// FulfillmentModel 对应 fulfillments 表。
// active_order_id 在非终态时等于 order_id，终态时为 NULL，唯一索引保证每个订单最多一个活跃发货单。
type FulfillmentModel struct {
	ID                 string  `gorm:"primaryKey;size:64"`
	OrderID            string  `gorm:"size:64;index"`
	ActiveOrderID      *string `gorm:"size:64;uniqueIndex:uniq_active_order"`
	WarehouseID        *string `gorm:"size:64"`
	Status             string  `gorm:"size:32;index"`
	ExternalOrderID    string  `gorm:"size:64;index"`
	ExternalShipmentID string  `gorm:"size:64;index"`
	ExternalStatus     string  `gorm:"size:64"`
	AWBCode            string  `gorm:"column:awb_code;size:64;index"`
	CourierID          string  `gorm:"size:32"`
	CourierName        string  `gorm:"size:128"`
	LabelURL           string  `gorm:"size:512"`
	TrackingURL        string  `gorm:"size:512"`
	PickupScheduledAt  *time.Time
	WeightKg           float64 `gorm:"type:decimal(8,3)"`
	LengthCm           float64 `gorm:"type:decimal(8,2)"`
	BreadthCm          float64 `gorm:"type:decimal(8,2)"`
	HeightCm           float64 `gorm:"type:decimal(8,2)"`
	LastError          string  `gorm:"type:text"`
	FailedStep         string  `gorm:"size:32"`
	RetryCount         int
	StatusUpdatedAt    time.Time
	EstimatedDelivery  *time.Time
	DeliveredAt        *time.Time
	RTOInitiatedAt     *time.Time `gorm:"column:rto_initiated_at"`
	RTODeliveredAt     *time.Time `gorm:"column:rto_delivered_at"`
	CreatedAt          time.Time  `gorm:"index"`
	UpdatedAt          time.Time
}

func (FulfillmentModel) TableName() string { return "fulfillments" }

// TrackingEventModel 对应 tracking_events 表，(fulfillment_id, status, event_second) 唯一
type TrackingEventModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	FulfillmentID  string `gorm:"size:64;uniqueIndex:uniq_tracking_event,priority:1"`
	Status         string `gorm:"size:32;uniqueIndex:uniq_tracking_event,priority:2"`
	EventSecond    int64  `gorm:"uniqueIndex:uniq_tracking_event,priority:3"`
	OccurredUnixMs int64  `gorm:"index"`
	Message        string `gorm:"size:512"`
	Location       string `gorm:"size:255"`
	OccurredAt     time.Time
	RawPayload     string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (TrackingEventModel) TableName() string { return "tracking_events" }

// allModels 迁移顺序
func allModels() []any {
	return []any{
		&OrderModel{}, &OrderItemModel{}, &ProductModel{}, &ProductVariantModel{},
		&WarehouseModel{}, &WarehouseLocationModel{}, &InventoryLevelModel{},
		&FulfillmentModel{}, &TrackingEventModel{},
	}
}
