package port

import (
	"context"
	"time"
)

// CarrierGateway 是承运商 API 的出站端口。
// 非 2xx 响应返回 *carrier.APIError，token 获取失败返回 KindAuth 错误。
type CarrierGateway interface {
	// CheckServiceability 查询从 pickup 邮编到 delivery 邮编的可用快递公司
	CheckServiceability(ctx context.Context, req ServiceabilityRequest) ([]CourierOption, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)
	// AssignAWB courierID 为空时由承运商自动选择快递公司
	AssignAWB(ctx context.Context, shipmentID, courierID string) (*AWBResult, error)
	GeneratePickup(ctx context.Context, shipmentID string) (*PickupResult, error)
	GenerateLabel(ctx context.Context, shipmentID string) (string, error)
	ListPickupLocations(ctx context.Context) ([]PickupLocation, error)
	AddPickupLocation(ctx context.Context, loc PickupLocation) (*PickupLocation, error)
}

type ServiceabilityRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	WeightKg         float64
	COD              bool
}

type CourierOption struct {
	CourierID   string
	CourierName string
	Rate        float64
	ETD         string
}

type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Email      string
	Phone      string
}

type OrderLine struct {
	Name  string
	SKU   string
	Units int
	Price float64
}

// CreateOrderRequest 承运商订单，PickupLocation 为仓库注册时的揽收点编码
type CreateOrderRequest struct {
	OrderID           string
	OrderDate         time.Time
	PickupLocation    string
	Shipping          Address
	Billing           Address
	ShippingIsBilling bool
	Items             []OrderLine
	PaymentMethod     string // "Prepaid" 或 "COD"
	SubTotal          float64
	WeightKg          float64
	LengthCm          float64
	BreadthCm         float64
	HeightCm          float64
}

// CreateOrderResult 承运商有时会在建单时直接分配 AWB
type CreateOrderResult struct {
	OrderID     string
	ShipmentID  string
	Status      string
	AWBCode     string
	CourierID   string
	CourierName string
}

type AWBResult struct {
	AWBCode     string
	CourierID   string
	CourierName string
}

type PickupResult struct {
	ScheduledAt *time.Time
	Token       string
}

type PickupLocation struct {
	ID         string
	Code       string // 承运商侧的揽收点名称
	Name       string
	Email      string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	Country    string
	PostalCode string
}
