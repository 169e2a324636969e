// internal/service/fulfillment/domain/order.go
package domain

import "time"

// OrderStatus 订单状态。下单流程不在本服务内，这里只关心发货相关的部分
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderReturned   OrderStatus = "RETURNED"
)

// orderCascade 发货单状态变化时订单状态的联动表；表中没有的状态不改订单
var orderCascade = map[Status]OrderStatus{
	StatusPickupScheduled: OrderProcessing,
	StatusPicked:          OrderShipped,
	StatusInTransit:       OrderShipped,
	StatusOutForDelivery:  OrderShipped,
	StatusDelivered:       OrderDelivered,
	StatusRTODelivered:    OrderReturned,
	StatusCancelled:       OrderCancelled,
}

// CascadeOrderStatus 返回发货单状态对应的订单状态
func CascadeOrderStatus(s Status) (OrderStatus, bool) {
	o, ok := orderCascade[s]
	return o, ok
}

// Address 收货 / 账单地址
type Address struct {
	Name       string
	Phone      string
	Email      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderItem 订单行，名称和 SKU 来自商品 / 规格表
type OrderItem struct {
	VariantID   string
	ProductName string
	VariantName string
	SKU         string
	Quantity    int
	Price       float64
}

// Order 是发货流程读取的订单视图
type Order struct {
	ID              string
	Status          OrderStatus
	PaymentRef      string // 支付流水号，为空表示货到付款
	ShippingAddress *Address
	BillingAddress  *Address
	Items           []OrderItem
	SubTotal        float64
	CreatedAt       time.Time
}

// IsFulfillable 只有已确认或处理中的订单可以发货
func (o *Order) IsFulfillable() bool {
	return o.Status == OrderConfirmed || o.Status == OrderProcessing
}

// TotalQuantity 所有订单行的件数之和
func (o *Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Billing 未单独填写账单地址时沿用收货地址
func (o *Order) Billing() *Address {
	if o.BillingAddress != nil {
		return o.BillingAddress
	}
	return o.ShippingAddress
}

// IsPrepaid 有支付流水即视为预付
func (o *Order) IsPrepaid() bool {
	return o.PaymentRef != ""
}
