// internal/service/fulfillment/domain/status.go
package domain

// Status 是发货单 (Fulfillment) 的生命周期状态
type Status string

const (
	StatusPending         Status = "PENDING"          // 本地记录已创建，承运商调用尚未完成
	StatusCreated         Status = "CREATED"          // 承运商侧订单已创建，与 PENDING 同级
	StatusPickupScheduled Status = "PICKUP_SCHEDULED" // 已分配运单号并预约揽收
	StatusPicked          Status = "PICKED"
	StatusInTransit       Status = "IN_TRANSIT"
	StatusOutForDelivery  Status = "OUT_FOR_DELIVERY"
	StatusDelivered       Status = "DELIVERED" // 终态
	StatusRTOInitiated    Status = "RTO_INITIATED"
	StatusRTOInTransit    Status = "RTO_IN_TRANSIT"
	StatusRTODelivered    Status = "RTO_DELIVERED" // 终态
	StatusCancelled       Status = "CANCELLED"     // 终态
	StatusFailed          Status = "FAILED"        // 终态
)

// forwardRank 主链路上的先后顺序
var forwardRank = map[Status]int{
	StatusPending:         0,
	StatusCreated:         0,
	StatusPickupScheduled: 1,
	StatusPicked:          2,
	StatusInTransit:       3,
	StatusOutForDelivery:  4,
	StatusDelivered:       5,
}

var rtoRank = map[Status]int{
	StatusRTOInitiated: 1,
	StatusRTOInTransit: 2,
	StatusRTODelivered: 3,
}

// rtoEntry 可以进入退货链路的状态
var rtoEntry = map[Status]bool{
	StatusPicked:         true,
	StatusInTransit:      true,
	StatusOutForDelivery: true,
}

// IsTerminal 终态之后不再接受任何状态迁移
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusRTODelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// IsActive 非终态的发货单占用订单的"唯一活跃发货单"名额
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

func (s Status) Valid() bool {
	_, fwd := forwardRank[s]
	_, rto := rtoRank[s]
	return fwd || rto || s == StatusCancelled || s == StatusFailed
}

// CanTransition 判断 from -> to 是否是合法迁移。
// 主链路和退货链路都允许跳过中间状态，但不允许回退；相同状态视为合法（幂等刷新）。
func CanTransition(from, to Status) bool {
	if from.IsTerminal() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if to == StatusCancelled || to == StatusFailed {
		return true
	}

	fromFwd, fromOnMain := forwardRank[from]
	toFwd, toOnMain := forwardRank[to]
	fromRTO, fromOnRTO := rtoRank[from]
	toRTO, toOnRTO := rtoRank[to]

	switch {
	case fromOnMain && toOnMain:
		return toFwd > fromFwd
	case fromOnMain && toOnRTO:
		return rtoEntry[from]
	case fromOnRTO && toOnRTO:
		return toRTO > fromRTO
	}
	return false
}
