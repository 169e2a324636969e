package domain

import "strings"

// carrierStatusTable 承运商状态词表 -> 内部状态。key 已规范化（大写、单空格）
var carrierStatusTable = map[string]Status{
	"NEW":                        StatusCreated,
	"CREATED":                    StatusCreated,
	"ORDER CREATED":              StatusCreated,
	"AWB ASSIGNED":               StatusCreated,
	"LABEL GENERATED":            StatusCreated,
	"MANIFEST GENERATED":         StatusCreated,
	"PICKUP SCHEDULED":           StatusPickupScheduled,
	"PICKUP GENERATED":           StatusPickupScheduled,
	"PICKUP QUEUED":              StatusPickupScheduled,
	"PICKUP RESCHEDULED":         StatusPickupScheduled,
	"OUT FOR PICKUP":             StatusPickupScheduled,
	"PICKED UP":                  StatusPicked,
	"PICKED":                     StatusPicked,
	"SHIPPED":                    StatusPicked,
	"IN TRANSIT":                 StatusInTransit,
	"REACHED AT DESTINATION HUB": StatusInTransit,
	"REACHED DESTINATION HUB":    StatusInTransit,
	"MISROUTED":                  StatusInTransit,
	"DELAYED":                    StatusInTransit,
	"OUT FOR DELIVERY":           StatusOutForDelivery,
	"DELIVERED":                  StatusDelivered,
	"RTO":                        StatusRTOInitiated,
	"RTO INITIATED":              StatusRTOInitiated,
	"RTO IN TRANSIT":             StatusRTOInTransit,
	"RTO IN-TRANSIT":             StatusRTOInTransit,
	"RTO OFD":                    StatusRTOInTransit,
	"RTO DELIVERED":              StatusRTODelivered,
	"CANCELLED":                  StatusCancelled,
	"CANCELED":                   StatusCancelled,
}

// MapCarrierStatus 把承运商推送的原始状态翻译为内部状态。
// 未识别的状态一律视为 IN_TRANSIT，词表漂移时流程不会卡住。
func MapCarrierStatus(raw string) Status {
	if s, ok := carrierStatusTable[normalizeCarrierStatus(raw)]; ok {
		return s
	}
	return StatusInTransit
}

func normalizeCarrierStatus(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
