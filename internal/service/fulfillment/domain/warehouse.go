package domain

// Warehouse 发货仓，同时是承运商侧的揽收地址
type Warehouse struct {
	ID         string
	Code       string
	Name       string
	Phone      string
	Email      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsActive   bool
	IsPrimary  bool

	// 承运商注册后回写，只写一次
	ExternalPickupID   string
	ExternalPickupCode string
}

// IsShippable 启用且已在承运商注册揽收点
func (w *Warehouse) IsShippable() bool {
	return w.IsActive && w.ExternalPickupCode != ""
}

// IsSynced 是否已回写承运商揽收点信息
func (w *Warehouse) IsSynced() bool {
	return w.ExternalPickupCode != "" || w.ExternalPickupID != ""
}
