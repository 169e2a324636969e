package infrastructure

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// 与 TrackingEventModel 的列宽一致，MySQL utf8mb4 下按字符计
const (
	maxMessageLen  = 512
	maxLocationLen = 255
)

type GormTrackingEventRepository struct {
	db *gorm.DB
}

func NewGormTrackingEventRepository(db *gorm.DB) *GormTrackingEventRepository {
	return &GormTrackingEventRepository{db: db}
}

// ExistsNear 按毫秒时间戳比较，避免不同时区的时间字符串比较出错
func (r *GormTrackingEventRepository) ExistsNear(ctx context.Context, fulfillmentID string, status domain.Status, at time.Time, window time.Duration) (bool, error) {
	ms := at.UnixMilli()
	var n int64
	err := conn(ctx, r.db).Model(&TrackingEventModel{}).
		Where("fulfillment_id = ? AND status = ? AND occurred_unix_ms BETWEEN ? AND ?",
			fulfillmentID, string(status), ms-window.Milliseconds(), ms+window.Milliseconds()).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "check tracking event")
	}
	return n > 0, nil
}

// Insert 并发重复插入由唯一索引拦截，返回 (false, nil)
func (r *GormTrackingEventRepository) Insert(ctx context.Context, e *domain.TrackingEvent) (bool, error) {
	m := fromDomainTrackingEvent(e)
	m.Message = truncateRunes(m.Message, maxMessageLen)
	m.Location = truncateRunes(m.Location, maxLocationLen)
	db := conn(ctx, r.db)
	var err error
	if _, inTx := ctx.Value(txKey{}).(*gorm.DB); inTx {
		// 冲突时只回滚到 SAVEPOINT，外层事务继续
		err = db.Transaction(func(tx *gorm.DB) error { return tx.Create(m).Error })
	} else {
		err = db.Create(m).Error
	}
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "insert tracking event")
	}
	return true, nil
}

// truncateRunes 按字符截断，不会切断多字节字符；非法字节替换为 U+FFFD
func truncateRunes(s string, max int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func (r *GormTrackingEventRepository) ListByFulfillment(ctx context.Context, fulfillmentID string) ([]*domain.TrackingEvent, error) {
	var ms []TrackingEventModel
	err := conn(ctx, r.db).Where("fulfillment_id = ?", fulfillmentID).Order("occurred_unix_ms ASC").Find(&ms).Error
	if err != nil {
		return nil, errors.Wrap(err, "list tracking events")
	}
	out := make([]*domain.TrackingEvent, 0, len(ms))
	for i := range ms {
		out = append(out, toDomainTrackingEvent(&ms[i]))
	}
	return out, nil
}

var (
	_ domain.OrderRepository         = (*GormOrderRepository)(nil)
	_ domain.WarehouseRepository     = (*GormWarehouseRepository)(nil)
	_ domain.FulfillmentRepository   = (*GormFulfillmentRepository)(nil)
	_ domain.TrackingEventRepository = (*GormTrackingEventRepository)(nil)
	_ domain.Transactor              = (*TxManager)(nil)
)
