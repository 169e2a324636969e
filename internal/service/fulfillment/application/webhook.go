// internal/service/fulfillment/application/webhook.go
package application

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/metrics"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// scanTimeLayouts 承运商扫描时间的几种写法
var scanTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	time.RFC3339,
	"2006-01-02",
	"02-01-2006",
}

type WebhookConfig struct {
	Secret string
	// 仅在未配置 Secret 时生效
	AllowUnauthenticated bool
}

// WebhookService 处理承运商状态回调
type WebhookService struct {
	cfg          WebhookConfig
	fulfillments domain.FulfillmentRepository
	tracking     domain.TrackingEventRepository
	orders       domain.OrderRepository
	tx           domain.Transactor
	publisher    port.EventPublisher
	tracer       trace.Tracer
	loc          *time.Location
	now          func() time.Time
}

func NewWebhookService(cfg WebhookConfig, deps Dependencies) *WebhookService {
	return &WebhookService{
		cfg:          cfg,
		fulfillments: deps.Fulfillments,
		tracking:     deps.Tracking,
		orders:       deps.Orders,
		tx:           deps.Tx,
		publisher:    deps.Publisher,
		tracer:       deps.Tracer,
		loc:          time.Local,
		now:          time.Now,
	}
}

// Authenticate 比较 "Authorization: Bearer <secret>" 或 X-Webhook-Token。
// 未配置 secret 时默认拒绝，除非显式打开 AllowUnauthenticated。
func (s *WebhookService) Authenticate(authorization, headerToken string) error {
	const op = "AuthenticateWebhook"
	if s.cfg.Secret == "" {
		if s.cfg.AllowUnauthenticated {
			return nil
		}
		return domain.E(domain.KindWebhookAuth, op, "webhook secret is not configured")
	}
	var candidates []string
	if len(authorization) > 7 && strings.EqualFold(authorization[:7], "bearer ") {
		candidates = append(candidates, strings.TrimSpace(authorization[7:]))
	}
	if headerToken != "" {
		candidates = append(candidates, strings.TrimSpace(headerToken))
	}
	for _, c := range candidates {
		if subtle.ConstantTimeCompare([]byte(c), []byte(s.cfg.Secret)) == 1 {
			return nil
		}
	}
	return domain.E(domain.KindWebhookAuth, op, "invalid webhook token")
}

// Handle 返回的 error 只有两类：KindValidation（请求体无法解析，400）和其它（500，承运商会重试）。
// 找不到发货单不是错误，返回 Success=false。
func (s *WebhookService) Handle(ctx context.Context, raw []byte) (*WebhookResult, error) {
	const op = "HandleWebhook"
	ctx, span := s.tracer.Start(ctx, "app.HandleWebhook", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		metrics.Webhooks.WithLabelValues("malformed").Inc()
		return nil, &domain.Error{Kind: domain.KindValidation, Op: op, Message: "malformed webhook payload", Err: err}
	}
	now := s.now()
	latest := latestScan(p.Scans, s.loc, now)
	rawStatus := strings.TrimSpace(p.CurrentStatus)
	if rawStatus == "" && latest != nil {
		rawStatus = strings.TrimSpace(latest.scan.Status)
	}
	// 只推送 EDD 或承运商名称时没有状态，只更新这两个字段
	hasStatus := rawStatus != ""

	var mapped domain.Status
	if hasStatus {
		mapped = domain.MapCarrierStatus(rawStatus)
	}
	eventAt, message, location := now, rawStatus, ""
	if latest != nil {
		eventAt = latest.at
		if latest.scan.Activity != "" {
			message = latest.scan.Activity
		}
		location = latest.scan.Location
	}

	span.SetAttributes(
		attribute.String("webhook.awb", p.AWB.String()),
		attribute.String("webhook.status", rawStatus),
		attribute.String("fulfillment.mapped_status", string(mapped)),
	)
	log := logger.Ctx(ctx).With().Str("awb", p.AWB.String()).Str("shipment_id", p.ShipmentID.String()).
		Str("raw_status", rawStatus).Logger()

	var (
		result  *WebhookResult
		changed *domain.FulfillmentEvent
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f, key, err := s.resolve(ctx, &p)
		if err != nil {
			if domain.IsNotFound(err) {
				result = &WebhookResult{Success: false, Message: "fulfillment not found"}
				return nil
			}
			return err
		}
		log := log.With().Str("fulfillment_id", f.ID).Str("resolved_by", key).Logger()

		if !hasStatus {
			if s.applyDetails(f, &p, now) {
				if err := s.fulfillments.Update(ctx, f); err != nil {
					return err
				}
			}
			result = &WebhookResult{Success: true, Message: "no status update", FulfillmentID: f.ID, Status: string(f.Status)}
			log.Info().Msg("webhook without status acknowledged")
			return nil
		}

		dup, err := s.tracking.ExistsNear(ctx, f.ID, mapped, eventAt, domain.DuplicateEventWindow)
		if err != nil {
			return err
		}
		if dup {
			log.Info().Msg("duplicate webhook event ignored")
			result = &WebhookResult{Success: true, Message: "duplicate event", FulfillmentID: f.ID, Status: string(f.Status), Duplicate: true}
			return nil
		}

		prev := f.Status
		if domain.CanTransition(prev, mapped) {
			f.ApplyStatus(mapped, rawStatus, now)
			s.applyDetails(f, &p, now)
			if err := s.fulfillments.Update(ctx, f); err != nil {
				return err
			}
			if prev != f.Status {
				if err := s.cascadeOrder(ctx, f); err != nil {
					return err
				}
				ev := domain.NewFulfillmentEvent(domain.EventFulfillmentStatusChanged, f, prev)
				changed = &ev
			}
		} else {
			log.Warn().Str("from", string(prev)).Str("to", string(mapped)).Msg("status transition not allowed, recording event only")
		}

		inserted, err := s.tracking.Insert(ctx, domain.NewTrackingEvent(f.ID, mapped, message, location, eventAt, raw))
		if err != nil {
			return err
		}
		result = &WebhookResult{Success: true, Message: "processed", FulfillmentID: f.ID, Status: string(f.Status), Duplicate: !inserted}
		log.Info().Str("from", string(prev)).Str("to", string(f.Status)).Bool("inserted", inserted).Msg("webhook processed")
		return nil
	})
	if err != nil {
		metrics.Webhooks.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook processing failed")
		log.Error().Err(err).Msg("webhook processing failed")
		return nil, domain.Internal(op, "", err)
	}

	switch {
	case !result.Success:
		metrics.Webhooks.WithLabelValues("not_found").Inc()
		log.Warn().Msg("webhook did not match any fulfillment")
	case result.Duplicate:
		metrics.Webhooks.WithLabelValues("duplicate").Inc()
	default:
		metrics.Webhooks.WithLabelValues("processed").Inc()
	}
	if changed != nil && s.publisher != nil {
		if err := s.publisher.Publish(ctx, *changed); err != nil {
			log.Warn().Err(err).Msg("publish status change failed")
		}
	}
	return result, nil
}

// applyDetails 写入 EDD 和承运商名称，返回是否有变化
func (s *WebhookService) applyDetails(f *domain.Fulfillment, p *WebhookPayload, now time.Time) bool {
	changed := false
	if edd := parseScanTime(p.EDD, "", s.loc); edd != nil &&
		(f.EstimatedDelivery == nil || !f.EstimatedDelivery.Equal(*edd)) {
		f.EstimatedDelivery = edd
		changed = true
	}
	if name := strings.TrimSpace(p.CourierName); name != "" && name != f.CourierName {
		f.CourierName = name
		changed = true
	}
	if changed {
		f.UpdatedAt = now
	}
	return changed
}

// resolve 依次按 AWB、shipment id、承运商订单号查找，第一个命中的生效
func (s *WebhookService) resolve(ctx context.Context, p *WebhookPayload) (*domain.Fulfillment, string, error) {
	lookups := []struct {
		key   string
		value string
		find  func(context.Context, string) (*domain.Fulfillment, error)
	}{
		{"awb", p.AWB.String(), s.fulfillments.FindByAWB},
		{"shipment_id", p.ShipmentID.String(), s.fulfillments.FindByShipmentID},
		{"order_id", p.OrderID.String(), s.fulfillments.FindByExternalOrderID},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		f, err := l.find(ctx, l.value)
		if err == nil {
			return f, l.key, nil
		}
		if !domain.IsNotFound(err) {
			return nil, "", err
		}
	}
	return nil, "", domain.E(domain.KindNotFound, "HandleWebhook", "fulfillment not found")
}

// cascadeOrder 订单不存在时只记日志，不阻塞发货单更新
func (s *WebhookService) cascadeOrder(ctx context.Context, f *domain.Fulfillment) error {
	target, ok := domain.CascadeOrderStatus(f.Status)
	if !ok {
		return nil
	}
	err := s.orders.UpdateStatus(ctx, f.OrderID, target)
	if domain.IsNotFound(err) {
		logger.Ctx(ctx).Warn().Str("order_id", f.OrderID).Msg("order missing during status cascade")
		return nil
	}
	return err
}

type datedScan struct {
	scan WebhookScan
	at   time.Time
}

// latestScan 时间最晚的扫描；都无法解析时取最后一条并使用当前时间
func latestScan(scans []WebhookScan, loc *time.Location, now time.Time) *datedScan {
	var best *datedScan
	for _, sc := range scans {
		at := parseScanTime(sc.Date, sc.Time, loc)
		if at == nil {
			continue
		}
		if best == nil || !at.Before(best.at) {
			best = &datedScan{scan: sc, at: *at}
		}
	}
	if best == nil && len(scans) > 0 {
		last := scans[len(scans)-1]
		return &datedScan{scan: last, at: now}
	}
	return best
}

func parseScanTime(date, clock string, loc *time.Location) *time.Time {
	v := strings.TrimSpace(date)
	if c := strings.TrimSpace(clock); c != "" {
		v += " " + c
	}
	if v == "" {
		return nil
	}
	for _, layout := range scanTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return &t
		}
	}
	return nil
}
