package interfaces

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/application"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

const maxBodyBytes = 1 << 20

// FulfillmentHandler 封装了 fulfillment 服务的 HTTP 处理器
type FulfillmentHandler struct {
	shipments *application.FulfillmentApplicationService
	webhooks  *application.WebhookService
	sync      *application.WarehouseSyncService
	tracer    trace.Tracer
}

func NewFulfillmentHandler(shipments *application.FulfillmentApplicationService, webhooks *application.WebhookService, sync *application.WarehouseSyncService, tracer trace.Tracer) *FulfillmentHandler {
	return &FulfillmentHandler{shipments: shipments, webhooks: webhooks, sync: sync, tracer: tracer}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *FulfillmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /shipments", h.createShipment)
	mux.HandleFunc("GET /fulfillments", h.listFulfillments)
	mux.HandleFunc("POST /warehouses/{id}/sync", h.syncWarehouse)
	mux.HandleFunc("POST /webhooks/carrier", h.carrierWebhook)
}

func (h *FulfillmentHandler) createShipment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.CreateShipment", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	var req application.CreateShipmentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, &domain.Error{Kind: domain.KindValidation, Op: "CreateShipment", Message: "invalid request body", Err: err})
		return
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID))

	f, err := h.shipments.CreateShipment(ctx, &req)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", req.OrderID).Msg("create shipment failed")
		writeErrorWith(w, err, f)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "fulfillment": application.NewFulfillmentDTO(f)})
}

func (h *FulfillmentHandler) listFulfillments(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.ListFulfillments", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	list, err := h.shipments.ListFulfillments(ctx, r.URL.Query().Get("order_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "fulfillments": list})
}

func (h *FulfillmentHandler) syncWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.SyncWarehouse", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	wh, err := h.sync.Sync(ctx, r.PathValue("id"))
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("warehouse_id", r.PathValue("id")).Msg("warehouse sync failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "warehouse": application.NewWarehouseDTO(wh)})
}

// carrierWebhook 除了鉴权失败 (401)、请求体无法解析 (400)、内部错误 (500) 以外一律返回 200
func (h *FulfillmentHandler) carrierWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "http.CarrierWebhook", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	if err := h.webhooks.Authenticate(r.Header.Get("Authorization"), r.Header.Get("X-Webhook-Token")); err != nil {
		logger.Ctx(ctx).Warn().Str("remote", r.RemoteAddr).Msg("webhook rejected: unauthorized")
		writeError(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, &domain.Error{Kind: domain.KindValidation, Op: "HandleWebhook", Message: "unable to read body", Err: err})
		return
	}
	res, err := h.webhooks.Handle(ctx, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type errorResponse struct {
	Success     bool                        `json:"success"`
	Error       string                      `json:"error"`
	Kind        string                      `json:"kind"`
	Step        string                      `json:"step,omitempty"`
	Fields      map[string][]string         `json:"fields,omitempty"`
	Fulfillment *application.FulfillmentDTO `json:"fulfillment,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWith(w, err, nil)
}

// writeErrorWith 发货失败时把 FAILED 记录一起返回，方便调用方展示
func writeErrorWith(w http.ResponseWriter, err error, f *domain.Fulfillment) {
	resp := errorResponse{Success: false, Error: err.Error(), Kind: domain.KindOf(err).String()}
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Message != "" {
			resp.Error = de.Message
		}
		resp.Step = de.Step
		resp.Fields = de.Fields
	}
	if f != nil {
		dto := application.NewFulfillmentDTO(f)
		resp.Fulfillment = &dto
	}
	writeJSON(w, domain.HTTPStatus(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
