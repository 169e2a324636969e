package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// WarehouseSelector 按主仓优先的顺序挑选第一个库存足够且目的地可达的仓库
type WarehouseSelector struct {
	warehouses    domain.WarehouseRepository
	carrier       port.CarrierGateway
	nominalWeight float64
	tracer        trace.Tracer
}

func NewWarehouseSelector(warehouses domain.WarehouseRepository, carrier port.CarrierGateway, nominalWeightKg float64, tracer trace.Tracer) *WarehouseSelector {
	if nominalWeightKg <= 0 {
		nominalWeightKg = 0.5
	}
	return &WarehouseSelector{warehouses: warehouses, carrier: carrier, nominalWeight: nominalWeightKg, tracer: tracer}
}

// Select 可达性检查出错或没有可用快递时只跳过该仓库；存储错误直接返回
func (s *WarehouseSelector) Select(ctx context.Context, items []domain.OrderItem, postcode string, cod bool) (*domain.Warehouse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SelectWarehouse")
	defer span.End()
	log := logger.Ctx(ctx).With().Str("delivery_postcode", postcode).Logger()

	need := make(map[string]int, len(items))
	var variantIDs []string
	for _, it := range items {
		if _, ok := need[it.VariantID]; !ok {
			variantIDs = append(variantIDs, it.VariantID)
		}
		need[it.VariantID] += it.Quantity
	}

	candidates, err := s.warehouses.ListShippable(ctx)
	if err != nil {
		return nil, domain.Internal("SelectWarehouse", "", err)
	}
	span.SetAttributes(attribute.Int("warehouse.candidates", len(candidates)))

	for _, w := range candidates {
		stock, err := s.warehouses.AvailableStock(ctx, w.ID, variantIDs)
		if err != nil {
			return nil, domain.Internal("SelectWarehouse", "", err)
		}
		if v, ok := shortfall(need, variantIDs, stock); ok {
			log.Debug().Str("warehouse", w.Code).Str("variant_id", v).Msg("insufficient stock")
			continue
		}

		options, err := s.carrier.CheckServiceability(ctx, port.ServiceabilityRequest{
			PickupPostcode:   w.PostalCode,
			DeliveryPostcode: postcode,
			WeightKg:         s.nominalWeight,
			COD:              cod,
		})
		if err != nil {
			log.Warn().Err(err).Str("warehouse", w.Code).Msg("serviceability check failed, skipping warehouse")
			continue
		}
		if len(options) == 0 {
			log.Debug().Str("warehouse", w.Code).Msg("no courier serves this route")
			continue
		}

		span.SetAttributes(attribute.String("warehouse.selected", w.Code))
		log.Info().Str("warehouse", w.Code).Int("couriers", len(options)).Msg("warehouse selected")
		return w, nil
	}
	return nil, domain.E(domain.KindNotServiceable, "SelectWarehouse", "no serviceable warehouse found")
}

// shortfall 返回第一个库存不足的规格
func shortfall(need map[string]int, order []string, stock map[string]int) (string, bool) {
	for _, v := range order {
		if stock[v] < need[v] {
			return v, true
		}
	}
	return "", false
}
