package application

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

const syncOp = "SyncWarehouse"

// WarehouseSyncService 把仓库注册为承运商揽收点，回写的字段只写一次
type WarehouseSyncService struct {
	warehouses domain.WarehouseRepository
	carrier    port.CarrierGateway
	tracer     trace.Tracer
}

func NewWarehouseSyncService(warehouses domain.WarehouseRepository, carrier port.CarrierGateway, tracer trace.Tracer) *WarehouseSyncService {
	return &WarehouseSyncService{warehouses: warehouses, carrier: carrier, tracer: tracer}
}

// Sync 已同步的仓库直接返回；承运商侧已存在同名揽收点时复用，不重复注册
func (s *WarehouseSyncService) Sync(ctx context.Context, warehouseID string) (*domain.Warehouse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SyncWarehouse")
	defer span.End()
	span.SetAttributes(attribute.String("warehouse.id", warehouseID))
	log := logger.Ctx(ctx).With().Str("warehouse_id", warehouseID).Logger()

	w, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if w.IsSynced() {
		log.Info().Str("pickup_code", w.ExternalPickupCode).Msg("warehouse already synced")
		return w, nil
	}
	if err := validateForPickup(w); err != nil {
		return nil, err
	}

	existing, err := s.carrier.ListPickupLocations(ctx)
	if err != nil {
		return nil, domain.CarrierFailure(syncOp, "list_pickup", err)
	}
	var registered *port.PickupLocation
	for i := range existing {
		if strings.EqualFold(existing[i].Code, w.Code) {
			registered = &existing[i]
			break
		}
	}
	if registered == nil {
		registered, err = s.carrier.AddPickupLocation(ctx, port.PickupLocation{
			Code:       w.Code,
			Name:       w.Name,
			Email:      w.Email,
			Phone:      w.Phone,
			Line1:      w.Line1,
			Line2:      w.Line2,
			City:       w.City,
			State:      w.State,
			Country:    w.Country,
			PostalCode: w.PostalCode,
		})
		if err != nil {
			return nil, domain.CarrierFailure(syncOp, "add_pickup", err)
		}
		log.Info().Str("pickup_code", registered.Code).Msg("pickup location registered with carrier")
	} else {
		log.Info().Str("pickup_code", registered.Code).Msg("pickup location already known to carrier")
	}

	code := registered.Code
	if code == "" {
		code = w.Code
	}
	written, err := s.warehouses.SetExternalPickup(ctx, w.ID, registered.ID, code)
	if err != nil {
		return nil, err
	}
	if !written {
		log.Info().Msg("warehouse synced concurrently, keeping existing values")
	}
	return s.warehouses.FindByID(ctx, w.ID)
}

func validateForPickup(w *domain.Warehouse) error {
	fields := []struct{ name, value string }{
		{"code", w.Code}, {"address", w.Line1}, {"postal code", w.PostalCode}, {"phone", w.Phone},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.E(domain.KindValidation, syncOp, "warehouse %s is missing %s", w.ID, strings.Join(missing, ", "))
	}
	return nil
}
