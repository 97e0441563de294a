package service

import (
	"context"
	"fmt"
	"time"

	"pondokpos/backend/internal/allocator"
	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

// ConsumeService records the use of a hotel service item, for example a
// minibar drink charged to a stay. Untracked items produce no stock
// effect. A tracked item loses its own stock; when it is also linked to
// a retail product the same quantity leaves the product's batches, as
// two independent movements in the ledger. Both domains are checked
// before either is touched so a shortfall leaves no half-applied state.
func (s *Service) ConsumeService(ctx context.Context, req domain.ServiceConsumptionRequest) (domain.ServiceConsumptionResponse, error) {
	if req.ServiceItemID == "" || req.Quantity < 1 {
		return domain.ServiceConsumptionResponse{}, store.ErrInvalidRequest
	}

	item, err := s.repo.GetServiceItemByID(ctx, req.ServiceItemID)
	if err != nil {
		return domain.ServiceConsumptionResponse{}, err
	}
	if !item.Active {
		return domain.ServiceConsumptionResponse{}, store.ErrInvalidRequest
	}

	if !item.TrackStock {
		s.logAudit(ctx, "service_consume", "service_item", item.ID, fmt.Sprintf("qty=%d,tracked=false", req.Quantity))
		return domain.ServiceConsumptionResponse{
			ServiceItemID: item.ID,
			Tracked:       false,
			Movements:     []domain.StockMovement{},
		}, nil
	}

	mu := s.entityLock(domain.EntityKindServiceItem + ":" + item.ID)
	mu.Lock()
	defer mu.Unlock()

	// Re-read under the lock; another consumption may have landed.
	item, err = s.repo.GetServiceItemByID(ctx, req.ServiceItemID)
	if err != nil {
		return domain.ServiceConsumptionResponse{}, err
	}
	if item.StockQuantity < req.Quantity {
		return domain.ServiceConsumptionResponse{}, store.ErrInsufficientStock
	}

	if item.ProductID != "" {
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return domain.ServiceConsumptionResponse{}, err
		}
		batches, err := s.repo.ListBatchesByProduct(ctx, item.ProductID, false)
		if err != nil {
			return domain.ServiceConsumptionResponse{}, err
		}
		plan, err := allocator.Plan(*product, batches, req.Quantity)
		if err != nil {
			return domain.ServiceConsumptionResponse{}, err
		}
		if !plan.Fulfilled {
			return domain.ServiceConsumptionResponse{}, store.ErrInsufficientStock
		}
	}

	item.StockQuantity -= req.Quantity
	if _, err := s.repo.UpdateServiceItem(ctx, *item); err != nil {
		return domain.ServiceConsumptionResponse{}, err
	}

	serviceMovement, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
		ID:          xid.New("mov"),
		EntityKind:  domain.EntityKindServiceItem,
		EntityID:    item.ID,
		Type:        domain.MovementOut,
		Quantity:    req.Quantity,
		Reason:      "service consumption",
		ReferenceID: req.ReferenceID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.ServiceConsumptionResponse{}, err
	}

	movements := []domain.StockMovement{*serviceMovement}

	if item.ProductID != "" {
		productLock := s.entityLock(domain.EntityKindProduct + ":" + item.ProductID)
		productLock.Lock()
		productMovement, err := s.deductProductStock(ctx, item.ProductID, req.Quantity, "service consumption", req.ReferenceID)
		productLock.Unlock()
		if err != nil {
			return domain.ServiceConsumptionResponse{}, err
		}
		movements = append(movements, productMovement)
	}

	s.invalidateLowStock(ctx)
	s.logAudit(ctx, "service_consume", "service_item", item.ID, fmt.Sprintf("qty=%d,linked=%t", req.Quantity, item.ProductID != ""))

	return domain.ServiceConsumptionResponse{
		ServiceItemID: item.ID,
		Tracked:       true,
		Movements:     movements,
	}, nil
}
