package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pondokpos/backend/internal/allocator"
	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

// ApplyMovement updates one stocked entity's aggregate counter and
// appends the matching ledger record. The counter never goes negative:
// an `out` larger than the remaining stock clamps at zero while the
// movement still records the full requested delta. An `adjustment` sets
// the counter to the given absolute value.
func (s *Service) ApplyMovement(ctx context.Context, req domain.MovementRequest) (domain.StockMovement, error) {
	switch req.Type {
	case domain.MovementIn, domain.MovementOut:
		if req.Quantity < 1 {
			return domain.StockMovement{}, store.ErrInvalidRequest
		}
	case domain.MovementAdjustment:
		if req.Quantity < 0 {
			return domain.StockMovement{}, store.ErrInvalidRequest
		}
	default:
		return domain.StockMovement{}, store.ErrInvalidRequest
	}

	mu := s.entityLock(req.EntityKind + ":" + req.EntityID)
	mu.Lock()
	defer mu.Unlock()

	switch req.EntityKind {
	case domain.EntityKindProduct:
		product, err := s.repo.GetProductByID(ctx, req.EntityID)
		if err != nil {
			return domain.StockMovement{}, err
		}
		product.StockQuantity = nextQuantity(product.StockQuantity, req.Type, req.Quantity)
		if _, err := s.repo.UpdateProduct(ctx, *product); err != nil {
			return domain.StockMovement{}, err
		}
	case domain.EntityKindServiceItem:
		item, err := s.repo.GetServiceItemByID(ctx, req.EntityID)
		if err != nil {
			return domain.StockMovement{}, err
		}
		if !item.TrackStock {
			return domain.StockMovement{}, store.ErrInvalidRequest
		}
		item.StockQuantity = nextQuantity(item.StockQuantity, req.Type, req.Quantity)
		if _, err := s.repo.UpdateServiceItem(ctx, *item); err != nil {
			return domain.StockMovement{}, err
		}
	default:
		return domain.StockMovement{}, store.ErrInvalidRequest
	}

	movement, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
		ID:          xid.New("mov"),
		EntityKind:  req.EntityKind,
		EntityID:    req.EntityID,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.invalidateLowStock(ctx)
	return *movement, nil
}

func nextQuantity(current int, movementType string, qty int) int {
	switch movementType {
	case domain.MovementIn:
		return current + qty
	case domain.MovementOut:
		next := current - qty
		if next < 0 {
			return 0
		}
		return next
	case domain.MovementAdjustment:
		return qty
	}
	return current
}

// AdjustStock is the manual correction path, restricted to managers.
// It records an adjustment movement carrying the new absolute value.
func (s *Service) AdjustStock(ctx context.Context, entityKind string, entityID string, newQuantity int, reason string) (domain.StockMovement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.StockMovement{}, fmt.Errorf("manager role required")
	}
	if reason == "" {
		return domain.StockMovement{}, store.ErrInvalidRequest
	}

	movement, err := s.ApplyMovement(ctx, domain.MovementRequest{
		EntityKind: entityKind,
		EntityID:   entityID,
		Type:       domain.MovementAdjustment,
		Quantity:   newQuantity,
		Reason:     reason,
	})
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.logAudit(ctx, "stock_adjust", entityKind, entityID, fmt.Sprintf("qty=%d,reason=%s", newQuantity, reason))
	return movement, nil
}

// deductProductStock removes qty units from a product following the
// first-expired-first-out plan, keeps the aggregate counter equal to the
// batch sum, and appends the `out` movement. The caller must hold the
// product's entity lock. Nothing is mutated when stock cannot cover the
// request.
func (s *Service) deductProductStock(ctx context.Context, productID string, qty int, reason string, referenceID string) (domain.StockMovement, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return domain.StockMovement{}, err
	}
	batches, err := s.repo.ListBatchesByProduct(ctx, productID, false)
	if err != nil {
		return domain.StockMovement{}, err
	}

	plan, err := allocator.Plan(*product, batches, qty)
	if err != nil {
		return domain.StockMovement{}, err
	}
	if !plan.Fulfilled {
		return domain.StockMovement{}, store.ErrInsufficientStock
	}

	switch plan.Mode {
	case domain.AllocationModeBatched:
		for _, alloc := range plan.Allocations {
			if _, err := s.repo.DecrementBatchQuantity(ctx, alloc.BatchID, alloc.Quantity); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return domain.StockMovement{}, store.ErrInsufficientStock
				}
				return domain.StockMovement{}, err
			}
		}
		if err := s.syncAggregateFromBatches(ctx, productID); err != nil {
			return domain.StockMovement{}, err
		}
	case domain.AllocationModeAggregate:
		product.StockQuantity -= qty
		if product.StockQuantity < 0 {
			product.StockQuantity = 0
		}
		if _, err := s.repo.UpdateProduct(ctx, *product); err != nil {
			return domain.StockMovement{}, err
		}
	}

	movement, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
		ID:          xid.New("mov"),
		EntityKind:  domain.EntityKindProduct,
		EntityID:    productID,
		Type:        domain.MovementOut,
		Quantity:    qty,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.StockMovement{}, err
	}

	s.invalidateLowStock(ctx)
	return *movement, nil
}
