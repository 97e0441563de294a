// Package allocator plans how a requested quantity of a product is
// drawn from its batches. Planning is pure: callers apply the resulting
// plan through the stock ledger, never here.
package allocator

import (
	"errors"
	"slices"
	"strings"

	"pondokpos/backend/internal/domain"
)

var ErrInvalidQuantity = errors.New("allocator: requested quantity must be positive")

// Plan builds a first-expired-first-out allocation for requested units
// of product across batches. Batches with the earliest expiry are drained
// first; undated batches come last. When the product carries no batches
// at all the plan falls back to the product's aggregate counter.
//
// A plan may be partial: Fulfilled is false and ShortBy is positive when
// the available stock cannot cover the request. Exhausted batches are
// skipped and input slices are never mutated.
func Plan(product domain.Product, batches []domain.Batch, requested int) (domain.AllocationPlan, error) {
	if requested <= 0 {
		return domain.AllocationPlan{}, ErrInvalidQuantity
	}

	plan := domain.AllocationPlan{
		ProductID: product.ID,
		Requested: requested,
	}

	if len(batches) == 0 {
		plan.Mode = domain.AllocationModeAggregate
		plan.Allocated = min(product.StockQuantity, requested)
		if plan.Allocated < 0 {
			plan.Allocated = 0
		}
		plan.ShortBy = requested - plan.Allocated
		plan.Fulfilled = plan.ShortBy == 0
		return plan, nil
	}

	ordered := make([]domain.Batch, len(batches))
	copy(ordered, batches)
	slices.SortFunc(ordered, CompareFEFO)

	plan.Mode = domain.AllocationModeBatched
	remaining := requested
	for _, batch := range ordered {
		if remaining == 0 {
			break
		}
		if batch.Quantity <= 0 {
			continue
		}
		take := min(batch.Quantity, remaining)
		plan.Allocations = append(plan.Allocations, domain.BatchAllocation{
			BatchID:  batch.ID,
			Quantity: take,
		})
		remaining -= take
	}

	plan.Allocated = requested - remaining
	plan.ShortBy = remaining
	plan.Fulfilled = remaining == 0
	return plan, nil
}

// CompareFEFO orders batches for allocation: earliest expiry first,
// undated batches after all dated ones, ties broken by receipt time and
// finally by ID so the order is deterministic.
func CompareFEFO(a domain.Batch, b domain.Batch) int {
	if a.ExpiryDate == nil && b.ExpiryDate != nil {
		return 1
	}
	if a.ExpiryDate != nil && b.ExpiryDate == nil {
		return -1
	}
	if a.ExpiryDate != nil && b.ExpiryDate != nil {
		if a.ExpiryDate.Before(*b.ExpiryDate) {
			return -1
		}
		if a.ExpiryDate.After(*b.ExpiryDate) {
			return 1
		}
	}
	if a.ReceivedAt.Before(b.ReceivedAt) {
		return -1
	}
	if a.ReceivedAt.After(b.ReceivedAt) {
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}
