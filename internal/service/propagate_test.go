package service

import (
	"errors"
	"testing"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
)

func TestConsumeUntrackedServiceProducesNoMovements(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	resp, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{
		ServiceItemID: "svc-laundry",
		Quantity:      3,
		ReferenceID:   "bk-200",
	})
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if resp.Tracked {
		t.Fatalf("laundry is untracked")
	}
	if len(resp.Movements) != 0 {
		t.Fatalf("expected no movements, got %d", len(resp.Movements))
	}
}

func TestConsumeTrackedUnlinkedServiceProducesOneMovement(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	resp, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{
		ServiceItemID: "svc-breakfast",
		Quantity:      4,
		ReferenceID:   "bk-201",
	})
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if len(resp.Movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(resp.Movements))
	}
	m := resp.Movements[0]
	if m.EntityKind != domain.EntityKindServiceItem || m.EntityID != "svc-breakfast" || m.Type != domain.MovementOut || m.Quantity != 4 {
		t.Fatalf("unexpected movement: %+v", m)
	}

	items, err := svc.ListServiceItems(ctx)
	if err != nil {
		t.Fatalf("list items failed: %v", err)
	}
	for _, item := range items {
		if item.ID == "svc-breakfast" && item.StockQuantity != 26 {
			t.Fatalf("expected breakfast stock 26, got %d", item.StockQuantity)
		}
	}
}

func TestConsumeLinkedServiceProducesTwoIndependentMovements(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Minibar is linked to the aqua product (24 + 48 units in batches).
	resp, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{
		ServiceItemID: "svc-minibar",
		Quantity:      2,
		ReferenceID:   "bk-202",
	})
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if len(resp.Movements) != 2 {
		t.Fatalf("expected two movements, got %d", len(resp.Movements))
	}

	first, second := resp.Movements[0], resp.Movements[1]
	if first.EntityKind != domain.EntityKindServiceItem || first.EntityID != "svc-minibar" {
		t.Fatalf("expected service movement first, got %+v", first)
	}
	if second.EntityKind != domain.EntityKindProduct || second.EntityID != "prod-aqua" {
		t.Fatalf("expected product movement second, got %+v", second)
	}
	for _, m := range resp.Movements {
		if m.Type != domain.MovementOut || m.Quantity != 2 || m.ReferenceID != "bk-202" {
			t.Fatalf("unexpected movement: %+v", m)
		}
	}

	// The product side follows the expiry order: the earliest batch drains.
	batches, err := svc.ListBatches(ctx, "SKU-AQUA-01", true)
	if err != nil {
		t.Fatalf("list batches failed: %v", err)
	}
	byID := map[string]domain.Batch{}
	for _, b := range batches {
		byID[b.ID] = b
	}
	if byID["batch-aqua-1"].Quantity != 22 {
		t.Fatalf("expected 22 in earliest batch, got %d", byID["batch-aqua-1"].Quantity)
	}
	if byID["batch-aqua-2"].Quantity != 48 {
		t.Fatalf("expected later batch untouched, got %d", byID["batch-aqua-2"].Quantity)
	}

	product, err := svc.GetProductBySKU(ctx, "SKU-AQUA-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 70 {
		t.Fatalf("expected aggregate 70, got %d", product.StockQuantity)
	}
}

func TestConsumeLinkedServiceRejectedWhenServiceStockShort(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Minibar seed stock is 12.
	_, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{
		ServiceItemID: "svc-minibar",
		Quantity:      13,
		ReferenceID:   "bk-203",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Neither side may have moved.
	product, err := svc.GetProductBySKU(ctx, "SKU-AQUA-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 72 {
		t.Fatalf("expected product untouched (72), got %d", product.StockQuantity)
	}
	items, err := svc.ListServiceItems(ctx)
	if err != nil {
		t.Fatalf("list items failed: %v", err)
	}
	for _, item := range items {
		if item.ID == "svc-minibar" && item.StockQuantity != 12 {
			t.Fatalf("expected minibar untouched (12), got %d", item.StockQuantity)
		}
	}
}

func TestConsumeLinkedServiceRejectedWhenProductStockShort(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Drain the aqua batches down to almost nothing.
	if _, err := svc.CompleteSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemRequest{{SKU: "SKU-AQUA-01", Qty: 71}},
	}); err != nil {
		t.Fatalf("draining sale failed: %v", err)
	}

	_, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{
		ServiceItemID: "svc-minibar",
		Quantity:      2,
		ReferenceID:   "bk-204",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// The service item keeps its stock when the product side is short.
	items, err := svc.ListServiceItems(ctx)
	if err != nil {
		t.Fatalf("list items failed: %v", err)
	}
	for _, item := range items {
		if item.ID == "svc-minibar" && item.StockQuantity != 12 {
			t.Fatalf("expected minibar untouched (12), got %d", item.StockQuantity)
		}
	}
}

func TestConsumeRejectsInvalidRequests(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	_, err := svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{ServiceItemID: "", Quantity: 1})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	_, err = svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{ServiceItemID: "svc-minibar", Quantity: 0})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	_, err = svc.ConsumeService(ctx, domain.ServiceConsumptionRequest{ServiceItemID: "svc-missing", Quantity: 1})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
