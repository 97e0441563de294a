package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pondokpos/backend/internal/cache"
	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopStockSummaryCache{}, 18)
}

// recordingCache keeps the last Set value in memory and counts
// invalidations so tests can observe the cache contract.
type recordingCache struct {
	report      *domain.LowStockReport
	sets        int
	invalidated int
}

func (c *recordingCache) Get(_ context.Context, _ string) (*domain.LowStockReport, bool, error) {
	if c.report == nil {
		return nil, false, nil
	}
	return c.report, true, nil
}

func (c *recordingCache) Set(_ context.Context, _ string, value *domain.LowStockReport, _ time.Duration) error {
	c.report = value
	c.sets++
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, _ string) error {
	c.report = nil
	c.invalidated++
	return nil
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager", Role: domain.RoleManager})
}

func TestCompleteSaleDrainsEarliestExpiryBatchFirst(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Roti seed: batch-roti-1 (10 units, expires first), batch-roti-2 (20 units).
	resp, err := svc.CompleteSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemRequest{{SKU: "SKU-ROTI-01", Qty: 12}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if resp.InvoiceID == "" {
		t.Fatalf("expected invoice id")
	}

	batches, err := svc.ListBatches(ctx, "SKU-ROTI-01", true)
	if err != nil {
		t.Fatalf("list batches failed: %v", err)
	}
	byID := map[string]domain.Batch{}
	for _, b := range batches {
		byID[b.ID] = b
	}
	if byID["batch-roti-1"].Quantity != 0 {
		t.Fatalf("expected earliest batch drained, got %d", byID["batch-roti-1"].Quantity)
	}
	if byID["batch-roti-2"].Quantity != 18 {
		t.Fatalf("expected 18 left in later batch, got %d", byID["batch-roti-2"].Quantity)
	}

	product, err := svc.GetProductBySKU(ctx, "SKU-ROTI-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 18 {
		t.Fatalf("expected aggregate to follow batches (18), got %d", product.StockQuantity)
	}
}

func TestCompleteSaleRejectedWhenStockShort(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	_, err := svc.CompleteSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemRequest{{SKU: "SKU-ROTI-01", Qty: 31}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// Nothing may have been deducted.
	product, err := svc.GetProductBySKU(ctx, "SKU-ROTI-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 30 {
		t.Fatalf("expected stock untouched (30), got %d", product.StockQuantity)
	}
}

func TestCompleteSaleAggregateFallbackWithoutBatches(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Sabun has no batches; only the aggregate counter moves.
	_, err := svc.CompleteSale(ctx, domain.SaleRequest{
		Items: []domain.SaleItemRequest{{SKU: "SKU-SABUN-01", Qty: 5}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}

	product, err := svc.GetProductBySKU(ctx, "SKU-SABUN-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 75 {
		t.Fatalf("expected aggregate 75, got %d", product.StockQuantity)
	}

	movements, err := svc.ListStockMovements(ctx, domain.EntityKindProduct, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].Type != domain.MovementOut || movements[0].Quantity != 5 {
		t.Fatalf("expected single out movement of 5, got %+v", movements)
	}
}

func TestApplyMovementOutClampsAtZeroButRecordsRequestedDelta(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	product, err := svc.GetProductBySKU(ctx, "SKU-SABUN-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}

	movement, err := svc.ApplyMovement(ctx, domain.MovementRequest{
		EntityKind: domain.EntityKindProduct,
		EntityID:   product.ID,
		Type:       domain.MovementOut,
		Quantity:   200,
		Reason:     "spoilage",
	})
	if err != nil {
		t.Fatalf("apply movement failed: %v", err)
	}
	if movement.Quantity != 200 {
		t.Fatalf("movement must record the requested delta, got %d", movement.Quantity)
	}

	after, err := svc.GetProductBySKU(ctx, "SKU-SABUN-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.StockQuantity != 0 {
		t.Fatalf("expected stock clamped at zero, got %d", after.StockQuantity)
	}
}

func TestApplyMovementAdjustmentSetsAbsoluteValue(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	product, err := svc.GetProductBySKU(ctx, "SKU-SABUN-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}

	if _, err := svc.AdjustStock(ctx, domain.EntityKindProduct, product.ID, 42, "stock opname"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	after, err := svc.GetProductBySKU(ctx, "SKU-SABUN-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.StockQuantity != 42 {
		t.Fatalf("expected absolute 42, got %d", after.StockQuantity)
	}
}

func TestAdjustStockRequiresManager(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})

	_, err := svc.AdjustStock(ctx, domain.EntityKindProduct, "prod-sabun", 10, "oops")
	if err == nil {
		t.Fatalf("expected cashier adjustment to be rejected")
	}
}

func TestApplyMovementRejectsInvalidInput(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	cases := []domain.MovementRequest{
		{EntityKind: domain.EntityKindProduct, EntityID: "prod-sabun", Type: domain.MovementOut, Quantity: 0},
		{EntityKind: domain.EntityKindProduct, EntityID: "prod-sabun", Type: domain.MovementIn, Quantity: -5},
		{EntityKind: domain.EntityKindProduct, EntityID: "prod-sabun", Type: domain.MovementAdjustment, Quantity: -1},
		{EntityKind: domain.EntityKindProduct, EntityID: "prod-sabun", Type: "transfer", Quantity: 5},
		{EntityKind: "warehouse", EntityID: "prod-sabun", Type: domain.MovementIn, Quantity: 5},
	}
	for _, req := range cases {
		if _, err := svc.ApplyMovement(ctx, req); !errors.Is(err, store.ErrInvalidRequest) {
			t.Fatalf("expected invalid request for %+v, got %v", req, err)
		}
	}
}

func TestApplyMovementRejectsUntrackedServiceItem(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	_, err := svc.ApplyMovement(ctx, domain.MovementRequest{
		EntityKind: domain.EntityKindServiceItem,
		EntityID:   "svc-laundry",
		Type:       domain.MovementIn,
		Quantity:   5,
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for untracked item, got %v", err)
	}
}

func TestReceiveBatchAppendsInMovementAndSyncsAggregate(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	batch, err := svc.ReceiveBatch(ctx, domain.BatchReceiveRequest{
		SKU:                "SKU-AQUA-01",
		BatchCode:          "AQ-NEW",
		Quantity:           36,
		PurchasePriceCents: 3000,
		ExpiryDate:         "2027-09-01",
	})
	if err != nil {
		t.Fatalf("receive batch failed: %v", err)
	}
	if batch.ExpiryDate == nil {
		t.Fatalf("expected expiry date parsed")
	}

	product, err := svc.GetProductBySKU(ctx, "SKU-AQUA-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 24+48+36 {
		t.Fatalf("expected aggregate 108, got %d", product.StockQuantity)
	}

	movements, err := svc.ListStockMovements(ctx, domain.EntityKindProduct, product.ID, 5)
	if err != nil {
		t.Fatalf("list movements failed: %v", err)
	}
	if len(movements) == 0 || movements[0].Type != domain.MovementIn || movements[0].ReferenceID != batch.ID {
		t.Fatalf("expected in movement referencing batch, got %+v", movements)
	}
}

func TestStockAvailabilityReportsPartialPlan(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	plan, err := svc.StockAvailability(ctx, "SKU-ROTI-01", 40)
	if err != nil {
		t.Fatalf("availability failed: %v", err)
	}
	if plan.Fulfilled {
		t.Fatalf("expected partial plan")
	}
	if plan.Allocated != 30 || plan.ShortBy != 10 {
		t.Fatalf("expected 30 allocated / 10 short, got %d/%d", plan.Allocated, plan.ShortBy)
	}
	if plan.Mode != domain.AllocationModeBatched {
		t.Fatalf("expected batched mode, got %s", plan.Mode)
	}
}

func TestLowStockReportListsEntitiesAtThreshold(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	if _, err := svc.AdjustStock(ctx, domain.EntityKindProduct, "prod-sabun", 10, "stock opname"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if _, err := svc.AdjustStock(ctx, domain.EntityKindServiceItem, "svc-minibar", 4, "recount"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	report, err := svc.LowStockReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	foundProduct := false
	for _, p := range report.Products {
		if p.SKU == "SKU-SABUN-01" {
			foundProduct = true
		}
	}
	if !foundProduct {
		t.Fatalf("expected sabun in low-stock products: %+v", report.Products)
	}

	foundItem := false
	for _, item := range report.ServiceItems {
		if item.ID == "svc-minibar" {
			foundItem = true
		}
	}
	if !foundItem {
		t.Fatalf("expected minibar in low-stock service items: %+v", report.ServiceItems)
	}
}

func TestLowStockReportCachedUntilStockMutation(t *testing.T) {
	rec := &recordingCache{}
	svc := New(memory.NewSeeded(), rec, 18)
	ctx := managerCtx()

	if _, err := svc.LowStockReport(ctx); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if rec.sets != 1 {
		t.Fatalf("expected one cache write, got %d", rec.sets)
	}

	// A second read hits the cache.
	if _, err := svc.LowStockReport(ctx); err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if rec.sets != 1 {
		t.Fatalf("expected cached read, got %d writes", rec.sets)
	}

	// Any stock mutation drops the cached report.
	if _, err := svc.AdjustStock(ctx, domain.EntityKindProduct, "prod-sabun", 3, "recount"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if rec.invalidated == 0 {
		t.Fatalf("expected cache invalidated by the adjustment")
	}

	report, err := svc.LowStockReport(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if rec.sets != 2 {
		t.Fatalf("expected rebuild after invalidation, got %d writes", rec.sets)
	}
	found := false
	for _, p := range report.Products {
		if p.SKU == "SKU-SABUN-01" && p.StockQuantity == 3 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected rebuilt report to include sabun at 3: %+v", report.Products)
	}
}

func TestCreateProductRequiresManager(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})

	_, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:               "SKU-NEW-01",
		Name:              "Teh Botol",
		Category:          "beverage",
		SellingPriceCents: 5500,
	})
	if err == nil {
		t.Fatalf("expected cashier create to be rejected")
	}
}

func TestCreateCashierValidatesCredentials(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	_, err := svc.CreateCashier(ctx, domain.CashierCreateRequest{Username: "ab", Password: "longenough1"})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected short username rejected, got %v", err)
	}
	_, err = svc.CreateCashier(ctx, domain.CashierCreateRequest{Username: "kasir2", Password: "short"})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected short password rejected, got %v", err)
	}

	created, err := svc.CreateCashier(ctx, domain.CashierCreateRequest{Username: "Kasir2", Password: "rahasia-123"})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if created.Username != "kasir2" || created.Role != domain.RoleCashier {
		t.Fatalf("unexpected cashier: %+v", created)
	}
}
