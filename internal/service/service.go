package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pondokpos/backend/internal/allocator"
	"pondokpos/backend/internal/cache"
	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const lowStockCacheKey = "lowstock:v1"

const lowStockCacheTTL = 2 * time.Minute

type Service struct {
	repo           store.Repository
	stockCache     cache.StockSummaryCache
	taxRatePercent float64

	lockMu      sync.Mutex
	entityLocks map[string]*sync.Mutex
}

func New(repo store.Repository, stockCache cache.StockSummaryCache, taxRatePercent float64) *Service {
	if stockCache == nil {
		stockCache = cache.NoopStockSummaryCache{}
	}
	if taxRatePercent < 0 {
		taxRatePercent = 0
	}

	return &Service{
		repo:           repo,
		stockCache:     stockCache,
		taxRatePercent: taxRatePercent,
		entityLocks:    make(map[string]*sync.Mutex),
	}
}

// entityLock returns the mutex guarding one stocked entity. Stock writes
// for the same entity serialize here so check-then-decrement sequences
// do not interleave within this process.
func (s *Service) entityLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	mu, ok := s.entityLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.entityLocks[key] = mu
	}
	return mu
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProductBySKU(ctx context.Context, sku string) (domain.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return domain.Product{}, store.ErrInvalidRequest
	}
	found, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}
	return *found, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Product{}, fmt.Errorf("manager role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.SKU == "" || req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidRequest
	}
	if req.SellingPriceCents < 1 || req.CostCents < 0 || req.InitialStock < 0 || req.MinStockThreshold < 0 {
		return domain.Product{}, store.ErrInvalidRequest
	}

	product := domain.Product{
		ID:                xid.New("prod"),
		SKU:               req.SKU,
		Name:              req.Name,
		Category:          req.Category,
		SellingPriceCents: req.SellingPriceCents,
		CostCents:         req.CostCents,
		StockQuantity:     req.InitialStock,
		MinStockThreshold: req.MinStockThreshold,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	if req.InitialStock > 0 {
		if _, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
			ID:         xid.New("mov"),
			EntityKind: domain.EntityKindProduct,
			EntityID:   created.ID,
			Type:       domain.MovementIn,
			Quantity:   req.InitialStock,
			Reason:     "initial stock",
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			return domain.Product{}, err
		}
	}

	s.logAudit(ctx, "product_create", "product", created.SKU, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.SellingPriceCents, req.InitialStock))
	s.invalidateLowStock(ctx)

	return *created, nil
}

// ReceiveBatch records a purchased lot for a product, brings the
// product's aggregate counter in line with the batch sum, and appends
// the matching `in` movement.
func (s *Service) ReceiveBatch(ctx context.Context, req domain.BatchReceiveRequest) (domain.Batch, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Batch{}, fmt.Errorf("manager role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.BatchCode = strings.TrimSpace(req.BatchCode)
	if req.SKU == "" || req.Quantity < 1 || req.PurchasePriceCents < 0 {
		return domain.Batch{}, store.ErrInvalidRequest
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return domain.Batch{}, store.ErrInvalidRequest
		}
		expiry = &parsed
	}

	product, err := s.repo.GetProductBySKU(ctx, req.SKU)
	if err != nil {
		return domain.Batch{}, err
	}

	mu := s.entityLock(domain.EntityKindProduct + ":" + product.ID)
	mu.Lock()
	defer mu.Unlock()

	sellingPrice := req.SellingPriceCents
	if sellingPrice < 1 {
		sellingPrice = product.SellingPriceCents
	}

	batch := domain.Batch{
		ID:                 xid.New("batch"),
		ProductID:          product.ID,
		BatchCode:          req.BatchCode,
		Quantity:           req.Quantity,
		PurchasePriceCents: req.PurchasePriceCents,
		SellingPriceCents:  sellingPrice,
		ExpiryDate:         expiry,
		SourceType:         "purchase",
		ReceivedAt:         time.Now().UTC(),
	}

	created, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		return domain.Batch{}, err
	}

	if err := s.syncAggregateFromBatches(ctx, product.ID); err != nil {
		return domain.Batch{}, err
	}

	if _, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
		ID:          xid.New("mov"),
		EntityKind:  domain.EntityKindProduct,
		EntityID:    product.ID,
		Type:        domain.MovementIn,
		Quantity:    req.Quantity,
		Reason:      "batch received",
		ReferenceID: created.ID,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return domain.Batch{}, err
	}

	s.logAudit(ctx, "batch_receive", "batch", created.ID, fmt.Sprintf("sku=%s,qty=%d,code=%s", product.SKU, created.Quantity, created.BatchCode))
	s.invalidateLowStock(ctx)

	return *created, nil
}

func (s *Service) ListBatches(ctx context.Context, sku string, includeExhausted bool) ([]domain.Batch, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, store.ErrInvalidRequest
	}
	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return s.repo.ListBatchesByProduct(ctx, product.ID, includeExhausted)
}

// StockAvailability previews the allocation for a requested quantity
// without touching stock.
func (s *Service) StockAvailability(ctx context.Context, sku string, qty int) (domain.AllocationPlan, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" || qty < 1 {
		return domain.AllocationPlan{}, store.ErrInvalidRequest
	}

	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.AllocationPlan{}, err
	}
	batches, err := s.repo.ListBatchesByProduct(ctx, product.ID, false)
	if err != nil {
		return domain.AllocationPlan{}, err
	}
	return allocator.Plan(*product, batches, qty)
}

func (s *Service) CreateServiceItem(ctx context.Context, req domain.ServiceItemCreateRequest) (domain.ServiceMenuItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.ServiceMenuItem{}, fmt.Errorf("manager role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.PriceCents < 1 {
		return domain.ServiceMenuItem{}, store.ErrInvalidRequest
	}
	if !req.TrackStock && (req.InitialStock > 0 || req.ProductSKU != "") {
		return domain.ServiceMenuItem{}, store.ErrInvalidRequest
	}
	if req.InitialStock < 0 || req.MinStockThreshold < 0 {
		return domain.ServiceMenuItem{}, store.ErrInvalidRequest
	}

	var productID string
	if req.ProductSKU != "" {
		product, err := s.repo.GetProductBySKU(ctx, strings.ToUpper(strings.TrimSpace(req.ProductSKU)))
		if err != nil {
			return domain.ServiceMenuItem{}, err
		}
		productID = product.ID
	}

	item := domain.ServiceMenuItem{
		ID:                xid.New("svc"),
		Name:              req.Name,
		Category:          req.Category,
		PriceCents:        req.PriceCents,
		TrackStock:        req.TrackStock,
		StockQuantity:     req.InitialStock,
		MinStockThreshold: req.MinStockThreshold,
		ProductID:         productID,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
	}

	created, err := s.repo.CreateServiceItem(ctx, item)
	if err != nil {
		return domain.ServiceMenuItem{}, err
	}

	if req.TrackStock && req.InitialStock > 0 {
		if _, err := s.repo.CreateStockMovement(ctx, domain.StockMovement{
			ID:         xid.New("mov"),
			EntityKind: domain.EntityKindServiceItem,
			EntityID:   created.ID,
			Type:       domain.MovementIn,
			Quantity:   req.InitialStock,
			Reason:     "initial stock",
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			return domain.ServiceMenuItem{}, err
		}
	}

	s.logAudit(ctx, "service_item_create", "service_item", created.ID, fmt.Sprintf("name=%s,track=%t,linked=%t", created.Name, created.TrackStock, created.ProductID != ""))
	s.invalidateLowStock(ctx)

	return *created, nil
}

func (s *Service) ListServiceItems(ctx context.Context) ([]domain.ServiceMenuItem, error) {
	return s.repo.ListServiceItems(ctx)
}

func (s *Service) ListStockMovements(ctx context.Context, entityKind string, entityID string, limit int) ([]domain.StockMovement, error) {
	if entityKind != "" && entityKind != domain.EntityKindProduct && entityKind != domain.EntityKindServiceItem {
		return nil, store.ErrInvalidRequest
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListStockMovements(ctx, entityKind, entityID, limit)
}

// LowStockReport lists every product and tracked service item at or
// below its minimum threshold. The built report is cached until the next
// stock mutation.
func (s *Service) LowStockReport(ctx context.Context) (domain.LowStockReport, error) {
	if cached, ok, err := s.stockCache.Get(ctx, lowStockCacheKey); err != nil {
		log.Printf("[service] WARN: low-stock cache read failed: %v", err)
	} else if ok && cached != nil {
		return *cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.LowStockReport{}, err
	}
	items, err := s.repo.ListServiceItems(ctx)
	if err != nil {
		return domain.LowStockReport{}, err
	}

	report := domain.LowStockReport{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		Products:     make([]domain.LowStockProduct, 0, 8),
		ServiceItems: make([]domain.LowStockServiceItem, 0, 4),
	}
	for _, p := range products {
		if p.MinStockThreshold > 0 && p.StockQuantity <= p.MinStockThreshold {
			report.Products = append(report.Products, domain.LowStockProduct{
				SKU:               p.SKU,
				Name:              p.Name,
				StockQuantity:     p.StockQuantity,
				MinStockThreshold: p.MinStockThreshold,
			})
		}
	}
	for _, item := range items {
		if item.TrackStock && item.MinStockThreshold > 0 && item.StockQuantity <= item.MinStockThreshold {
			report.ServiceItems = append(report.ServiceItems, domain.LowStockServiceItem{
				ID:                item.ID,
				Name:              item.Name,
				StockQuantity:     item.StockQuantity,
				MinStockThreshold: item.MinStockThreshold,
			})
		}
	}

	if err := s.stockCache.Set(ctx, lowStockCacheKey, &report, lowStockCacheTTL); err != nil {
		log.Printf("[service] WARN: low-stock cache write failed: %v", err)
	}

	return report, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return nil, fmt.Errorf("manager role required")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.CashierUser{}, fmt.Errorf("manager role required")
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	if len(req.Username) < 3 || len(req.Password) < 8 {
		return domain.CashierUser{}, store.ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.CashierUser{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.CreateUser(ctx, domain.UserAccount{
		Username:  req.Username,
		Password:  string(hash),
		Role:      domain.RoleCashier,
		Active:    true,
		CreatedAt: now,
	}); err != nil {
		return domain.CashierUser{}, err
	}

	s.logAudit(ctx, "cashier_create", "user", req.Username, "")
	return domain.CashierUser{Username: req.Username, Role: domain.RoleCashier, Active: true, CreatedAt: now}, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]domain.CashierUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return nil, fmt.Errorf("manager role required")
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]domain.CashierUser, 0, len(users))
	for _, u := range users {
		if u.Role != domain.RoleCashier {
			continue
		}
		result = append(result, domain.CashierUser{
			Username:  u.Username,
			Role:      u.Role,
			Active:    u.Active,
			CreatedAt: u.CreatedAt,
		})
	}
	return result, nil
}

// syncAggregateFromBatches recomputes a product's aggregate counter as
// the sum of its live batch quantities. Callers hold the entity lock.
func (s *Service) syncAggregateFromBatches(ctx context.Context, productID string) error {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return err
	}
	batches, err := s.repo.ListBatchesByProduct(ctx, productID, true)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}

	total := 0
	for _, b := range batches {
		if b.Quantity > 0 {
			total += b.Quantity
		}
	}
	product.StockQuantity = total
	_, err = s.repo.UpdateProduct(ctx, *product)
	return err
}

func (s *Service) invalidateLowStock(ctx context.Context) {
	if err := s.stockCache.Invalidate(ctx, lowStockCacheKey); err != nil {
		log.Printf("[service] WARN: low-stock cache invalidate failed: %v", err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
