package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pondokpos/backend/internal/allocator"
	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	productsByID       map[string]domain.Product
	productIDBySKU     map[string]string
	batchesByID        map[string]domain.Batch
	batchIDsByProduct  map[string][]string
	movements          []domain.StockMovement
	serviceItemsByID   map[string]domain.ServiceMenuItem
	invoicesByID       map[string]domain.Invoice
	invoiceItemsByInv  map[string][]domain.InvoiceItem
	loansByID          map[string]domain.Loan
	loanPaymentsByLoan map[string][]domain.LoanPayment
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD;
// hardcoded dev defaults are used with a warning when unset. Production
// runs against PostgreSQL (DATABASE_URL) and never touches these.
func seedUsers() map[string]domain.UserAccount {
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"manager", managerPwd, domain.RoleManager},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		productsByID:       make(map[string]domain.Product),
		productIDBySKU:     make(map[string]string),
		batchesByID:        make(map[string]domain.Batch),
		batchIDsByProduct:  make(map[string][]string),
		movements:          make([]domain.StockMovement, 0, 256),
		serviceItemsByID:   make(map[string]domain.ServiceMenuItem),
		invoicesByID:       make(map[string]domain.Invoice),
		invoiceItemsByInv:  make(map[string][]domain.InvoiceItem),
		loansByID:          make(map[string]domain.Loan),
		loanPaymentsByLoan: make(map[string][]domain.LoanPayment),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    seedUsers(),
	}
}

// NewSeeded returns a store preloaded with demo inventory: batched
// products with mixed expiry dates, one batch-less product tracked only
// by its aggregate counter, and hotel service items including one linked
// to a retail product.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	date := func(value string) *time.Time {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			log.Fatalf("[memory-store] bad seed date %q: %v", value, err)
		}
		return &parsed
	}

	products := []domain.Product{
		{ID: "prod-aqua", SKU: "SKU-AQUA-01", Name: "Air Mineral Aqua 600ml", Category: "beverage", SellingPriceCents: 5000, CostCents: 3200, MinStockThreshold: 24, Active: true, CreatedAt: now},
		{ID: "prod-roti", SKU: "SKU-ROTI-01", Name: "Roti Tawar", Category: "bakery", SellingPriceCents: 17800, CostCents: 12500, MinStockThreshold: 6, Active: true, CreatedAt: now},
		{ID: "prod-kopi", SKU: "SKU-KOPI-01", Name: "Kopi Sachet", Category: "beverage", SellingPriceCents: 2600, CostCents: 1700, MinStockThreshold: 20, Active: true, CreatedAt: now},
		{ID: "prod-sabun", SKU: "SKU-SABUN-01", Name: "Sabun Mandi", Category: "household", SellingPriceCents: 7400, CostCents: 5000, StockQuantity: 80, MinStockThreshold: 10, Active: true, CreatedAt: now},
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
		s.productIDBySKU[p.SKU] = p.ID
	}

	batches := []domain.Batch{
		{ID: "batch-aqua-1", ProductID: "prod-aqua", BatchCode: "AQ-2603", Quantity: 24, PurchasePriceCents: 3200, SellingPriceCents: 5000, ExpiryDate: date("2027-03-01"), SourceType: "purchase", ReceivedAt: now.Add(-72 * time.Hour)},
		{ID: "batch-aqua-2", ProductID: "prod-aqua", BatchCode: "AQ-2606", Quantity: 48, PurchasePriceCents: 3100, SellingPriceCents: 5000, ExpiryDate: date("2027-06-01"), SourceType: "purchase", ReceivedAt: now.Add(-24 * time.Hour)},
		{ID: "batch-roti-1", ProductID: "prod-roti", BatchCode: "RT-0905", Quantity: 10, PurchasePriceCents: 12500, SellingPriceCents: 17800, ExpiryDate: date("2026-09-05"), SourceType: "purchase", ReceivedAt: now.Add(-48 * time.Hour)},
		{ID: "batch-roti-2", ProductID: "prod-roti", BatchCode: "RT-0912", Quantity: 20, PurchasePriceCents: 12200, SellingPriceCents: 17800, ExpiryDate: date("2026-09-12"), SourceType: "purchase", ReceivedAt: now.Add(-12 * time.Hour)},
		{ID: "batch-kopi-1", ProductID: "prod-kopi", BatchCode: "KP-2701", Quantity: 60, PurchasePriceCents: 1700, SellingPriceCents: 2600, ExpiryDate: date("2027-01-01"), SourceType: "purchase", ReceivedAt: now.Add(-96 * time.Hour)},
		{ID: "batch-kopi-2", ProductID: "prod-kopi", BatchCode: "KP-ND", Quantity: 40, PurchasePriceCents: 1600, SellingPriceCents: 2600, SourceType: "purchase", ReceivedAt: now.Add(-6 * time.Hour)},
	}
	for _, b := range batches {
		s.batchesByID[b.ID] = b
		s.batchIDsByProduct[b.ProductID] = append(s.batchIDsByProduct[b.ProductID], b.ID)
	}
	for productID, ids := range s.batchIDsByProduct {
		total := 0
		for _, id := range ids {
			total += s.batchesByID[id].Quantity
		}
		p := s.productsByID[productID]
		p.StockQuantity = total
		s.productsByID[productID] = p
	}

	serviceItems := []domain.ServiceMenuItem{
		{ID: "svc-laundry", Name: "Laundry Kiloan", Category: "laundry", PriceCents: 15000, TrackStock: false, Active: true, CreatedAt: now},
		{ID: "svc-minibar", Name: "Minibar Aqua 600ml", Category: "minibar", PriceCents: 10000, TrackStock: true, StockQuantity: 12, MinStockThreshold: 4, ProductID: "prod-aqua", Active: true, CreatedAt: now},
		{ID: "svc-breakfast", Name: "Sarapan Nasi Goreng", Category: "restaurant", PriceCents: 25000, TrackStock: true, StockQuantity: 30, MinStockThreshold: 5, Active: true, CreatedAt: now},
	}
	for _, item := range serviceItems {
		s.serviceItemsByID[item.ID] = item
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.SellingPriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if _, exists := s.productIDBySKU[product.SKU]; exists {
		return nil, store.ErrInvalidRequest
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Active = true
	s.productsByID[product.ID] = product
	s.productIDBySKU[product.SKU] = product.ID
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.productsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productIDBySKU[sku]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.productsByID[id]
	found := p
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.productsByID[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.SKU != current.SKU {
		return nil, store.ErrInvalidRequest
	}
	s.productsByID[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) CreateBatch(_ context.Context, batch domain.Batch) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ProductID == "" || batch.Quantity < 1 {
		return nil, store.ErrInvalidRequest
	}
	if _, ok := s.productsByID[batch.ProductID]; !ok {
		return nil, store.ErrNotFound
	}

	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}
	s.batchesByID[batch.ID] = batch
	s.batchIDsByProduct[batch.ProductID] = append(s.batchIDsByProduct[batch.ProductID], batch.ID)
	created := batch
	return &created, nil
}

func (s *Store) GetBatchByID(_ context.Context, id string) (*domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batchesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := b
	return &found, nil
}

func (s *Store) ListBatchesByProduct(_ context.Context, productID string, includeExhausted bool) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.batchIDsByProduct[productID]
	result := make([]domain.Batch, 0, len(ids))
	for _, id := range ids {
		b := s.batchesByID[id]
		if !includeExhausted && b.Quantity <= 0 {
			continue
		}
		result = append(result, b)
	}
	slices.SortFunc(result, allocator.CompareFEFO)
	return result, nil
}

func (s *Store) DecrementBatchQuantity(_ context.Context, batchID string, qty int) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 1 {
		return nil, store.ErrInvalidRequest
	}
	b, ok := s.batchesByID[batchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b.Quantity < qty {
		return nil, store.ErrConflict
	}
	b.Quantity -= qty
	s.batchesByID[batchID] = b
	updated := b
	return &updated, nil
}

func (s *Store) CreateStockMovement(_ context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.EntityKind == "" || movement.EntityID == "" || movement.Type == "" {
		return nil, store.ErrInvalidRequest
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	s.movements = append(s.movements, movement)
	created := movement
	return &created, nil
}

func (s *Store) ListStockMovements(_ context.Context, entityKind string, entityID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockMovement, 0, limit)
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if entityKind != "" && m.EntityKind != entityKind {
			continue
		}
		if entityID != "" && m.EntityID != entityID {
			continue
		}
		result = append(result, m)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateServiceItem(_ context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Name == "" || item.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if item.ProductID != "" {
		if _, ok := s.productsByID[item.ProductID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	if item.ID == "" {
		item.ID = xid.New("svc")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.Active = true
	s.serviceItemsByID[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) GetServiceItemByID(_ context.Context, id string) (*domain.ServiceMenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.serviceItemsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

func (s *Store) ListServiceItems(_ context.Context) ([]domain.ServiceMenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.ServiceMenuItem, 0, len(s.serviceItemsByID))
	for _, item := range s.serviceItemsByID {
		if !item.Active {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.ServiceMenuItem) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return items, nil
}

func (s *Store) UpdateServiceItem(_ context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.serviceItemsByID[item.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.serviceItemsByID[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if invoice.Kind == "" {
		return nil, store.ErrInvalidRequest
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	if _, exists := s.invoicesByID[invoice.ID]; exists {
		return nil, store.ErrConflict
	}
	s.invoicesByID[invoice.ID] = invoice
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(_ context.Context, id string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoicesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := inv
	return &found, nil
}

func (s *Store) FindInvoiceByReference(_ context.Context, kind string, referenceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if referenceID == "" {
		return nil, store.ErrNotFound
	}
	for _, inv := range s.invoicesByID {
		if inv.Kind == kind && inv.ReferenceID == referenceID {
			found := inv
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoicesByID[invoice.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.invoicesByID[invoice.ID] = invoice
	updated := invoice
	return &updated, nil
}

func (s *Store) ListInvoices(_ context.Context, kind string, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Invoice, 0, len(s.invoicesByID))
	for _, inv := range s.invoicesByID {
		if kind != "" && inv.Kind != kind {
			continue
		}
		result = append(result, inv)
	}
	slices.SortFunc(result, func(a, b domain.Invoice) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateInvoiceItem(_ context.Context, item domain.InvoiceItem) (*domain.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoicesByID[item.InvoiceID]; !ok {
		return nil, store.ErrNotFound
	}
	if item.Description == "" || item.Qty < 1 {
		return nil, store.ErrInvalidRequest
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.invoiceItemsByInv[item.InvoiceID] = append(s.invoiceItemsByInv[item.InvoiceID], item)
	created := item
	return &created, nil
}

func (s *Store) ListInvoiceItems(_ context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.invoiceItemsByInv[invoiceID]
	result := make([]domain.InvoiceItem, len(items))
	copy(result, items)
	return result, nil
}

func (s *Store) DeleteInvoiceItem(_ context.Context, invoiceID string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.invoiceItemsByInv[invoiceID]
	for i, item := range items {
		if item.ID == itemID {
			s.invoiceItemsByInv[invoiceID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CreateLoan(_ context.Context, loan domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loan.BorrowerName == "" || loan.TotalCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if loan.ID == "" {
		loan.ID = xid.New("loan")
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}
	s.loansByID[loan.ID] = loan
	created := loan
	return &created, nil
}

func (s *Store) GetLoanByID(_ context.Context, id string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loansByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := loan
	return &found, nil
}

func (s *Store) UpdateLoan(_ context.Context, loan domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loansByID[loan.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.loansByID[loan.ID] = loan
	updated := loan
	return &updated, nil
}

func (s *Store) ListLoans(_ context.Context, status string, limit int) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Loan, 0, len(s.loansByID))
	for _, loan := range s.loansByID {
		if status != "" && loan.Status != status {
			continue
		}
		result = append(result, loan)
	}
	slices.SortFunc(result, func(a, b domain.Loan) int {
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateLoanPayment(_ context.Context, payment domain.LoanPayment) (*domain.LoanPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loansByID[payment.LoanID]; !ok {
		return nil, store.ErrNotFound
	}
	if payment.AmountCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if payment.ID == "" {
		payment.ID = xid.New("pay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	s.loanPaymentsByLoan[payment.LoanID] = append(s.loanPaymentsByLoan[payment.LoanID], payment)
	created := payment
	return &created, nil
}

func (s *Store) ListLoanPayments(_ context.Context, loanID string) ([]domain.LoanPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := s.loanPaymentsByLoan[loanID]
	result := make([]domain.LoanPayment, len(payments))
	copy(result, payments)
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	if password == "" {
		return store.ErrInvalidRequest
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
