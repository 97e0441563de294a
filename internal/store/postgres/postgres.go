package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, selling_price_cents, cost_cents,
			stock_quantity, min_stock_threshold, active, created_at
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.SellingPriceCents, &p.CostCents, &p.StockQuantity, &p.MinStockThreshold, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	if product.SKU == "" || strings.TrimSpace(product.Name) == "" || product.SellingPriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if product.StockQuantity < 0 || product.MinStockThreshold < 0 {
		return nil, store.ErrInvalidRequest
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	product.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, category, selling_price_cents, cost_cents,
			stock_quantity, min_stock_threshold, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
	`, product.ID, product.SKU, product.Name, product.Category, product.SellingPriceCents, product.CostCents,
		product.StockQuantity, product.MinStockThreshold, product.Active, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	return s.findProduct(ctx, "id", id)
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.findProduct(ctx, "sku", strings.ToUpper(strings.TrimSpace(sku)))
}

func (s *Store) findProduct(ctx context.Context, column string, value string) (*domain.Product, error) {
	if column != "id" && column != "sku" {
		return nil, store.ErrInvalidRequest
	}

	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, selling_price_cents, cost_cents,
			stock_quantity, min_stock_threshold, active, created_at
		FROM products
		WHERE `+column+` = $1
	`, value).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.SellingPriceCents, &p.CostCents, &p.StockQuantity, &p.MinStockThreshold, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalidRequest
	}
	if product.StockQuantity < 0 {
		product.StockQuantity = 0
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, selling_price_cents = $4, cost_cents = $5,
			stock_quantity = $6, min_stock_threshold = $7, active = $8, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.SellingPriceCents, product.CostCents,
		product.StockQuantity, product.MinStockThreshold, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if strings.TrimSpace(batch.ProductID) == "" || batch.Quantity < 1 {
		return nil, store.ErrInvalidRequest
	}
	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	batch.BatchCode = strings.TrimSpace(batch.BatchCode)
	if batch.BatchCode == "" {
		batch.BatchCode = "MANUAL-" + batch.ID
	}
	if batch.SourceType == "" {
		batch.SourceType = "manual"
	}
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (
			id, product_id, batch_code, quantity, purchase_price_cents,
			selling_price_cents, expiry_date, source_type, source_id, received_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
	`, batch.ID, batch.ProductID, batch.BatchCode, batch.Quantity, batch.PurchasePriceCents,
		batch.SellingPriceCents, nullDate(batch.ExpiryDate), batch.SourceType, nullIfEmpty(batch.SourceID), batch.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := batch
	return &created, nil
}

func (s *Store) GetBatchByID(ctx context.Context, id string) (*domain.Batch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, batch_code, quantity, purchase_price_cents,
			selling_price_cents, expiry_date, source_type, source_id, received_at
		FROM batches
		WHERE id = $1
	`, id)
	batch, err := scanBatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return batch, nil
}

// ListBatchesByProduct orders batches for allocation: earliest expiry
// first, undated batches last, received_at and id as tie-breakers.
func (s *Store) ListBatchesByProduct(ctx context.Context, productID string, includeExhausted bool) ([]domain.Batch, error) {
	query := `
		SELECT id, product_id, batch_code, quantity, purchase_price_cents,
			selling_price_cents, expiry_date, source_type, source_id, received_at
		FROM batches
		WHERE product_id = $1
	`
	if !includeExhausted {
		query += ` AND quantity > 0`
	}
	query += `
		ORDER BY expiry_date ASC NULLS LAST, received_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.Batch, 0, 16)
	for rows.Next() {
		batch, err := scanBatchRow(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *batch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

// DecrementBatchQuantity subtracts qty only when the batch still holds
// at least qty units, so concurrent allocators cannot drive a batch
// negative.
func (s *Store) DecrementBatchQuantity(ctx context.Context, batchID string, qty int) (*domain.Batch, error) {
	if strings.TrimSpace(batchID) == "" || qty < 1 {
		return nil, store.ErrInvalidRequest
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE batches
		SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING id, product_id, batch_code, quantity, purchase_price_cents,
			selling_price_cents, expiry_date, source_type, source_id, received_at
	`, batchID, qty)
	batch, err := scanBatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, lookupErr := s.GetBatchByID(ctx, batchID); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return batch, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatchRow(row rowScanner) (*domain.Batch, error) {
	var batch domain.Batch
	var expiry sql.NullTime
	var sourceID sql.NullString
	if err := row.Scan(&batch.ID, &batch.ProductID, &batch.BatchCode, &batch.Quantity, &batch.PurchasePriceCents, &batch.SellingPriceCents, &expiry, &batch.SourceType, &sourceID, &batch.ReceivedAt); err != nil {
		return nil, err
	}
	batch.ReceivedAt = batch.ReceivedAt.UTC()
	if expiry.Valid {
		e := dateUTC(expiry.Time)
		batch.ExpiryDate = &e
	}
	if sourceID.Valid {
		batch.SourceID = sourceID.String
	}
	return &batch, nil
}

func (s *Store) CreateStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error) {
	if movement.EntityKind == "" || movement.EntityID == "" || movement.Type == "" {
		return nil, store.ErrInvalidRequest
	}
	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stock_movements (
			id, entity_kind, entity_id, type, quantity, reason, reference_id, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, movement.ID, movement.EntityKind, movement.EntityID, movement.Type, movement.Quantity,
		movement.Reason, nullIfEmpty(movement.ReferenceID), movement.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := movement
	return &created, nil
}

func (s *Store) ListStockMovements(ctx context.Context, entityKind string, entityID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, type, quantity, reason, COALESCE(reference_id,''), created_at
		FROM stock_movements
		WHERE ($1 = '' OR entity_kind = $1)
			AND ($2 = '' OR entity_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, entityKind, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.EntityKind, &m.EntityID, &m.Type, &m.Quantity, &m.Reason, &m.ReferenceID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) CreateServiceItem(ctx context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error) {
	if strings.TrimSpace(item.Name) == "" || item.PriceCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if item.ID == "" {
		item.ID = xid.New("svc")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_items (
			id, name, category, price_cents, track_stock, stock_quantity,
			min_stock_threshold, product_id, active, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
	`, item.ID, item.Name, item.Category, item.PriceCents, item.TrackStock, item.StockQuantity,
		item.MinStockThreshold, nullIfEmpty(item.ProductID), item.Active, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetServiceItemByID(ctx context.Context, id string) (*domain.ServiceMenuItem, error) {
	var item domain.ServiceMenuItem
	var productID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price_cents, track_stock, stock_quantity,
			min_stock_threshold, product_id, active, created_at
		FROM service_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.TrackStock, &item.StockQuantity, &item.MinStockThreshold, &productID, &item.Active, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	if productID.Valid {
		item.ProductID = productID.String
	}
	return &item, nil
}

func (s *Store) ListServiceItems(ctx context.Context) ([]domain.ServiceMenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price_cents, track_stock, stock_quantity,
			min_stock_threshold, product_id, active, created_at
		FROM service_items
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ServiceMenuItem, 0, 32)
	for rows.Next() {
		var item domain.ServiceMenuItem
		var productID sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.TrackStock, &item.StockQuantity, &item.MinStockThreshold, &productID, &item.Active, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		if productID.Valid {
			item.ProductID = productID.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateServiceItem(ctx context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error) {
	if item.ID == "" {
		return nil, store.ErrInvalidRequest
	}
	if item.StockQuantity < 0 {
		item.StockQuantity = 0
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE service_items
		SET name = $2, category = $3, price_cents = $4, track_stock = $5,
			stock_quantity = $6, min_stock_threshold = $7, product_id = $8,
			active = $9, updated_at = now()
		WHERE id = $1
	`, item.ID, item.Name, item.Category, item.PriceCents, item.TrackStock,
		item.StockQuantity, item.MinStockThreshold, nullIfEmpty(item.ProductID), item.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := item
	return &updated, nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.Kind == "" {
		return nil, store.ErrInvalidRequest
	}
	if invoice.ID == "" {
		invoice.ID = xid.New("inv")
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	if invoice.PaymentStatus == "" {
		invoice.PaymentStatus = domain.PaymentStatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (
			id, kind, reference_id, subtotal_cents, discount_cents, tax_rate_percent,
			tax_cents, total_cents, amount_paid_cents, payment_status, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
	`, invoice.ID, invoice.Kind, nullIfEmpty(invoice.ReferenceID), invoice.SubtotalCents, invoice.DiscountCents,
		invoice.TaxRatePercent, invoice.TaxCents, invoice.TotalCents, invoice.AmountPaidCents,
		invoice.PaymentStatus, invoice.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func (s *Store) GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, COALESCE(reference_id,''), subtotal_cents, discount_cents,
			tax_rate_percent, tax_cents, total_cents, amount_paid_cents, payment_status, created_at
		FROM invoices
		WHERE id = $1
	`, id)
	return scanInvoiceRow(row)
}

func (s *Store) FindInvoiceByReference(ctx context.Context, kind string, referenceID string) (*domain.Invoice, error) {
	if kind == "" || referenceID == "" {
		return nil, store.ErrInvalidRequest
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, COALESCE(reference_id,''), subtotal_cents, discount_cents,
			tax_rate_percent, tax_cents, total_cents, amount_paid_cents, payment_status, created_at
		FROM invoices
		WHERE kind = $1 AND reference_id = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, kind, referenceID)
	return scanInvoiceRow(row)
}

func scanInvoiceRow(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.Kind, &inv.ReferenceID, &inv.SubtotalCents, &inv.DiscountCents, &inv.TaxRatePercent, &inv.TaxCents, &inv.TotalCents, &inv.AmountPaidCents, &inv.PaymentStatus, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	inv.CreatedAt = inv.CreatedAt.UTC()
	return &inv, nil
}

func (s *Store) UpdateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.ID == "" {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET subtotal_cents = $2, discount_cents = $3, tax_rate_percent = $4, tax_cents = $5,
			total_cents = $6, amount_paid_cents = $7, payment_status = $8, updated_at = now()
		WHERE id = $1
	`, invoice.ID, invoice.SubtotalCents, invoice.DiscountCents, invoice.TaxRatePercent,
		invoice.TaxCents, invoice.TotalCents, invoice.AmountPaidCents, invoice.PaymentStatus)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := invoice
	return &updated, nil
}

func (s *Store) ListInvoices(ctx context.Context, kind string, limit int) ([]domain.Invoice, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(reference_id,''), subtotal_cents, discount_cents,
			tax_rate_percent, tax_cents, total_cents, amount_paid_cents, payment_status, created_at
		FROM invoices
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.Kind, &inv.ReferenceID, &inv.SubtotalCents, &inv.DiscountCents, &inv.TaxRatePercent, &inv.TaxCents, &inv.TotalCents, &inv.AmountPaidCents, &inv.PaymentStatus, &inv.CreatedAt); err != nil {
			return nil, err
		}
		inv.CreatedAt = inv.CreatedAt.UTC()
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) CreateInvoiceItem(ctx context.Context, item domain.InvoiceItem) (*domain.InvoiceItem, error) {
	if item.InvoiceID == "" || item.Qty < 1 {
		return nil, store.ErrInvalidRequest
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice_items (
			id, invoice_id, description, qty, unit_price_cents, total_price_cents, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, item.ID, item.InvoiceID, item.Description, item.Qty, item.UnitPriceCents, item.TotalPriceCents, item.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) ListInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, description, qty, unit_price_cents, total_price_cents, created_at
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY created_at ASC, id ASC
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InvoiceItem, 0, 8)
	for rows.Next() {
		var item domain.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Qty, &item.UnitPriceCents, &item.TotalPriceCents, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteInvoiceItem(ctx context.Context, invoiceID string, itemID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM invoice_items
		WHERE id = $1 AND invoice_id = $2
	`, itemID, invoiceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error) {
	if strings.TrimSpace(loan.BorrowerName) == "" || loan.TotalCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if loan.ID == "" {
		loan.ID = xid.New("loan")
	}
	if loan.CreatedAt.IsZero() {
		loan.CreatedAt = time.Now().UTC()
	}
	if loan.Status == "" {
		loan.Status = domain.LoanStatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loans (
			id, borrower_name, total_cents, paid_cents, remaining_cents,
			status, due_date, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
	`, loan.ID, loan.BorrowerName, loan.TotalCents, loan.PaidCents, loan.RemainingCents,
		loan.Status, nullDate(loan.DueDate), loan.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := loan
	return &created, nil
}

func (s *Store) GetLoanByID(ctx context.Context, id string) (*domain.Loan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, borrower_name, total_cents, paid_cents, remaining_cents, status, due_date, created_at
		FROM loans
		WHERE id = $1
	`, id)
	return scanLoanRow(row)
}

func scanLoanRow(row rowScanner) (*domain.Loan, error) {
	var loan domain.Loan
	var dueDate sql.NullTime
	err := row.Scan(&loan.ID, &loan.BorrowerName, &loan.TotalCents, &loan.PaidCents, &loan.RemainingCents, &loan.Status, &dueDate, &loan.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	loan.CreatedAt = loan.CreatedAt.UTC()
	if dueDate.Valid {
		d := dateUTC(dueDate.Time)
		loan.DueDate = &d
	}
	return &loan, nil
}

func (s *Store) UpdateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error) {
	if loan.ID == "" {
		return nil, store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans
		SET paid_cents = $2, remaining_cents = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, loan.ID, loan.PaidCents, loan.RemainingCents, loan.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := loan
	return &updated, nil
}

func (s *Store) ListLoans(ctx context.Context, status string, limit int) ([]domain.Loan, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, borrower_name, total_cents, paid_cents, remaining_cents, status, due_date, created_at
		FROM loans
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0, limit)
	for rows.Next() {
		loan, err := scanLoanRow(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

func (s *Store) CreateLoanPayment(ctx context.Context, payment domain.LoanPayment) (*domain.LoanPayment, error) {
	if payment.LoanID == "" || payment.AmountCents < 1 {
		return nil, store.ErrInvalidRequest
	}
	if payment.ID == "" {
		payment.ID = xid.New("lpay")
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_payments (id, loan_id, amount_cents, method, reference, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.LoanID, payment.AmountCents, payment.Method, nullIfEmpty(payment.Reference), payment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) ListLoanPayments(ctx context.Context, loanID string) ([]domain.LoanPayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, loan_id, amount_cents, method, COALESCE(reference,''), created_at
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY created_at ASC, id ASC
	`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.LoanPayment, 0, 8)
	for rows.Next() {
		var payment domain.LoanPayment
		if err := rows.Scan(&payment.ID, &payment.LoanID, &payment.AmountCents, &payment.Method, &payment.Reference, &payment.CreatedAt); err != nil {
			return nil, err
		}
		payment.CreatedAt = payment.CreatedAt.UTC()
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRequest
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRequest
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func dateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullDate(val *time.Time) any {
	if val == nil {
		return nil
	}
	return dateUTC(*val)
}
