package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
	"pondokpos/backend/internal/xid"
)

// RecalculateInvoice rebuilds an invoice's money fields from its line
// items: subtotal is the sum of line totals, tax applies to the
// discounted base, total is subtotal minus discount plus tax. The
// payment status is re-derived from the amount paid. Running it twice
// with no item changes is a no-op.
func (s *Service) RecalculateInvoice(ctx context.Context, invoiceID string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	items, err := s.repo.ListInvoiceItems(ctx, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.TotalPriceCents
	}

	invoice.SubtotalCents = subtotal
	invoice.TaxCents = taxCents(subtotal, invoice.DiscountCents, invoice.TaxRatePercent)
	invoice.TotalCents = subtotal - invoice.DiscountCents + invoice.TaxCents
	invoice.PaymentStatus = derivePaymentStatus(*invoice)

	updated, err := s.repo.UpdateInvoice(ctx, *invoice)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *updated, nil
}

// taxCents computes tax on the discounted base, rounded to the nearest
// cent. A discount larger than the subtotal leaves a zero base, never a
// negative tax.
func taxCents(subtotalCents int64, discountCents int64, ratePercent float64) int64 {
	base := subtotalCents - discountCents
	if base <= 0 || ratePercent <= 0 {
		return 0
	}
	rate := decimal.NewFromFloat(ratePercent).Div(decimal.NewFromInt(100))
	return decimal.NewFromInt(base).Mul(rate).Round(0).IntPart()
}

func derivePaymentStatus(invoice domain.Invoice) string {
	if invoice.PaymentStatus == domain.PaymentStatusCancelled {
		return domain.PaymentStatusCancelled
	}
	if invoice.TotalCents > 0 && invoice.AmountPaidCents >= invoice.TotalCents {
		return domain.PaymentStatusPaid
	}
	if invoice.AmountPaidCents > 0 {
		return domain.PaymentStatusPartial
	}
	return domain.PaymentStatusPending
}

func (s *Service) GetInvoice(ctx context.Context, invoiceID string) (domain.InvoiceResponse, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	items, err := s.repo.ListInvoiceItems(ctx, invoiceID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	return domain.InvoiceResponse{Invoice: *invoice, Items: items}, nil
}

func (s *Service) ListInvoices(ctx context.Context, kind string, limit int) ([]domain.Invoice, error) {
	if kind != "" && kind != domain.InvoiceKindSale && kind != domain.InvoiceKindBooking {
		return nil, store.ErrInvalidRequest
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListInvoices(ctx, kind, limit)
}

// AddInvoiceItem appends a line and reconciles the invoice totals in
// the same call so reads never observe a stale total.
func (s *Service) AddInvoiceItem(ctx context.Context, invoiceID string, req domain.InvoiceItemRequest) (domain.InvoiceResponse, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" || req.Qty < 1 || req.UnitPriceCents < 0 {
		return domain.InvoiceResponse{}, store.ErrInvalidRequest
	}

	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if invoice.PaymentStatus == domain.PaymentStatusCancelled {
		return domain.InvoiceResponse{}, store.ErrInvalidRequest
	}

	if _, err := s.repo.CreateInvoiceItem(ctx, domain.InvoiceItem{
		ID:              xid.New("item"),
		InvoiceID:       invoiceID,
		Description:     req.Description,
		Qty:             req.Qty,
		UnitPriceCents:  req.UnitPriceCents,
		TotalPriceCents: int64(req.Qty) * req.UnitPriceCents,
		CreatedAt:       time.Now().UTC(),
	}); err != nil {
		return domain.InvoiceResponse{}, err
	}

	if _, err := s.RecalculateInvoice(ctx, invoiceID); err != nil {
		return domain.InvoiceResponse{}, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *Service) RemoveInvoiceItem(ctx context.Context, invoiceID string, itemID string) (domain.InvoiceResponse, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if invoice.PaymentStatus == domain.PaymentStatusCancelled {
		return domain.InvoiceResponse{}, store.ErrInvalidRequest
	}

	if err := s.repo.DeleteInvoiceItem(ctx, invoiceID, itemID); err != nil {
		return domain.InvoiceResponse{}, err
	}
	if _, err := s.RecalculateInvoice(ctx, invoiceID); err != nil {
		return domain.InvoiceResponse{}, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *Service) RecordInvoicePayment(ctx context.Context, invoiceID string, req domain.InvoicePaymentRequest) (domain.Invoice, error) {
	if req.AmountCents < 1 {
		return domain.Invoice{}, store.ErrInvalidRequest
	}

	invoice, err := s.repo.GetInvoiceByID(ctx, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.PaymentStatus == domain.PaymentStatusCancelled {
		return domain.Invoice{}, store.ErrInvalidRequest
	}

	invoice.AmountPaidCents += req.AmountCents
	if _, err := s.repo.UpdateInvoice(ctx, *invoice); err != nil {
		return domain.Invoice{}, err
	}

	updated, err := s.RecalculateInvoice(ctx, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}

	s.logAudit(ctx, "invoice_payment", "invoice", invoiceID, fmt.Sprintf("amount=%d,method=%s", req.AmountCents, req.Method))
	return updated, nil
}

// CompleteSale performs a retail sale: every line is checked against the
// allocation plan first, stock is deducted batch by batch, and the
// resulting invoice is reconciled. A sale that cannot be covered by
// available stock is rejected before anything is written.
func (s *Service) CompleteSale(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	items := normalizeSaleItems(req.Items)
	if len(items) == 0 {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}
	if req.DiscountCents < 0 || req.AmountPaidCents < 0 {
		return domain.SaleResponse{}, store.ErrInvalidRequest
	}

	type saleLine struct {
		product domain.Product
		qty     int
	}
	lines := make([]saleLine, 0, len(items))
	for _, item := range items {
		product, err := s.repo.GetProductBySKU(ctx, item.SKU)
		if err != nil {
			return domain.SaleResponse{}, err
		}
		if !product.Active {
			return domain.SaleResponse{}, store.ErrInvalidRequest
		}
		plan, err := s.StockAvailability(ctx, item.SKU, item.Qty)
		if err != nil {
			return domain.SaleResponse{}, err
		}
		if !plan.Fulfilled {
			return domain.SaleResponse{}, store.ErrInsufficientStock
		}
		lines = append(lines, saleLine{product: *product, qty: item.Qty})
	}

	now := time.Now().UTC()
	invoice, err := s.repo.CreateInvoice(ctx, domain.Invoice{
		ID:              xid.New("inv"),
		Kind:            domain.InvoiceKindSale,
		ReferenceID:     req.ReferenceID,
		DiscountCents:   req.DiscountCents,
		TaxRatePercent:  s.taxRatePercent,
		AmountPaidCents: req.AmountPaidCents,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       now,
	})
	if err != nil {
		return domain.SaleResponse{}, err
	}

	for _, line := range lines {
		if _, err := s.repo.CreateInvoiceItem(ctx, domain.InvoiceItem{
			ID:              xid.New("item"),
			InvoiceID:       invoice.ID,
			Description:     line.product.Name,
			Qty:             line.qty,
			UnitPriceCents:  line.product.SellingPriceCents,
			TotalPriceCents: int64(line.qty) * line.product.SellingPriceCents,
			CreatedAt:       now,
		}); err != nil {
			return domain.SaleResponse{}, err
		}

		mu := s.entityLock(domain.EntityKindProduct + ":" + line.product.ID)
		mu.Lock()
		_, err := s.deductProductStock(ctx, line.product.ID, line.qty, "sale", invoice.ID)
		mu.Unlock()
		if err != nil {
			return domain.SaleResponse{}, err
		}
	}

	reconciled, err := s.RecalculateInvoice(ctx, invoice.ID)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	invoiceItems, err := s.repo.ListInvoiceItems(ctx, invoice.ID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.logAudit(ctx, "sale_complete", "invoice", invoice.ID, fmt.Sprintf("lines=%d,total=%d", len(lines), reconciled.TotalCents))

	return domain.SaleResponse{
		InvoiceID:     invoice.ID,
		Invoice:       reconciled,
		Items:         invoiceItems,
		PaymentStatus: reconciled.PaymentStatus,
	}, nil
}

func normalizeSaleItems(items []domain.SaleItemRequest) []domain.SaleItemRequest {
	agg := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		sku := strings.ToUpper(strings.TrimSpace(item.SKU))
		if sku == "" || item.Qty < 1 {
			continue
		}
		if _, seen := agg[sku]; !seen {
			order = append(order, sku)
		}
		agg[sku] += item.Qty
	}

	normalized := make([]domain.SaleItemRequest, 0, len(agg))
	for _, sku := range order {
		normalized = append(normalized, domain.SaleItemRequest{SKU: sku, Qty: agg[sku]})
	}
	return normalized
}

// CheckoutBooking folds a stay's room charge into the booking's invoice,
// creating the invoice on first checkout and reusing it afterwards so a
// booking never ends up with two invoices.
func (s *Service) CheckoutBooking(ctx context.Context, req domain.BookingCheckoutRequest) (domain.InvoiceResponse, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" || req.Nights < 1 || req.RoomRateCents < 1 {
		return domain.InvoiceResponse{}, store.ErrInvalidRequest
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Room charge"
	}

	invoice, err := s.repo.FindInvoiceByReference(ctx, domain.InvoiceKindBooking, req.BookingID)
	if errors.Is(err, store.ErrNotFound) {
		invoice, err = s.repo.CreateInvoice(ctx, domain.Invoice{
			ID:             xid.New("inv"),
			Kind:           domain.InvoiceKindBooking,
			ReferenceID:    req.BookingID,
			TaxRatePercent: s.taxRatePercent,
			PaymentStatus:  domain.PaymentStatusPending,
			CreatedAt:      time.Now().UTC(),
		})
	}
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	resp, err := s.AddInvoiceItem(ctx, invoice.ID, domain.InvoiceItemRequest{
		Description:    description,
		Qty:            req.Nights,
		UnitPriceCents: req.RoomRateCents,
	})
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	s.logAudit(ctx, "booking_checkout", "invoice", invoice.ID, fmt.Sprintf("booking=%s,nights=%d", req.BookingID, req.Nights))
	return resp, nil
}
