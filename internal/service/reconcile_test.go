package service

import (
	"context"
	"errors"
	"testing"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/store"
)

func TestRecalculateInvoiceTotalsAndTax(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// 12% rate makes the rounding visible.
	svc.taxRatePercent = 12

	resp, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-100",
		Nights:        2,
		RoomRateCents: 35000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	inv := resp.Invoice
	if inv.SubtotalCents != 70000 {
		t.Fatalf("expected subtotal 70000, got %d", inv.SubtotalCents)
	}
	if inv.TaxCents != 8400 {
		t.Fatalf("expected tax 8400, got %d", inv.TaxCents)
	}
	if inv.TotalCents != 78400 {
		t.Fatalf("expected total 78400, got %d", inv.TotalCents)
	}
	if inv.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", inv.PaymentStatus)
	}
}

func TestRecalculateInvoiceIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	resp, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-101",
		Nights:        1,
		RoomRateCents: 50000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	first, err := svc.RecalculateInvoice(ctx, resp.Invoice.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	second, err := svc.RecalculateInvoice(ctx, resp.Invoice.ID)
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if first != second {
		t.Fatalf("recalculation changed a stable invoice:\n%+v\n%+v", first, second)
	}
}

func TestDiscountLargerThanSubtotalYieldsZeroTax(t *testing.T) {
	if got := taxCents(10000, 15000, 18); got != 0 {
		t.Fatalf("expected zero tax on negative base, got %d", got)
	}
	if got := taxCents(10000, 10000, 18); got != 0 {
		t.Fatalf("expected zero tax on zero base, got %d", got)
	}
	// (10000-1000) * 18% = 1620
	if got := taxCents(10000, 1000, 18); got != 1620 {
		t.Fatalf("expected 1620, got %d", got)
	}
}

func TestInvoicePaymentStatusTransitions(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	resp, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-102",
		Nights:        1,
		RoomRateCents: 100000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	total := resp.Invoice.TotalCents

	partial, err := svc.RecordInvoicePayment(ctx, resp.Invoice.ID, domain.InvoicePaymentRequest{AmountCents: total / 2, Method: "cash"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if partial.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected partial, got %s", partial.PaymentStatus)
	}

	paid, err := svc.RecordInvoicePayment(ctx, resp.Invoice.ID, domain.InvoicePaymentRequest{AmountCents: total - total/2, Method: "cash"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if paid.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", paid.PaymentStatus)
	}
}

func TestCheckoutBookingReusesInvoice(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	first, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-103",
		Nights:        1,
		RoomRateCents: 40000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	second, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-103",
		Description:   "Extra night",
		Nights:        1,
		RoomRateCents: 40000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if first.Invoice.ID != second.Invoice.ID {
		t.Fatalf("expected the booking to keep one invoice, got %s and %s", first.Invoice.ID, second.Invoice.ID)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected two line items, got %d", len(second.Items))
	}
	if second.Invoice.SubtotalCents != 80000 {
		t.Fatalf("expected subtotal 80000, got %d", second.Invoice.SubtotalCents)
	}
}

func TestRemoveInvoiceItemReconcilesTotals(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	resp, err := svc.CheckoutBooking(ctx, domain.BookingCheckoutRequest{
		BookingID:     "bk-104",
		Nights:        1,
		RoomRateCents: 60000,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	withExtra, err := svc.AddInvoiceItem(ctx, resp.Invoice.ID, domain.InvoiceItemRequest{
		Description:    "Minibar",
		Qty:            2,
		UnitPriceCents: 10000,
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if withExtra.Invoice.SubtotalCents != 80000 {
		t.Fatalf("expected subtotal 80000, got %d", withExtra.Invoice.SubtotalCents)
	}

	var extraID string
	for _, item := range withExtra.Items {
		if item.Description == "Minibar" {
			extraID = item.ID
		}
	}
	if extraID == "" {
		t.Fatalf("minibar item not found")
	}

	trimmed, err := svc.RemoveInvoiceItem(ctx, resp.Invoice.ID, extraID)
	if err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	if trimmed.Invoice.SubtotalCents != 60000 {
		t.Fatalf("expected subtotal back to 60000, got %d", trimmed.Invoice.SubtotalCents)
	}
}

func TestLoanPaymentKeepsBalanceInvariant(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	created, err := svc.CreateLoan(ctx, domain.LoanCreateRequest{
		BorrowerName: "Bu Sari",
		Items: []domain.LoanItemRequest{
			{Description: "Beras 5kg", Qty: 2, UnitPriceCents: 65000},
			{Description: "Minyak Goreng", Qty: 1, UnitPriceCents: 18000},
		},
	})
	if err != nil {
		t.Fatalf("create loan failed: %v", err)
	}
	loan := created.Loan
	if loan.TotalCents != 148000 || loan.RemainingCents != 148000 || loan.PaidCents != 0 {
		t.Fatalf("unexpected loan balances: %+v", loan)
	}

	after, err := svc.RecordLoanPayment(ctx, loan.ID, domain.LoanPaymentRequest{AmountCents: 50000, Method: "cash"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if after.Loan.PaidCents+after.Loan.RemainingCents != after.Loan.TotalCents {
		t.Fatalf("paid+remaining != total: %+v", after.Loan)
	}
	if after.Loan.Status != domain.LoanStatusActive {
		t.Fatalf("expected active, got %s", after.Loan.Status)
	}

	_, err = svc.RecordLoanPayment(ctx, loan.ID, domain.LoanPaymentRequest{AmountCents: 200000, Method: "cash"})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected overpayment rejected, got %v", err)
	}

	final, err := svc.RecordLoanPayment(ctx, loan.ID, domain.LoanPaymentRequest{AmountCents: 98000, Method: "transfer"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if final.Loan.Status != domain.LoanStatusCompleted {
		t.Fatalf("expected completed, got %s", final.Loan.Status)
	}
	if final.Loan.RemainingCents != 0 {
		t.Fatalf("expected zero remaining, got %d", final.Loan.RemainingCents)
	}

	_, err = svc.RecordLoanPayment(ctx, loan.ID, domain.LoanPaymentRequest{AmountCents: 100, Method: "cash"})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected payment on completed loan rejected, got %v", err)
	}
}

func TestLoanOverdueDerivedFromDueDate(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	created, err := svc.CreateLoan(ctx, domain.LoanCreateRequest{
		BorrowerName: "Pak Budi",
		DueDate:      "2024-01-01",
		Items:        []domain.LoanItemRequest{{Description: "Gula 1kg", Qty: 1, UnitPriceCents: 17400}},
	})
	if err != nil {
		t.Fatalf("create loan failed: %v", err)
	}
	if created.Loan.Status != domain.LoanStatusOverdue {
		t.Fatalf("expected overdue, got %s", created.Loan.Status)
	}

	overdue, err := svc.ListLoans(context.Background(), domain.LoanStatusOverdue, 10)
	if err != nil {
		t.Fatalf("list loans failed: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != created.Loan.ID {
		t.Fatalf("expected the overdue loan listed, got %+v", overdue)
	}

	// Payments still work against an overdue loan.
	paid, err := svc.RecordLoanPayment(ctx, created.Loan.ID, domain.LoanPaymentRequest{AmountCents: 17400, Method: "cash"})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if paid.Loan.Status != domain.LoanStatusCompleted {
		t.Fatalf("expected completed, got %s", paid.Loan.Status)
	}
}

func TestCompleteSaleReconcilesTaxAndPayment(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// 2x kopi at 2600 = 5200, minus 200 discount = 5000 base, 18% = 900.
	resp, err := svc.CompleteSale(ctx, domain.SaleRequest{
		DiscountCents:   200,
		AmountPaidCents: 6100,
		Items:           []domain.SaleItemRequest{{SKU: "SKU-KOPI-01", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("sale failed: %v", err)
	}
	if resp.Invoice.SubtotalCents != 5200 {
		t.Fatalf("expected subtotal 5200, got %d", resp.Invoice.SubtotalCents)
	}
	if resp.Invoice.TaxCents != 900 {
		t.Fatalf("expected tax 900, got %d", resp.Invoice.TaxCents)
	}
	if resp.Invoice.TotalCents != 5900 {
		t.Fatalf("expected total 5900, got %d", resp.Invoice.TotalCents)
	}
	if resp.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", resp.PaymentStatus)
	}
}
