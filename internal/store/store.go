package store

import (
	"context"
	"errors"
	"time"

	"pondokpos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrConflict          = errors.New("conflict")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	GetBatchByID(ctx context.Context, id string) (*domain.Batch, error)
	// ListBatchesByProduct returns the product's batches in FEFO order:
	// earliest expiry first, undated batches last.
	ListBatchesByProduct(ctx context.Context, productID string, includeExhausted bool) ([]domain.Batch, error)
	// DecrementBatchQuantity atomically subtracts qty from a batch and
	// returns ErrConflict when the batch no longer holds qty units.
	DecrementBatchQuantity(ctx context.Context, batchID string, qty int) (*domain.Batch, error)

	CreateStockMovement(ctx context.Context, movement domain.StockMovement) (*domain.StockMovement, error)
	ListStockMovements(ctx context.Context, entityKind string, entityID string, limit int) ([]domain.StockMovement, error)

	CreateServiceItem(ctx context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error)
	GetServiceItemByID(ctx context.Context, id string) (*domain.ServiceMenuItem, error)
	ListServiceItems(ctx context.Context) ([]domain.ServiceMenuItem, error)
	UpdateServiceItem(ctx context.Context, item domain.ServiceMenuItem) (*domain.ServiceMenuItem, error)

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoiceByID(ctx context.Context, id string) (*domain.Invoice, error)
	FindInvoiceByReference(ctx context.Context, kind string, referenceID string) (*domain.Invoice, error)
	UpdateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, kind string, limit int) ([]domain.Invoice, error)
	CreateInvoiceItem(ctx context.Context, item domain.InvoiceItem) (*domain.InvoiceItem, error)
	ListInvoiceItems(ctx context.Context, invoiceID string) ([]domain.InvoiceItem, error)
	DeleteInvoiceItem(ctx context.Context, invoiceID string, itemID string) error

	CreateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error)
	GetLoanByID(ctx context.Context, id string) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, loan domain.Loan) (*domain.Loan, error)
	ListLoans(ctx context.Context, status string, limit int) ([]domain.Loan, error)
	CreateLoanPayment(ctx context.Context, payment domain.LoanPayment) (*domain.LoanPayment, error)
	ListLoanPayments(ctx context.Context, loanID string) ([]domain.LoanPayment, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
