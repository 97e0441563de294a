package domain

import "time"

type Product struct {
	ID                string    `json:"id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	SellingPriceCents int64     `json:"selling_price_cents"`
	CostCents         int64     `json:"cost_cents"`
	StockQuantity     int       `json:"stock_quantity"`
	MinStockThreshold int       `json:"min_stock_threshold"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	SellingPriceCents int64  `json:"selling_price_cents"`
	CostCents         int64  `json:"cost_cents"`
	MinStockThreshold int    `json:"min_stock_threshold"`
	InitialStock      int    `json:"initial_stock"`
}

// Batch is a received lot of a product. Quantity is the remaining units;
// a batch is soft-exhausted at zero and never deleted while movements or
// sale items may still reference it.
type Batch struct {
	ID                 string     `json:"id"`
	ProductID          string     `json:"product_id"`
	BatchCode          string     `json:"batch_code"`
	Quantity           int        `json:"quantity"`
	PurchasePriceCents int64      `json:"purchase_price_cents"`
	SellingPriceCents  int64      `json:"selling_price_cents"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	SourceType         string     `json:"source_type"`
	SourceID           string     `json:"source_id,omitempty"`
	ReceivedAt         time.Time  `json:"received_at"`
}

type BatchReceiveRequest struct {
	SKU                string `json:"sku"`
	BatchCode          string `json:"batch_code"`
	Quantity           int    `json:"quantity"`
	PurchasePriceCents int64  `json:"purchase_price_cents"`
	SellingPriceCents  int64  `json:"selling_price_cents"`
	ExpiryDate         string `json:"expiry_date,omitempty"`
}

// StockMovement is an append-only audit record of a quantity change.
// Quantity always carries the requested delta, even when an out
// deduction was clamped at zero by the ledger updater.
type StockMovement struct {
	ID          string    `json:"id"`
	EntityKind  string    `json:"entity_kind"`
	EntityID    string    `json:"entity_id"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MovementRequest struct {
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	ReferenceID string `json:"reference_id,omitempty"`
}

type StockAdjustmentRequest struct {
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	NewQuantity int    `json:"new_quantity"`
	Reason      string `json:"reason"`
	ManagerPIN  string `json:"manager_pin"`
}

// ServiceMenuItem lives in the hotel domain. When TrackStock is set the
// item keeps its own quantity; when ProductID is also set, consumption
// mirrors into the linked retail product's batches.
type ServiceMenuItem struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Category          string    `json:"category"`
	PriceCents        int64     `json:"price_cents"`
	TrackStock        bool      `json:"track_stock"`
	StockQuantity     int       `json:"stock_quantity"`
	MinStockThreshold int       `json:"min_stock_threshold"`
	ProductID         string    `json:"product_id,omitempty"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

type ServiceItemCreateRequest struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	PriceCents        int64  `json:"price_cents"`
	TrackStock        bool   `json:"track_stock"`
	InitialStock      int    `json:"initial_stock"`
	MinStockThreshold int    `json:"min_stock_threshold"`
	ProductSKU        string `json:"product_sku,omitempty"`
}

type ServiceConsumptionRequest struct {
	ServiceItemID string `json:"service_item_id"`
	Quantity      int    `json:"quantity"`
	ReferenceID   string `json:"reference_id"`
}

type ServiceConsumptionResponse struct {
	ServiceItemID string          `json:"service_item_id"`
	Tracked       bool            `json:"tracked"`
	Movements     []StockMovement `json:"movements"`
}

type Invoice struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	SubtotalCents   int64     `json:"subtotal_cents"`
	DiscountCents   int64     `json:"discount_cents"`
	TaxRatePercent  float64   `json:"tax_rate_percent"`
	TaxCents        int64     `json:"tax_cents"`
	TotalCents      int64     `json:"total_cents"`
	AmountPaidCents int64     `json:"amount_paid_cents"`
	PaymentStatus   string    `json:"payment_status"`
	CreatedAt       time.Time `json:"created_at"`
}

type InvoiceItem struct {
	ID              string    `json:"id"`
	InvoiceID       string    `json:"invoice_id"`
	Description     string    `json:"description"`
	Qty             int       `json:"qty"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	TotalPriceCents int64     `json:"total_price_cents"`
	CreatedAt       time.Time `json:"created_at"`
}

type InvoiceItemRequest struct {
	Description    string `json:"description"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type InvoicePaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
}

type InvoiceResponse struct {
	Invoice Invoice       `json:"invoice"`
	Items   []InvoiceItem `json:"items"`
}

type SaleItemRequest struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type SaleRequest struct {
	ReferenceID     string            `json:"reference_id,omitempty"`
	DiscountCents   int64             `json:"discount_cents"`
	AmountPaidCents int64             `json:"amount_paid_cents"`
	Items           []SaleItemRequest `json:"items"`
}

type SaleResponse struct {
	InvoiceID     string        `json:"invoice_id"`
	Invoice       Invoice       `json:"invoice"`
	Items         []InvoiceItem `json:"items"`
	PaymentStatus string        `json:"payment_status"`
}

type BookingCheckoutRequest struct {
	BookingID     string `json:"booking_id"`
	Description   string `json:"description,omitempty"`
	Nights        int    `json:"nights"`
	RoomRateCents int64  `json:"room_rate_cents"`
}

type Loan struct {
	ID             string     `json:"id"`
	BorrowerName   string     `json:"borrower_name"`
	TotalCents     int64      `json:"total_cents"`
	PaidCents      int64      `json:"paid_cents"`
	RemainingCents int64      `json:"remaining_cents"`
	Status         string     `json:"status"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LoanPayment is append-only; the sum of a loan's payments must always
// equal the loan's PaidCents.
type LoanPayment struct {
	ID          string    `json:"id"`
	LoanID      string    `json:"loan_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoanItemRequest struct {
	Description    string `json:"description"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type LoanCreateRequest struct {
	BorrowerName string            `json:"borrower_name"`
	DueDate      string            `json:"due_date,omitempty"`
	Items        []LoanItemRequest `json:"items"`
}

type LoanPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
}

type LoanResponse struct {
	Loan     Loan          `json:"loan"`
	Payments []LoanPayment `json:"payments,omitempty"`
}

// BatchAllocation is one leg of an allocation plan: take Quantity units
// from the identified batch.
type BatchAllocation struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
}

// AllocationPlan is a pure planning result; nothing is mutated until the
// stock ledger updater applies it.
type AllocationPlan struct {
	ProductID   string            `json:"product_id"`
	Mode        string            `json:"mode"`
	Requested   int               `json:"requested"`
	Allocated   int               `json:"allocated"`
	ShortBy     int               `json:"short_by"`
	Fulfilled   bool              `json:"fulfilled"`
	Allocations []BatchAllocation `json:"allocations"`
}

type LowStockProduct struct {
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	StockQuantity     int    `json:"stock_quantity"`
	MinStockThreshold int    `json:"min_stock_threshold"`
}

type LowStockServiceItem struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	StockQuantity     int    `json:"stock_quantity"`
	MinStockThreshold int    `json:"min_stock_threshold"`
}

type LowStockReport struct {
	GeneratedAt  string                `json:"generated_at"`
	Products     []LowStockProduct     `json:"products"`
	ServiceItems []LowStockServiceItem `json:"service_items"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persistence model for auth credentials. Password
// holds a bcrypt hash.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	EntityKindProduct     = "product"
	EntityKindServiceItem = "service_item"
)

const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
)

const (
	AllocationModeBatched   = "batched"
	AllocationModeAggregate = "aggregate"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusPartial   = "partial"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

const (
	InvoiceKindSale    = "sale"
	InvoiceKindBooking = "booking"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusOverdue   = "overdue"
	LoanStatusCancelled = "cancelled"
)

const (
	RoleManager = "manager"
	RoleCashier = "cashier"
)
