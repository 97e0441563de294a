package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"pondokpos/backend/internal/domain"
	"pondokpos/backend/internal/service"
	"pondokpos/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "cashier", "manager"))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductActions, "cashier", "manager"))
	mux.HandleFunc("/api/v1/batches", a.requireAuth(a.handleBatches, "manager"))
	mux.HandleFunc("/api/v1/stock/movements", a.requireAuth(a.handleStockMovements, "cashier", "manager"))
	mux.HandleFunc("/api/v1/stock/availability", a.requireAuth(a.handleStockAvailability, "cashier", "manager"))
	mux.HandleFunc("/api/v1/stock/adjustments", a.requireAuth(a.handleStockAdjustment, "manager"))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "cashier", "manager"))
	mux.HandleFunc("/api/v1/service-items", a.requireAuth(a.handleServiceItems, "cashier", "manager"))
	mux.HandleFunc("/api/v1/service-items/", a.requireAuth(a.handleServiceItemActions, "cashier", "manager"))
	mux.HandleFunc("/api/v1/bookings/checkout", a.requireAuth(a.handleBookingCheckout, "cashier", "manager"))

	mux.HandleFunc("/api/v1/invoices", a.requireAuth(a.handleInvoices, "cashier", "manager"))
	mux.HandleFunc("/api/v1/invoices/", a.requireAuth(a.handleInvoiceActions, "cashier", "manager"))

	mux.HandleFunc("/api/v1/loans", a.requireAuth(a.handleLoans, "cashier", "manager"))
	mux.HandleFunc("/api/v1/loans/", a.requireAuth(a.handleLoanActions, "cashier", "manager"))

	mux.HandleFunc("/api/v1/reports/low-stock", a.requireAuth(a.handleLowStockReport, "manager"))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, "manager"))
	mux.HandleFunc("/api/v1/users/cashiers", a.requireAuth(a.handleCashiers, "manager"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation.
// Login is excluded because it is called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

// checkCSRF enforces CSRF token validation for state-changing methods.
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/products/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("product sku required"))
		return
	}

	if strings.HasSuffix(tail, "/batches") {
		sku := strings.Trim(strings.TrimSuffix(tail, "/batches"), "/")
		if sku == "" {
			writeError(w, http.StatusBadRequest, errors.New("product sku required"))
			return
		}
		includeExhausted := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("include_exhausted")), "true")

		batches, err := a.service.ListBatches(r.Context(), sku, includeExhausted)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
		return
	}

	product, err := a.service.GetProductBySKU(r.Context(), tail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BatchReceiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batch, err := a.service.ReceiveBatch(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"batch": batch})
}

func (a *API) handleStockMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	entityKind := strings.TrimSpace(r.URL.Query().Get("entity_kind"))
	entityID := strings.TrimSpace(r.URL.Query().Get("entity_id"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	movements, err := a.service.ListStockMovements(r.Context(), entityKind, entityID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}

func (a *API) handleStockAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	sku := strings.TrimSpace(r.URL.Query().Get("sku"))
	qty, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("qty")))
	if err != nil || qty < 1 {
		writeError(w, http.StatusBadRequest, errors.New("positive qty required"))
		return
	}

	plan, err := a.service.StockAvailability(r.Context(), sku, qty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": plan})
}

// handleStockAdjustment is the manual correction endpoint. On top of the
// manager role it demands the manager PIN, same as other destructive
// actions, and rate-limits PIN guesses.
func (a *API) handleStockAdjustment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.StockAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.pinLimiter.Allow("pin:adjust:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many manager pin attempts"))
		return
	}
	if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
		writeError(w, http.StatusForbidden, errors.New("invalid manager pin"))
		return
	}

	movement, err := a.service.AdjustStock(r.Context(), req.EntityKind, req.EntityID, req.NewQuantity, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movement": movement})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CompleteSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleServiceItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.ListServiceItems(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service_items": items})
	case http.MethodPost:
		var req domain.ServiceItemCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		item, err := a.service.CreateServiceItem(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"service_item": item})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleServiceItemActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	prefix := "/api/v1/service-items/"
	if !strings.HasSuffix(r.URL.Path, "/consume") {
		writeError(w, http.StatusBadRequest, errors.New("unknown service item action"))
		return
	}
	itemID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/consume")
	itemID = strings.TrimSpace(strings.Trim(itemID, "/"))
	if itemID == "" {
		writeError(w, http.StatusBadRequest, errors.New("service item id required"))
		return
	}

	var req domain.ServiceConsumptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.ServiceItemID = itemID

	resp, err := a.service.ConsumeService(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBookingCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BookingCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.CheckoutBooking(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)

	invoices, err := a.service.ListInvoices(r.Context(), kind, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (a *API) handleInvoiceActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/invoices/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("invoice id required"))
		return
	}
	parts := strings.Split(tail, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		resp, err := a.service.GetInvoice(r.Context(), parts[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case len(parts) == 2 && parts[1] == "recalculate" && r.Method == http.MethodPost:
		invoice, err := a.service.RecalculateInvoice(r.Context(), parts[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})

	case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodPost:
		var req domain.InvoiceItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.AddInvoiceItem(r.Context(), parts[0], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)

	case len(parts) == 3 && parts[1] == "items" && r.Method == http.MethodDelete:
		resp, err := a.service.RemoveInvoiceItem(r.Context(), parts[0], parts[2])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodPost:
		var req domain.InvoicePaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		invoice, err := a.service.RecordInvoicePayment(r.Context(), parts[0], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})

	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown invoice action"))
	}
}

func (a *API) handleLoans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
		loans, err := a.service.ListLoans(r.Context(), status, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"loans": loans})
	case http.MethodPost:
		var req domain.LoanCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.CreateLoan(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleLoanActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/loans/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("loan id required"))
		return
	}
	parts := strings.Split(tail, "/")

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		resp, err := a.service.GetLoan(r.Context(), parts[0])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodPost:
		var req domain.LoanPaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.RecordLoanPayment(r.Context(), parts[0], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown loan action"))
	}
}

func (a *API) handleLowStockReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	report, err := a.service.LowStockReport(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	var from, to time.Time
	if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		from = day
		to = day.Add(24*time.Hour - time.Nanosecond)
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleCashiers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cashiers, err := a.service.ListCashiers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cashiers": cashiers})
	case http.MethodPost:
		var req domain.CashierCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		cashier, err := a.service.CreateCashier(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"cashier": cashier})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeServiceError maps service and store errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case strings.Contains(strings.ToLower(err.Error()), "manager role required"):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusUnprocessableEntity, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
