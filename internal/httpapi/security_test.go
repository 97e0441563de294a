package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pondokpos/backend/internal/domain"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"username":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too large body, got %d", res.Code)
	}
}

func TestMutatingRequestWithoutCSRFTokenRejected(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token, _ := loginAs(t, handler, "cashier", "cashier123")

	body, _ := json.Marshal(domain.SaleRequest{
		Items: []domain.SaleItemRequest{{SKU: "SKU-KOPI-01", Qty: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", res.Code)
	}
}

func TestDeleteRequestRequiresCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token, _ := loginAs(t, handler, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/invoices/inv-any/items/item-any", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for DELETE without CSRF token, got %d", res.Code)
	}
}

func TestManagerPINRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token, csrf := loginAs(t, handler, "manager", "manager123")

	body, _ := json.Marshal(domain.StockAdjustmentRequest{
		EntityKind:  domain.EntityKindProduct,
		EntityID:    "prod-sabun",
		NewQuantity: 50,
		Reason:      "opname",
		ManagerPIN:  "000000",
	})

	for i := 0; i < 9; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/adjustments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		req.RemoteAddr = "203.0.113.9:5001"
		res := httptest.NewRecorder()

		handler.ServeHTTP(res, req)

		if i < 8 && res.Code != http.StatusForbidden {
			t.Fatalf("attempt %d expected 403 before pin limit, got %d", i+1, res.Code)
		}
		if i == 8 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("attempt 9 expected 429, got %d", res.Code)
		}
	}
}

func TestCSRFTokenValidAcrossHourBoundary(t *testing.T) {
	api := newTestAPI(t)

	prevBucket := time.Now().UTC().Truncate(time.Hour).Unix() - 3600
	token := api.csrfTokenForHour(prevBucket)

	if !api.validateCSRFToken(token) {
		t.Fatalf("expected previous-hour token to still validate")
	}

	stale := api.csrfTokenForHour(prevBucket - 3600)
	if api.validateCSRFToken(stale) {
		t.Fatalf("expected token older than one hour to be rejected")
	}
}

func TestParsePositiveLimitCaps(t *testing.T) {
	if got := parsePositiveLimit("9999", 50, 200); got != 200 {
		t.Fatalf("expected capped limit 200, got %d", got)
	}
	if got := parsePositiveLimit("", 50, 200); got != 50 {
		t.Fatalf("expected fallback limit 50, got %d", got)
	}
	if got := parsePositiveLimit("invalid", 50, 200); got != 50 {
		t.Fatalf("expected fallback on invalid input, got %d", got)
	}
}
