package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tokoku/backend/internal/cache"
	"tokoku/backend/internal/service"
	"tokoku/backend/internal/store/memory"
)

// newTestAPI builds a full API over the seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	svc := service.New(memory.NewSeeded(), cache.NoopStockCache{}, 0)
	return New(svc, "*")
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	decoded := map[string]any{}
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestReceiveStockCreatedAndMerged(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload := map[string]any{
		"user_id":       "user-1",
		"store_id":      "store-1",
		"product_name":  "Green Tea",
		"quantity":      40,
		"unit":          "packs",
		"unit_amount":   12.5,
		"bill_amount":   500,
		"selling_price": 18,
	}
	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/stocks/receive", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %v", rec.Code, body)
	}
	if body["action"] != "created" {
		t.Fatalf("action = %v", body["action"])
	}
	if _, ok := body["business_analysis"]; !ok {
		t.Fatal("missing business_analysis")
	}
	if _, ok := body["merge_details"]; ok {
		t.Fatal("merge_details must be absent on create")
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/api/v1/stocks/receive", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d, want 200: %v", rec.Code, body)
	}
	if body["action"] != "merged" {
		t.Fatalf("action = %v", body["action"])
	}
	if _, ok := body["merge_details"]; !ok {
		t.Fatal("missing merge_details on merge")
	}
	stockData, ok := body["stock_data"].(map[string]any)
	if !ok {
		t.Fatalf("stock_data = %v", body["stock_data"])
	}
	if stockData["quantity"].(float64) != 80 {
		t.Fatalf("merged quantity = %v, want 80", stockData["quantity"])
	}
}

func TestReceiveStockErrors(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	base := map[string]any{
		"user_id":      "user-1",
		"store_id":     "store-1",
		"product_name": "Candles",
		"quantity":     10,
		"unit":         "pieces",
		"unit_amount":  2,
		"bill_amount":  20,
	}

	cases := []struct {
		name       string
		mutate     func(map[string]any)
		wantStatus int
	}{
		{"inconsistent bill", func(m map[string]any) { m["bill_amount"] = 25 }, http.StatusBadRequest},
		{"bad unit", func(m map[string]any) { m["unit"] = "bushels" }, http.StatusBadRequest},
		{"unknown user", func(m map[string]any) { m["user_id"] = "ghost" }, http.StatusNotFound},
		{"unknown store", func(m map[string]any) { m["store_id"] = "nope" }, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := map[string]any{}
			for k, v := range base {
				payload[k] = v
			}
			tc.mutate(payload)

			rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/stocks/receive", payload)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %v", rec.Code, tc.wantStatus, body)
			}
			if body["status"] != false {
				t.Fatalf("status field = %v, want false", body["status"])
			}
		})
	}
}

func TestReceiveStockForeignStoreIs403(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	_, body := doJSON(t, handler, http.MethodPost, "/api/v1/users/register", map[string]any{
		"name": "Other", "email": "other@example.com", "password": "password123",
	})
	user := body["user"].(map[string]any)

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/stocks/receive", map[string]any{
		"user_id":      user["id"],
		"store_id":     "store-1",
		"product_name": "Candles",
		"quantity":     10,
		"unit":         "pieces",
		"unit_amount":  2,
		"bill_amount":  20,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %v", rec.Code, body)
	}
}

func TestCreateSaleMultiLine(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"user_id":    "user-1",
		"store_id":   "store-1",
		"sales_type": "offline",
		"products": []map[string]any{
			{"product_name": "Basmati Rice", "quantity": 2},
			{"product_name": "Sunflower Oil", "quantity": 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %v", rec.Code, body)
	}

	data, ok := body["transaction_data"].(map[string]any)
	if !ok {
		t.Fatalf("transaction_data = %v", body)
	}
	txnID, _ := data["transaction_id"].(string)
	if !strings.HasPrefix(txnID, "TXN_OFF_user-1_") {
		t.Fatalf("transaction_id = %q", txnID)
	}
	records := data["sale_records"].([]any)
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	for _, raw := range records {
		record := raw.(map[string]any)
		if record["transaction_id"] != txnID {
			t.Fatalf("record txn = %v, want %v", record["transaction_id"], txnID)
		}
	}
	summary := data["transaction_summary"].(map[string]any)
	if summary["total_items"].(float64) != 2 {
		t.Fatalf("summary = %v", summary)
	}
	if summary["total_sale_amount"].(float64) != 280 {
		t.Fatalf("total = %v, want 2*65 + 150", summary["total_sale_amount"])
	}
}

func TestCreateSaleValidationErrorsPayload(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
		"user_id":    "user-1",
		"store_id":   "store-1",
		"sales_type": "offline",
		"products": []map[string]any{
			{"product_name": "Basmati Rice", "quantity": 500},
			{"product_name": "Missing", "quantity": 1},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %v", rec.Code, body)
	}
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 2 {
		t.Fatalf("errors = %v", body["errors"])
	}
	first := errs[0].(map[string]any)
	details, ok := first["error_details"].(map[string]any)
	if !ok {
		t.Fatalf("first error = %v", first)
	}
	if details["available"].(float64) != 50 || details["shortage"].(float64) != 450 {
		t.Fatalf("details = %v", details)
	}

	// All-or-nothing: the rice row is untouched.
	rec, body = doJSON(t, handler, http.MethodGet, "/api/v1/stocks/stock-1?user_id=user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get stock status = %d", rec.Code)
	}
	stock := body["stock"].(map[string]any)
	if stock["quantity"].(float64) != 50 {
		t.Fatalf("quantity = %v, want 50", stock["quantity"])
	}
}

func TestStockListAndStatuses(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api.Handler(), http.MethodGet, "/api/v1/stocks?user_id=user-1&store_id=store-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	stocks := body["stocks"].([]any)
	if len(stocks) != 3 {
		t.Fatalf("stocks = %d, want 3", len(stocks))
	}
	first := stocks[0].(map[string]any)
	if first["product_name"] != "Basmati Rice" {
		t.Fatalf("sorted order broken: first = %v", first["product_name"])
	}
	if first["status"] != "adequate" {
		t.Fatalf("status = %v", first["status"])
	}
}

func TestStockEditAndDelete(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec, body := doJSON(t, handler, http.MethodPatch, "/api/v1/stocks/stock-3", map[string]any{
		"user_id":       "user-1",
		"selling_price": 48,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %v", rec.Code, body)
	}
	stock := body["stock"].(map[string]any)
	if stock["selling_price"].(float64) != 48 {
		t.Fatalf("selling_price = %v", stock["selling_price"])
	}

	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/v1/stocks/stock-3?user_id=user-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = doJSON(t, handler, http.MethodGet, "/api/v1/stocks/stock-3?user_id=user-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestStockExport(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stocks/export?user_id=user-1&store_id=store-1", nil)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty workbook")
	}
}

func TestSalesSummaryEndpoint(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	for i := 0; i < 2; i++ {
		rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/sales", map[string]any{
			"user_id":      "user-1",
			"store_id":     "store-1",
			"sales_type":   "online",
			"product_name": "Basmati Rice",
			"quantity":     1,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("sale %d status = %d: %v", i, rec.Code, body)
		}
	}

	rec, body := doJSON(t, handler, http.MethodGet, "/api/v1/sales/summary?user_id=user-1&store_id=store-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	summary := body["summary"].(map[string]any)
	if summary["total_sales"].(float64) != 2 {
		t.Fatalf("summary = %v", summary)
	}
	if summary["total_amount"].(float64) != 130 {
		t.Fatalf("total_amount = %v, want 130", summary["total_amount"])
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	rec, body := doJSON(t, handler, http.MethodPost, "/api/v1/users/register", map[string]any{
		"name": "New Owner", "email": "new@example.com", "password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %v", rec.Code, body)
	}
	user := body["user"].(map[string]any)
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash leaked in response")
	}

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/v1/users/register", map[string]any{
		"name": "Dup", "email": "new@example.com", "password": "password123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register = %d, want 409", rec.Code)
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/api/v1/users/login", map[string]any{
		"email": "new@example.com", "password": "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %v", rec.Code, body)
	}

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/v1/users/login", map[string]any{
		"email": "new@example.com", "password": "wrong-password",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad login = %d, want 403", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	last := 0
	for i := 0; i < 12; i++ {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/v1/users/login", map[string]any{
			"email": "owner@example.com", "password": fmt.Sprintf("wrong-%d", i),
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("status after 12 failed logins = %d, want 429", last)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)

	rec, body := doJSON(t, api.Handler(), http.MethodDelete, "/api/v1/sales", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	api := newTestAPI(t)

	rec, _ := doJSON(t, api.Handler(), http.MethodPost, "/api/v1/sales", map[string]any{
		"user_id":  "user-1",
		"store_id": "store-1",
		"surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unknown field", rec.Code)
	}
}
