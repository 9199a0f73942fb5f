// README: Handler request-validation tests; rejected requests never reach a service.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fleet/internal/http/handlers"
)

// buildTestRouter wires the handlers with nil services. Safe here because
// every case under test is rejected during request validation, before any
// service method is called.
func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	oh := handlers.NewOrderHandler(nil, nil)
	r.POST("/api/orders", oh.Create)

	dh := handlers.NewDriverHandler(nil, nil)
	r.POST("/api/drivers", dh.Register)
	r.PUT("/api/drivers/:id/availability", dh.SetAvailability)
	r.POST("/api/drivers/:id/response", dh.Respond)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/orders", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrder_MissingFields(t *testing.T) {
	r := buildTestRouter()
	tests := []struct {
		name string
		body map[string]any
	}{
		{"no customer_id", map[string]any{"vehicle_class": "bike"}},
		{"no vehicle_class", map[string]any{"customer_id": "cust-1"}},
		{"empty body", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/orders", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestDriverRespond_MissingOrderID(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/drivers/d1/response", map[string]any{"response": "accept"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDriverRespond_InvalidJSON(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPost, "/api/drivers/d1/response", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSetAvailability_InvalidJSON(t *testing.T) {
	r := buildTestRouter()
	w := doRequest(r, http.MethodPut, "/api/drivers/d1/availability", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
