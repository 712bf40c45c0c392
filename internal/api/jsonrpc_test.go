package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bmbroch/payops/internal/recon"
)

func testServer(t *testing.T, register func(h *JSONRPCHandler)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewJSONRPCHandler()
	register(handler)
	engine := gin.New()
	engine.POST("/", handler.Handle)
	return engine
}

func rpcCall(t *testing.T, engine *gin.Engine, body string) *JSONRPCResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp JSONRPCResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return &resp
}

func TestHandleDispatchesMethod(t *testing.T) {
	engine := testServer(t, func(h *JSONRPCHandler) {
		h.RegisterMethod("payops.echo", func(c *gin.Context, params json.RawMessage) (interface{}, error) {
			var in map[string]interface{}
			if err := json.Unmarshal(params, &in); err != nil {
				return nil, err
			}
			return in, nil
		})
	})

	resp := rpcCall(t, engine, `{"jsonrpc":"2.0","id":7,"method":"payops.echo","params":{"x":1}}`)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok || result["x"] != float64(1) {
		t.Errorf("result = %v, want {x:1}", resp.Result)
	}
	if resp.ID != float64(7) {
		t.Errorf("id = %v, want 7", resp.ID)
	}
}

func TestHandleRejectsUnknownMethod(t *testing.T) {
	engine := testServer(t, func(h *JSONRPCHandler) {})
	resp := rpcCall(t, engine, `{"jsonrpc":"2.0","id":1,"method":"payops.none","params":{}}`)
	if resp.Error == nil || resp.Error.Code != ErrMethodNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, ErrMethodNotFound)
	}
}

func TestHandleRejectsBadVersion(t *testing.T) {
	engine := testServer(t, func(h *JSONRPCHandler) {})
	resp := rpcCall(t, engine, `{"jsonrpc":"1.0","id":1,"method":"payops.echo","params":{}}`)
	if resp.Error == nil || resp.Error.Code != ErrInvalidRequest {
		t.Fatalf("error = %+v, want code %d", resp.Error, ErrInvalidRequest)
	}
}

func TestHandleMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not_found", &recon.NotFoundError{Collection: "payment", ID: 3}, ErrNotFound},
		{"budget", &recon.BudgetExceededError{PaymentID: 3, Amount: 75, Selected: 100}, ErrBudgetExceeded},
		{"conflict", &recon.LinkConflictError{PostID: 1, PaymentID: 3, PaymentType: "base"}, ErrLinkConflict},
		{"already", fmt.Errorf("payment 3: %w", recon.ErrAlreadyReconciled), ErrAlreadyReconciled},
		{"partial", &recon.PartialSaveError{PaymentID: 3, PostID: 1, Applied: 1, Err: fmt.Errorf("boom")}, ErrPartialSave},
		{"api", NewError(ErrInvalidParams, "invalid params"), ErrInvalidParams},
		{"other", fmt.Errorf("db down"), ErrServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.err
			engine := testServer(t, func(h *JSONRPCHandler) {
				h.RegisterMethod("payops.fail", func(c *gin.Context, params json.RawMessage) (interface{}, error) {
					return nil, err
				})
			})
			resp := rpcCall(t, engine, `{"jsonrpc":"2.0","id":1,"method":"payops.fail","params":{}}`)
			if resp.Error == nil || resp.Error.Code != tc.code {
				t.Fatalf("error = %+v, want code %d", resp.Error, tc.code)
			}
		})
	}
}
