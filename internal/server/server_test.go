package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corvohq/perch/internal/store"
	"github.com/corvohq/perch/pkg/queue"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q, err := queue.New(context.Background(), queue.Config{
		Table:     "items",
		Timeout:   time.Minute,
		LookAhead: 4,
	}, db.Write)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	return New(q, ":0")
}

func doRequest(srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)
	rr := doRequest(srv, "GET", "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestPushEndpoint(t *testing.T) {
	srv := testServer(t)
	rr := doRequest(srv, "POST", "/api/v1/items", map[string]string{"ref": "order-17"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestPushValidation(t *testing.T) {
	srv := testServer(t)
	rr := doRequest(srv, "POST", "/api/v1/items", map[string]string{"ref": ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var errResp map[string]string
	decodeResponse(t, rr, &errResp)
	if errResp["code"] != string(queue.ErrorCodeInvalidInput) {
		t.Errorf("code = %q, want %q", errResp["code"], queue.ErrorCodeInvalidInput)
	}
}

func TestPopEmptyEndpoint(t *testing.T) {
	srv := testServer(t)
	rr := doRequest(srv, "POST", "/api/v1/items/pop", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestPushPopCountRoundtrip(t *testing.T) {
	srv := testServer(t)

	rr := doRequest(srv, "POST", "/api/v1/items", map[string]string{"ref": "a"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("push status = %d, body: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(srv, "GET", "/api/v1/items/count", nil)
	var count countResponse
	decodeResponse(t, rr, &count)
	if count.Count != 1 {
		t.Errorf("count = %d, want 1", count.Count)
	}

	rr = doRequest(srv, "POST", "/api/v1/items/pop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pop status = %d, body: %s", rr.Code, rr.Body.String())
	}
	var pop popResponse
	decodeResponse(t, rr, &pop)
	if pop.Ref != "a" {
		t.Errorf("pop ref = %q, want %q", pop.Ref, "a")
	}

	rr = doRequest(srv, "GET", "/api/v1/items/count", nil)
	decodeResponse(t, rr, &count)
	if count.Count != 0 {
		t.Errorf("count after pop = %d, want 0", count.Count)
	}
}
