package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestServerInsertAndGet(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/widgets/_doc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("insert: got status %d, body %s", rec.Code, rec.Body.String())
	}

	var insertResp struct {
		Result struct {
			ID string `json:"_id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &insertResp); err != nil {
		t.Fatalf("decode insert response: %v", err)
	}
	if insertResp.Result.ID == "" {
		t.Fatalf("expected a non-empty _id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/widgets/_doc/"+insertResp.Result.ID, nil)
	getRec := httptest.NewRecorder()
	srv.router.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("get: got status %d, body %s", getRec.Code, getRec.Body.String())
	}
}

func TestServerGetMissing(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/widgets/_doc/0123456789ab0123456789ab", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing document, got %d", rec.Code)
	}
}

func TestServerDelete(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "bob"})
	insertReq := httptest.NewRequest(http.MethodPost, "/widgets/_doc", bytes.NewReader(body))
	insertRec := httptest.NewRecorder()
	srv.router.ServeHTTP(insertRec, insertReq)

	var insertResp struct {
		Result struct {
			ID string `json:"_id"`
		} `json:"result"`
	}
	json.Unmarshal(insertRec.Body.Bytes(), &insertResp)

	delReq := httptest.NewRequest(http.MethodDelete, "/widgets/_doc/"+insertResp.Result.ID, nil)
	delRec := httptest.NewRecorder()
	srv.router.ServeHTTP(delRec, delReq)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete: got status %d", delRec.Code)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/widgets/_doc/"+insertResp.Result.ID, nil)
	getRec := httptest.NewRecorder()
	srv.router.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getRec.Code)
	}
}
