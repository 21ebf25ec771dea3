package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/chainlog/internal/chainlog"
	"github.com/jmerrifield20/chainlog/internal/persistence"
	"github.com/jmerrifield20/chainlog/internal/server"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type brokenStore struct{ *persistence.MemoryStore }

func (brokenStore) Save(context.Context, persistence.Record) error {
	return errors.New("read-only filesystem")
}

func setupEntryRouter(t *testing.T, backend persistence.Store) (*gin.Engine, *chainlog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := chainlog.Open(context.Background(), backend, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	h := server.NewEntryHandler(store, zap.NewNop())
	h.SetClock(func() time.Time { return fixedNow })

	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return r, store
}

func do(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateEntry_201(t *testing.T) {
	router, store := setupEntryRouter(t, persistence.NewMemoryStore())

	w := do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "buy coffee", "amount": "15000"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var e chainlog.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.PreviousHash != chainlog.SentinelHash || e.Timestamp != "2025-03-14 09:30:00" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry in store, got %d", store.Len())
	}
}

func TestCreateEntry_400_validation(t *testing.T) {
	router, store := setupEntryRouter(t, persistence.NewMemoryStore())

	w := do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "coffee", "amount": "15k"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "digits only") {
		t.Errorf("expected validation message, got %s", w.Body.String())
	}
	if store.Len() != 0 {
		t.Error("store mutated by rejected append")
	}
}

func TestCreateEntry_400_badBody(t *testing.T) {
	router, _ := setupEntryRouter(t, persistence.NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateEntry_500_persistence(t *testing.T) {
	router, store := setupEntryRouter(t, brokenStore{persistence.NewMemoryStore()})

	w := do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "coffee", "amount": "1"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if store.Len() != 0 {
		t.Error("unpersisted entry became visible")
	}
}

func TestListEntries_query(t *testing.T) {
	router, _ := setupEntryRouter(t, persistence.NewMemoryStore())
	do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "buy coffee", "amount": "15000"})
	do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "Lunch", "amount": "25000"})

	w := do(router, http.MethodGet, "/api/v1/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Entries []chainlog.Entry `json:"entries"`
		Count   int              `json:"count"`
		Total   string           `json:"total"`
		Head    string           `json:"head"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 || resp.Total != "40000" {
		t.Errorf("unexpected overview: %+v", resp)
	}
	if resp.Head != resp.Entries[1].Hash {
		t.Errorf("head %q is not the last entry hash", resp.Head)
	}

	w = do(router, http.MethodGet, "/api/v1/entries?q=LUNCH", nil)
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 || resp.Entries[0].Text != "Lunch" {
		t.Errorf("query LUNCH: %+v", resp)
	}
}

func TestGetEntry(t *testing.T) {
	router, _ := setupEntryRouter(t, persistence.NewMemoryStore())
	do(router, http.MethodPost, "/api/v1/entries", map[string]string{"text": "buy coffee", "amount": "15000"})

	if w := do(router, http.MethodGet, "/api/v1/entries/0", nil); w.Code != http.StatusOK {
		t.Errorf("GET /entries/0: expected 200, got %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/api/v1/entries/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("GET /entries/999: expected 404, got %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/api/v1/entries/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("GET /entries/abc: expected 400, got %d", w.Code)
	}
	if w := do(router, http.MethodGet, "/api/v1/entries/-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("GET /entries/-1: expected 400, got %d", w.Code)
	}
}
