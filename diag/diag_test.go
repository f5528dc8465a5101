package diag

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rustyguts/bken-engine/config"
	"github.com/rustyguts/bken-engine/engine"
)

func TestStatsEndpointReportsLiveCounts(t *testing.T) {
	ctx := engine.NewContext(config.Default())
	ctx.CreateDirectSource()
	outL := make([]float32, config.BlockSize)
	outR := make([]float32, config.BlockSize)
	if err := ctx.GetBlock(outL, outR); err != nil {
		t.Fatalf("GetBlock: %v", err)
	}

	s := New(ctx, 0, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Sources != 1 {
		t.Fatalf("Sources = %d, want 1", resp.Sources)
	}
	if resp.BlockIndex != 1 {
		t.Fatalf("BlockIndex = %d, want 1", resp.BlockIndex)
	}
}

func TestStatsEndpointRateLimited(t *testing.T) {
	ctx := engine.NewContext(config.Default())
	s := New(ctx, 1, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)

	rec1 := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec1, req)
	if rec1.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec1.Code)
	}

	rec2 := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec2.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ctx := engine.NewContext(config.Default())
	s := New(ctx, 0, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
