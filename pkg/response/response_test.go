package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewMeta(t *testing.T) {
	tests := []struct {
		page, limit int
		total       int64
		wantPages   int
	}{
		{1, 10, 0, 0},
		{1, 10, 10, 1},
		{2, 10, 11, 2},
		{1, 0, 5, 0},
	}
	for _, tt := range tests {
		m := NewMeta(tt.page, tt.limit, tt.total)
		if m.TotalPages != tt.wantPages {
			t.Errorf("NewMeta(%d, %d, %d).TotalPages = %d, want %d", tt.page, tt.limit, tt.total, m.TotalPages, tt.wantPages)
		}
	}
}

func TestError_CarriesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, CodeSlotTaken, "slot taken", nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != CodeSlotTaken || body.Message != "slot taken" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestInternalServerError_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalServerError(rec, "")

	var body Response
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != CodeInternal || body.Message != "Internal server error" {
		t.Fatalf("unexpected body %+v", body)
	}
}
