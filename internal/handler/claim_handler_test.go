package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pointsboard/internal/domain"
	"pointsboard/internal/repository"
	"pointsboard/internal/service"
)

func intPtr(v int) *int {
	return &v
}

func TestValidateClaimRequest(t *testing.T) {
	h := &ClaimHandler{}

	tests := []struct {
		name    string
		req     *domain.ClaimRequest
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid request with points",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     domain.ClaimTypeBonus,
				Points:        intPtr(5),
			},
			wantErr: false,
		},
		{
			name: "valid random request without points",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     domain.ClaimTypeRandom,
			},
			wantErr: false,
		},
		{
			name: "missing participant id",
			req: &domain.ClaimRequest{
				ClaimType: domain.ClaimTypeBonus,
				Points:    intPtr(5),
			},
			wantErr: true,
			errMsg:  "participant_id is required",
		},
		{
			name: "missing claim type",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				Points:        intPtr(5),
			},
			wantErr: true,
			errMsg:  "claim_type is required",
		},
		{
			name: "unknown claim type",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     "jackpot",
				Points:        intPtr(5),
			},
			wantErr: true,
			errMsg:  "claim_type must be one of",
		},
		{
			name: "points too low",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     domain.ClaimTypeManual,
				Points:        intPtr(0),
			},
			wantErr: true,
			errMsg:  "points must be between",
		},
		{
			name: "points too high",
			req: &domain.ClaimRequest{
				ParticipantID: "p1",
				ClaimType:     domain.ClaimTypeManual,
				Points:        intPtr(11),
			},
			wantErr: true,
			errMsg:  "points must be between",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.validateClaimRequest(tt.req)

			if tt.wantErr {
				if err == nil {
					t.Errorf("validateClaimRequest() expected error, got nil")
					return
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("validateClaimRequest() error = %q, want containing %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("validateClaimRequest() unexpected error: %v", err)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback int
		max      int
		want     int
	}{
		{"empty uses fallback", "", 20, 100, 20},
		{"valid value", "42", 20, 100, 42},
		{"not a number uses fallback", "abc", 20, 100, 20},
		{"zero uses fallback", "0", 20, 100, 20},
		{"negative uses fallback", "-5", 20, 100, 20},
		{"over max is capped", "500", 20, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLimit(tt.raw, tt.fallback, tt.max); got != tt.want {
				t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

// newTestRouter wires the handlers over in-memory stores with no Redis
func newTestRouter(t *testing.T) (*chi.Mux, *repository.MemoryParticipants) {
	t.Helper()

	ledger := repository.NewMemoryLedger()
	participants := repository.NewMemoryParticipants()
	participants.Add(domain.Participant{ID: "p1", Name: "Alice", IsActive: true, CreatedAt: time.Now()})

	cache := service.NewCacheService(nil, zap.NewNop())
	claimService := service.NewClaimService(ledger, participants, cache, service.NewRandomPointSource(), zap.NewNop())
	claimHandler := NewClaimHandler(claimService)

	r := chi.NewRouter()
	r.Post("/api/v1/claims", claimHandler.SubmitClaim)
	r.Get("/api/v1/claims/{claimId}", claimHandler.GetClaim)
	r.Post("/api/v1/claims/{claimId}/revoke", claimHandler.RevokeClaim)
	r.Get("/api/v1/participants/{participantId}/claims", claimHandler.GetHistory)

	return r, participants
}

func TestClaimHandler_SubmitAndRevoke(t *testing.T) {
	router, participants := newTestRouter(t)

	body, _ := json.Marshal(domain.ClaimRequest{
		ParticipantID: "p1",
		ClaimType:     domain.ClaimTypeBonus,
		Points:        intPtr(5),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("SubmitClaim status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var claim domain.Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("failed to decode claim: %v", err)
	}
	if claim.Points != 5 || !claim.IsValid {
		t.Errorf("claim = %+v, want 5 valid points", claim)
	}

	p, _ := participants.GetByID(req.Context(), "p1")
	if p.TotalPoints != 5 || p.ClaimsCount != 1 {
		t.Errorf("aggregates = %d/%d, want 5/1", p.TotalPoints, p.ClaimsCount)
	}

	// Revoke it
	req = httptest.NewRequest(http.MethodPost, "/api/v1/claims/"+claim.ID+"/revoke", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("RevokeClaim status = %d, want %d", rec.Code, http.StatusOK)
	}

	p, _ = participants.GetByID(req.Context(), "p1")
	if p.TotalPoints != 0 || p.ClaimsCount != 0 {
		t.Errorf("aggregates after revoke = %d/%d, want 0/0", p.TotalPoints, p.ClaimsCount)
	}
}

func TestClaimHandler_Submit_UnknownParticipant(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(domain.ClaimRequest{
		ParticipantID: "nobody",
		ClaimType:     domain.ClaimTypeBonus,
		Points:        intPtr(5),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/claims", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("SubmitClaim status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestClaimHandler_GetClaim_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("GetClaim status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestClaimHandler_GetHistory_BadBeforeCursor(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/participants/p1/claims?before=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("GetHistory status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
