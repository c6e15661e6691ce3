package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"party-game-engine/internal/app"
	"party-game-engine/internal/domain"
)

// AdminHandler exposes the operator surface over plain JSON endpoints:
// arming/opening/closing rounds, drawing and resetting the lottery, score
// adjustments and the leaderboard query.
type AdminHandler struct {
	service *app.GameService
}

func NewAdminHandler(service *app.GameService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Register mounts all admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/round/arm", h.armRound)
	mux.HandleFunc("/admin/round/open", h.openRound)
	mux.HandleFunc("/admin/round/close", h.closeRound)
	mux.HandleFunc("/admin/lottery/draw", h.drawLottery)
	mux.HandleFunc("/admin/lottery/reset", h.resetLottery)
	mux.HandleFunc("/admin/lottery/history", h.drawHistory)
	mux.HandleFunc("/admin/scores/adjust", h.adjustScore)
	mux.HandleFunc("/admin/scores/reset", h.resetScores)
	mux.HandleFunc("/leaderboard", h.leaderboard)
}

type armRequest struct {
	RoundID string `json:"roundId"`
}

func (h *AdminHandler) armRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req armRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoundID == "" {
		writeError(w, http.StatusBadRequest, "roundId required")
		return
	}
	round, err := h.service.ArmRound(r.Context(), req.RoundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *AdminHandler) openRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	round, err := h.service.OpenRound(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *AdminHandler) closeRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	summary, err := h.service.CloseRound(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type drawRequest struct {
	Seed int64 `json:"seed"`
}

func (h *AdminHandler) drawLottery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req drawRequest
	// Body is optional; a zero seed falls back to the wall clock.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	record, err := h.service.DrawLottery(r.Context(), req.Seed)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *AdminHandler) resetLottery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := h.service.ResetLottery(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *AdminHandler) drawHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.DrawHistory(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

type adjustRequest struct {
	AdminID string `json:"adminId"`
	UserID  string `json:"userId"`
	Points  int    `json:"points"`
	Reason  string `json:"reason"`
}

func (h *AdminHandler) adjustScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "adminId and userId required")
		return
	}
	delta := h.service.AdjustScore(r.Context(), req.AdminID, req.UserID, req.Points, req.Reason)
	writeJSON(w, http.StatusOK, delta)
}

func (h *AdminHandler) resetScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := h.service.ResetScores(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *AdminHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Leaderboard(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConflictingRound),
		errors.Is(err, domain.ErrDuplicateSubmission),
		errors.Is(err, domain.ErrRoundNotOpen),
		errors.Is(err, domain.ErrDeadlineExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEmptyPool):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrRoundNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
