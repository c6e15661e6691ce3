package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"party-game-engine/internal/domain"
)

func postJSON(t *testing.T, server *httptest.Server, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func TestAdminRoundFlow(t *testing.T) {
	service := newTestService()
	service.Join(context.Background(), "u1", "Alice")
	mux := http.NewServeMux()
	NewAdminHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp := postJSON(t, server, "/admin/round/arm", map[string]string{"roundId": "round-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("arm: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server, "/admin/round/open", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("open: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A second open while a round is live is a conflict, not a server error.
	resp = postJSON(t, server, "/admin/round/open", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double open: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server, "/admin/round/close", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close: expected 200, got %d", resp.StatusCode)
	}
	var summary domain.RoundSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	resp.Body.Close()
	if summary.RoundID != "round-1" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var board domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	resp.Body.Close()
	if len(board.Entries) != 1 || board.Entries[0].UserID != "u1" {
		t.Fatalf("expected u1 on the board, got %+v", board.Entries)
	}
}

func TestAdminArmUnknownRound(t *testing.T) {
	service := newTestService()
	mux := http.NewServeMux()
	NewAdminHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp := postJSON(t, server, "/admin/round/arm", map[string]string{"roundId": "missing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown round, got %d", resp.StatusCode)
	}
}

func TestAdminLotteryFlow(t *testing.T) {
	service := newTestService()
	mux := http.NewServeMux()
	NewAdminHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp := postJSON(t, server, "/admin/lottery/draw", map[string]int64{"seed": 7})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("draw: expected 200, got %d", resp.StatusCode)
	}
	var record domain.DrawRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	resp.Body.Close()
	if record.WinnerID != "u1" {
		t.Fatalf("expected u1 to win, got %+v", record)
	}

	// Pool exhausted until reset.
	resp = postJSON(t, server, "/admin/lottery/draw", map[string]int64{"seed": 8})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty pool: expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, server, "/admin/lottery/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/admin/lottery/history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var history []domain.DrawRecord
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	resp.Body.Close()
	if len(history) != 1 {
		t.Fatalf("expected one committed draw, got %+v", history)
	}
}

func TestAdminScoreAdjustAndReset(t *testing.T) {
	service := newTestService()
	service.Join(context.Background(), "u1", "Alice")
	mux := http.NewServeMux()
	NewAdminHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp := postJSON(t, server, "/admin/scores/adjust", map[string]any{
		"adminId": "admin-1",
		"userId":  "u1",
		"points":  25,
		"reason":  "stage demo bonus",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("adjust: expected 200, got %d", resp.StatusCode)
	}
	var delta domain.ScoreDelta
	if err := json.NewDecoder(resp.Body).Decode(&delta); err != nil {
		t.Fatalf("decode delta: %v", err)
	}
	resp.Body.Close()
	if delta.AdminID != "admin-1" || delta.Points != 25 {
		t.Fatalf("expected provenance on adjustment, got %+v", delta)
	}

	resp = postJSON(t, server, "/admin/scores/reset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset scores: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	var board domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	resp.Body.Close()
	for _, entry := range board.Entries {
		if entry.Score != 0 {
			t.Fatalf("expected zeroed scores after reset, got %+v", board.Entries)
		}
	}
}

func TestAdminRejectsGetOnMutations(t *testing.T) {
	service := newTestService()
	mux := http.NewServeMux()
	NewAdminHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/admin/round/close")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
