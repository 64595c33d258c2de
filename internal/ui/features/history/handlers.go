package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/psplay/internal/state"
	"github.com/leapstack-labs/psplay/pkg/core"
)

// Handlers provides HTTP handlers for the history feature.
type Handlers struct {
	store  core.Store
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store core.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{store: store, logger: logger}
}

// ListRounds returns the most recent rounds, newest first, with their
// evaluations. The limit query parameter bounds the count.
func (h *Handlers) ListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.store.ListRounds(parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		h.fail(w, fmt.Errorf("failed to list rounds: %w", err))
		return
	}

	items := make([]RoundItem, 0, len(rounds))
	for _, round := range rounds {
		evals, err := h.store.GetEvaluationsForRound(round.ID)
		if err != nil {
			h.fail(w, fmt.Errorf("failed to get evaluations for round %s: %w", round.ID, err))
			return
		}
		items = append(items, NewRoundItem(round, evals))
	}
	h.writeJSON(w, items)
}

// RoundDetail returns one round with its evaluations.
func (h *Handlers) RoundDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	round, err := h.store.GetRound(id)
	if errors.Is(err, state.ErrNotFound) {
		http.Error(w, "round not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, fmt.Errorf("failed to get round: %w", err))
		return
	}

	evals, err := h.store.GetEvaluationsForRound(round.ID)
	if err != nil {
		h.fail(w, fmt.Errorf("failed to get evaluations for round %s: %w", round.ID, err))
		return
	}
	h.writeJSON(w, NewRoundItem(round, evals))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	h.logger.Error("history request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
