package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"

	"go.uber.org/zap"
)

// ScoreboardHandler serves persisted scoreboards at GET /scoreboards/{quizId}.
type ScoreboardHandler struct {
	store app.ScoreboardStore
	log   *zap.Logger
}

func NewScoreboardHandler(store app.ScoreboardStore, log *zap.Logger) *ScoreboardHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScoreboardHandler{store: store, log: log}
}

func (h *ScoreboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	quizID := r.PathValue("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	record, err := h.store.LatestScoreboard(r.Context(), quizID)
	if errors.Is(err, domain.ErrScoreboardNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("load scoreboard", zap.String("quizId", quizID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		h.log.Warn("write scoreboard response", zap.Error(err))
	}
}
