package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Inbound event names.
const (
	EventStartQuiz    = "creator:start-quiz"
	EventGetLiveData  = "creator:get-live-data"
	EventEndQuiz      = "creator:end-quiz"
	EventJoinQuiz     = "student:join-quiz"
	EventSubmitAnswer = "student:submit-answer"
)

var errMalformed = errors.New("malformed event")

type WSHandler struct {
	coordinator *app.Coordinator
	hub         *Hub
	log         *zap.Logger
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader
	limit       rate.Limit
	burst       int
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

func WithHandlerLogger(log *zap.Logger) WSOption {
	return func(h *WSHandler) { h.log = log }
}

func WithHandlerMetrics(m *metrics.Metrics) WSOption {
	return func(h *WSHandler) { h.metrics = m }
}

// WithRateLimit caps inbound messages per connection; excess messages are dropped.
func WithRateLimit(perSecond float64, burst int) WSOption {
	return func(h *WSHandler) {
		if perSecond > 0 {
			h.limit = rate.Limit(perSecond)
		}
		if burst > 0 {
			h.burst = burst
		}
	}
}

func NewWSHandler(coordinator *app.Coordinator, hub *Hub, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		coordinator: coordinator,
		hub:         hub,
		log:         zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		limit: rate.Limit(20),
		burst: 40,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type quizPayload struct {
	QuizID string `json:"quizId"`
}

type joinPayload struct {
	QuizID   string `json:"quizId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type answerPayload struct {
	QuizID       string   `json:"quizId"`
	UserID       string   `json:"userId"`
	IsCorrect    bool     `json:"isCorrect"`
	Score        float64  `json:"score"`
	Violations   *int     `json:"violations,omitempty"`
	ResponseTime *float64 `json:"responseTime,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and feeds every inbound event to the coordinator.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, rate.NewLimiter(h.limit, h.burst))
	h.hub.Register(client)
	go client.writePump()

	ctx := r.Context()
	if err := h.coordinator.Dispatch(ctx, app.Connected{ConnID: client.id}); err != nil {
		h.hub.Unregister(client.id)
		return
	}

	h.readLoop(ctx, client)

	h.hub.Unregister(client.id)
	// The request context is done once the peer is gone; the disconnect must still be counted.
	if err := h.coordinator.Dispatch(context.Background(), app.Disconnected{ConnID: client.id}); err != nil {
		h.log.Debug("disconnect not dispatched", zap.String("connId", client.id), zap.Error(err))
	}
}

func (h *WSHandler) readLoop(ctx context.Context, client *Client) {
	client.prepareRead()
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws closed unexpectedly", zap.String("connId", client.id), zap.Error(err))
			}
			return
		}

		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.metrics.Dropped(metrics.ReasonMalformed)
			h.log.Debug("malformed frame dropped", zap.String("connId", client.id), zap.Error(err))
			continue
		}
		// Answers carry score deltas and are never shed.
		if inbound.Type != EventSubmitAnswer && !client.limiter.Allow() {
			h.metrics.Dropped(metrics.ReasonRateLimited)
			continue
		}

		ev, err := decodeEvent(client.id, inbound)
		if err != nil {
			h.metrics.Dropped(metrics.ReasonMalformed)
			h.log.Debug("inbound event dropped",
				zap.String("connId", client.id), zap.String("type", inbound.Type), zap.Error(err))
			continue
		}
		if err := h.coordinator.Dispatch(ctx, ev); err != nil {
			return
		}
	}
}

// decodeEvent turns a wire envelope into a coordinator event.
func decodeEvent(connID string, in inboundMessage) (app.Event, error) {
	switch in.Type {
	case EventStartQuiz, EventGetLiveData, EventEndQuiz:
		var p quizPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, err
		}
		if p.QuizID == "" {
			return nil, errMalformed
		}
		switch in.Type {
		case EventStartQuiz:
			return app.StartQuiz{ConnID: connID, QuizID: p.QuizID}, nil
		case EventGetLiveData:
			return app.GetLiveData{ConnID: connID, QuizID: p.QuizID}, nil
		default:
			return app.EndQuiz{ConnID: connID, QuizID: p.QuizID}, nil
		}
	case EventJoinQuiz:
		var p joinPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, err
		}
		if p.QuizID == "" || p.UserID == "" {
			return nil, errMalformed
		}
		return app.JoinQuiz{ConnID: connID, QuizID: p.QuizID, UserID: p.UserID, Username: p.Username, Avatar: p.Avatar}, nil
	case EventSubmitAnswer:
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, err
		}
		if p.QuizID == "" || p.UserID == "" {
			return nil, errMalformed
		}
		return app.SubmitAnswer{
			ConnID:       connID,
			QuizID:       p.QuizID,
			UserID:       p.UserID,
			IsCorrect:    p.IsCorrect,
			Score:        p.Score,
			Violations:   p.Violations,
			ResponseTime: p.ResponseTime,
		}, nil
	default:
		return nil, errMalformed
	}
}
