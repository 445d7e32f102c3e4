package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outbound event names.
const (
	MsgActiveUsers = "active-users"
	MsgJoined      = "quiz:joined"
	MsgNotReady    = "quiz:not-ready"
	MsgUpdateSelf  = "quiz:update-self"
	MsgLeaderboard = "quiz:leaderboard"
	MsgLiveData    = "creator:live-data"
	MsgEnded       = "quiz:endbycreator"
)

// Message is an outbound event for the connection layer.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// QuizRef identifies the quiz an outbound event refers to.
type QuizRef struct {
	QuizID string `json:"quizId"`
}

// QuizEnded is the termination broadcast. Error is true when the final
// scoreboard could not be persisted. ScoreboardID names the session that ended.
type QuizEnded struct {
	Data         string                    `json:"data"`
	ScoreboardID string                    `json:"scoreboardId"`
	Message      string                    `json:"message"`
	Error        bool                      `json:"error"`
	Leaderboard  []domain.LeaderboardEntry `json:"leaderboard"`
}

// Broadcaster is the connection layer as seen by the coordinator.
type Broadcaster interface {
	Unicast(connID string, msg Message)
	Broadcast(quizID string, msg Message)
	BroadcastAll(msg Message)
	JoinGroup(quizID, connID string)
	// DissolveGroup removes the quiz group and returns the connections it held.
	DissolveGroup(quizID string) []string
	// NotifyFormer unicasts msg to each of connIDs that is not currently a
	// member of the quizID group.
	NotifyFormer(quizID string, connIDs []string, msg Message)
}

// RoomRegistry stores live rooms by quiz ID.
type RoomRegistry interface {
	// Create inserts a fresh room, replacing any live room for the same quiz.
	Create(quizID, creatorConnID string, now time.Time) (room *domain.Room, replaced bool)
	Get(quizID string) (*domain.Room, bool)
	Delete(quizID string)
	Range(fn func(room *domain.Room) bool)
	Len() int
}

// ScoreboardStore persists final scoreboards. CreateScoreboard must be
// idempotent on record.ID so retried writes never duplicate a record.
type ScoreboardStore interface {
	CreateScoreboard(ctx context.Context, record domain.ScoreboardRecord) error
	LatestScoreboard(ctx context.Context, quizID string) (domain.ScoreboardRecord, error)
}

// Coordinator runs the live quiz state machine on a single event loop.
type Coordinator struct {
	rooms   RoomRegistry
	scores  ScoreboardStore
	conns   Broadcaster
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	idleTTL        time.Duration
	reapInterval   time.Duration
	persistTimeout time.Duration
	newBackOff     func() backoff.BackOff

	events    chan dispatched
	stopped   chan struct{}
	stopOnce  sync.Once
	pending   sync.WaitGroup
	connected int
}

type dispatched struct {
	ev   Event
	done chan struct{}
}

// endAll closes every open room; used on shutdown.
type endAll struct {
	reason string
}

func (endAll) event() {}

// Option customizes a Coordinator.
type Option func(*Coordinator)

func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock is meant for tests that need deterministic idle detection.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIdleReaper ends rooms idle for ttl, checking every interval. A zero ttl disables it.
func WithIdleReaper(ttl, interval time.Duration) Option {
	return func(c *Coordinator) {
		c.idleTTL = ttl
		c.reapInterval = interval
	}
}

// WithPersistPolicy sets the per-attempt timeout and the retry schedule for scoreboard writes.
func WithPersistPolicy(timeout time.Duration, newBackOff func() backoff.BackOff) Option {
	return func(c *Coordinator) {
		c.persistTimeout = timeout
		c.newBackOff = newBackOff
	}
}

func NewCoordinator(rooms RoomRegistry, scores ScoreboardStore, conns Broadcaster, opts ...Option) *Coordinator {
	c := &Coordinator{
		rooms:          rooms,
		scores:         scores,
		conns:          conns,
		log:            zap.NewNop(),
		now:            time.Now,
		persistTimeout: 5 * time.Second,
		newBackOff:     DefaultBackOff(15 * time.Second),
		events:         make(chan dispatched, 64),
		stopped:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultBackOff retries with exponential delays until maxElapsed has passed.
func DefaultBackOff(maxElapsed time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxElapsedTime = maxElapsed
		return b
	}
}

// Run processes events until ctx is done. It must be called exactly once.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.stopOnce.Do(func() { close(c.stopped) })

	var sweep <-chan time.Time
	if c.idleTTL > 0 && c.reapInterval > 0 {
		ticker := time.NewTicker(c.reapInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d := <-c.events:
			c.handle(d.ev)
			close(d.done)
		case <-sweep:
			c.handle(Sweep{})
		}
	}
}

// Dispatch hands ev to the event loop and returns once it has been processed.
// Work started by the event, such as scoreboard persistence, may still be pending.
func (c *Coordinator) Dispatch(ctx context.Context, ev Event) error {
	d := dispatched{ev: ev, done: make(chan struct{})}
	select {
	case c.events <- d:
	case <-c.stopped:
		return domain.ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-d.done:
		return nil
	case <-c.stopped:
		return domain.ErrCoordinatorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every pending scoreboard write has finished.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// Shutdown ends every open room and waits for their scoreboards to be written.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	err := c.Dispatch(ctx, endAll{reason: domain.EndReasonShutdown})
	c.Wait()
	return err
}

func (c *Coordinator) handle(ev Event) {
	switch e := ev.(type) {
	case Connected:
		c.connected++
		c.publishConnected()
	case Disconnected:
		if c.connected > 0 {
			c.connected--
		}
		c.publishConnected()
	case StartQuiz:
		c.startQuiz(e)
	case JoinQuiz:
		c.joinQuiz(e)
	case SubmitAnswer:
		c.submitAnswer(e)
	case GetLiveData:
		c.liveData(e)
	case EndQuiz:
		room, err := c.lookup(e.QuizID)
		if err != nil {
			c.drop(err, "end-quiz", e.QuizID, e.ConnID)
			return
		}
		c.finish(room, domain.EndReasonCreator)
	case Sweep:
		c.sweep()
	case endAll:
		var open []*domain.Room
		c.rooms.Range(func(room *domain.Room) bool {
			open = append(open, room)
			return true
		})
		for _, room := range open {
			c.finish(room, e.reason)
		}
	}
}

func (c *Coordinator) publishConnected() {
	c.metrics.SetActiveConnections(c.connected)
	c.conns.BroadcastAll(Message{Type: MsgActiveUsers, Payload: c.connected})
}

func (c *Coordinator) startQuiz(e StartQuiz) {
	_, replaced := c.rooms.Create(e.QuizID, e.ConnID, c.now())
	if replaced {
		c.metrics.RoomReplaced()
		c.log.Warn("quiz restarted, previous room replaced",
			zap.String("quizId", e.QuizID), zap.String("connId", e.ConnID))
	}
	c.conns.JoinGroup(e.QuizID, e.ConnID)
	c.metrics.SetActiveRooms(c.rooms.Len())
	c.log.Info("quiz started", zap.String("quizId", e.QuizID), zap.String("connId", e.ConnID))
}

func (c *Coordinator) joinQuiz(e JoinQuiz) {
	room, ok := c.rooms.Get(e.QuizID)
	if !ok {
		c.conns.Unicast(e.ConnID, Message{Type: MsgNotReady, Payload: QuizRef{QuizID: e.QuizID}})
		return
	}
	if room.Join(e.UserID, e.Username, e.Avatar, c.now()) {
		c.log.Debug("participant rejoined", zap.String("quizId", e.QuizID), zap.String("userId", e.UserID))
	}
	c.conns.JoinGroup(e.QuizID, e.ConnID)
	c.conns.Unicast(e.ConnID, Message{Type: MsgJoined, Payload: QuizRef{QuizID: e.QuizID}})
}

func (c *Coordinator) submitAnswer(e SubmitAnswer) {
	room, err := c.lookup(e.QuizID)
	if err != nil {
		c.drop(err, "submit-answer", e.QuizID, e.ConnID)
		return
	}
	_, err = room.ApplyAnswer(domain.Answer{
		UserID:       e.UserID,
		Correct:      e.IsCorrect,
		ScoreDelta:   e.Score,
		Violations:   e.Violations,
		ResponseTime: e.ResponseTime,
	}, c.now())
	if err != nil {
		c.drop(err, "submit-answer", e.QuizID, e.ConnID)
		return
	}
	c.metrics.ObserveAnswer(e.IsCorrect)

	board := c.rank(room)
	for _, entry := range board {
		if entry.UserID == e.UserID {
			c.conns.Unicast(e.ConnID, Message{Type: MsgUpdateSelf, Payload: entry})
			break
		}
	}
	c.conns.Broadcast(e.QuizID, Message{Type: MsgLeaderboard, Payload: board})
}

func (c *Coordinator) liveData(e GetLiveData) {
	room, err := c.lookup(e.QuizID)
	if err == nil {
		err = room.RequireCreator(e.ConnID)
	}
	if err != nil {
		c.drop(err, "get-live-data", e.QuizID, e.ConnID)
		return
	}
	c.conns.Unicast(e.ConnID, Message{Type: MsgLiveData, Payload: c.rank(room)})
}

func (c *Coordinator) lookup(quizID string) (*domain.Room, error) {
	room, ok := c.rooms.Get(quizID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// rank computes the leaderboard and mirrors the ranks into participant state.
func (c *Coordinator) rank(room *domain.Room) []domain.LeaderboardEntry {
	board := ComputeLeaderboard(room.Participants)
	for _, entry := range board {
		room.Participants[entry.UserID].Rank = entry.Rank
	}
	return board
}

func (c *Coordinator) sweep() {
	if c.idleTTL <= 0 {
		return
	}
	now := c.now()
	var idle []*domain.Room
	c.rooms.Range(func(room *domain.Room) bool {
		if room.IdleSince(now, c.idleTTL) {
			idle = append(idle, room)
		}
		return true
	})
	for _, room := range idle {
		c.log.Info("reaping idle quiz room",
			zap.String("quizId", room.QuizID), zap.Duration("idleFor", now.Sub(room.LastActivity)))
		c.finish(room, domain.EndReasonIdle)
	}
}

// finish tears the room down synchronously, so later events for the quiz see
// no room, then persists the scoreboard and notifies the former members once
// the write has resolved. Members that joined a restarted session for the same
// quiz in the meantime are skipped.
func (c *Coordinator) finish(room *domain.Room, reason string) {
	board := c.rank(room)
	c.rooms.Delete(room.QuizID)
	members := c.conns.DissolveGroup(room.QuizID)
	c.metrics.SetActiveRooms(c.rooms.Len())

	record := domain.NewScoreboardRecord(uuid.NewString(), room.QuizID, reason, c.now(), board)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		err := c.persist(record)

		ended := QuizEnded{
			Data:         room.QuizID,
			ScoreboardID: record.ID,
			Message:      endMessage(reason),
			Error:        err != nil,
			Leaderboard:  board,
		}
		if err != nil {
			ended.Message = "Quiz ended but results could not be saved"
		}
		c.conns.NotifyFormer(room.QuizID, members, Message{Type: MsgEnded, Payload: ended})
	}()
}

func (c *Coordinator) persist(record domain.ScoreboardRecord) error {
	start := time.Now()
	attempt := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		defer cancel()
		return c.scores.CreateScoreboard(ctx, record)
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn("scoreboard write failed, retrying",
			zap.String("quizId", record.QuizID), zap.Duration("retryIn", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(attempt, c.newBackOff(), notify)
	c.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		c.log.Error("scoreboard not persisted",
			zap.String("quizId", record.QuizID), zap.String("scoreboardId", record.ID), zap.Error(err))
		return err
	}
	c.log.Info("scoreboard persisted",
		zap.String("quizId", record.QuizID),
		zap.String("scoreboardId", record.ID),
		zap.Int("participants", len(record.ParticipantScores)))
	return nil
}

func (c *Coordinator) drop(err error, event, quizID, connID string) {
	reason := dropReason(err)
	c.metrics.Dropped(reason)
	c.log.Debug("event dropped",
		zap.String("event", event), zap.String("reason", reason),
		zap.String("quizId", quizID), zap.String("connId", connID), zap.Error(err))
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		return metrics.ReasonUnknownRoom
	case errors.Is(err, domain.ErrParticipantNotFound):
		return metrics.ReasonUnknownParticipant
	case errors.Is(err, domain.ErrNotCreator):
		return metrics.ReasonNotCreator
	default:
		return metrics.ReasonMalformed
	}
}

func endMessage(reason string) string {
	switch reason {
	case domain.EndReasonIdle:
		return "Quiz session expired"
	case domain.EndReasonShutdown:
		return "Quiz ended because the server is shutting down"
	default:
		return "Quiz ended by creator"
	}
}
