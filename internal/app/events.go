package app

// Event is an inbound session event. The set of events is closed.
type Event interface {
	event()
}

// Connected and Disconnected track the process-wide connection count.
type Connected struct {
	ConnID string
}

type Disconnected struct {
	ConnID string
}

// StartQuiz opens a room owned by the sending connection.
type StartQuiz struct {
	ConnID string
	QuizID string
}

type JoinQuiz struct {
	ConnID   string
	QuizID   string
	UserID   string
	Username string
	Avatar   string
}

// SubmitAnswer carries a client-scored answer. Violations and ResponseTime
// are nil when the client did not report them.
type SubmitAnswer struct {
	ConnID       string
	QuizID       string
	UserID       string
	IsCorrect    bool
	Score        float64
	Violations   *int
	ResponseTime *float64
}

// GetLiveData asks for the current leaderboard; only the creator gets an answer.
type GetLiveData struct {
	ConnID string
	QuizID string
}

type EndQuiz struct {
	ConnID string
	QuizID string
}

// Sweep ends every room idle for longer than the configured TTL.
type Sweep struct{}

func (Connected) event()    {}
func (Disconnected) event() {}
func (StartQuiz) event()    {}
func (JoinQuiz) event()     {}
func (SubmitAnswer) event() {}
func (GetLiveData) event()  {}
func (EndQuiz) event()      {}
func (Sweep) event()        {}
