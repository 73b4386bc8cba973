package websocket

import "github.com/skylearn/assess-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer     Action = "answer"
	ActionNext       Action = "next"
	ActionPrev       Action = "prev"
	ActionJump       Action = "jump"
	ActionFlag       Action = "flag"
	ActionVisibility Action = "visibility"
	ActionSubmit     Action = "submit"
	ActionPing       Action = "ping"
)

// Request is the single client→server message shape. Fields beyond
// Action are read per-action: Answer for "answer", Position for "jump"
// and "flag", Hidden for "visibility".
type Request struct {
	Action   Action `json:"action"`
	Answer   string `json:"answer,omitempty"`
	Position int    `json:"position"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventPhase     Event = "phase"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventTime      Event = "time"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateEvent carries the full attempt view. Sent once after connect
// (fresh start or checkpoint restore) and after every navigation action.
type StateEvent struct {
	Event           Event                      `json:"event"`
	Phase           model.Phase                `json:"phase"`
	DifficultyLevel model.Difficulty           `json:"difficultyLevel,omitempty"`
	Questions       []model.QuestionForStudent `json:"questions"`
	CurrentQuestion int                        `json:"currentQuestion"`
	TimeRemaining   int                        `json:"timeRemaining"`
	Answers         map[int]string             `json:"answers"`
	MarkedForReview []int                      `json:"markedForReview"`
	Resumed         bool                       `json:"resumed,omitempty"`
}

// PhaseEvent announces the practice→main transition with the score that
// drove the tier assignment.
type PhaseEvent struct {
	Event           Event                      `json:"event"`
	PracticeScore   int                        `json:"practiceScore"`
	DifficultyLevel model.Difficulty           `json:"difficultyLevel"`
	Questions       []model.QuestionForStudent `json:"questions"`
	TimeRemaining   int                        `json:"timeRemaining"`
}

// SavedEvent acknowledges a checkpoint write.
type SavedEvent struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// SubmittedEvent carries the finalized result summary.
type SubmittedEvent struct {
	Event  Event         `json:"event"`
	Result *model.Result `json:"result"`
}

// TimeEvent is the periodic countdown broadcast.
type TimeEvent struct {
	Event         Event `json:"event"`
	TimeRemaining int   `json:"timeRemaining"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
