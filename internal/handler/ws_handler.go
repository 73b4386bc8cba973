package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/skylearn/assess-backend/internal/assessment"
	"github.com/skylearn/assess-backend/internal/middleware"
	"github.com/skylearn/assess-backend/internal/service"
	ws "github.com/skylearn/assess-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt over WebSocket: navigation and
// answer actions flow in, state, countdown, and finalization events
// flow out.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/student/attempts/:test_id/stream
// Upgrades to WebSocket and drives the attempt state machine until the
// student submits, the timer expires, or the connection drops.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	la, err := h.attemptService.Get(testID, claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attempt in progress"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", claims.UserID).
		Str("test_id", testID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	// Single writer goroutine: the timer forwarder and the read loop
	// both produce outbound events, gorilla allows one writer at a time.
	out := make(chan interface{}, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := range out {
			if err := ws.WriteTyped(conn, v); err != nil {
				return
			}
		}
	}()

	// Forward server-side timer events. Subscribing supersedes any
	// earlier connection for this attempt.
	events := la.Subscribe()
	stop := make(chan struct{})
	fwdDone := make(chan struct{})
	go func() {
		defer close(fwdDone)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Err != nil {
					h.sendTerminal(out, ws.ErrorResponse{Event: ws.EventError, Error: ev.Err.Error()})
					conn.Close()
					return
				}
				if ev.Progress != nil && ev.Progress.Kind == assessment.ProgressFinalized {
					h.sendTerminal(out, ws.SubmittedEvent{Event: ws.EventSubmitted, Result: ev.Progress.Result})
					conn.Close()
					return
				}
				h.send(out, ws.TimeEvent{Event: ws.EventTime, TimeRemaining: ev.TimeRemaining})
			}
		}
	}()

	h.send(out, buildState(la))
	h.readLoop(c.Request.Context(), conn, wsLog, la, out)

	// The forwarder must be fully stopped before out closes; it may be
	// mid-send on a terminal event.
	close(stop)
	<-fwdDone
	close(out)
	<-done

	// Best-effort checkpoint so a dropped connection loses nothing.
	h.attemptService.Flush(context.Background(), la)
	wsLog.Info().Msg("Student disconnected")
}

// send enqueues without blocking the state machine on a slow socket.
func (h *WSHandler) send(out chan interface{}, v interface{}) {
	select {
	case out <- v:
	default:
	}
}

// sendTerminal enqueues an event the client must not miss, such as its
// own submission. A slow socket is waited out rather than dropped; the
// timeout bounds how long a dead peer can hold the goroutine.
func (h *WSHandler) sendTerminal(out chan interface{}, v interface{}) {
	select {
	case out <- v:
	case <-time.After(5 * time.Second):
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, la *service.LiveAttempt, out chan interface{}) {
	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAnswer:
			if err := la.Attempt.SelectAnswer(msg.Answer); err != nil {
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
			}

		case ws.ActionNext:
			p, err := la.Attempt.Next()
			if err != nil {
				if errors.Is(err, assessment.ErrNoQuestions) {
					h.sendTerminal(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
					h.attemptService.Abort(ctx, la, err)
					return
				}
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
				continue
			}
			h.attemptService.HandleProgress(ctx, la, p)
			switch p.Kind {
			case assessment.ProgressPhaseChanged:
				h.send(out, ws.PhaseEvent{
					Event:           ws.EventPhase,
					PracticeScore:   p.PracticeScore,
					DifficultyLevel: p.AssignedTier,
					Questions:       la.Attempt.PresentedQuestions(),
					TimeRemaining:   la.Attempt.TimeRemaining(),
				})
			case assessment.ProgressFinalized:
				h.sendTerminal(out, ws.SubmittedEvent{Event: ws.EventSubmitted, Result: p.Result})
				return
			default:
				h.send(out, buildState(la))
			}

		case ws.ActionPrev:
			if err := la.Attempt.Prev(); err != nil {
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
				continue
			}
			h.send(out, buildState(la))

		case ws.ActionJump:
			if err := la.Attempt.JumpTo(msg.Position); err != nil {
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
				continue
			}
			h.send(out, buildState(la))

		case ws.ActionFlag:
			if err := la.Attempt.ToggleFlag(msg.Position); err != nil {
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
				continue
			}
			h.send(out, buildState(la))

		case ws.ActionVisibility:
			// Tab hidden or page unloading: checkpoint immediately.
			if msg.Hidden {
				h.attemptService.Flush(ctx, la)
				h.send(out, ws.SavedEvent{Event: ws.EventSaved, Status: "saved"})
			}

		case ws.ActionSubmit:
			p, err := la.Attempt.Submit()
			if err != nil {
				if errors.Is(err, assessment.ErrNoQuestions) {
					h.sendTerminal(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
					h.attemptService.Abort(ctx, la, err)
					return
				}
				h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
				continue
			}
			h.attemptService.HandleProgress(ctx, la, p)
			switch p.Kind {
			case assessment.ProgressPhaseChanged:
				h.send(out, ws.PhaseEvent{
					Event:           ws.EventPhase,
					PracticeScore:   p.PracticeScore,
					DifficultyLevel: p.AssignedTier,
					Questions:       la.Attempt.PresentedQuestions(),
					TimeRemaining:   la.Attempt.TimeRemaining(),
				})
			case assessment.ProgressFinalized:
				h.sendTerminal(out, ws.SubmittedEvent{Event: ws.EventSubmitted, Result: p.Result})
				return
			}

		case ws.ActionPing:
			h.send(out, ws.PongResponse{Event: ws.EventPong})

		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			h.send(out, ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)})
		}
	}
}

// buildState projects the attempt into the WebSocket state event.
func buildState(la *service.LiveAttempt) ws.StateEvent {
	snap := la.Attempt.Snapshot()

	state := ws.StateEvent{
		Event:           ws.EventState,
		Phase:           la.Attempt.Phase(),
		Questions:       la.Attempt.PresentedQuestions(),
		CurrentQuestion: snap.CurrentQuestion,
		TimeRemaining:   snap.TimeRemaining,
		Answers:         snap.Answers,
		MarkedForReview: snap.MarkedForReview,
	}
	if snap.DifficultyLevel != nil {
		state.DifficultyLevel = *snap.DifficultyLevel
	}
	return state
}
