package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/studiobgc/loopforge/internal/domain/entities"
)

// SequencerHandler walks a TriggerSequence's events in real time, writing
// each one to the socket as its scheduled beat arrives: the Sequencer
// transport the original spec describes as a WebSocket loop.
type SequencerHandler struct {
	logger *zap.Logger
}

func NewSequencerHandler(logger *zap.Logger) *SequencerHandler {
	return &SequencerHandler{logger: logger}
}

// HandleSequence streams seq's events spaced by their Time field converted
// from beats to wall-clock time at bpm, stopping early if the client
// disconnects.
func (h *SequencerHandler) HandleSequence(c *gin.Context, seq *entities.TriggerSequence) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("sequencer websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	secondsPerBeat := 60.0 / seq.BPM
	start := time.Now()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, event := range seq.Events {
		targetOffset := time.Duration(event.Time * secondsPerBeat * float64(time.Second))
		wait := targetOffset - time.Since(start)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-done:
				return
			}
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
		select {
		case <-done:
			return
		default:
		}
	}
	conn.WriteMessage(websocket.CloseMessage, []byte{})
}
