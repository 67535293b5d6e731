package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/diktat/internal/dictation"
	"github.com/MrWong99/diktat/internal/observe"
	"github.com/MrWong99/diktat/pkg/provider/stt"
)

// startMessage opens a dictation. It must be the first message.
type startMessage struct {
	Sentence string `json:"sentence"`
	Lesson   string `json:"lesson,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// transcriptMessage carries one recognition result from the browser.
type transcriptMessage struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// handleDictation upgrades to a websocket. Speech recognition runs in the
// browser; the client sends a [startMessage] followed by transcript
// snapshots and receives one [dictation.Snapshot] per snapshot.
func (s *Server) handleDictation(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		// Accept already wrote the HTTP error.
		observe.Logger(r.Context()).Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	log := observe.Logger(ctx)

	var start startMessage
	if err := wsjson.Read(ctx, conn, &start); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "expected start message")
		return
	}
	if strings.TrimSpace(start.Sentence) == "" {
		conn.Close(websocket.StatusPolicyViolation, "sentence is required")
		return
	}

	settings := s.Settings()
	relay := stt.NewRelay(s.relayBuffer)
	opts := []dictation.Option{
		dictation.WithEvaluator(settings.Evaluator),
		dictation.WithTrimWhileListening(settings.TrimWhileListening),
		dictation.WithLesson(start.Lesson, start.Index),
		dictation.WithMetrics(s.metrics),
	}
	if s.store != nil {
		opts = append(opts, dictation.WithStore(s.store, s.backend))
	}
	sess, err := dictation.New(relay, start.Sentence, opts...)
	if err != nil {
		log.Error("starting dictation failed", "err", err)
		conn.Close(websocket.StatusInternalError, "cannot start dictation")
		return
	}
	defer sess.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(gctx)
	})
	g.Go(func() error {
		for snap := range sess.Snapshots() {
			if err := wsjson.Write(gctx, conn, snap); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		// Closing the relay lets Run drain what is queued and return.
		defer relay.Close()
		for {
			var msg transcriptMessage
			if err := wsjson.Read(gctx, conn, &msg); err != nil {
				if isClientClose(err) {
					return nil
				}
				return err
			}
			t := stt.Transcript{Text: msg.Transcript, IsFinal: msg.Final}
			if err := relay.Push(gctx, t); err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !isClientClose(err) && !errors.Is(err, context.Canceled) {
		log.Debug("dictation ended with error", "err", err)
		conn.Close(websocket.StatusInternalError, "dictation failed")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func isClientClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
