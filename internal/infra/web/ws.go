package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const streamInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamHandler upgrades the connection and pushes job progress snapshots
// until the job reaches a terminal status or the client goes away.
func (s *Server) streamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := ownerFromContext(ctx)
		jobID := chi.URLParam(r, "id")

		// Reject unknown jobs before upgrading so the client gets a plain 404.
		job, err := s.jobUC.Get(ctx, ownerID, jobID)
		if err != nil {
			writeDomainError(w, err, "Failed to get job")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn().Err(err).Str("job_id", jobID).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		// Reads are discarded; their only purpose is detecting a closed peer.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(streamInterval)
		defer ticker.Stop()

		for {
			if err := conn.WriteJSON(summarize(job)); err != nil {
				return
			}
			if job.Status.Terminal() {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)))
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
			}

			job, err = s.jobUC.Get(ctx, ownerID, jobID)
			if err != nil {
				s.log.Warn().Err(err).Str("job_id", jobID).Msg("progress read failed")
				return
			}
		}
	}
}
