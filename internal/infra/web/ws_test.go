//go:build !integration

package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"email-lookup-service/internal/domain/model"
)

func TestProgressStream(t *testing.T) {
	t.Run("should push snapshots until the job is terminal", func(t *testing.T) {
		env := newTestEnv()
		job := seedJob(t, env.repo, "owner-1")
		job.Status = model.JobStatusCompleted
		now := time.Now()
		job.CompletedAt = &now
		env.repo.put(job)

		srv := httptest.NewServer(env.router)
		defer srv.Close()

		tok, err := env.auth.Mint("owner-1")
		if err != nil {
			t.Fatalf("mint token: %v", err)
		}
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/jobs/" + job.ID + "/ws?token=" + tok

		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got jobSummary
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read snapshot: %v", err)
		}
		if got.ID != job.ID || got.Status != string(model.JobStatusCompleted) {
			t.Fatalf("unexpected snapshot: %+v", got)
		}

		// The server closes the stream right after the terminal snapshot.
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Fatal("expected the stream to close after a terminal snapshot")
		}
	})

	t.Run("should answer 404 before upgrading for unknown jobs", func(t *testing.T) {
		env := newTestEnv()

		rec := env.do(t, http.MethodGet, "/api/v1/jobs/nope/ws", "owner-1", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
	})
}
