package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	ssePollInterval = 3 * time.Second
	sseHeartbeat    = 15 * time.Second
)

// handleSSE streams the queue counts. A "counts" event is sent on connect
// and again whenever the counts change.
func handleSSE(r Reader, poll time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		var last *Summary
		push := func() {
			counts, err := r.CountByStatus("")
			if err != nil {
				return
			}
			s := NewSummary(counts)
			if last != nil && *last == s {
				return
			}
			last = &s
			writeSSE(c.Writer, "counts", s)
			c.Writer.Flush()
		}
		push()

		ctx := c.Request.Context()
		ticker := time.NewTicker(poll)
		heartbeat := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				push()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
