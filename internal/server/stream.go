package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"githubhunt-gateway/internal/agent"
	"githubhunt-gateway/internal/translator"
)

// chunkPacing throttles content chunks so clients render the answer
// progressively instead of receiving one large burst.
const chunkPacing = 10 * time.Millisecond

// writeCompletionStream relays agent output as OpenAI-style SSE chunks.
// Every chunk of one response shares a single id and created timestamp.
// On agent failure a single error event is emitted and the stream ends
// without a stop chunk or [DONE] marker.
func (s *Server) writeCompletionStream(c echo.Context, model string, stream agent.Stream) error {
	defer stream.Close()

	writer := c.Response().Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		slog.Error("http writer does not support flushing")
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "server does not support streaming responses",
			Type:    "server_error",
		}
	}

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	id := translator.NewResponseID()
	created := time.Now().Unix()

	for stream.Next() {
		content := stream.Current()
		if content == "" {
			continue
		}

		if err := writeSSEData(writer, translator.NewContentChunk(id, created, model, content)); err != nil {
			slog.Error("failed to write content chunk", "err", err)
			return nil
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(chunkPacing):
		}
	}

	if err := stream.Err(); err != nil {
		slog.Error("agent stream failed", "err", err)
		if werr := writeSSEData(writer, translator.NewStreamError(err.Error())); werr != nil {
			slog.Error("failed to write stream error event", "err", werr)
			return nil
		}
		flusher.Flush()
		return nil
	}

	if err := writeSSEData(writer, translator.NewStopChunk(id, created, model)); err != nil {
		slog.Error("failed to write stop chunk", "err", err)
		return nil
	}
	if _, err := io.WriteString(writer, "data: [DONE]\n\n"); err != nil {
		slog.Error("failed to write stream terminator", "err", err)
		return nil
	}
	flusher.Flush()

	return nil
}

func writeSSEData(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal SSE payload: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write SSE data: %w", err)
	}
	return nil
}
