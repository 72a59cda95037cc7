package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mukhil0212/Sentinel-RAG/internal/stream"
)

// DonePayload is the JSON body of the terminal SSE event.
type DonePayload struct {
	FinalOutput       string `json:"final_output"`
	Diff              string `json:"diff,omitempty"`
	ContinuationToken string `json:"continuation_token,omitempty"`
}

// handleSendMessage streams one planner turn as server-sent events. Text
// deltas arrive as plain data lines, tool and reasoning activity as named
// events, and the turn always terminates with one "done" event.
func (s *Server) handleSendMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	events, err := s.sessions.SendMessage(c.Request().Context(), c.Param("id"), req.Message)
	if err != nil {
		return httpError(err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	for ev := range events {
		if err := writeSSE(res, ev); err != nil {
			s.logger.Warn("sse write failed, draining turn", zap.Error(err))
			// The turn goroutine still owns the session lock; drain so it
			// can finish.
			for range events {
			}
			return nil
		}
		res.Flush()
	}

	return nil
}

func writeSSE(w http.ResponseWriter, ev stream.Event) error {
	switch ev.Type {
	case stream.EventTextDelta:
		return writeSSEData(w, ev.TextDelta)

	case stream.EventDone:
		payload, err := json.Marshal(DonePayload{
			FinalOutput:       ev.FinalText,
			Diff:              ev.Diff,
			ContinuationToken: ev.ContinuationToken,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "event: done\ndata: %s\n\n", payload)
		return err

	default:
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
		return err
	}
}

// writeSSEData emits text as data lines, one per line of content, so
// embedded newlines survive the SSE framing.
func writeSSEData(w http.ResponseWriter, text string) error {
	for _, line := range strings.Split(text, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "\n")
	return err
}
