package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stream pushes progress events to the client as server-sent events until
// the client disconnects. The stream starts from the client's `since`
// sequence so a reconnect misses nothing that is still retained.
func (h *JobHandler) Stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	ch, cancel := h.hub.Subscribe()
	defer cancel()

	var since int64
	if s := c.QueryParam("since"); s != "" {
		fmt.Sscanf(s, "%d", &since)
	}
	for _, event := range h.hub.Since(since) {
		if err := writeSSE(res, event); err != nil {
			return nil
		}
		since = event.Seq
	}
	flusher.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-ch:
			// Catch-up above may overlap the live channel; skip repeats.
			if event.Seq <= since {
				continue
			}
			if err := writeSSE(res, event); err != nil {
				return nil
			}
			since = event.Seq
			flusher.Flush()
		}
	}
}

func writeSSE(res *echo.Response, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(res, "data: %s\n\n", data)
	return err
}
