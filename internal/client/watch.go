package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"shuttlebook/internal/domain/models"
)

// Watch follows the trip's event stream and calls fn with every seat map
// until ctx ends or the stream closes. A context cancellation is not an error.
func (c *Client) Watch(ctx context.Context, tripID int64, fn func(models.TripView)) error {
	req, err := c.newRequest(ctx, http.MethodGet, tripPath(tripID, "/stream"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// streams outlive any request timeout
	hc := *c.httpClient()
	hc.Timeout = 0
	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	c.adoptGuestID(resp)

	if resp.StatusCode >= 400 {
		var buf [4096]byte
		n, _ := resp.Body.Read(buf[:])
		return decodeError(resp.StatusCode, buf[:n])
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64<<10), 1<<20)
	var (
		event string
		data  strings.Builder
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if err := dispatch(event, data.String(), fn); err != nil {
				return err
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func dispatch(event, data string, fn func(models.TripView)) error {
	switch event {
	case "trip":
		var view models.TripView
		if err := json.Unmarshal([]byte(data), &view); err != nil {
			return fmt.Errorf("decode trip event: %w", err)
		}
		fn(view)
	case "error":
		return fmt.Errorf("stream error: %s", data)
	}
	return nil
}
