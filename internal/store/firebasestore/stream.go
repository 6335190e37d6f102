package firebasestore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// streamEvent is one parsed Server-Sent Event.
type streamEvent struct {
	name string
	data string
}

// changePayload is the body of put and patch events: a path relative to the
// subscribed node and the data written there.
type changePayload struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// errStreamClosed marks a server-initiated end of stream that should be
// surfaced rather than retried.
var errStreamClosed = errors.New("stream cancelled by server")

// stream keeps one SSE connection alive, reconnecting with exponential
// backoff, until ctx is cancelled. Every reconnect starts from a full
// snapshot put at "/", so the local tree never drifts.
func (s *Store) stream(ctx context.Context, path string, onValue func(any), onError func(error)) {
	var tree any

	// Retry for the lifetime of the subscription: MaxElapsedTime measures
	// from the first attempt, and its default would stop a long-lived
	// stream on the first drop after fifteen minutes.
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = 0

	connect := func() error {
		endpoint, err := s.nodeURL(ctx, path)
		if err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := s.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return backoff.Permanent(fmt.Errorf("stream rejected (%d)", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stream returned status %d", resp.StatusCode)
		}

		// A healthy connection clears the accumulated backoff so the next
		// drop starts from the initial interval again.
		expo.Reset()

		err = readEvents(resp.Body, func(ev streamEvent) error {
			next, changed, evErr := applyEvent(tree, ev)
			if evErr != nil {
				return evErr
			}
			tree = next
			if changed {
				onValue(cloneTree(tree))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Server closed the stream cleanly; reconnect for a fresh snapshot.
		return io.ErrUnexpectedEOF
	}

	policy := backoff.WithContext(expo, ctx)
	notify := func(err error, _ time.Duration) {
		s.logger.Warn("stream interrupted, reconnecting",
			zap.String("path", path), zap.Error(err))
	}

	if err := backoff.RetryNotify(connect, policy, notify); err != nil {
		if ctx.Err() != nil {
			return
		}
		onError(err)
	}
}

// applyEvent folds one event into the tree. The second return reports
// whether the tree changed and a snapshot should be emitted.
func applyEvent(tree any, ev streamEvent) (any, bool, error) {
	switch ev.name {
	case "put":
		var payload changePayload
		if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
			return tree, false, fmt.Errorf("malformed put event: %w", err)
		}
		var value any
		if err := json.Unmarshal(payload.Data, &value); err != nil {
			return tree, false, fmt.Errorf("malformed put data: %w", err)
		}
		return applyPut(tree, payload.Path, value), true, nil

	case "patch":
		var payload changePayload
		if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
			return tree, false, fmt.Errorf("malformed patch event: %w", err)
		}
		var fields map[string]any
		if err := json.Unmarshal(payload.Data, &fields); err != nil {
			return tree, false, fmt.Errorf("malformed patch data: %w", err)
		}
		return applyPatch(tree, payload.Path, fields), true, nil

	case "keep-alive":
		return tree, false, nil

	case "cancel":
		return tree, false, backoff.Permanent(errStreamClosed)

	case "auth_revoked":
		// Reconnecting picks up a freshly minted token from the source.
		return tree, false, errors.New("auth token revoked")
	}

	return tree, false, nil
}

// readEvents parses the SSE wire format: "event:" and "data:" lines grouped
// by blank-line separators. Multi-line data is joined with newlines.
func readEvents(r io.Reader, emit func(streamEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current streamEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.name != "" || current.data != "" {
				if err := emit(current); err != nil {
					return err
				}
			}
			current = streamEvent{}
		case strings.HasPrefix(line, "event:"):
			current.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if current.data != "" {
				current.data += "\n"
			}
			current.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return scanner.Err()
}
