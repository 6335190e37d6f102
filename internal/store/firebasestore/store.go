// Package firebasestore implements the realtime store over a Firebase-style
// REST database: reads stream over Server-Sent Events, writes go through
// plain JSON PUTs. The server pushes a full snapshot on connect, then
// incremental put and patch events; this package folds them into a local
// tree and hands each resulting snapshot to the listener.
package firebasestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"igait-client/internal/realtime"
	"igait-client/pkg/result"
)

// TokenSource supplies the auth token appended to every request. A nil
// source means unauthenticated access.
type TokenSource interface {
	IDToken(ctx context.Context) result.Result[string]
}

type Store struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	logger  *zap.Logger
}

func New(databaseURL string, tokens TokenSource, logger *zap.Logger) *Store {
	return &Store{
		baseURL: strings.TrimSuffix(databaseURL, "/"),
		tokens:  tokens,
		// Streaming requests must never hit a client-side deadline; writes
		// carry their own context timeouts.
		http:   &http.Client{},
		logger: logger,
	}
}

// nodeURL builds the REST endpoint for a slash-separated tree path.
func (s *Store) nodeURL(ctx context.Context, path string) (string, error) {
	endpoint := s.baseURL + "/" + strings.Trim(path, "/") + ".json"

	if s.tokens == nil {
		return endpoint, nil
	}
	token := s.tokens.IDToken(ctx)
	if token.IsErr() {
		return "", token.Error()
	}

	query := url.Values{"auth": {token.Value()}}
	return endpoint + "?" + query.Encode(), nil
}

// Set writes a value at path, replacing whatever was there.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	endpoint, err := s.nodeURL(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to authorize write: %w", err)
	}

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("write rejected (%d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Listen attaches a streaming subscription at path. The returned handle
// cancels the stream; callbacks stop after it returns.
func (s *Store) Listen(path string, onValue func(any), onError func(error)) realtime.Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())

	go s.stream(ctx, path, onValue, onError)

	return func() { cancel() }
}
