// Package redisstore implements the realtime store over Redis, for local
// development against a stack without the hosted database. Each top-level
// tree node lives in one JSON document; writers publish a change
// notification per node and listeners re-read the document on every notify.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"igait-client/internal/realtime"
)

const (
	keyPrefix     = "igait:node:"
	channelPrefix = "igait:changed:"
)

type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection before returning.
func New(addr, password string, db int, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Listen reads the node document immediately, then re-reads it on every
// published change notification for that node.
func (s *Store) Listen(path string, onValue func(any), onError func(error)) realtime.Unsubscribe {
	node, rest := splitNodePath(path)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		pubsub := s.client.Subscribe(ctx, channelPrefix+node)
		defer pubsub.Close()

		// Confirm the subscription before the initial read so no notify
		// published in between is missed.
		if _, err := pubsub.Receive(ctx); err != nil {
			if ctx.Err() == nil {
				onError(fmt.Errorf("failed to subscribe to %s: %w", node, err))
			}
			return
		}

		emit := func() bool {
			value, err := s.readNode(ctx, node, rest)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return false
			}
			onValue(value)
			return true
		}

		if !emit() {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return func() { cancel() }
}

// Set rewrites the node document with value placed at the sub-path, then
// notifies listeners. Reads and writes of one node are not transactional;
// the development mirror tolerates lost updates under concurrent writers.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	node, rest := splitNodePath(path)

	doc, err := s.readNode(ctx, node, nil)
	if err != nil {
		return err
	}

	doc = writeAt(doc, rest, value)

	if doc == nil {
		if err := s.client.Del(ctx, keyPrefix+node).Err(); err != nil {
			return fmt.Errorf("failed to delete node %s: %w", node, err)
		}
	} else {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode node %s: %w", node, err)
		}
		if err := s.client.Set(ctx, keyPrefix+node, data, 0).Err(); err != nil {
			return fmt.Errorf("failed to write node %s: %w", node, err)
		}
	}

	if err := s.client.Publish(ctx, channelPrefix+node, path).Err(); err != nil {
		return fmt.Errorf("failed to notify listeners of %s: %w", node, err)
	}
	return nil
}

// readNode fetches a node document and descends to the given sub-path. A
// missing document or sub-path reads as nil, matching an empty tree.
func (s *Store) readNode(ctx context.Context, node string, rest []string) (any, error) {
	data, err := s.client.Get(ctx, keyPrefix+node).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read node %s: %w", node, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt node document %s: %w", node, err)
	}
	return childAt(doc, rest), nil
}

// splitNodePath separates the top-level node from the remaining segments.
func splitNodePath(path string) (string, []string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", nil
	}
	return segments[0], segments[1:]
}

func childAt(node any, segments []string) any {
	for _, segment := range segments {
		branch, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = branch[segment]
	}
	return node
}

// writeAt sets value at the segment path, materializing intermediate maps.
// A nil value deletes the leaf; emptied branches collapse.
func writeAt(node any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}

	branch, ok := node.(map[string]any)
	if !ok {
		branch = map[string]any{}
	}

	child := writeAt(branch[segments[0]], segments[1:], value)
	if child == nil {
		delete(branch, segments[0])
	} else {
		branch[segments[0]] = child
	}

	if len(branch) == 0 {
		return nil
	}
	return branch
}
