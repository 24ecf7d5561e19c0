// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tochemey/vactor/address"
)

const defaultRedisPrefix = "vactor:state:"

// RedisStore implements StateStore on redis. Each address is stored under
// "{prefix}{type}:{id}" as a plain string value.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

var (
	_ StateStore = (*RedisStore)(nil)
	_ Lister     = (*RedisStore)(nil)
)

// NewRedisStore creates a RedisStore connected to addr. The connection is
// verified with a PING.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("persistence: connecting to redis=(%s): %w", addr, err)
	}
	return &RedisStore{client: client, prefix: defaultRedisPrefix, owned: true}, nil
}

// NewRedisStoreFromClient creates a RedisStore on an existing client.
// Close does not close a client it did not create.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Load returns the saved state of the address
func (s *RedisStore) Load(ctx context.Context, addr address.Address) ([]byte, bool, error) {
	state, err := s.client.Get(ctx, s.key(addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return state, true, nil
}

// Save replaces the state of the address
func (s *RedisStore) Save(ctx context.Context, addr address.Address, state []byte) error {
	return s.client.Set(ctx, s.key(addr), state, 0).Err()
}

// Delete removes the state of the address
func (s *RedisStore) Delete(ctx context.Context, addr address.Address) error {
	return s.client.Del(ctx, s.key(addr)).Err()
}

// Addresses scans the stored addresses of the given actor type
func (s *RedisStore) Addresses(ctx context.Context, actorType string) ([]address.Address, error) {
	pattern := s.prefix + "*"
	if actorType != "" {
		pattern = s.prefix + actorType + ":*"
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return parseKeys(keys, actorType), nil
}

// Close closes the client when the store created it
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) key(addr address.Address) string {
	return s.prefix + addr.String()
}
