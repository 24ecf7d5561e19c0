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

package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

const defaultRedisPrefix = "vactor:claim:"

// renewScript extends the key only when the caller owns it
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the key only when the caller owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store with SET NX PX and ownership checked scripts
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore connected to addr
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("claim: connecting to redis=(%s): %w", addr, err)
	}
	return &RedisStore{client: client, prefix: defaultRedisPrefix, owned: true}, nil
}

// NewRedisStoreFromClient creates a RedisStore on an existing client
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisPrefix}
}

// Acquire sets the claim when absent or refreshes it when owned by nodeID
func (s *RedisStore) Acquire(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	key := s.key(addr)
	ok, err := s.client.SetNX(ctx, key, nodeID, ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	renewed, err := renewScript.Run(ctx, s.client, []string{key}, nodeID, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if renewed == 0 {
		return gerrors.ErrAlreadyActiveElsewhere
	}
	return nil
}

// Renew extends a claim owned by nodeID
func (s *RedisStore) Renew(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	renewed, err := renewScript.Run(ctx, s.client, []string{s.key(addr)}, nodeID, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if renewed == 0 {
		return gerrors.ErrClaimLost
	}
	return nil
}

// Release drops a claim owned by nodeID
func (s *RedisStore) Release(ctx context.Context, addr address.Address, nodeID string) error {
	return releaseScript.Run(ctx, s.client, []string{s.key(addr)}, nodeID).Err()
}

// Owner returns the live owner of the claim
func (s *RedisStore) Owner(ctx context.Context, addr address.Address) (string, bool, error) {
	owner, err := s.client.Get(ctx, s.key(addr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return owner, true, nil
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
