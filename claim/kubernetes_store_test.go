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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

func TestKubernetesStore(t *testing.T) {
	ctx := context.Background()

	t.Run("With single contender operations", func(t *testing.T) {
		store := NewKubernetesStore(fake.NewClientset(), "")
		addr := address.New("counter", "a1")

		require.NoError(t, store.Acquire(ctx, addr, "node-1", 10*time.Second))
		require.ErrorIs(t, store.Acquire(ctx, addr, "node-2", 10*time.Second), gerrors.ErrAlreadyActiveElsewhere)
		require.NoError(t, store.Acquire(ctx, addr, "node-1", 10*time.Second))
		require.NoError(t, store.Renew(ctx, addr, "node-1", 10*time.Second))
		require.ErrorIs(t, store.Renew(ctx, addr, "node-2", 10*time.Second), gerrors.ErrClaimLost)

		owner, found, err := store.Owner(ctx, addr)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "node-1", owner)

		lease, err := store.client.CoordinationV1().Leases(metav1.NamespaceDefault).Get(ctx, leaseName(addr), metav1.GetOptions{})
		require.NoError(t, err)
		assert.Equal(t, addr.String(), lease.Annotations[addressAnnotation])

		require.NoError(t, store.Release(ctx, addr, "node-2"))
		_, found, err = store.Owner(ctx, addr)
		require.NoError(t, err)
		assert.True(t, found)

		require.NoError(t, store.Release(ctx, addr, "node-1"))
		_, found, err = store.Owner(ctx, addr)
		require.NoError(t, err)
		assert.False(t, found)
		require.ErrorIs(t, store.Renew(ctx, addr, "node-1", time.Second), gerrors.ErrClaimLost)
		require.NoError(t, store.Close())
	})
	t.Run("With expired lease takeover", func(t *testing.T) {
		store := NewKubernetesStore(fake.NewClientset(), "vactor")
		now := time.Now()
		store.now = func() time.Time { return now }

		addr := address.New("counter", "a2")
		require.NoError(t, store.Acquire(ctx, addr, "node-1", time.Second))

		now = now.Add(3 * time.Second)
		_, found, err := store.Owner(ctx, addr)
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, store.Acquire(ctx, addr, "node-2", time.Second))
		lease, err := store.client.CoordinationV1().Leases("vactor").Get(ctx, leaseName(addr), metav1.GetOptions{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, *lease.Spec.LeaseTransitions)
		assert.Equal(t, "node-2", *lease.Spec.HolderIdentity)
	})
	t.Run("With DNS compliant names", func(t *testing.T) {
		name := leaseName(address.New("Order_Book", "EU.west"))
		assert.Regexp(t, `^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`, name)
	})
}
