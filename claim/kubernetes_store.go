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
	"fmt"
	"math"
	"time"

	"github.com/zeebo/xxh3"
	coordinationv1 "k8s.io/api/coordination/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/tochemey/vactor/address"
	gerrors "github.com/tochemey/vactor/errors"
)

const (
	addressAnnotation = "vactor.io/address"
	managedByLabel    = "app.kubernetes.io/managed-by"
	managedByValue    = "vactor"
)

// KubernetesStore implements Store with coordination.k8s.io/v1 Lease objects,
// one per address. Ownership changes rely on the Lease resourceVersion.
type KubernetesStore struct {
	client    kubernetes.Interface
	namespace string
	now       func() time.Time
}

var _ Store = (*KubernetesStore)(nil)

// NewKubernetesStore creates a KubernetesStore writing leases in namespace
func NewKubernetesStore(client kubernetes.Interface, namespace string) *KubernetesStore {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &KubernetesStore{client: client, namespace: namespace, now: time.Now}
}

// Acquire creates the lease, or takes it over when expired or owned by nodeID
func (s *KubernetesStore) Acquire(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	leases := s.client.CoordinationV1().Leases(s.namespace)
	now := metav1.NewMicroTime(s.now())

	lease := &coordinationv1.Lease{
		ObjectMeta: metav1.ObjectMeta{
			Name:        leaseName(addr),
			Namespace:   s.namespace,
			Labels:      map[string]string{managedByLabel: managedByValue},
			Annotations: map[string]string{addressAnnotation: addr.String()},
		},
		Spec: coordinationv1.LeaseSpec{
			HolderIdentity:       &nodeID,
			LeaseDurationSeconds: leaseSeconds(ttl),
			AcquireTime:          &now,
			RenewTime:            &now,
		},
	}

	_, err := leases.Create(ctx, lease, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("claim/kubernetes: create lease: %w", err)
	}

	existing, err := leases.Get(ctx, lease.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return gerrors.ErrAlreadyActiveElsewhere
		}
		return fmt.Errorf("claim/kubernetes: get lease: %w", err)
	}

	if holder(existing) != nodeID && !s.expired(existing) {
		return gerrors.ErrAlreadyActiveElsewhere
	}

	if holder(existing) != nodeID {
		existing.Spec.AcquireTime = &now
		existing.Spec.LeaseTransitions = int32Ptr(leaseTransitions(existing) + 1)
	}
	existing.Spec.HolderIdentity = &nodeID
	existing.Spec.LeaseDurationSeconds = leaseSeconds(ttl)
	existing.Spec.RenewTime = &now

	if _, err := leases.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsConflict(err) || apierrors.IsNotFound(err) {
			return gerrors.ErrAlreadyActiveElsewhere
		}
		return fmt.Errorf("claim/kubernetes: update lease: %w", err)
	}
	return nil
}

// Renew refreshes the renew time of a lease held by nodeID
func (s *KubernetesStore) Renew(ctx context.Context, addr address.Address, nodeID string, ttl time.Duration) error {
	leases := s.client.CoordinationV1().Leases(s.namespace)
	existing, err := leases.Get(ctx, leaseName(addr), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return gerrors.ErrClaimLost
		}
		return fmt.Errorf("claim/kubernetes: get lease: %w", err)
	}
	if holder(existing) != nodeID {
		return gerrors.ErrClaimLost
	}

	now := metav1.NewMicroTime(s.now())
	existing.Spec.RenewTime = &now
	existing.Spec.LeaseDurationSeconds = leaseSeconds(ttl)
	if _, err := leases.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		if apierrors.IsConflict(err) || apierrors.IsNotFound(err) {
			return gerrors.ErrClaimLost
		}
		return fmt.Errorf("claim/kubernetes: update lease: %w", err)
	}
	return nil
}

// Release deletes a lease held by nodeID
func (s *KubernetesStore) Release(ctx context.Context, addr address.Address, nodeID string) error {
	leases := s.client.CoordinationV1().Leases(s.namespace)
	existing, err := leases.Get(ctx, leaseName(addr), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("claim/kubernetes: get lease: %w", err)
	}
	if holder(existing) != nodeID {
		return nil
	}

	resourceVersion := existing.ResourceVersion
	err = leases.Delete(ctx, existing.Name, metav1.DeleteOptions{
		Preconditions: &metav1.Preconditions{ResourceVersion: &resourceVersion},
	})
	if err != nil && !apierrors.IsNotFound(err) && !apierrors.IsConflict(err) {
		return fmt.Errorf("claim/kubernetes: delete lease: %w", err)
	}
	return nil
}

// Owner returns the holder of a live lease
func (s *KubernetesStore) Owner(ctx context.Context, addr address.Address) (string, bool, error) {
	existing, err := s.client.CoordinationV1().Leases(s.namespace).Get(ctx, leaseName(addr), metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("claim/kubernetes: get lease: %w", err)
	}
	if s.expired(existing) || holder(existing) == "" {
		return "", false, nil
	}
	return holder(existing), true, nil
}

// Close is a no-op; the clientset is owned by the caller
func (s *KubernetesStore) Close() error {
	return nil
}

func (s *KubernetesStore) expired(lease *coordinationv1.Lease) bool {
	if lease.Spec.RenewTime == nil || lease.Spec.LeaseDurationSeconds == nil {
		return true
	}
	deadline := lease.Spec.RenewTime.Add(time.Duration(*lease.Spec.LeaseDurationSeconds) * time.Second)
	return !s.now().Before(deadline)
}

// leaseName maps an address to a DNS-1123 compliant object name. The
// address itself is kept in an annotation.
func leaseName(addr address.Address) string {
	return fmt.Sprintf("vactor-claim-%016x", xxh3.HashString(addr.String()))
}

func holder(lease *coordinationv1.Lease) string {
	if lease.Spec.HolderIdentity == nil {
		return ""
	}
	return *lease.Spec.HolderIdentity
}

func leaseTransitions(lease *coordinationv1.Lease) int32 {
	if lease.Spec.LeaseTransitions == nil {
		return 0
	}
	return *lease.Spec.LeaseTransitions
}

func leaseSeconds(ttl time.Duration) *int32 {
	seconds := int32(math.Ceil(ttl.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return &seconds
}

func int32Ptr(v int32) *int32 {
	return &v
}
