package snapshot

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// ErrNotFound is returned when no snapshot exists for a workload.
var ErrNotFound = fmt.Errorf("no rollback state found")

// Store persists workload snapshots keyed by workload identity.
type Store interface {
	Save(ctx context.Context, state *WorkloadState) error
	Load(ctx context.Context, namespace, kind, name string) (*WorkloadState, error)
	Delete(ctx context.Context, namespace, kind, name string) error
}

// Tiered writes snapshots to every tier and reads from the first tier
// that has one. The fast tier (redis) is listed first and its write
// failures are tolerated with a log; a failure in the last, durable
// tier fails the Save.
type Tiered struct {
	tiers []Store
}

func NewTiered(tiers ...Store) *Tiered {
	return &Tiered{tiers: tiers}
}

func (t *Tiered) Save(ctx context.Context, state *WorkloadState) error {
	for i, tier := range t.tiers {
		err := tier.Save(ctx, state)
		if err == nil {
			continue
		}
		if i == len(t.tiers)-1 {
			return fmt.Errorf("durable snapshot tier failed: %w", err)
		}
		klog.Warningf("Snapshot tier %T failed to save %s/%s: %v", tier, state.Namespace, state.WorkloadName, err)
	}
	return nil
}

func (t *Tiered) Load(ctx context.Context, namespace, kind, name string) (*WorkloadState, error) {
	var lastErr error = ErrNotFound
	for _, tier := range t.tiers {
		state, err := tier.Load(ctx, namespace, kind, name)
		if err == nil {
			return state, nil
		}
		if err != ErrNotFound {
			klog.V(2).Infof("Snapshot tier %T load failed for %s/%s/%s: %v", tier, namespace, kind, name, err)
		}
		lastErr = err
	}
	return nil, lastErr
}

func (t *Tiered) Delete(ctx context.Context, namespace, kind, name string) error {
	var lastErr error
	for _, tier := range t.tiers {
		if err := tier.Delete(ctx, namespace, kind, name); err != nil && err != ErrNotFound {
			lastErr = err
		}
	}
	return lastErr
}
