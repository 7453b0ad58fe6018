package store

import (
	"fmt"

	"github.com/mepuka/bsky-cli-sub001/internal/types"
)

// Checkpoints wraps a store's KV tree with typed accessors for the three
// file-per-key singletons named in spec.md §6.
type Checkpoints struct {
	kv *KV
}

// NewCheckpoints opens the checkpoint/lineage accessor rooted at dir
// (typically store.KVDir(root, name)).
func NewCheckpoints(dir string) *Checkpoints {
	return &Checkpoints{kv: NewKV(dir)}
}

func syncKey(source string) string { return "sync:" + source }

// GetSync returns the sync checkpoint for source, and whether one exists.
func (c *Checkpoints) GetSync(source string) (types.SyncCheckpoint, bool, error) {
	var cp types.SyncCheckpoint
	ok, err := c.kv.Get(syncKey(source), &cp)
	if err != nil {
		return types.SyncCheckpoint{}, false, fmt.Errorf("store: get sync checkpoint %q: %w", source, err)
	}
	return cp, ok, nil
}

// PutSync persists the sync checkpoint for cp.Source.
func (c *Checkpoints) PutSync(cp types.SyncCheckpoint) error {
	if cp.Source == "" {
		return fmt.Errorf("store: put sync checkpoint: empty source")
	}
	return c.kv.Put(syncKey(cp.Source), cp)
}

// DeleteSync removes the sync checkpoint for source, used by reset.
func (c *Checkpoints) DeleteSync(source string) error {
	return c.kv.Delete(syncKey(source))
}

func derivationKey(target, source string) string { return "derive:" + target + ":" + source }

// GetDerivation returns the derivation checkpoint for the (target, source)
// pair, and whether one exists.
func (c *Checkpoints) GetDerivation(target, source string) (types.DerivationCheckpoint, bool, error) {
	var cp types.DerivationCheckpoint
	ok, err := c.kv.Get(derivationKey(target, source), &cp)
	if err != nil {
		return types.DerivationCheckpoint{}, false, fmt.Errorf("store: get derivation checkpoint %s<-%s: %w", target, source, err)
	}
	return cp, ok, nil
}

// PutDerivation persists the derivation checkpoint for (target, source).
func (c *Checkpoints) PutDerivation(target, source string, cp types.DerivationCheckpoint) error {
	if target == "" || source == "" {
		return fmt.Errorf("store: put derivation checkpoint: empty target or source")
	}
	return c.kv.Put(derivationKey(target, source), cp)
}

// DeleteDerivation removes the derivation checkpoint for (target, source),
// used by reset.
func (c *Checkpoints) DeleteDerivation(target, source string) error {
	return c.kv.Delete(derivationKey(target, source))
}

const lineageKey = "lineage"

// GetLineage returns this store's lineage record, and whether one exists.
// A store with no lineage record is an original (non-derived) store.
func (c *Checkpoints) GetLineage() (types.Lineage, bool, error) {
	var l types.Lineage
	ok, err := c.kv.Get(lineageKey, &l)
	if err != nil {
		return types.Lineage{}, false, fmt.Errorf("store: get lineage: %w", err)
	}
	return l, ok, nil
}

// PutLineage persists this store's lineage record.
func (c *Checkpoints) PutLineage(l types.Lineage) error {
	return c.kv.Put(lineageKey, l)
}
