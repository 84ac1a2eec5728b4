package evo

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"operon/internal/model"
)

var (
	ErrIncompatible = errors.New("operator incompatible with genotype")
	ErrNoTarget     = errors.New("operator target not specified")
	ErrNoCandidates = errors.New("no candidate operators")
	ErrFrozen       = errors.New("builder already frozen")
)

// typeEntry is one exact-variant registration. The composite root is seeded
// as a sentinel entry with no operator; derived entries come from memoized
// ancestor resolutions.
type typeEntry struct {
	variant  model.Variant
	operator model.Operator
	sentinel bool
	derived  bool
}

// typeSnapshot is an immutable view of the exact-variant registry. Entries
// are kept most specific variant first.
type typeSnapshot struct {
	entries []typeEntry
	index   map[model.Variant][]model.Operator
}

func (s *typeSnapshot) lookup(variant model.Variant) ([]model.Operator, bool) {
	ops, ok := s.index[variant]
	return ops, ok
}

// typeRegistry is a growth-only multimap from exact variant to operators.
// Reads are lock-free; writers copy the snapshot under mu.
type typeRegistry struct {
	hierarchy *model.Hierarchy

	mu   sync.Mutex
	snap atomic.Pointer[typeSnapshot]
}

func newTypeRegistry(h *model.Hierarchy) *typeRegistry {
	r := &typeRegistry{hierarchy: h}
	r.snap.Store(&typeSnapshot{index: make(map[model.Variant][]model.Operator)})
	return r
}

func (r *typeRegistry) load() *typeSnapshot {
	return r.snap.Load()
}

func (r *typeRegistry) put(variant model.Variant, op model.Operator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(r.insert(r.load(), typeEntry{variant: variant, operator: op}))
}

func (r *typeRegistry) putSentinel(variant model.Variant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Store(r.insert(r.load(), typeEntry{variant: variant, sentinel: true}))
}

// memoize records ops under variant unless another resolution already did.
func (r *typeRegistry) memoize(variant model.Variant, ops []model.Operator) {
	if len(ops) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.load()
	if _, exists := snap.index[variant]; exists {
		return
	}
	for _, op := range ops {
		snap = r.insert(snap, typeEntry{variant: variant, operator: op, derived: true})
	}
	r.snap.Store(snap)
}

// insert returns a copy of snap with entry placed after every entry of an
// equal or more specific variant.
func (r *typeRegistry) insert(snap *typeSnapshot, entry typeEntry) *typeSnapshot {
	pos := len(snap.entries)
	for i, existing := range snap.entries {
		if existing.variant != entry.variant && r.hierarchy.Less(entry.variant, existing.variant) {
			pos = i
			break
		}
	}

	entries := make([]typeEntry, 0, len(snap.entries)+1)
	entries = append(entries, snap.entries[:pos]...)
	entries = append(entries, entry)
	entries = append(entries, snap.entries[pos:]...)

	index := make(map[model.Variant][]model.Operator, len(snap.index)+1)
	for variant, ops := range snap.index {
		index[variant] = ops
	}
	ops := index[entry.variant]
	if !entry.sentinel {
		ops = append(append([]model.Operator(nil), ops...), entry.operator)
	}
	if ops == nil {
		ops = []model.Operator{}
	}
	index[entry.variant] = ops

	return &typeSnapshot{entries: entries, index: index}
}

type predicateEntry struct {
	predicate Predicate
	operator  model.Operator
}

// operatorSet collects operators without duplicates, keeping first-seen order.
type operatorSet struct {
	seen map[any]struct{}
	list []model.Operator
}

func (s *operatorSet) add(op model.Operator) {
	if op == nil {
		return
	}
	if reflect.ValueOf(op).Comparable() {
		if s.seen == nil {
			s.seen = make(map[any]struct{})
		}
		if _, ok := s.seen[op]; ok {
			return
		}
		s.seen[op] = struct{}{}
	} else {
		for _, existing := range s.list {
			if reflect.DeepEqual(existing, op) {
				return
			}
		}
	}
	s.list = append(s.list, op)
}
