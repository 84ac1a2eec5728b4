package evo

import (
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"operon/internal/model"
)

// SelectorKey names the selector that resolves ambiguity for one genotype
// variant and operator kind.
type SelectorKey struct {
	Variant model.Variant
	Kind    model.Kind
}

func (k SelectorKey) String() string {
	return fmt.Sprintf("%s/%s", k.Variant, k.Kind)
}

// Builder collects registrations for one Engine. It is not safe for
// concurrent use and is discarded by Freeze.
type Builder struct {
	name       string
	hierarchy  *model.Hierarchy
	types      *typeRegistry
	predicates []predicateEntry
	selectors  map[SelectorKey]Selector
	frozen     bool
}

// NewBuilder starts an engine named name over the variant graph h. The
// hierarchy is copied, later changes to h are not observed.
func NewBuilder(name string, h *model.Hierarchy) *Builder {
	hierarchy := h.Clone()
	types := newTypeRegistry(hierarchy)
	types.putSentinel(model.VariantComposite)
	return &Builder{
		name:      name,
		hierarchy: hierarchy,
		types:     types,
		selectors: make(map[SelectorKey]Selector),
	}
}

// AddOperator registers op under p. Exact variant predicates land in the type
// registry, everything else in the predicate registry. Duplicates are kept.
func (b *Builder) AddOperator(p Predicate, op model.Operator) error {
	if b.frozen {
		return ErrFrozen
	}
	if p == nil {
		return errors.New("predicate is required")
	}
	if op == nil {
		return errors.New("operator is required")
	}
	if exact, ok := p.(ExactType); ok {
		b.types.put(exact.Variant, op)
		return nil
	}
	b.predicates = append(b.predicates, predicateEntry{predicate: p, operator: op})
	return nil
}

// AddOperatorSelector binds s to key, replacing any previous binding.
func (b *Builder) AddOperatorSelector(key SelectorKey, s Selector) error {
	if b.frozen {
		return ErrFrozen
	}
	if s == nil {
		return errors.New("selector is required")
	}
	b.selectors[key] = s
	return nil
}

// Install registers every binding of a and seeds its selectors.
func (b *Builder) Install(a Assembly) error {
	bindings, err := a.Resolve()
	if err != nil {
		return err
	}
	for _, binding := range bindings {
		if err := b.AddOperator(binding.Predicate, binding.Operator); err != nil {
			return fmt.Errorf("install %v: %w", binding.Predicate, err)
		}
	}
	for key, selector := range a.Selectors {
		if err := b.AddOperatorSelector(key, selector); err != nil {
			return fmt.Errorf("install selector %s: %w", key, err)
		}
	}
	return nil
}

// Freeze hands the registrations to a new Engine. The builder rejects further
// changes afterwards.
func (b *Builder) Freeze() *Engine {
	b.frozen = true
	selectors := make(map[SelectorKey]Selector, len(b.selectors))
	for key, selector := range b.selectors {
		selectors[key] = selector
	}
	return &Engine{
		name:       b.name,
		hierarchy:  b.hierarchy,
		types:      b.types,
		predicates: append([]predicateEntry(nil), b.predicates...),
		selectors:  selectors,
	}
}

// Engine dispatches genotypes to operators. It is safe for concurrent use;
// the only state it changes after Freeze is the memoized type registry.
type Engine struct {
	name       string
	hierarchy  *model.Hierarchy
	types      *typeRegistry
	predicates []predicateEntry
	selectors  map[SelectorKey]Selector
	flight     singleflight.Group
}

func (e *Engine) Name() string { return e.name }

// GetOperator returns the operator to apply to genotype. Composite genotypes
// yield a nil operator and no error.
func (e *Engine) GetOperator(genotype model.Genotype) (model.Operator, error) {
	if genotype == nil {
		return nil, fmt.Errorf("%w: nil genotype in %s", ErrIncompatible, e.name)
	}
	if _, ok := genotype.(model.Composite); ok {
		return nil, nil
	}

	candidates := e.candidates(genotype)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no operator for variant %s in %s", ErrIncompatible, genotype.Variant(), e.name)
	}
	return e.selectApplicableOperator(candidates, genotype)
}

func (e *Engine) candidates(genotype model.Genotype) []model.Operator {
	variant := genotype.Variant()
	if ops, ok := e.types.load().lookup(variant); ok {
		return append([]model.Operator(nil), ops...)
	}

	var applicable []model.Operator
	for _, entry := range e.predicates {
		if entry.predicate.Evaluate(genotype) {
			applicable = append(applicable, entry.operator)
		}
	}
	return append(applicable, e.ancestorOperators(variant)...)
}

// ancestorOperators scans the type registry for ancestors of variant and
// memoizes what it finds under variant. Derived entries are skipped, their
// operators are already registered on an ancestor of their own. Concurrent
// scans of one variant share a single pass.
func (e *Engine) ancestorOperators(variant model.Variant) []model.Operator {
	v, _, _ := e.flight.Do(string(variant), func() (any, error) {
		snap := e.types.load()
		if ops, ok := snap.lookup(variant); ok {
			return ops, nil
		}
		var found []model.Operator
		for _, entry := range snap.entries {
			if entry.sentinel || entry.derived {
				continue
			}
			if e.hierarchy.IsAncestor(entry.variant, variant) {
				found = append(found, entry.operator)
			}
		}
		e.types.memoize(variant, found)
		return found, nil
	})
	ops, _ := v.([]model.Operator)
	return append([]model.Operator(nil), ops...)
}

func (e *Engine) selectApplicableOperator(candidates []model.Operator, genotype model.Genotype) (model.Operator, error) {
	key := SelectorKey{Variant: genotype.Variant(), Kind: candidates[0].Kind()}
	selector, ok := e.selectors[key]
	if !ok && len(candidates) == 1 {
		return candidates[0], nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d operators of kind %s apply to variant %s in %s but no selector is registered for %s",
			ErrIncompatible, len(candidates), key.Kind, key.Variant, e.name, key)
	}
	return selector.Select(candidates, genotype)
}

// GetOperators returns every registered operator once: exact-variant
// registrations most specific first, then predicate registrations.
func (e *Engine) GetOperators() []model.Operator {
	var set operatorSet
	for _, entry := range e.types.load().entries {
		set.add(entry.operator)
	}
	for _, entry := range e.predicates {
		set.add(entry.operator)
	}
	return set.list
}

// Memoized reports whether variant currently has an exact-variant entry.
func (e *Engine) Memoized(variant model.Variant) bool {
	_, ok := e.types.load().lookup(variant)
	return ok
}
