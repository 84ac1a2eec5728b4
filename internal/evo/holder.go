package evo

import (
	"errors"
	"fmt"

	"operon/internal/model"
)

// Binding associates one operator with a predicate.
type Binding struct {
	Predicate Predicate
	Operator  model.Operator
}

// MultiBinding associates a set of operators with a predicate.
type MultiBinding struct {
	Predicate Predicate
	Operators []model.Operator
}

// Assembly is what setup code hands to a Builder: default operator factories,
// single and multi-valued association tables, and pre-bound selectors.
type Assembly struct {
	Defaults  []Factory
	Single    []Binding
	Multi     []MultiBinding
	Selectors map[SelectorKey]Selector
}

// Resolve merges the association tables into registration order. Multi-valued
// bindings win over single bindings with an equal predicate, defaults are keyed
// on their target variant, and every NoPredicate marker is replaced by the
// exact variant predicate of its operator's target.
func (a Assembly) Resolve() ([]Binding, error) {
	var merged []Binding
	multiKeys := make(map[Predicate]struct{}, len(a.Multi))

	for _, mb := range a.Multi {
		if mb.Predicate == nil {
			return nil, errors.New("multi binding predicate is required")
		}
		multiKeys[mb.Predicate] = struct{}{}
		for _, op := range mb.Operators {
			merged = append(merged, Binding{Predicate: mb.Predicate, Operator: op})
		}
	}
	for _, b := range a.Single {
		if b.Predicate == nil {
			return nil, errors.New("binding predicate is required")
		}
		if _, shadowed := multiKeys[b.Predicate]; shadowed {
			continue
		}
		merged = append(merged, b)
	}
	for i, factory := range a.Defaults {
		if factory == nil {
			return nil, fmt.Errorf("default operator %d has no factory", i)
		}
		op, err := factory()
		if err != nil {
			return nil, fmt.Errorf("instantiate default operator %d: %w", i, err)
		}
		target, err := TargetOf(op)
		if err != nil {
			return nil, err
		}
		merged = append(merged, Binding{Predicate: ExactType{Variant: target}, Operator: op})
	}

	for i, b := range merged {
		if b.Operator == nil {
			return nil, fmt.Errorf("binding %v has no operator", b.Predicate)
		}
		if _, ok := b.Predicate.(*NoPredicateMarker); !ok {
			continue
		}
		target, err := TargetOf(b.Operator)
		if err != nil {
			return nil, err
		}
		merged[i].Predicate = ExactType{Variant: target}
	}
	return merged, nil
}
