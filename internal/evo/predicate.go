package evo

import (
	"fmt"
	"sort"
	"strings"

	"operon/internal/model"
)

// Predicate decides whether an operator applies to a genotype instance.
// Implementations must be comparable; they key the association tables.
type Predicate interface {
	Evaluate(genotype model.Genotype) bool
}

// ExactType holds for genotypes whose variant equals Variant.
type ExactType struct {
	Variant model.Variant
}

func (p ExactType) Evaluate(genotype model.Genotype) bool {
	return genotype != nil && genotype.Variant() == p.Variant
}

func (p ExactType) String() string {
	return fmt.Sprintf("predicate[variant=%s]", p.Variant)
}

// NoPredicateMarker stands in for a predicate derived from the operator's own
// target. It never matches and is rewritten before registration.
type NoPredicateMarker struct {
	_ byte
}

// NoPredicate returns a fresh marker; distinct markers never compare equal.
func NoPredicate() *NoPredicateMarker {
	return &NoPredicateMarker{}
}

func (*NoPredicateMarker) Evaluate(model.Genotype) bool { return false }

func (*NoPredicateMarker) String() string { return "predicate[none]" }

// FuncPredicate wraps an arbitrary test. Identity is the pointer.
type FuncPredicate struct {
	name string
	fn   func(model.Genotype) bool
}

func NewPredicate(name string, fn func(model.Genotype) bool) *FuncPredicate {
	return &FuncPredicate{name: name, fn: fn}
}

func (p *FuncPredicate) Evaluate(genotype model.Genotype) bool {
	if p == nil || p.fn == nil || genotype == nil {
		return false
	}
	return p.fn(genotype)
}

func (p *FuncPredicate) String() string {
	return fmt.Sprintf("predicate[%s]", p.name)
}

// AnyOf holds for genotypes whose variant is one of variants.
func AnyOf(variants ...model.Variant) *FuncPredicate {
	set := make(map[model.Variant]struct{}, len(variants))
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		names = append(names, string(v))
	}
	sort.Strings(names)
	return NewPredicate("any_of="+strings.Join(names, ","), func(g model.Genotype) bool {
		_, ok := set[g.Variant()]
		return ok
	})
}
