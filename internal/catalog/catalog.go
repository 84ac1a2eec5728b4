package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"operon/internal/evo"
	"operon/internal/model"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Graph builds the variant graph declared by cfg.
func (c Config) Graph() (*model.Hierarchy, error) {
	h := model.NewHierarchy()
	if c.UsesStandardHierarchy() {
		h = model.StandardHierarchy()
	}
	for _, v := range c.Hierarchy {
		parents := make([]model.Variant, 0, len(v.Parents))
		for _, p := range v.Parents {
			parents = append(parents, model.Variant(strings.TrimSpace(p)))
		}
		if err := h.Declare(model.Variant(strings.TrimSpace(v.Variant)), parents...); err != nil {
			return nil, fmt.Errorf("%w: hierarchy: %v", ErrInvalidCatalog, err)
		}
	}
	return h, nil
}

// Assemblies groups the declared operators and selectors by kind.
func (c Config) Assemblies(src *evo.Source) (map[model.Kind]evo.Assembly, error) {
	out := make(map[model.Kind]evo.Assembly)
	names := make(map[model.Kind]map[string]struct{})

	for i, oc := range c.Operators {
		name := strings.TrimSpace(oc.Name)
		kind := model.Kind(strings.TrimSpace(oc.Kind))
		if name == "" {
			return nil, fmt.Errorf("%w: operator %d has no name", ErrInvalidCatalog, i)
		}
		if kind == "" {
			return nil, fmt.Errorf("%w: operator %s has no kind", ErrInvalidCatalog, name)
		}
		if names[kind] == nil {
			names[kind] = make(map[string]struct{})
		}
		if _, dup := names[kind][name]; dup {
			return nil, fmt.Errorf("%w: duplicate %s operator %s", ErrInvalidCatalog, kind, name)
		}
		names[kind][name] = struct{}{}

		op := evo.Declared{OperatorName: name, OperatorKind: kind, Target: model.Variant(strings.TrimSpace(oc.Target))}
		predicate, err := predicateFor(oc, op)
		if err != nil {
			return nil, err
		}
		a := out[kind]
		a.Single = append(a.Single, evo.Binding{Predicate: predicate, Operator: op})
		out[kind] = a
	}

	for _, sc := range c.Selectors {
		kind := model.Kind(strings.TrimSpace(sc.Kind))
		a, ok := out[kind]
		if !ok {
			return nil, fmt.Errorf("%w: selector for %s/%s but no %s operators are declared", ErrInvalidCatalog, sc.Variant, kind, kind)
		}
		selector, err := evo.NewSelector(strings.TrimSpace(sc.Strategy), src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if a.Selectors == nil {
			a.Selectors = make(map[evo.SelectorKey]evo.Selector)
		}
		a.Selectors[evo.SelectorKey{Variant: model.Variant(strings.TrimSpace(sc.Variant)), Kind: kind}] = selector
		out[kind] = a
	}
	return out, nil
}

func predicateFor(oc OperatorConfig, op evo.Declared) (evo.Predicate, error) {
	switch strings.TrimSpace(oc.Predicate) {
	case "", "none":
		return evo.NoPredicate(), nil
	case "exact":
		if op.Target == "" {
			return nil, fmt.Errorf("%w: operator %s uses an exact predicate without target", ErrInvalidCatalog, op.OperatorName)
		}
		return evo.ExactType{Variant: op.Target}, nil
	case "any_of":
		if len(oc.AnyOf) == 0 {
			return nil, fmt.Errorf("%w: operator %s uses any_of without variants", ErrInvalidCatalog, op.OperatorName)
		}
		variants := make([]model.Variant, 0, len(oc.AnyOf))
		for _, v := range oc.AnyOf {
			variants = append(variants, model.Variant(strings.TrimSpace(v)))
		}
		return evo.AnyOf(variants...), nil
	default:
		return nil, fmt.Errorf("%w: operator %s has unknown predicate %q", ErrInvalidCatalog, op.OperatorName, oc.Predicate)
	}
}

// addNeuralDefaults installs the built-in neural operators as default
// declarations. A declared operator of the same kind and name replaces the
// built-in one.
func addNeuralDefaults(assemblies map[model.Kind]evo.Assembly, src *evo.Source) error {
	for kind, factories := range evo.NeuralDefaults(src) {
		a := assemblies[kind]
		for _, factory := range factories {
			op, err := factory()
			if err != nil {
				return fmt.Errorf("%s: %w", kind, err)
			}
			if declares(a, op.Name()) {
				continue
			}
			a.Defaults = append(a.Defaults, factory)
		}
		assemblies[kind] = a
	}
	return nil
}

func declares(a evo.Assembly, name string) bool {
	for _, b := range a.Single {
		if b.Operator.Name() == name {
			return true
		}
	}
	return false
}

// Build wires one frozen engine per declared kind. When the hierarchy has
// the neural variant, the mutate and copy kinds also get the built-in neural
// operators, seeded from cfg.Seed.
func Build(cfg Config) (*evo.Toolbox, error) {
	h, err := cfg.Graph()
	if err != nil {
		return nil, err
	}
	src := evo.NewSource(cfg.Seed)
	assemblies, err := cfg.Assemblies(src)
	if err != nil {
		return nil, err
	}
	if h.Declared(model.VariantNeural) {
		if err := addNeuralDefaults(assemblies, src); err != nil {
			return nil, err
		}
	}

	kinds := make([]model.Kind, 0, len(assemblies))
	for kind := range assemblies {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	engines := make([]*evo.Engine, 0, len(kinds))
	for _, kind := range kinds {
		b := evo.NewBuilder(string(kind), h)
		if err := b.Install(assemblies[kind]); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		engines = append(engines, b.Freeze())
	}
	return evo.NewToolbox(engines...)
}
