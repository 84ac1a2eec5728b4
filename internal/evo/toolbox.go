package evo

import (
	"errors"
	"fmt"
	"sort"

	"operon/internal/model"
)

var ErrKindNotFound = errors.New("operator kind not found")

// Toolbox holds one engine per operator kind, the way a run wires a generic
// mutate, crossover, copy ... operator.
type Toolbox struct {
	engines map[model.Kind]*Engine
}

func NewToolbox(engines ...*Engine) (*Toolbox, error) {
	t := &Toolbox{engines: make(map[model.Kind]*Engine, len(engines))}
	for _, engine := range engines {
		if engine == nil {
			return nil, errors.New("engine is required")
		}
		kind := model.Kind(engine.Name())
		if _, exists := t.engines[kind]; exists {
			return nil, fmt.Errorf("duplicate engine for kind %s", kind)
		}
		t.engines[kind] = engine
	}
	return t, nil
}

func (t *Toolbox) Engine(kind model.Kind) (*Engine, error) {
	engine, ok := t.engines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, kind)
	}
	return engine, nil
}

// Dispatch resolves the operator of kind for genotype.
func (t *Toolbox) Dispatch(kind model.Kind, genotype model.Genotype) (model.Operator, error) {
	engine, err := t.Engine(kind)
	if err != nil {
		return nil, err
	}
	return engine.GetOperator(genotype)
}

func (t *Toolbox) Kinds() []model.Kind {
	kinds := make([]model.Kind, 0, len(t.engines))
	for kind := range t.engines {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Operators lists the registered operators of every engine, grouped by kind.
func (t *Toolbox) Operators() map[model.Kind][]model.Operator {
	out := make(map[model.Kind][]model.Operator, len(t.engines))
	for kind, engine := range t.engines {
		out[kind] = engine.GetOperators()
	}
	return out
}
