package evo

import (
	"fmt"

	"operon/internal/model"
)

// Factory produces a default operator during setup.
type Factory func() (model.Operator, error)

// TargetOf derives the variant an operator transforms. Explicit metadata wins
// over the operator's own parameterization.
func TargetOf(op model.Operator) (model.Variant, error) {
	if op == nil {
		return "", fmt.Errorf("%w: operator is nil", ErrNoTarget)
	}
	if annotated, ok := op.(model.Annotated); ok {
		if target := annotated.AppliesTo(); target != "" {
			return target, nil
		}
	}
	if targeted, ok := op.(model.Targeted); ok {
		if target := targeted.TargetVariant(); target != "" {
			return target, nil
		}
	}
	return "", fmt.Errorf("%w: operator %s (%T): declare AppliesTo metadata or parameterize it with TargetVariant",
		ErrNoTarget, op.Name(), op)
}

// Declared is an operator described by metadata alone.
type Declared struct {
	OperatorName string
	OperatorKind model.Kind
	Target       model.Variant
}

func (d Declared) Name() string { return d.OperatorName }

func (d Declared) Kind() model.Kind { return d.OperatorKind }

func (d Declared) AppliesTo() model.Variant { return d.Target }

func (d Declared) String() string {
	return fmt.Sprintf("%s/%s", d.OperatorKind, d.OperatorName)
}
