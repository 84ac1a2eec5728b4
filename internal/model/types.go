package model

import "reflect"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Variant identifies the runtime variant of a genotype.
type Variant string

// Kind identifies what an operator does to a genotype.
type Kind string

const (
	KindMutate    Kind = "mutate"
	KindCrossover Kind = "crossover"
	KindCopy      Kind = "copy"
	KindNeighbor  Kind = "neighbor"
	KindAlgebra   Kind = "algebra"
	KindDiversity Kind = "diversity"
)

// Genotype is a candidate-solution representation. Only its variant matters
// for operator dispatch.
type Genotype interface {
	Variant() Variant
}

// Composite marks an aggregate genotype. Operators act on its parts, never on
// the aggregate itself.
type Composite interface {
	Genotype
	Parts() []Genotype
}

// Identified genotypes expose a stable identity used by stateful selectors.
type Identified interface {
	GenotypeID() string
}

// Operator is a transformation of one kind. What it does to the encoded data
// is owned by the caller.
type Operator interface {
	Name() string
	Kind() Kind
}

// Annotated operators carry explicit target metadata.
type Annotated interface {
	AppliesTo() Variant
}

// Targeted operators are parameterized on the variant they transform.
type Targeted interface {
	TargetVariant() Variant
}

// IdentityOf returns a map key naming one genotype instance. Identified
// genotypes use their id. Other values are their own identity when their
// dynamic contents are comparable, and collapse onto their variant otherwise.
func IdentityOf(g Genotype) any {
	if g == nil {
		return nil
	}
	if ided, ok := g.(Identified); ok {
		return "id:" + ided.GenotypeID()
	}
	if reflect.ValueOf(g).Comparable() {
		return g
	}
	return "variant:" + string(g.Variant())
}
