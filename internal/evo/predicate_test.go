package evo

import (
	"testing"

	"operon/internal/model"
)

func TestExactTypeMatchesOnlyItsVariant(t *testing.T) {
	p := ExactType{Variant: model.VariantDouble}
	if !p.Evaluate(model.Instance{Of: model.VariantDouble}) {
		t.Fatal("expected match on exact variant")
	}
	if p.Evaluate(model.Instance{Of: model.VariantList}) {
		t.Fatal("ancestor variant must not match")
	}
	if p.Evaluate(nil) {
		t.Fatal("nil genotype must not match")
	}
	if p != (ExactType{Variant: model.VariantDouble}) {
		t.Fatal("equality is defined by the wrapped variant")
	}
	if p.String() != "predicate[variant=double]" {
		t.Fatalf("unexpected string: %s", p.String())
	}
}

func TestNoPredicateNeverMatches(t *testing.T) {
	a, b := NoPredicate(), NoPredicate()
	if a.Evaluate(model.Instance{Of: model.VariantDouble}) {
		t.Fatal("marker must never match")
	}
	if Predicate(a) == Predicate(b) {
		t.Fatal("distinct markers must not compare equal")
	}
}

func TestAnyOfPredicate(t *testing.T) {
	p := AnyOf(model.VariantInteger, model.VariantDouble, model.VariantDouble)
	if !p.Evaluate(model.Instance{Of: model.VariantInteger}) || !p.Evaluate(model.Instance{Of: model.VariantDouble}) {
		t.Fatal("expected listed variants to match")
	}
	if p.Evaluate(model.Instance{Of: model.VariantBoolean}) {
		t.Fatal("unexpected match")
	}
	if p.String() != "predicate[any_of=double,integer]" {
		t.Fatalf("unexpected string: %s", p.String())
	}
	var nilPredicate *FuncPredicate
	if nilPredicate.Evaluate(model.Instance{}) {
		t.Fatal("nil predicate must not match")
	}
}
