package evo

import (
	"testing"

	"operon/internal/model"
)

func TestTypeRegistryKeepsSubtypesFirst(t *testing.T) {
	r := newTypeRegistry(model.StandardHierarchy())
	r.putSentinel(model.VariantComposite)
	r.put(model.VariantList, mutation("list-op", model.VariantList))
	r.put(model.VariantSelectMap, mutation("select-map-op", model.VariantSelectMap))
	r.put(model.VariantInteger, mutation("integer-op", model.VariantInteger))
	r.put(model.VariantList, mutation("list-op-2", model.VariantList))

	snap := r.load()
	var got []string
	for _, entry := range snap.entries {
		if entry.sentinel {
			continue
		}
		got = append(got, entry.operator.Name())
	}
	want := []string{"select-map-op", "integer-op", "list-op", "list-op-2"}
	if len(got) != len(want) {
		t.Fatalf("unexpected entries: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: want %s got %s (all=%v)", i, want[i], got[i], got)
		}
	}
}

func TestTypeRegistrySnapshotsAreImmutable(t *testing.T) {
	r := newTypeRegistry(model.StandardHierarchy())
	r.put(model.VariantDouble, mutation("a", model.VariantDouble))
	before := r.load()

	r.put(model.VariantDouble, mutation("b", model.VariantDouble))
	ops, _ := before.lookup(model.VariantDouble)
	if len(ops) != 1 {
		t.Fatalf("old snapshot changed: %+v", ops)
	}
	ops, _ = r.load().lookup(model.VariantDouble)
	if len(ops) != 2 {
		t.Fatalf("expected two operators, got %+v", ops)
	}
}

func TestTypeRegistryMemoizeIsIdempotent(t *testing.T) {
	r := newTypeRegistry(model.StandardHierarchy())
	op := mutation("list-op", model.VariantList)
	r.put(model.VariantList, op)

	r.memoize(model.VariantDouble, []model.Operator{op})
	r.memoize(model.VariantDouble, []model.Operator{op})
	r.memoize(model.VariantBoolean, nil)

	ops, ok := r.load().lookup(model.VariantDouble)
	if !ok || len(ops) != 1 {
		t.Fatalf("expected one memoized operator, got %+v", ops)
	}
	if _, ok := r.load().lookup(model.VariantBoolean); ok {
		t.Fatal("empty resolutions must not be memoized")
	}
}

func TestTypeRegistrySentinelHasNoOperators(t *testing.T) {
	r := newTypeRegistry(model.StandardHierarchy())
	r.putSentinel(model.VariantComposite)

	ops, ok := r.load().lookup(model.VariantComposite)
	if !ok {
		t.Fatal("expected sentinel entry")
	}
	if len(ops) != 0 {
		t.Fatalf("sentinel must not carry operators: %+v", ops)
	}
}
