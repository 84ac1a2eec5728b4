package model

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrHierarchyCycle   = errors.New("variant hierarchy cycle")
	ErrInvalidVariant   = errors.New("invalid variant")
	ErrVariantRedeclare = errors.New("variant already declared")
)

// Hierarchy is an explicit variant graph. Each variant declares its direct
// parents; ancestry queries walk the declared edges only.
type Hierarchy struct {
	parents map[Variant][]Variant
	order   []Variant
	depths  map[Variant]int
}

func NewHierarchy() *Hierarchy {
	return &Hierarchy{parents: make(map[Variant][]Variant), depths: make(map[Variant]int)}
}

// Declare registers variant with its direct parents in priority order.
// Undeclared parents are declared as roots.
func (h *Hierarchy) Declare(variant Variant, parents ...Variant) error {
	if variant == "" {
		return fmt.Errorf("%w: empty variant", ErrInvalidVariant)
	}
	if existing, ok := h.parents[variant]; ok && len(existing) > 0 {
		return fmt.Errorf("%w: %s", ErrVariantRedeclare, variant)
	}
	for _, parent := range parents {
		if parent == "" {
			return fmt.Errorf("%w: empty parent of %s", ErrInvalidVariant, variant)
		}
		if parent == variant || h.IsAncestor(variant, parent) {
			return fmt.Errorf("%w: %s -> %s", ErrHierarchyCycle, variant, parent)
		}
	}
	for _, parent := range parents {
		if _, ok := h.parents[parent]; !ok {
			h.parents[parent] = nil
			h.order = append(h.order, parent)
		}
	}
	if _, ok := h.parents[variant]; !ok {
		h.order = append(h.order, variant)
	}
	h.parents[variant] = append([]Variant(nil), parents...)
	h.reindex()
	return nil
}

// reindex recomputes every depth. Declaring parents for a former root moves
// all of its descendants, so the whole table is rebuilt.
func (h *Hierarchy) reindex() {
	depths := make(map[Variant]int, len(h.parents))
	var visit func(Variant) int
	visit = func(v Variant) int {
		if d, ok := depths[v]; ok {
			return d
		}
		d := 0
		for _, parent := range h.parents[v] {
			if pd := visit(parent) + 1; pd > d {
				d = pd
			}
		}
		depths[v] = d
		return d
	}
	for _, v := range h.order {
		visit(v)
	}
	h.depths = depths
}

// MustDeclare is Declare for static tables.
func (h *Hierarchy) MustDeclare(variant Variant, parents ...Variant) *Hierarchy {
	if err := h.Declare(variant, parents...); err != nil {
		panic(err)
	}
	return h
}

func (h *Hierarchy) Declared(variant Variant) bool {
	if h == nil {
		return false
	}
	_, ok := h.parents[variant]
	return ok
}

// Ancestors returns every proper ancestor of variant, nearest first.
func (h *Hierarchy) Ancestors(variant Variant) []Variant {
	if h == nil {
		return nil
	}
	var out []Variant
	seen := map[Variant]bool{variant: true}
	queue := append([]Variant(nil), h.parents[variant]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, h.parents[next]...)
	}
	return out
}

// IsAncestor reports whether ancestor is a proper ancestor of variant.
func (h *Hierarchy) IsAncestor(ancestor, variant Variant) bool {
	if h == nil || ancestor == variant {
		return false
	}
	for _, candidate := range h.Ancestors(variant) {
		if candidate == ancestor {
			return true
		}
	}
	return false
}

// Depth is the length of the longest declared chain from variant to a root.
// Undeclared variants have depth 0.
func (h *Hierarchy) Depth(variant Variant) int {
	if h == nil {
		return 0
	}
	return h.depths[variant]
}

// Less orders variants so that subtypes precede supertypes. Unrelated
// variants fall back to depth and then name.
func (h *Hierarchy) Less(a, b Variant) bool {
	da, db := h.Depth(a), h.Depth(b)
	if da != db {
		return da > db
	}
	return a < b
}

// Variants lists declared variants in declaration order.
func (h *Hierarchy) Variants() []Variant {
	if h == nil {
		return nil
	}
	return append([]Variant(nil), h.order...)
}

func (h *Hierarchy) Clone() *Hierarchy {
	out := NewHierarchy()
	if h == nil {
		return out
	}
	for _, variant := range h.order {
		out.parents[variant] = append([]Variant(nil), h.parents[variant]...)
	}
	out.order = append([]Variant(nil), h.order...)
	for variant, depth := range h.depths {
		out.depths[variant] = depth
	}
	return out
}

// SortVariants sorts variants most specific first.
func (h *Hierarchy) SortVariants(variants []Variant) {
	sort.SliceStable(variants, func(i, j int) bool {
		return h.Less(variants[i], variants[j])
	})
}
