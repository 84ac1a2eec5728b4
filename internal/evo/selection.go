package evo

import (
	"fmt"
	"sync"

	"operon/internal/model"
)

// Selector chooses one operator out of several that apply equally to a
// genotype. The engine returns its result as is.
type Selector interface {
	Name() string
	Select(candidates []model.Operator, genotype model.Genotype) (model.Operator, error)
}

// RandomSelector picks uniformly from the candidates.
type RandomSelector struct {
	src *Source
}

// NewRandomSelector draws from src, which may be shared with other selectors
// and operators.
func NewRandomSelector(src *Source) *RandomSelector {
	return &RandomSelector{src: src}
}

func (*RandomSelector) Name() string {
	return "random"
}

func (s *RandomSelector) Select(candidates []model.Operator, _ model.Genotype) (model.Operator, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if s == nil || s.src == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return candidates[s.src.Intn(len(candidates))], nil
}

// RoundRobinSelector rotates through the candidates per genotype instance.
// The first call for a genotype returns candidates[0]; each call advances the
// cursor modulo the candidate count of that call.
type RoundRobinSelector struct {
	mu      sync.Mutex
	cursors map[any]int
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{cursors: make(map[any]int)}
}

func (*RoundRobinSelector) Name() string {
	return "round_robin"
}

func (s *RoundRobinSelector) Select(candidates []model.Operator, genotype model.Genotype) (model.Operator, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	key := model.IdentityOf(genotype)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cursors[key]
	if idx >= len(candidates) {
		idx = 0
	}
	s.cursors[key] = (idx + 1) % len(candidates)
	return candidates[idx], nil
}

// StickySelector keeps returning the same position for a genotype. The stored
// index never advances; it falls back to 0 once it no longer fits the
// candidate list.
type StickySelector struct {
	mu      sync.Mutex
	indices map[any]int
}

func NewStickySelector() *StickySelector {
	return &StickySelector{indices: make(map[any]int)}
}

func (*StickySelector) Name() string {
	return "sticky"
}

// Pin sets the index used for genotype on subsequent calls.
func (s *StickySelector) Pin(genotype model.Genotype, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indices[model.IdentityOf(genotype)] = idx
}

func (s *StickySelector) Select(candidates []model.Operator, genotype model.Genotype) (model.Operator, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	key := model.IdentityOf(genotype)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indices[key]
	if idx < 0 || idx >= len(candidates) {
		idx = 0
	}
	s.indices[key] = idx
	return candidates[idx], nil
}

// NewSelector builds a selector by name. src backs the random strategy.
func NewSelector(name string, src *Source) (Selector, error) {
	switch name {
	case "random":
		return NewRandomSelector(src), nil
	case "round_robin":
		return NewRoundRobinSelector(), nil
	case "sticky":
		return NewStickySelector(), nil
	default:
		return nil, fmt.Errorf("unsupported selector: %s", name)
	}
}
