package evo

import (
	"errors"

	"operon/internal/model"
)

var ErrNoMutationChoice = errors.New("no mutation choice available")

// PerturbWeight shifts the weight of one enabled synapse by a uniform delta
// in [-MaxDelta, MaxDelta]. Disabled synapses are never chosen.
type PerturbWeight struct {
	Rand     *Source
	MaxDelta float64
}

func (o *PerturbWeight) Name() string { return "weight_perturb" }

func (o *PerturbWeight) Kind() model.Kind { return model.KindMutate }

func (o *PerturbWeight) TargetVariant() model.Variant { return model.VariantNeural }

func (o *PerturbWeight) Apply(genome model.Genome) (model.Genome, error) {
	if o == nil || o.Rand == nil {
		return model.Genome{}, errors.New("random source is required")
	}
	if o.MaxDelta <= 0 {
		return model.Genome{}, errors.New("max delta must be > 0")
	}
	var enabled []int
	for i, s := range genome.Synapses {
		if s.Enabled {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return model.Genome{}, ErrNoMutationChoice
	}

	idx := enabled[o.Rand.Intn(len(enabled))]
	mutated := CloneGenome(genome)
	mutated.Synapses[idx].Weight += (o.Rand.Float64()*2 - 1) * o.MaxDelta
	return mutated, nil
}

// GenomeCopy duplicates a neural genome.
type GenomeCopy struct{}

func (GenomeCopy) Name() string { return "genome_clone" }

func (GenomeCopy) Kind() model.Kind { return model.KindCopy }

func (GenomeCopy) TargetVariant() model.Variant { return model.VariantNeural }

func (GenomeCopy) Apply(genome model.Genome) model.Genome {
	return CloneGenome(genome)
}

// CloneGenome copies g without sharing any slice with it.
func CloneGenome(g model.Genome) model.Genome {
	out := g
	out.Neurons = append([]model.Neuron(nil), g.Neurons...)
	out.Synapses = append([]model.Synapse(nil), g.Synapses...)
	out.SensorIDs = append([]string(nil), g.SensorIDs...)
	out.ActuatorIDs = append([]string(nil), g.ActuatorIDs...)
	return out
}

// NeuralDefaults returns the built-in operator factories of the neural
// variant, keyed by kind. Mutations draw from src.
func NeuralDefaults(src *Source) map[model.Kind][]Factory {
	return map[model.Kind][]Factory{
		model.KindMutate: {func() (model.Operator, error) {
			return &PerturbWeight{Rand: src, MaxDelta: 1}, nil
		}},
		model.KindCopy: {func() (model.Operator, error) {
			return GenomeCopy{}, nil
		}},
	}
}

var (
	_ model.Targeted = (*PerturbWeight)(nil)
	_ model.Targeted = GenomeCopy{}
)
