package model

import "sort"

// Standard variants of the built-in genotype catalog.
const (
	VariantComposite   Variant = "composite"
	VariantList        Variant = "list"
	VariantBoolean     Variant = "boolean"
	VariantDouble      Variant = "double"
	VariantInteger     Variant = "integer"
	VariantPermutation Variant = "permutation"
	VariantSelect      Variant = "select"
	VariantSelectMap   Variant = "select_map"
	VariantNeural      Variant = "neural"
)

// StandardHierarchy returns the variant graph of the built-in genotypes.
func StandardHierarchy() *Hierarchy {
	h := NewHierarchy()
	h.MustDeclare(VariantComposite)
	h.MustDeclare(VariantList)
	h.MustDeclare(VariantBoolean, VariantList)
	h.MustDeclare(VariantDouble, VariantList)
	h.MustDeclare(VariantInteger, VariantList)
	h.MustDeclare(VariantPermutation, VariantList)
	h.MustDeclare(VariantSelect, VariantInteger)
	h.MustDeclare(VariantSelectMap, VariantSelect)
	h.MustDeclare(VariantNeural)
	return h
}

// Instance is an opaque genotype known only by id and variant.
type Instance struct {
	ID string  `json:"id"`
	Of Variant `json:"variant"`
}

func (i Instance) Variant() Variant { return i.Of }

func (i Instance) GenotypeID() string { return i.ID }

// CompositeGenotype aggregates named parts.
type CompositeGenotype struct {
	ID    string
	parts map[string]Genotype
}

func NewCompositeGenotype(id string) *CompositeGenotype {
	return &CompositeGenotype{ID: id, parts: make(map[string]Genotype)}
}

func (c *CompositeGenotype) Variant() Variant { return VariantComposite }

func (c *CompositeGenotype) GenotypeID() string { return c.ID }

func (c *CompositeGenotype) Put(key string, part Genotype) {
	c.parts[key] = part
}

func (c *CompositeGenotype) Get(key string) (Genotype, bool) {
	part, ok := c.parts[key]
	return part, ok
}

// Parts returns the parts ordered by key.
func (c *CompositeGenotype) Parts() []Genotype {
	keys := make([]string, 0, len(c.parts))
	for key := range c.parts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Genotype, 0, len(keys))
	for _, key := range keys {
		out = append(out, c.parts[key])
	}
	return out
}

// Genome is a neural network genotype.
type Genome struct {
	VersionedRecord
	ID          string    `json:"id"`
	Neurons     []Neuron  `json:"neurons"`
	Synapses    []Synapse `json:"synapses"`
	SensorIDs   []string  `json:"sensor_ids"`
	ActuatorIDs []string  `json:"actuator_ids"`
}

func (g Genome) Variant() Variant { return VariantNeural }

func (g Genome) GenotypeID() string { return g.ID }

type Neuron struct {
	ID         string  `json:"id"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

type Synapse struct {
	ID        string  `json:"id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Weight    float64 `json:"weight"`
	Enabled   bool    `json:"enabled"`
	Recurrent bool    `json:"recurrent"`
}

var (
	_ Genotype   = Instance{}
	_ Composite  = (*CompositeGenotype)(nil)
	_ Identified = Genome{}
)
