package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operon/internal/evo"
	"operon/internal/model"
)

func newToolbox(t *testing.T) *evo.Toolbox {
	t.Helper()
	b := evo.NewBuilder(string(model.KindMutate), model.StandardHierarchy())
	require.NoError(t, b.AddOperator(evo.ExactType{Variant: model.VariantBoolean}, evo.Declared{
		OperatorName: "flip_bits",
		OperatorKind: model.KindMutate,
		Target:       model.VariantBoolean,
	}))
	tb, err := evo.NewToolbox(b.Freeze())
	require.NoError(t, err)
	return tb
}

func TestInstrumentedCountsResults(t *testing.T) {
	m := NewInstrumented(newToolbox(t))

	op, err := m.Dispatch(model.KindMutate, model.Instance{ID: "b1", Of: model.VariantBoolean})
	require.NoError(t, err)
	assert.Equal(t, "flip_bits", op.Name())

	op, err = m.Dispatch(model.KindMutate, model.NewCompositeGenotype("c1"))
	require.NoError(t, err)
	assert.Nil(t, op)

	_, err = m.Dispatch(model.KindMutate, model.Instance{ID: "d1", Of: model.VariantDouble})
	assert.ErrorIs(t, err, evo.ErrIncompatible)

	_, err = m.Dispatch(model.KindCrossover, model.Instance{ID: "b1", Of: model.VariantBoolean})
	assert.True(t, errors.Is(err, evo.ErrKindNotFound))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.dispatches.WithLabelValues("boolean", "mutate", ResultOperator)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dispatches.WithLabelValues("composite", "mutate", ResultNoOperator)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.dispatches.WithLabelValues("double", "mutate", ResultError)))
	assert.Equal(t, 4, testutil.CollectAndCount(m.dispatches))
}

func TestInstrumentedSummary(t *testing.T) {
	m := NewInstrumented(newToolbox(t))
	for i := 0; i < 3; i++ {
		_, err := m.Dispatch(model.KindMutate, model.Instance{ID: "b", Of: model.VariantBoolean})
		require.NoError(t, err)
	}
	_, _ = m.Dispatch(model.KindMutate, model.Instance{ID: "d", Of: model.VariantDouble})

	summary, err := m.Summary()
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Dispatches)
	assert.Equal(t, 3, summary.Operators)
	assert.Equal(t, 1, summary.Failures)
	assert.Equal(t, 0, summary.NoOperator)
	require.Len(t, summary.Counts, 2)
	assert.Equal(t, Count{Variant: "boolean", Kind: "mutate", Result: ResultOperator, Value: 3}, summary.Counts[0])
}

func TestSummaryEmptyRegistry(t *testing.T) {
	summary, err := NewInstrumented(newToolbox(t)).Summary()
	require.NoError(t, err)
	assert.Zero(t, summary.Dispatches)
	assert.Empty(t, summary.Counts)
}
