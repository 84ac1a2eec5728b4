package operon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"operon/internal/evo"
)

func newClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	client, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientValidateDefaultCatalog(t *testing.T) {
	client := newClient(t, Options{})

	summary, err := client.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "default", summary.Catalog)
	assert.Equal(t, []string{"copy", "crossover", "mutate", "neighbor"}, summary.Kinds)
	assert.Contains(t, summary.Variants, "select_map")
	assert.Equal(t, 14, summary.Operators)
}

func TestClientOperatorsSorted(t *testing.T) {
	client := newClient(t, Options{})

	items, err := client.Operators(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, items)
	assert.Equal(t, OperatorItem{Kind: "copy", Name: "genome_clone", Target: "neural"}, items[0])
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		assert.True(t, prev.Kind < cur.Kind || (prev.Kind == cur.Kind && prev.Name <= cur.Name), "%+v before %+v", prev, cur)
	}
}

func TestClientDispatchPersistsSessionAndTrace(t *testing.T) {
	client := newClient(t, Options{})
	ctx := context.Background()

	summary, err := client.Dispatch(ctx, DispatchRequest{
		SessionID: "s1",
		Kinds:     []string{"mutate"},
		Genotypes: []GenotypeSpec{
			{ID: "p1", Variant: "permutation"},
			{ID: "d1", Variant: "select_map"},
		},
		Rounds: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", summary.SessionID)
	require.Len(t, summary.Records, 6)

	var perm []string
	for _, record := range summary.Records {
		if record.GenotypeID == "p1" {
			perm = append(perm, record.Operator)
		} else {
			assert.Equal(t, "random_reset", record.Operator)
		}
	}
	assert.Equal(t, []string{"swap", "insert", "invert"}, perm)
	assert.Equal(t, 6, summary.Metrics.Dispatches)
	assert.Zero(t, summary.Metrics.Failures)

	sessions, err := client.Sessions(ctx, SessionsRequest{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, []string{"mutate"}, sessions[0].Kinds)
	assert.Equal(t, 6, sessions[0].Dispatches)

	trace, err := client.Trace(ctx, TraceRequest{Latest: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, "swap", trace[0].Operator)
}

func TestClientDispatchCompositeAndFailures(t *testing.T) {
	client := newClient(t, Options{})

	summary, err := client.Dispatch(context.Background(), DispatchRequest{
		Kinds: []string{"crossover"},
		Genotypes: []GenotypeSpec{
			{ID: "c", Parts: []GenotypeSpec{
				{ID: "c.b", Variant: "boolean"},
				{ID: "c.n", Variant: "neural"},
			}},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, summary.SessionID)
	require.Len(t, summary.Records, 3)

	assert.True(t, summary.Records[0].NoOperator)
	assert.Equal(t, "composite", summary.Records[0].Variant)
	assert.Equal(t, "uniform_rate", summary.Records[1].Operator)
	assert.Equal(t, "c.n", summary.Records[2].GenotypeID)
	assert.Contains(t, summary.Records[2].Error, evo.ErrIncompatible.Error())

	assert.Equal(t, 1, summary.Metrics.NoOperator)
	assert.Equal(t, 1, summary.Metrics.Failures)
}

func TestClientDispatchRejectsBadRequests(t *testing.T) {
	client := newClient(t, Options{})
	ctx := context.Background()

	_, err := client.Dispatch(ctx, DispatchRequest{})
	assert.Error(t, err)

	_, err = client.Dispatch(ctx, DispatchRequest{Genotypes: []GenotypeSpec{{ID: "x"}}})
	assert.Error(t, err)

	_, err = client.Dispatch(ctx, DispatchRequest{Kinds: []string{"algebra"}, Genotypes: []GenotypeSpec{{Variant: "double"}}})
	assert.ErrorIs(t, err, evo.ErrKindNotFound)

	_, err = client.Dispatch(ctx, DispatchRequest{Rounds: -1, Genotypes: []GenotypeSpec{{Variant: "double"}}})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.Dispatch(cancelled, DispatchRequest{Genotypes: []GenotypeSpec{{Variant: "double"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientTraceValidation(t *testing.T) {
	client := newClient(t, Options{})
	ctx := context.Background()

	_, err := client.Trace(ctx, TraceRequest{SessionID: "a", Latest: true})
	assert.Error(t, err)
	_, err = client.Trace(ctx, TraceRequest{})
	assert.Error(t, err)
	_, err = client.Trace(ctx, TraceRequest{Latest: true})
	assert.Error(t, err)
	_, err = client.Trace(ctx, TraceRequest{SessionID: "missing"})
	assert.Error(t, err)
	_, err = client.Sessions(ctx, SessionsRequest{Limit: -1})
	assert.Error(t, err)
}

func TestClientLoadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
standard_hierarchy = false

[[hierarchy]]
variant = "tree"

[[hierarchy]]
variant = "binary_tree"
parents = ["tree"]

[[operators]]
name = "subtree_swap"
kind = "crossover"
target = "tree"
`), 0o644))

	client := newClient(t, Options{Catalog: path})
	summary, err := client.Dispatch(context.Background(), DispatchRequest{
		Genotypes: []GenotypeSpec{{ID: "t1", Variant: "binary_tree"}},
	})
	require.NoError(t, err)
	require.Len(t, summary.Records, 1)
	assert.Equal(t, "subtree_swap", summary.Records[0].Operator)

	_, err = New(Options{Catalog: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestParseGenotypes(t *testing.T) {
	specs, err := ParseGenotypes("p1:permutation, double ,")
	require.NoError(t, err)
	assert.Equal(t, []GenotypeSpec{{ID: "p1", Variant: "permutation"}, {ID: "g2", Variant: "double"}}, specs)

	_, err = ParseGenotypes(" , ")
	assert.Error(t, err)
	_, err = ParseGenotypes(":double")
	assert.Error(t, err)
}
