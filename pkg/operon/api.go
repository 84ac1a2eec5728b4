package operon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"operon/internal/catalog"
	"operon/internal/evo"
	"operon/internal/metrics"
	"operon/internal/model"
	"operon/internal/storage"
)

const (
	defaultDBPath      = "operon.db"
	defaultCatalogName = "default"
	defaultRounds      = 1
	defaultListLimit   = 20

	// createdAtLayout keeps timestamps fixed width so they sort as strings.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

type Options struct {
	StoreKind string
	DBPath    string
	// Catalog is a .yaml, .yml, .toml or .json catalog path. Empty selects
	// the built-in catalog.
	Catalog string
	Logger  *slog.Logger
}

type Client struct {
	store       storage.Store
	initialized bool

	catalogName string
	config      catalog.Config
	logger      *slog.Logger
}

// GenotypeSpec names one genotype to dispatch. Parts make it a composite.
type GenotypeSpec struct {
	ID      string         `json:"id" yaml:"id"`
	Variant string         `json:"variant" yaml:"variant"`
	Parts   []GenotypeSpec `json:"parts,omitempty" yaml:"parts,omitempty"`
}

type DispatchRequest struct {
	SessionID string
	Kinds     []string
	Genotypes []GenotypeSpec
	Rounds    int
}

type DispatchSummary struct {
	SessionID string                 `json:"session_id"`
	Records   []model.DispatchRecord `json:"records"`
	Metrics   metrics.Summary        `json:"metrics"`
}

type ValidateSummary struct {
	Catalog   string   `json:"catalog"`
	Kinds     []string `json:"kinds"`
	Variants  []string `json:"variants"`
	Operators int      `json:"operators"`
}

type OperatorItem struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Target string `json:"target,omitempty"`
}

type SessionsRequest struct {
	Limit int
}

type TraceRequest struct {
	SessionID string
	Latest    bool
	Limit     int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg := catalog.Default()
	name := defaultCatalogName
	if opts.Catalog != "" {
		loaded, err := catalog.Load(opts.Catalog)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		name = opts.Catalog
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:       store,
		catalogName: name,
		config:      cfg,
		logger:      logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Validate builds every engine of the catalog without dispatching.
func (c *Client) Validate(_ context.Context) (ValidateSummary, error) {
	tb, err := catalog.Build(c.config)
	if err != nil {
		return ValidateSummary{}, err
	}
	h, err := c.config.Graph()
	if err != nil {
		return ValidateSummary{}, err
	}

	summary := ValidateSummary{Catalog: c.catalogName}
	for _, kind := range tb.Kinds() {
		summary.Kinds = append(summary.Kinds, string(kind))
	}
	for _, v := range h.Variants() {
		summary.Variants = append(summary.Variants, string(v))
	}
	for _, ops := range tb.Operators() {
		summary.Operators += len(ops)
	}
	c.logger.Debug("catalog validated", "catalog", c.catalogName, "kinds", len(summary.Kinds), "operators", summary.Operators)
	return summary, nil
}

// Operators lists the registered operators ordered by kind, then name.
func (c *Client) Operators(_ context.Context) ([]OperatorItem, error) {
	tb, err := catalog.Build(c.config)
	if err != nil {
		return nil, err
	}

	var out []OperatorItem
	for kind, ops := range tb.Operators() {
		for _, op := range ops {
			item := OperatorItem{Kind: string(kind), Name: op.Name()}
			if target, err := evo.TargetOf(op); err == nil {
				item.Target = string(target)
			}
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Dispatch resolves an operator for every genotype and kind, Rounds times,
// and persists the session with its trace. Composite genotypes yield no
// operator themselves; their parts are dispatched in key order.
func (c *Client) Dispatch(ctx context.Context, req DispatchRequest) (DispatchSummary, error) {
	if req.Rounds < 0 {
		return DispatchSummary{}, errors.New("rounds must be >= 0")
	}
	if req.Rounds == 0 {
		req.Rounds = defaultRounds
	}
	if len(req.Genotypes) == 0 {
		return DispatchSummary{}, errors.New("dispatch requires at least one genotype")
	}
	genotypes := make([]model.Genotype, 0, len(req.Genotypes))
	for i, spec := range req.Genotypes {
		g, err := genotypeFromSpec(spec, fmt.Sprintf("g%d", i+1))
		if err != nil {
			return DispatchSummary{}, err
		}
		genotypes = append(genotypes, g)
	}

	// Selector cursors are per session, so every dispatch builds fresh engines.
	tb, err := catalog.Build(c.config)
	if err != nil {
		return DispatchSummary{}, err
	}
	kinds, err := resolveKinds(tb, req.Kinds)
	if err != nil {
		return DispatchSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return DispatchSummary{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := c.logger.With("session_id", sessionID)
	instrumented := metrics.NewInstrumented(tb)

	var records []model.DispatchRecord
	for round := 1; round <= req.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return DispatchSummary{}, err
		}
		for _, g := range genotypes {
			for _, kind := range kinds {
				records = dispatchInto(records, instrumented, logger, round, kind, g)
			}
		}
	}

	summary, err := instrumented.Summary()
	if err != nil {
		return DispatchSummary{}, err
	}

	session := model.SessionRecord{
		VersionedRecord: storage.Stamp(),
		ID:              sessionID,
		CreatedAtUTC:    time.Now().UTC().Format(createdAtLayout),
		Catalog:         c.catalogName,
		Rounds:          req.Rounds,
		Dispatches:      summary.Dispatches,
		Failures:        summary.Failures,
	}
	for _, kind := range kinds {
		session.Kinds = append(session.Kinds, string(kind))
	}
	if err := c.store.SaveSession(ctx, session); err != nil {
		return DispatchSummary{}, err
	}
	if err := c.store.SaveTrace(ctx, sessionID, records); err != nil {
		return DispatchSummary{}, err
	}
	logger.Info("dispatch session stored", "rounds", req.Rounds, "dispatches", summary.Dispatches, "failures", summary.Failures)

	return DispatchSummary{SessionID: sessionID, Records: records, Metrics: summary}, nil
}

func dispatchInto(records []model.DispatchRecord, d metrics.Dispatcher, logger *slog.Logger, round int, kind model.Kind, g model.Genotype) []model.DispatchRecord {
	record := model.DispatchRecord{
		VersionedRecord: storage.Stamp(),
		Round:           round,
		GenotypeID:      genotypeID(g),
		Variant:         string(g.Variant()),
		Kind:            string(kind),
	}
	op, err := d.Dispatch(kind, g)
	switch {
	case err != nil:
		record.Error = err.Error()
		logger.Debug("dispatch failed", "genotype", record.GenotypeID, "kind", kind, "error", err)
	case op == nil:
		record.NoOperator = true
	default:
		record.Operator = op.Name()
	}
	records = append(records, record)

	if composite, ok := g.(model.Composite); ok {
		for _, part := range composite.Parts() {
			records = dispatchInto(records, d, logger, round, kind, part)
		}
	}
	return records
}

func (c *Client) Sessions(ctx context.Context, req SessionsRequest) ([]model.SessionRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultListLimit
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	sessions, err := c.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(sessions) > req.Limit {
		sessions = sessions[:req.Limit]
	}
	return sessions, nil
}

func (c *Client) Trace(ctx context.Context, req TraceRequest) ([]model.DispatchRecord, error) {
	if req.SessionID != "" && req.Latest {
		return nil, errors.New("use either session id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	if req.Latest {
		sessions, err := c.store.ListSessions(ctx)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, errors.New("no sessions available")
		}
		sessionID = sessions[0].ID
	}
	if sessionID == "" {
		return nil, errors.New("trace requires session id or latest")
	}

	trace, ok, err := c.store.GetTrace(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("trace not found for session id: %s", sessionID)
	}
	if req.Limit > 0 && len(trace) > req.Limit {
		trace = trace[:req.Limit]
	}
	return trace, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func resolveKinds(tb *evo.Toolbox, names []string) ([]model.Kind, error) {
	if len(names) == 0 {
		return tb.Kinds(), nil
	}
	kinds := make([]model.Kind, 0, len(names))
	for _, name := range names {
		kind := model.Kind(strings.TrimSpace(name))
		if _, err := tb.Engine(kind); err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func genotypeFromSpec(spec GenotypeSpec, fallbackID string) (model.Genotype, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		id = fallbackID
	}
	variant := model.Variant(strings.TrimSpace(spec.Variant))
	if len(spec.Parts) > 0 && variant == "" {
		variant = model.VariantComposite
	}

	switch variant {
	case "":
		return nil, fmt.Errorf("genotype %s has no variant", id)
	case model.VariantComposite:
		composite := model.NewCompositeGenotype(id)
		for i, partSpec := range spec.Parts {
			part, err := genotypeFromSpec(partSpec, fmt.Sprintf("%s.%d", id, i+1))
			if err != nil {
				return nil, err
			}
			composite.Put(fmt.Sprintf("%03d", i), part)
		}
		return composite, nil
	case model.VariantNeural:
		return model.Genome{VersionedRecord: storage.Stamp(), ID: id}, nil
	default:
		if len(spec.Parts) > 0 {
			return nil, fmt.Errorf("genotype %s of variant %s cannot have parts", id, variant)
		}
		return model.Instance{ID: id, Of: variant}, nil
	}
}

func genotypeID(g model.Genotype) string {
	if ided, ok := g.(model.Identified); ok {
		return ided.GenotypeID()
	}
	return ""
}

// ParseGenotypes parses comma separated id:variant pairs. A bare variant
// gets a positional id.
func ParseGenotypes(raw string) ([]GenotypeSpec, error) {
	var out []GenotypeSpec
	for i, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		spec := GenotypeSpec{ID: fmt.Sprintf("g%d", i+1), Variant: field}
		if id, variant, ok := strings.Cut(field, ":"); ok {
			if strings.TrimSpace(id) == "" || strings.TrimSpace(variant) == "" {
				return nil, fmt.Errorf("invalid genotype %q", field)
			}
			spec = GenotypeSpec{ID: strings.TrimSpace(id), Variant: strings.TrimSpace(variant)}
		}
		out = append(out, spec)
	}
	if len(out) == 0 {
		return nil, errors.New("no genotypes given")
	}
	return out, nil
}
