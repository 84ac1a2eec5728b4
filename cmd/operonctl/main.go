package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"operon/internal/storage"
	"operon/pkg/operon"
)

const defaultDBPath = "operon.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "validate":
		return runValidate(ctx, args[1:])
	case "operators":
		return runOperators(ctx, args[1:])
	case "dispatch":
		return runDispatch(ctx, args[1:])
	case "sessions":
		return runSessions(ctx, args[1:])
	case "trace":
		return runTrace(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are shared by every subcommand.
type clientFlags struct {
	catalog   *string
	storeKind *string
	dbPath    *string
	logLevel  *string
	jsonOut   *bool
}

func bindClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		catalog:   fs.String("catalog", "", "operator catalog (.yaml|.yml|.toml|.json); built-in catalog when empty"),
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
		logLevel:  fs.String("log-level", "warn", "log level: debug|info|warn|error"),
		jsonOut:   fs.Bool("json", false, "emit JSON"),
	}
}

func (f clientFlags) client() (*operon.Client, error) {
	logger, err := newLogger(*f.logLevel)
	if err != nil {
		return nil, err
	}
	return operon.New(operon.Options{
		StoreKind: *f.storeKind,
		DBPath:    *f.dbPath,
		Catalog:   *f.catalog,
		Logger:    logger,
	})
}

func runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	common := bindClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Validate(ctx)
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return writeJSON(summary)
	}
	fmt.Printf("catalog=%s kinds=%s variants=%s operators=%s\n",
		summary.Catalog,
		strings.Join(summary.Kinds, ","),
		count(len(summary.Variants)),
		count(summary.Operators),
	)
	return nil
}

func runOperators(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("operators", flag.ContinueOnError)
	common := bindClientFlags(fs)
	kind := fs.String("kind", "", "only list operators of this kind")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Operators(ctx)
	if err != nil {
		return err
	}
	if *kind != "" {
		filtered := items[:0]
		for _, item := range items {
			if item.Kind == *kind {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	if *common.jsonOut {
		return writeJSONList(items)
	}
	if len(items) == 0 {
		fmt.Println("no operators found")
		return nil
	}
	for _, item := range items {
		target := item.Target
		if target == "" {
			target = "n/a"
		}
		fmt.Printf("kind=%s name=%s target=%s\n", item.Kind, item.Name, target)
	}
	return nil
}

func runDispatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	common := bindClientFlags(fs)
	sessionID := fs.String("session-id", "", "session id; generated when empty")
	kinds := fs.String("kinds", "", "comma separated operator kinds; every catalog kind when empty")
	genotypes := fs.String("genotypes", "", "comma separated id:variant genotypes")
	genotypesFile := fs.String("genotypes-file", "", "YAML or JSON list of genotypes, parts make a composite")
	rounds := fs.Int("rounds", 1, "dispatch rounds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *genotypes != "" && *genotypesFile != "" {
		return errors.New("use either --genotypes or --genotypes-file, not both")
	}
	if *rounds <= 0 {
		return errors.New("rounds must be > 0")
	}

	var specs []operon.GenotypeSpec
	var err error
	switch {
	case *genotypesFile != "":
		specs, err = loadGenotypes(*genotypesFile)
	case *genotypes != "":
		specs, err = operon.ParseGenotypes(*genotypes)
	default:
		return errors.New("dispatch requires --genotypes or --genotypes-file")
	}
	if err != nil {
		return err
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Dispatch(ctx, operon.DispatchRequest{
		SessionID: *sessionID,
		Kinds:     splitList(*kinds),
		Genotypes: specs,
		Rounds:    *rounds,
	})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return writeJSON(summary)
	}

	for _, rec := range summary.Records {
		fmt.Printf("round=%d genotype_id=%s variant=%s kind=%s %s\n", rec.Round, rec.GenotypeID, rec.Variant, rec.Kind, outcome(rec.Operator, rec.NoOperator, rec.Error))
	}
	fmt.Printf("session_id=%s dispatches=%s no_operator=%s failures=%s\n",
		summary.SessionID,
		count(summary.Metrics.Dispatches),
		count(summary.Metrics.NoOperator),
		count(summary.Metrics.Failures),
	)
	return nil
}

func runSessions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	common := bindClientFlags(fs)
	limit := fs.Int("limit", 20, "max sessions to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	sessions, err := client.Sessions(ctx, operon.SessionsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return writeJSONList(sessions)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions found")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("session_id=%s created=%s catalog=%s kinds=%s rounds=%d dispatches=%s failures=%s\n",
			s.ID,
			createdAt(s.CreatedAtUTC),
			s.Catalog,
			strings.Join(s.Kinds, ","),
			s.Rounds,
			count(s.Dispatches),
			count(s.Failures),
		)
	}
	return nil
}

func runTrace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	common := bindClientFlags(fs)
	sessionID := fs.String("session-id", "", "session id")
	latest := fs.Bool("latest", false, "show the trace of the most recent session")
	limit := fs.Int("limit", 50, "max trace rows to print (<=0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID != "" && *latest {
		return errors.New("use either --session-id or --latest, not both")
	}
	if *sessionID == "" && !*latest {
		return errors.New("trace requires --session-id or --latest")
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	trace, err := client.Trace(ctx, operon.TraceRequest{SessionID: *sessionID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *common.jsonOut {
		return writeJSONList(trace)
	}
	if len(trace) == 0 {
		fmt.Println("no trace records")
		return nil
	}
	for _, rec := range trace {
		fmt.Printf("round=%d genotype_id=%s variant=%s kind=%s %s\n", rec.Round, rec.GenotypeID, rec.Variant, rec.Kind, outcome(rec.Operator, rec.NoOperator, rec.Error))
	}
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: operonctl <validate|operators|dispatch|sessions|trace> [flags]", msg)
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func loadGenotypes(path string) ([]operon.GenotypeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var specs []operon.GenotypeSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("decode genotypes %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no genotypes in %s", path)
	}
	return specs, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONList encodes a nil slice as [] rather than null.
func writeJSONList[T any](items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeJSON(items)
}

func splitList(raw string) []string {
	var out []string
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, field)
		}
	}
	return out
}

func outcome(operator string, noOperator bool, errMsg string) string {
	switch {
	case errMsg != "":
		return fmt.Sprintf("error=%q", errMsg)
	case noOperator:
		return "operator=none"
	default:
		return "operator=" + operator
	}
}

// interactive reports whether stdout is a terminal; counts and timestamps
// are humanized only then so piped output stays stable.
func interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func count(n int) string {
	if interactive() {
		return humanize.Comma(int64(n))
	}
	return fmt.Sprintf("%d", n)
}

func createdAt(raw string) string {
	if !interactive() {
		return raw
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return humanize.Time(t)
}
