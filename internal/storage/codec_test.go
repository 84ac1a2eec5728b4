package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"operon/internal/model"
)

func TestDecodeSessionFixture(t *testing.T) {
	data := readFixture(t, "session_v1.json")

	session, err := DecodeSession(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if session.ID != "session-minimal-1" {
		t.Fatalf("unexpected session id: %s", session.ID)
	}
	if !reflect.DeepEqual(session.Kinds, []string{"mutate", "crossover"}) {
		t.Fatalf("unexpected kinds: %v", session.Kinds)
	}
	if session.Dispatches != 4 || session.Failures != 1 {
		t.Fatalf("unexpected counters: %+v", session)
	}
}

func TestDecodeTraceFixture(t *testing.T) {
	trace, err := DecodeTrace(readFixture(t, "trace_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if len(trace) != 3 {
		t.Fatalf("expected 3 records, got %d", len(trace))
	}
	if trace[0].Operator != "swap" || !trace[1].NoOperator || trace[2].Error == "" {
		t.Fatalf("unexpected trace: %+v", trace)
	}
}

func TestSessionCodecRoundTrip(t *testing.T) {
	input := model.SessionRecord{
		VersionedRecord: Stamp(),
		ID:              "s1",
		CreatedAtUTC:    "2026-01-01T00:00:00Z",
		Catalog:         "catalog.yaml",
		Kinds:           []string{"mutate"},
		Rounds:          3,
		Dispatches:      9,
	}
	data, err := EncodeSession(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeSession(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", input, output)
	}
}

func TestTraceCodecRoundTripFixtureEquality(t *testing.T) {
	first, err := DecodeTrace(readFixture(t, "trace_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	data, err := EncodeTrace(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := DecodeTrace(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("round trip mismatch:\n in: %+v\nout: %+v", first, second)
	}
}

func TestDecodeSessionVersionMismatch(t *testing.T) {
	data, err := EncodeSession(model.SessionRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "s1",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeSession(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeTraceVersionMismatch(t *testing.T) {
	data, err := EncodeTrace([]model.DispatchRecord{
		{VersionedRecord: Stamp(), Round: 1},
		{VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: 0}, Round: 2},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeTrace(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestSortSessionsNewestFirst(t *testing.T) {
	sessions := []model.SessionRecord{
		{ID: "b", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{ID: "c", CreatedAtUTC: "2026-01-03T00:00:00Z"},
		{ID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"},
	}
	sortSessions(sessions)

	got := []string{sessions[0].ID, sessions[1].ID, sessions[2].ID}
	if !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}
