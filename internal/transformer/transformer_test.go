package transformer

import (
	"strings"
	"testing"

	"bqstream/internal/config"
	"bqstream/internal/schema"
	"bqstream/pkg/records"
)

type appendTag string

func (a appendTag) Apply(in []records.Row) []records.Row {
	for _, r := range in {
		r.Fields["trace"] = r.Fields.String("trace") + string(a)
	}
	return in
}

func TestChain_AppliesInOrder(t *testing.T) {
	t.Parallel()

	rows := []records.Row{{Line: 2, Fields: records.Record{}}}
	out := Chain{appendTag("a"), appendTag("b"), appendTag("c")}.Apply(rows)
	if got := out[0].Fields["trace"]; got != "abc" {
		t.Fatalf("trace = %v, want abc", got)
	}
}

func TestBuild_DefaultChain(t *testing.T) {
	t.Parallel()

	chain, err := Build(nil, schema.Titles)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(chain) != len(DefaultKinds) {
		t.Fatalf("len(chain) = %d", len(chain))
	}

	rows := []records.Row{{Line: 2, Fields: records.Record{
		"show_id":           "s1",
		"title":             " Dick Johnson Is Dead ",
		"release_year":      "2020",
		"tmdb_vote_average": "7.1",
		"budget":            nil,
		"unexpected":        "dropped",
	}}}
	out := chain.Apply(rows)
	f := out[0].Fields

	if len(f) != len(schema.Titles) {
		t.Fatalf("len(fields) = %d, want %d", len(f), len(schema.Titles))
	}
	if f["title"] != " Dick Johnson Is Dead " {
		t.Fatalf("title = %#v", f["title"])
	}
	if f["release_year"] != int64(2020) || f["tmdb_vote_average"] != 7.1 {
		t.Fatalf("coercion failed: %#v", f)
	}
	if f["budget"] != nil || f["director"] != nil {
		t.Fatalf("nulls lost: %#v", f)
	}
}

func TestBuild_UnknownKind(t *testing.T) {
	t.Parallel()

	_, err := Build([]config.Transform{{Kind: "normalize"}, {Kind: "dedupe"}}, schema.Titles)
	if err == nil || !strings.Contains(err.Error(), "transform[1]") {
		t.Fatalf("Build() error = %v", err)
	}
}
