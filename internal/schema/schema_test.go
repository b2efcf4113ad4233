package schema

import (
	"strings"
	"testing"
)

func TestTitles_Layout(t *testing.T) {
	t.Parallel()

	if err := Titles.Validate(); err != nil {
		t.Fatalf("Titles.Validate() = %v", err)
	}
	if len(Titles) != 19 {
		t.Fatalf("len(Titles) = %d, want 19", len(Titles))
	}

	names := Titles.Names()
	if names[0] != "show_id" || names[2] != TitleField || names[18] != "primary_genre" {
		t.Fatalf("unexpected column order: %v", names)
	}

	want := map[string]FieldType{
		"release_year":      Integer,
		"tmdb_vote_average": Float,
		"tmdb_vote_count":   Integer,
		"budget":            Integer,
		"revenue":           Integer,
		"popularity":        Float,
		"cast":              String,
	}
	for name, typ := range want {
		f, ok := Titles.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) not found", name)
		}
		if f.Type != typ {
			t.Fatalf("%s type = %s, want %s", name, f.Type, typ)
		}
	}
}

func TestParseFieldType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    FieldType
		wantErr bool
	}{
		{in: "string", want: String},
		{in: " INTEGER ", want: Integer},
		{in: "int64", want: Integer},
		{in: "Float64", want: Float},
		{in: "BOOLEAN", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFieldType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFieldType(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseFieldType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    Schema
		msg  string
	}{
		{name: "empty", s: nil, msg: "no fields"},
		{name: "blank name", s: Schema{{Name: " ", Type: String}}, msg: "empty name"},
		{name: "duplicate", s: Schema{{Name: "a", Type: String}, {Name: "a", Type: Integer}}, msg: "duplicate"},
		{name: "bad type", s: Schema{{Name: "a", Type: "DATE"}}, msg: "unknown field type"},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if err == nil || !strings.Contains(err.Error(), tt.msg) {
			t.Fatalf("%s: Validate() = %v, want error containing %q", tt.name, err, tt.msg)
		}
	}
}
