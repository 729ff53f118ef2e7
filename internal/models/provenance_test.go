package models

import (
	"testing"
)

// TestProvenanceSignature verifies the canonical encoding is order-independent
// and stable under duplicate insertion.
func TestProvenanceSignature(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		want    Signature
	}{
		{
			name:    "single source",
			sources: []string{"march_download.csv"},
			want:    "march_download.csv",
		},
		{
			name:    "two sources sorted",
			sources: []string{"march_download.csv", "june_download.csv"},
			want:    "june_download.csv+march_download.csv",
		},
		{
			name:    "insertion order ignored",
			sources: []string{"june_download.csv", "march_download.csv"},
			want:    "june_download.csv+march_download.csv",
		},
		{
			name:    "duplicates collapse",
			sources: []string{"a.csv", "a.csv", "b.csv"},
			want:    "a.csv+b.csv",
		},
		{
			name:    "empty set",
			sources: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvenance(tt.sources...)
			if got := p.Signature(); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProvenanceUnion(t *testing.T) {
	a := NewProvenance("fileA")
	b := NewProvenance("fileA", "fileB")

	merged := a.Union(b)
	if got := merged.Signature(); got != "fileA+fileB" {
		t.Errorf("Union signature = %q, want %q", got, "fileA+fileB")
	}

	// Union must not mutate its operands.
	if got := a.Signature(); got != "fileA" {
		t.Errorf("operand mutated: signature = %q, want %q", got, "fileA")
	}
}

func TestProvenanceContainsAll(t *testing.T) {
	tests := []struct {
		name  string
		super []string
		sub   []string
		want  bool
	}{
		{"superset", []string{"a", "b", "c"}, []string{"a", "c"}, true},
		{"equal sets", []string{"a", "b"}, []string{"b", "a"}, true},
		{"missing source", []string{"a", "b"}, []string{"a", "c"}, false},
		{"empty subset", []string{"a"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewProvenance(tt.super...).ContainsAll(NewProvenance(tt.sub...))
			if got != tt.want {
				t.Errorf("ContainsAll() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProvenanceEqual(t *testing.T) {
	a := NewProvenance("x", "y")
	b := NewProvenance("y", "x")
	c := NewProvenance("x")

	if !a.Equal(b) {
		t.Error("sets with same members should be equal regardless of order")
	}
	if a.Equal(c) {
		t.Error("sets of different size should not be equal")
	}
}
