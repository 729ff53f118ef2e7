package models

import (
	"sort"
	"strings"
)

// Signature is the canonical, order-independent encoding of a provenance set:
// the sorted source identifiers joined with "+". Two records carrying the same
// signature originated from the same combination of raw downloads, which is
// what identifies a single fixed-clock deployment period.
type Signature string

// Provenance is the set of raw source-file identifiers in which a record
// (or its duplicates from overlapping downloads) appeared.
type Provenance map[string]struct{}

// NewProvenance builds a provenance set from source identifiers.
func NewProvenance(sources ...string) Provenance {
	p := make(Provenance, len(sources))
	for _, s := range sources {
		p[s] = struct{}{}
	}
	return p
}

// Add inserts a source identifier into the set.
func (p Provenance) Add(source string) {
	p[source] = struct{}{}
}

// Union returns a new set containing the sources of both operands.
func (p Provenance) Union(other Provenance) Provenance {
	merged := make(Provenance, len(p)+len(other))
	for s := range p {
		merged[s] = struct{}{}
	}
	for s := range other {
		merged[s] = struct{}{}
	}
	return merged
}

// ContainsAll reports whether every source in other is also in p.
func (p Provenance) ContainsAll(other Provenance) bool {
	for s := range other {
		if _, ok := p[s]; !ok {
			return false
		}
	}
	return true
}

// Overlaps reports whether the two sets share at least one source.
func (p Provenance) Overlaps(other Provenance) bool {
	for s := range other {
		if _, ok := p[s]; ok {
			return true
		}
	}
	return false
}

// Sources returns the source identifiers in sorted order.
func (p Provenance) Sources() []string {
	out := make([]string, 0, len(p))
	for s := range p {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Signature returns the canonical encoding of the set. Incidental insertion
// order never affects the result.
func (p Provenance) Signature() Signature {
	return Signature(strings.Join(p.Sources(), "+"))
}

// Equal reports set equality.
func (p Provenance) Equal(other Provenance) bool {
	return len(p) == len(other) && p.ContainsAll(other)
}
