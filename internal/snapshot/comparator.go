package snapshot

import "snaptool/internal/format"

// Comparator decides whether a candidate snapshot matches the accepted
// reference. Matches is the primary check and may be deliberately lossy
// (for example whitespace-insensitive); MatchesFully is the strict form
// consulted only when a full match is required.
type Comparator interface {
	Matches(ref, got *Snapshot) bool
	MatchesFully(ref, got *Snapshot) bool
}

// DefaultComparator compares contents exactly, modulo the trailing
// whitespace normalization text snapshots always get.
type DefaultComparator struct{}

func (DefaultComparator) Matches(ref, got *Snapshot) bool {
	return ref.ContentsMatch(got)
}

func (DefaultComparator) MatchesFully(ref, got *Snapshot) bool {
	return ref.ContentsMatchFully(got)
}

// StructuralComparator parses both snapshot bodies back into the value
// model and compares the trees, so layout-only differences such as
// indentation or key quoting never fail an assertion. Bodies that are not
// text or do not parse in the given format fall back to the text
// comparison.
type StructuralComparator struct {
	Format format.Format
}

func (c StructuralComparator) Matches(ref, got *Snapshot) bool {
	refText, refOK := ref.Text()
	gotText, gotOK := got.Text()
	if !refOK || !gotOK {
		return DefaultComparator{}.Matches(ref, got)
	}
	refContent, supported, err := format.Parse(refText, c.Format)
	if !supported || err != nil {
		return DefaultComparator{}.Matches(ref, got)
	}
	gotContent, supported, err := format.Parse(gotText, c.Format)
	if !supported || err != nil {
		return DefaultComparator{}.Matches(ref, got)
	}
	return refContent.Equal(gotContent)
}

// MatchesFully stays byte-level: a full match is about the stored text,
// not the parsed structure.
func (c StructuralComparator) MatchesFully(ref, got *Snapshot) bool {
	return DefaultComparator{}.MatchesFully(ref, got)
}
