// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knakk/rdf"

	"github.com/pdiddy/sieve/internal/store"
	"github.com/pdiddy/sieve/pkg/types"
)

// Graph is an ordered list of triples. Encoders write statements in
// insertion order.
type Graph struct {
	Triples []rdf.Triple
}

// Add appends a triple.
func (g *Graph) Add(s rdf.Subject, p rdf.Predicate, o rdf.Object) {
	g.Triples = append(g.Triples, rdf.Triple{Subj: s, Pred: p, Obj: o})
}

// Has reports whether g contains the triple.
func (g Graph) Has(s, p, o rdf.Term) bool {
	want := [3]string{nt(s), nt(p), nt(o)}
	for _, t := range g.Triples {
		if [3]string{nt(t.Subj), nt(t.Pred), nt(t.Obj)} == want {
			return true
		}
	}
	return false
}

// Len returns the number of triples.
func (g Graph) Len() int { return len(g.Triples) }

// Canonical returns the graph as sorted, de-duplicated N-Triples lines
// with blank nodes relabeled by the statements they take part in. Parsers
// rename blank nodes freely, so two graphs with equal Canonical output
// hold the same statements.
func (g Graph) Canonical() []string {
	sigs := make(map[string][]string)
	for _, t := range g.Triples {
		if isBlank(t.Subj) {
			sigs[nt(t.Subj)] = append(sigs[nt(t.Subj)], "> "+nt(t.Pred)+" "+anon(t.Obj))
		}
		if isBlank(t.Obj) {
			sigs[nt(t.Obj)] = append(sigs[nt(t.Obj)], "< "+anon(t.Subj)+" "+nt(t.Pred))
		}
	}
	blanks := make([]string, 0, len(sigs))
	joined := make(map[string]string, len(sigs))
	for b, s := range sigs {
		sort.Strings(s)
		joined[b] = strings.Join(s, "\n")
		blanks = append(blanks, b)
	}
	sort.Slice(blanks, func(i, j int) bool {
		if joined[blanks[i]] != joined[blanks[j]] {
			return joined[blanks[i]] < joined[blanks[j]]
		}
		return blanks[i] < blanks[j]
	})
	relabel := make(map[string]string, len(blanks))
	for i, b := range blanks {
		relabel[b] = fmt.Sprintf("_:c%d", i+1)
	}
	label := func(t rdf.Term) string {
		if l, ok := relabel[nt(t)]; ok && isBlank(t) {
			return l
		}
		return nt(t)
	}

	seen := make(map[string]bool, len(g.Triples))
	var lines []string
	for _, t := range g.Triples {
		line := label(t.Subj) + " " + nt(t.Pred) + " " + label(t.Obj) + " ."
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func nt(t rdf.Term) string { return t.Serialize(rdf.NTriples) }

func isBlank(t rdf.Term) bool { return t.Type() == rdf.TermBlank }

// anon hides blank node labels inside a signature.
func anon(t rdf.Term) string {
	if isBlank(t) {
		return "_:"
	}
	return nt(t)
}

// Options controls how a claim graph is built.
type Options struct {
	// Provenance wraps each assertion in an owl:Axiom carrying curator
	// and evidence annotations instead of emitting the bare triple.
	Provenance bool

	// Prefixes expands CURIEs to IRIs. Nil means DefaultPrefixes.
	Prefixes PrefixMap
}

// Build turns accepted records into a claim graph.
//
// With provenance each record becomes exactly one owl:Axiom blank node
// annotating subject, predicate and object, with oboInOwl:source pointing
// at the deciding curator's ORCID IRI and SEPIO:0000124 (has_evidence) at
// the record id. The bare triple is not asserted. Without provenance each
// record contributes only its bare triple.
//
// Build fails when an identifier does not form a valid IRI.
func Build(records []store.ListedRecord, opts Options) (Graph, error) {
	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = DefaultPrefixes()
	}

	sorted := make([]store.ListedRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Record.ID < sorted[j].Record.ID })

	var g Graph
	for i, lr := range sorted {
		a := lr.Record.Assertion
		s, err := iri(prefixes.Expand(a.SubjectID))
		if err != nil {
			return Graph{}, fmt.Errorf("record %s subject: %w", lr.Record.ID, err)
		}
		p, err := iri(prefixes.Expand(a.Predicate))
		if err != nil {
			return Graph{}, fmt.Errorf("record %s predicate: %w", lr.Record.ID, err)
		}
		o, err := iri(prefixes.Expand(a.ObjectID))
		if err != nil {
			return Graph{}, fmt.Errorf("record %s object: %w", lr.Record.ID, err)
		}

		if !opts.Provenance {
			g.Add(s, p, o)
			continue
		}

		axiom, err := rdf.NewBlank(fmt.Sprintf("axiom%d", i+1))
		if err != nil {
			return Graph{}, err
		}
		g.Add(axiom, mustIRI(RDFType), mustIRI(OWLAxiom))
		g.Add(axiom, mustIRI(AnnotatedSource), s)
		g.Add(axiom, mustIRI(AnnotatedProperty), p)
		g.Add(axiom, mustIRI(AnnotatedTarget), o)
		if curator := curatorOf(lr); curator != "" {
			c, err := iri(ORCID + types.NormalizeORCID(curator))
			if err != nil {
				return Graph{}, fmt.Errorf("record %s curator: %w", lr.Record.ID, err)
			}
			g.Add(axiom, mustIRI(OBOSource), c)
		}
		if lr.Record.ID != "" {
			ev, err := iri(prefixes.Expand(lr.Record.ID))
			if err != nil {
				return Graph{}, fmt.Errorf("record id %q: %w", lr.Record.ID, err)
			}
			g.Add(axiom, mustIRI(HasEvidence), ev)
		}
	}
	return g, nil
}

func iri(s string) (rdf.IRI, error) {
	v, err := rdf.NewIRI(s)
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("invalid IRI %q: %w", s, err)
	}
	return v, nil
}

// mustIRI is for the vocabulary constants in this package.
func mustIRI(s string) rdf.IRI {
	v, err := rdf.NewIRI(s)
	if err != nil {
		panic(err)
	}
	return v
}

// curatorOf returns the ORCID of the latest decision, falling back to the
// record's steward.
func curatorOf(lr store.ListedRecord) string {
	if lr.Latest != nil && strings.TrimSpace(lr.Latest.CuratorORCID) != "" {
		return lr.Latest.CuratorORCID
	}
	return lr.Record.EvidenceSteward
}
