// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import "strings"

// Namespaces used by the claim graph.
const (
	RDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	OWL      = "http://www.w3.org/2002/07/owl#"
	SKOS     = "http://www.w3.org/2004/02/skos/core#"
	OBOInOWL = "http://www.geneontology.org/formats/oboInOwl#"
	OBO      = "http://purl.obolibrary.org/obo/"
	SEPIO    = OBO + "SEPIO_"
	ORCID    = "https://orcid.org/"
)

// Well-known IRIs.
const (
	RDFType           = RDF + "type"
	OWLAxiom          = OWL + "Axiom"
	AnnotatedSource   = OWL + "annotatedSource"
	AnnotatedProperty = OWL + "annotatedProperty"
	AnnotatedTarget   = OWL + "annotatedTarget"
	OBOSource         = OBOInOWL + "source"

	// HasEvidence is SEPIO:0000124 (has_evidence).
	HasEvidence = SEPIO + "0000124"
)

// PrefixMap maps CURIE prefixes to namespace IRIs.
type PrefixMap map[string]string

// DefaultPrefixes returns the prefixes known to every export.
func DefaultPrefixes() PrefixMap {
	return PrefixMap{
		"MONDO":    "http://purl.obolibrary.org/obo/MONDO_",
		"DOID":     "http://purl.obolibrary.org/obo/DOID_",
		"HP":       "http://purl.obolibrary.org/obo/HP_",
		"GO":       "http://purl.obolibrary.org/obo/GO_",
		"CHEBI":    "http://purl.obolibrary.org/obo/CHEBI_",
		"ECO":      "http://purl.obolibrary.org/obo/ECO_",
		"SEPIO":    SEPIO,
		"orcid":    ORCID,
		"PMID":     "https://pubmed.ncbi.nlm.nih.gov/",
		"rdf":      RDF,
		"rdfs":     RDFS,
		"owl":      OWL,
		"skos":     SKOS,
		"oboInOwl": OBOInOWL,
		"obo":      OBO,
	}
}

// With returns a copy of p with extra prefixes added or overridden.
func (p PrefixMap) With(extra map[string]string) PrefixMap {
	out := make(PrefixMap, len(p)+len(extra))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Expand turns a CURIE into an IRI. Values that are already IRIs, and
// CURIEs with an unknown prefix, are returned unchanged.
func (p PrefixMap) Expand(curie string) string {
	if strings.Contains(curie, "://") {
		return curie
	}
	prefix, local, ok := strings.Cut(curie, ":")
	if !ok {
		return curie
	}
	if ns, known := p[prefix]; known {
		return ns + local
	}
	return curie
}

// JSONLDContext returns a JSON-LD @context holding the prefixes that can
// form compact IRIs: those whose namespace ends in a gen-delim character.
// OBO-style namespaces such as ".../MONDO_" are left out and covered by
// "obo".
func (p PrefixMap) JSONLDContext() map[string]interface{} {
	ctx := make(map[string]interface{}, len(p))
	for prefix, ns := range p {
		if ns != "" && strings.ContainsRune(genDelims, rune(ns[len(ns)-1])) {
			ctx[prefix] = ns
		}
	}
	return ctx
}

// genDelims are the RFC 3986 gen-delim characters.
const genDelims = ":/?#[]@"
