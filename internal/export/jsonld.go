// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/piprate/json-gold/ld"
)

const nquads = "application/n-quads"

// WriteJSONLD writes g as compacted JSON-LD. The @context only declares
// prefixes whose namespace ends in a gen-delim character, which JSON-LD
// processors accept for compact IRIs. Other namespaces stay expanded.
func WriteJSONLD(w io.Writer, g Graph, prefixes PrefixMap) error {
	if prefixes == nil {
		prefixes = DefaultPrefixes()
	}
	var buf bytes.Buffer
	if err := WriteNTriples(&buf, g); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = nquads
	expanded, err := proc.FromRDF(buf.String(), opts)
	if err != nil {
		return fmt.Errorf("converting to JSON-LD: %w", err)
	}

	doc, err := proc.Compact(expanded, map[string]interface{}{"@context": prefixes.JSONLDContext()}, ld.NewJsonLdOptions(""))
	if err != nil {
		return fmt.Errorf("compacting JSON-LD: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSONLD parses a JSON-LD document into triples.
func ReadJSONLD(r io.Reader) (Graph, error) {
	var doc interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Graph{}, fmt.Errorf("decoding JSON-LD: %w", err)
	}

	opts := ld.NewJsonLdOptions("")
	opts.Format = nquads
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, opts)
	if err != nil {
		return Graph{}, fmt.Errorf("converting JSON-LD to RDF: %w", err)
	}
	quads, ok := out.(string)
	if !ok {
		return Graph{}, fmt.Errorf("unexpected JSON-LD output %T", out)
	}
	return ReadNTriples(strings.NewReader(quads))
}
