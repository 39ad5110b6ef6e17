// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/knakk/rdf"
)

// WriteTurtle writes g as Turtle.
func WriteTurtle(w io.Writer, g Graph) error {
	return encode(w, g, rdf.Turtle)
}

// WriteNTriples writes g as N-Triples, one statement per line.
func WriteNTriples(w io.Writer, g Graph) error {
	return encode(w, g, rdf.NTriples)
}

// ReadTurtle parses a Turtle document.
func ReadTurtle(r io.Reader) (Graph, error) {
	return decode(r, rdf.Turtle)
}

// ReadNTriples parses an N-Triples document.
func ReadNTriples(r io.Reader) (Graph, error) {
	return decode(r, rdf.NTriples)
}

func encode(w io.Writer, g Graph, f rdf.Format) error {
	enc := rdf.NewTripleEncoder(w, f)
	for _, t := range g.Triples {
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return enc.Close()
}

func decode(r io.Reader, f rdf.Format) (Graph, error) {
	dec := rdf.NewTripleDecoder(r, f)
	var g Graph
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return g, nil
		}
		if err != nil {
			return Graph{}, fmt.Errorf("after %d statements: %w", len(g.Triples), err)
		}
		g.Triples = append(g.Triples, t)
	}
}
