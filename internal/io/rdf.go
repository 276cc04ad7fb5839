package io

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/aidan-bailey/nemo/internal/datavalues"
	"github.com/aidan-bailey/nemo/internal/execution"
	"github.com/aidan-bailey/nemo/internal/logging"
)

// RdfVariant selects an RDF serialization.
type RdfVariant string

const (
	RdfNTriples RdfVariant = "ntriples"
	RdfTurtle   RdfVariant = "turtle"
	RdfXML      RdfVariant = "rdfxml"
	RdfNQuads   RdfVariant = "nquads"
	RdfTriG     RdfVariant = "trig"
)

// ParseRdfVariant validates a variant name. NQuads and TriG are known but
// unsupported; requesting them fails at plan time for clear diagnostics.
func ParseRdfVariant(s string) (RdfVariant, error) {
	switch RdfVariant(s) {
	case RdfNTriples, RdfTurtle, RdfXML:
		return RdfVariant(s), nil
	case RdfNQuads, RdfTriG:
		return "", fmt.Errorf("%w: RDF variant %s is not supported for export", execution.ErrPlan, s)
	}
	return "", fmt.Errorf("%w: unknown RDF variant %q", execution.ErrPlan, s)
}

// NTriplesReader parses line-based N-Triples into triple tuples.
type NTriplesReader struct {
	log *logging.Logger
}

// NewNTriplesReader creates a reader.
func NewNTriplesReader() *NTriplesReader {
	return &NTriplesReader{log: logging.Get(logging.CategoryIO)}
}

// Read parses every statement line; malformed lines reject the tuple.
func (r *NTriplesReader) Read(input io.Reader, writer execution.RowSink) (int, error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	total := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		total++
		terms, ok := parseTripleLine(line)
		if !ok {
			writer.EndTuple()
			r.log.Debug("triple rejected", "line", line)
			continue
		}
		for i, term := range terms {
			writer.Accept(i, term)
		}
		writer.EndTuple()
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	return total, nil
}

// parseTripleLine splits one `subject predicate object .` statement.
func parseTripleLine(line string) ([3]datavalues.DataValue, bool) {
	var terms [3]datavalues.DataValue
	rest := line
	for i := 0; i < 3; i++ {
		rest = strings.TrimLeft(rest, " \t")
		value, remainder, ok := parseTerm(rest)
		if !ok {
			return terms, false
		}
		terms[i] = value
		rest = remainder
	}
	rest = strings.TrimSpace(rest)
	if rest != "." {
		return terms, false
	}
	return terms, true
}

func parseTerm(s string) (datavalues.DataValue, string, bool) {
	switch {
	case strings.HasPrefix(s, "<"):
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return datavalues.DataValue{}, "", false
		}
		return datavalues.IRI(s[1:end]), s[end+1:], true
	case strings.HasPrefix(s, "_:"):
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			return datavalues.DataValue{}, "", false
		}
		// Blank node labels become IRIs in a reserved scheme; the
		// engine's own nulls never collide with them.
		return datavalues.IRI("_:" + s[2:end]), s[end:], true
	case strings.HasPrefix(s, "\""):
		lexical, rest, ok := parseQuoted(s)
		if !ok {
			return datavalues.DataValue{}, "", false
		}
		switch {
		case strings.HasPrefix(rest, "@"):
			end := strings.IndexAny(rest, " \t")
			if end < 0 {
				return datavalues.DataValue{}, "", false
			}
			return datavalues.LangString(lexical, rest[1:end]), rest[end:], true
		case strings.HasPrefix(rest, "^^<"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return datavalues.DataValue{}, "", false
			}
			datatype := rest[3:end]
			return typedLiteralValue(lexical, datatype), rest[end+1:], true
		default:
			return datavalues.String(lexical), rest, true
		}
	}
	return datavalues.DataValue{}, "", false
}

func parseQuoted(s string) (string, string, bool) {
	var sb strings.Builder
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if escaped {
			switch c {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			return sb.String(), s[i+1:], true
		default:
			sb.WriteByte(c)
		}
	}
	return "", "", false
}

// typedLiteralValue maps numeric XSD datatypes onto native values and
// keeps everything else as a typed literal.
func typedLiteralValue(lexical, datatype string) datavalues.DataValue {
	switch datatype {
	case datavalues.XSDInt, datavalues.XSDLong,
		"http://www.w3.org/2001/XMLSchema#integer":
		if v, ok := coerce(lexical, FormatInteger); ok {
			return v
		}
	case datavalues.XSDDouble, "http://www.w3.org/2001/XMLSchema#decimal":
		if v, ok := coerce(lexical, FormatDouble); ok {
			return v
		}
	case datavalues.XSDString:
		return datavalues.String(lexical)
	}
	return datavalues.TypedLiteral(lexical, datatype)
}

// rdfTerm renders one value in Turtle/N-Triples syntax.
func rdfTerm(v datavalues.DataValue) string {
	switch v.Kind() {
	case datavalues.KindIRI:
		iri := v.LexicalValue()
		if strings.HasPrefix(iri, "_:") {
			return iri
		}
		return "<" + iri + ">"
	case datavalues.KindNull:
		return v.LexicalValue()
	default:
		return v.Canonical()
	}
}

// RdfWriter renders triple-arity predicates in an RDF serialization.
type RdfWriter struct {
	Variant RdfVariant
}

// NewRdfWriter creates a writer for a supported variant.
func NewRdfWriter(variant RdfVariant) (*RdfWriter, error) {
	parsed, err := ParseRdfVariant(string(variant))
	if err != nil {
		return nil, err
	}
	return &RdfWriter{Variant: parsed}, nil
}

// Write drains the iterator; rows must have exactly three columns.
func (w *RdfWriter) Write(out io.Writer, rows *execution.RowIterator) error {
	switch w.Variant {
	case RdfNTriples:
		return w.writeNTriples(out, rows)
	case RdfTurtle:
		return w.writeTurtle(out, rows)
	case RdfXML:
		return w.writeXML(out, rows)
	}
	return fmt.Errorf("%w: RDF variant %s is not supported for export", execution.ErrPlan, w.Variant)
}

func checkTriple(row []datavalues.DataValue) error {
	if len(row) != 3 {
		return fmt.Errorf("%w: RDF export requires triple-arity predicates, got %d columns", execution.ErrPlan, len(row))
	}
	return nil
}

func (w *RdfWriter) writeNTriples(out io.Writer, rows *execution.RowIterator) error {
	for {
		row, ok, err := rows.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := checkTriple(row); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s %s %s .\n", rdfTerm(row[0]), rdfTerm(row[1]), rdfTerm(row[2])); err != nil {
			return fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
	}
}

// writeTurtle groups consecutive rows by subject, which the trie's lex
// order makes maximal runs.
func (w *RdfWriter) writeTurtle(out io.Writer, rows *execution.RowIterator) error {
	var subject string
	first := true
	for {
		row, ok, err := rows.Next()
		if err != nil {
			return err
		}
		if !ok {
			if !first {
				if _, err := fmt.Fprintln(out, " ."); err != nil {
					return fmt.Errorf("%w: %v", execution.ErrReading, err)
				}
			}
			return nil
		}
		if err := checkTriple(row); err != nil {
			return err
		}
		s := rdfTerm(row[0])
		if s != subject {
			if !first {
				if _, err := fmt.Fprintln(out, " ."); err != nil {
					return fmt.Errorf("%w: %v", execution.ErrReading, err)
				}
			}
			if _, err := fmt.Fprintf(out, "%s %s %s", s, rdfTerm(row[1]), rdfTerm(row[2])); err != nil {
				return fmt.Errorf("%w: %v", execution.ErrReading, err)
			}
			subject = s
			first = false
			continue
		}
		if _, err := fmt.Fprintf(out, " ;\n\t%s %s", rdfTerm(row[1]), rdfTerm(row[2])); err != nil {
			return fmt.Errorf("%w: %v", execution.ErrReading, err)
		}
	}
}

type xmlDescription struct {
	XMLName    xml.Name `xml:"rdf:Description"`
	About      string   `xml:"rdf:about,attr"`
	Properties []xmlProperty
}

type xmlProperty struct {
	XMLName  xml.Name
	Resource string `xml:"rdf:resource,attr,omitempty"`
	Datatype string `xml:"rdf:datatype,attr,omitempty"`
	Lang     string `xml:"xml:lang,attr,omitempty"`
	Value    string `xml:",chardata"`
}

func (w *RdfWriter) writeXML(out io.Writer, rows *execution.RowIterator) error {
	if _, err := fmt.Fprintln(out, `<?xml version="1.0" encoding="UTF-8"?>`); err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	if _, err := fmt.Fprintln(out, `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`); err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	encoder := xml.NewEncoder(out)
	encoder.Indent("  ", "  ")

	flush := func(desc *xmlDescription) error {
		if desc == nil {
			return nil
		}
		return encoder.Encode(desc)
	}

	var current *xmlDescription
	for {
		row, ok, err := rows.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := checkTriple(row); err != nil {
			return err
		}
		subject := row[0].LexicalValue()
		if current == nil || current.About != subject {
			if err := flush(current); err != nil {
				return fmt.Errorf("%w: %v", execution.ErrReading, err)
			}
			current = &xmlDescription{About: subject}
		}
		prop := xmlProperty{XMLName: xml.Name{Local: row[1].LexicalValue()}}
		object := row[2]
		switch object.Kind() {
		case datavalues.KindIRI:
			prop.Resource = object.LexicalValue()
		case datavalues.KindLangString:
			prop.Value = object.LexicalValue()
			prop.Lang = object.LanguageTag()
		default:
			prop.Value = object.LexicalValue()
			if dt := object.DatatypeIRI(); dt != "" && dt != datavalues.XSDString {
				prop.Datatype = dt
			}
		}
		current.Properties = append(current.Properties, prop)
	}
	if err := flush(current); err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	_, err := fmt.Fprintln(out, "\n</rdf:RDF>")
	if err != nil {
		return fmt.Errorf("%w: %v", execution.ErrReading, err)
	}
	return nil
}
