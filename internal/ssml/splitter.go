package ssml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxFragmentWeight is the text budget of one fragment.
const DefaultMaxFragmentWeight = 7000

// DefaultWrapperElements are the elements whose scope is replayed at the
// start of every fragment.
var DefaultWrapperElements = []string{"speak", "voice", "express-as", "prosody"}

// ErrMalformed is matched by every MalformedError.
var ErrMalformed = errors.New("malformed markup")

// MalformedError reports markup that could not be tokenized or whose tags
// do not nest.
type MalformedError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := fmt.Sprintf("malformed markup at offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error { return e.Err }

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// SplitterConfig configures a Splitter.
type SplitterConfig struct {
	// MaxFragmentWeight caps the text characters per fragment. A single
	// element heavier than this is emitted alone.
	MaxFragmentWeight int
	// WrapperElements are matched by local name, case-insensitively.
	WrapperElements []string
}

// Splitter cuts an SSML document into smaller documents. Every fragment
// repeats the prolog and the wrapper elements open at the cut, so each one
// is a standalone document speaking with the same voice and prosody.
type Splitter struct {
	maxWeight int
	wrappers  map[string]bool
}

func NewSplitter(cfg SplitterConfig) *Splitter {
	if cfg.MaxFragmentWeight <= 0 {
		cfg.MaxFragmentWeight = DefaultMaxFragmentWeight
	}
	if len(cfg.WrapperElements) == 0 {
		cfg.WrapperElements = DefaultWrapperElements
	}
	wrappers := make(map[string]bool, len(cfg.WrapperElements))
	for _, name := range cfg.WrapperElements {
		wrappers[strings.ToLower(name)] = true
	}
	return &Splitter{maxWeight: cfg.MaxFragmentWeight, wrappers: wrappers}
}

func (s *Splitter) MaxFragmentWeight() int { return s.maxWeight }

type fragmentBuilder struct {
	prolog  []xml.Token // declaration and other instructions before the root
	open    []xml.StartElement
	buf     strings.Builder
	weight  int
	started bool
	out     []string
}

func (f *fragmentBuilder) begin() {
	f.buf.Reset()
	for _, tok := range f.prolog {
		writeToken(&f.buf, tok)
	}
	for _, se := range f.open {
		writeToken(&f.buf, se)
	}
	f.weight = 0
}

// cut closes the current fragment at the current nesting and starts the
// next one with the same context.
func (f *fragmentBuilder) cut() {
	for i := len(f.open) - 1; i >= 0; i-- {
		writeToken(&f.buf, f.open[i].End())
	}
	f.out = append(f.out, f.buf.String())
	f.begin()
}

// Split returns the fragments of markup in document order. Markup whose
// weight fits the budget comes back as a single fragment equal to the
// input.
func (s *Splitter) Split(markup string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = true

	f := &fragmentBuilder{}

	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedError{Offset: offset, Reason: "invalid token", Err: err}
		}
		tok = xml.CopyToken(tok)

		switch t := tok.(type) {
		case xml.ProcInst:
			if !f.started {
				f.prolog = append(f.prolog, t)
			}
			writeToken(&f.buf, t)

		case xml.StartElement:
			f.started = true
			if s.isWrapper(t.Name) {
				f.open = append(f.open, t)
				writeToken(&f.buf, t)
				continue
			}
			if len(f.open) == 0 {
				return nil, &MalformedError{Offset: offset, Reason: fmt.Sprintf("element <%s> outside document root", qualified(t.Name))}
			}
			leaf, weight, err := readElement(dec, t)
			if err != nil {
				return nil, err
			}
			s.addLeaf(f, leaf, weight)

		case xml.EndElement:
			if len(f.open) == 0 || !sameName(f.open[len(f.open)-1].Name, t.Name) {
				return nil, &MalformedError{Offset: offset, Reason: fmt.Sprintf("unexpected </%s>", qualified(t.Name))}
			}
			f.open = f.open[:len(f.open)-1]
			writeToken(&f.buf, t)

		case xml.CharData:
			if isBlank(t) {
				writeToken(&f.buf, t)
				continue
			}
			if len(f.open) == 0 {
				return nil, &MalformedError{Offset: offset, Reason: "text outside document root"}
			}
			weight := utf8.RuneCount(t)
			s.addLeaf(f, []xml.Token{t}, weight)

		default:
			writeToken(&f.buf, t)
		}
	}

	if len(f.open) > 0 {
		return nil, &MalformedError{Offset: dec.InputOffset(), Reason: fmt.Sprintf("unclosed <%s>", qualified(f.open[len(f.open)-1].Name))}
	}
	if !f.started {
		return nil, &MalformedError{Offset: dec.InputOffset(), Reason: "no root element"}
	}

	if len(f.out) == 0 {
		return []string{markup}, nil
	}
	f.out = append(f.out, f.buf.String())
	return f.out, nil
}

func (s *Splitter) addLeaf(f *fragmentBuilder, leaf []xml.Token, weight int) {
	if weight > 0 && f.weight > 0 && f.weight+weight > s.maxWeight {
		f.cut()
	}
	for _, tok := range leaf {
		writeToken(&f.buf, tok)
	}
	f.weight += weight
}

func (s *Splitter) isWrapper(name xml.Name) bool {
	return s.wrappers[strings.ToLower(name.Local)]
}

// readElement consumes tokens up to the end tag matching start and returns
// the element's tokens with the rune count of its text.
func readElement(dec *xml.Decoder, start xml.StartElement) ([]xml.Token, int, error) {
	tokens := []xml.Token{start}
	stack := []xml.Name{start.Name}
	weight := 0

	for len(stack) > 0 {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			return nil, 0, &MalformedError{Offset: offset, Reason: fmt.Sprintf("unclosed <%s>", qualified(stack[len(stack)-1]))}
		}
		if err != nil {
			return nil, 0, &MalformedError{Offset: offset, Reason: "invalid token", Err: err}
		}
		tok = xml.CopyToken(tok)

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
		case xml.EndElement:
			if !sameName(stack[len(stack)-1], t.Name) {
				return nil, 0, &MalformedError{Offset: offset, Reason: fmt.Sprintf("unexpected </%s>", qualified(t.Name))}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			weight += utf8.RuneCount(t)
		}
		tokens = append(tokens, tok)
	}
	return tokens, weight, nil
}

func sameName(a, b xml.Name) bool {
	return a.Space == b.Space && a.Local == b.Local
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func isBlank(b []byte) bool {
	for _, r := range string(b) {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// writeToken serializes a raw token. Prefixes are written as they appeared
// in the source, since raw tokens carry prefixes rather than namespace URIs.
func writeToken(b *strings.Builder, tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		b.WriteByte('<')
		b.WriteString(qualified(t.Name))
		for _, a := range t.Attr {
			b.WriteByte(' ')
			b.WriteString(qualified(a.Name))
			b.WriteString(`="`)
			b.WriteString(attrEscaper.Replace(a.Value))
			b.WriteByte('"')
		}
		b.WriteByte('>')
	case xml.EndElement:
		b.WriteString("</")
		b.WriteString(qualified(t.Name))
		b.WriteByte('>')
	case xml.CharData:
		b.WriteString(textEscaper.Replace(string(t)))
	case xml.Comment:
		b.WriteString("<!--")
		b.Write(t)
		b.WriteString("-->")
	case xml.ProcInst:
		b.WriteString("<?")
		b.WriteString(t.Target)
		if len(t.Inst) > 0 {
			b.WriteByte(' ')
			b.Write(t.Inst)
		}
		b.WriteString("?>")
	case xml.Directive:
		b.WriteString("<!")
		b.Write(t)
		b.WriteByte('>')
	}
}
