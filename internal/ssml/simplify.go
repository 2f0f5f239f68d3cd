package ssml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// msttsPrefix marks Microsoft extension elements.
const msttsPrefix = "mstts"

// SimplifyOptions selects the rewrites Simplify applies.
type SimplifyOptions struct {
	// StripElements are removed by local name while their content is kept.
	// Elements in the mstts namespace are always stripped.
	StripElements []string
	// DropDeclaration removes the XML declaration and other processing
	// instructions.
	DropDeclaration bool
	// BareRootAttributes removes every attribute from the root element.
	BareRootAttributes bool
}

// Simplify rewrites markup into the core SSML subset understood by engines
// without Microsoft extensions.
func Simplify(markup string, opts SimplifyOptions) (string, error) {
	strip := make(map[string]bool, len(opts.StripElements))
	for _, name := range opts.StripElements {
		strip[strings.ToLower(name)] = true
	}

	dec := xml.NewDecoder(strings.NewReader(markup))
	type openElement struct {
		name xml.Name
		skip bool
	}
	var (
		b      strings.Builder
		open   []openElement
		rooted bool
	)
	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &MalformedError{Offset: offset, Reason: "invalid token", Err: err}
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if opts.DropDeclaration {
				continue
			}
		case xml.StartElement:
			skip := rooted && (strip[strings.ToLower(t.Name.Local)] || t.Name.Space == msttsPrefix)
			if !rooted && opts.BareRootAttributes {
				t.Attr = nil
			}
			rooted = true
			open = append(open, openElement{name: t.Name, skip: skip})
			if skip {
				continue
			}
			tok = t
		case xml.EndElement:
			if len(open) == 0 || !sameName(open[len(open)-1].name, t.Name) {
				return "", &MalformedError{Offset: offset, Reason: fmt.Sprintf("unexpected </%s>", qualified(t.Name))}
			}
			top := open[len(open)-1]
			open = open[:len(open)-1]
			if top.skip {
				continue
			}
		case xml.CharData:
			if !rooted && isBlank(t) {
				continue
			}
		}
		writeToken(&b, tok)
	}
	if len(open) > 0 {
		return "", &MalformedError{Offset: dec.InputOffset(), Reason: fmt.Sprintf("unclosed <%s>", qualified(open[len(open)-1].name))}
	}
	return b.String(), nil
}
