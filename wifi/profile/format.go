package profile

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when a document has no XML declaration.
const DefaultEncoding = "us-ascii"

// FormatOptions controls how Format lays out a document.
type FormatOptions struct {
	// Indent is repeated once per nesting level.
	Indent string
	// NewLineOnAttributes puts every attribute on its own line.
	NewLineOnAttributes bool
}

// DefaultFormatOptions returns two space indentation with one attribute per line.
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{Indent: "  ", NewLineOnAttributes: true}
}

var (
	declEncodingRe = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	declVersionRe  = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

type node struct {
	kind     nodeKind
	name     string
	attrs    []xml.Attr
	text     string
	children []*node
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func isUTF16(label string) bool {
	return strings.HasPrefix(strings.ToLower(label), "utf-16")
}

// Format re-indents doc and encodes the result in the encoding the document
// declares, or DefaultEncoding when it declares none.
func Format(doc []byte, opts *FormatOptions) ([]byte, error) {
	if opts == nil {
		opts = DefaultFormatOptions()
	}

	// A UTF-16 document is read through its byte order mark.
	hadBOM := bytes.HasPrefix(doc, []byte{0xFF, 0xFE}) || bytes.HasPrefix(doc, []byte{0xFE, 0xFF})
	if hadBOM {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		doc = decoded
	}
	doc = bytes.TrimPrefix(doc, []byte("\xef\xbb\xbf"))

	label := DefaultEncoding
	version := "1.0"
	if m := declEncodingRe.FindSubmatch(doc); m != nil {
		label = string(m[1])
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		// Text without a byte order mark that claims UTF-16 has already been
		// decoded by whoever handed it over.
		if isUTF16(label) {
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}

	root := &node{kind: elementNode}
	stack := []*node{root}
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		parent := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{kind: elementNode, name: qualified(t.Name), attrs: append([]xml.Attr(nil), t.Attr...)}
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unexpected </%s>: %w", qualified(t.Name), ErrMalformedDocument)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if strings.TrimSpace(string(t)) == "" {
				continue
			}
			if parent == root {
				return nil, fmt.Errorf("text outside the root element: %w", ErrMalformedDocument)
			}
			parent.children = append(parent.children, &node{kind: textNode, text: string(t)})
		case xml.Comment:
			parent.children = append(parent.children, &node{kind: commentNode, text: string(t)})
		case xml.ProcInst:
			if t.Target == "xml" {
				if m := declVersionRe.FindSubmatch(t.Inst); m != nil {
					version = string(m[1])
				}
				continue
			}
			parent.children = append(parent.children, &node{kind: procInstNode, name: t.Target, text: string(t.Inst)})
		case xml.Directive:
			parent.children = append(parent.children, &node{kind: directiveNode, text: string(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed <%s>: %w", stack[len(stack)-1].name, ErrMalformedDocument)
	}

	if len(root.children) == 0 {
		return nil, fmt.Errorf("no content: %w", ErrMalformedDocument)
	}

	var b strings.Builder
	f := formatter{w: &b, opts: opts}
	fmt.Fprintf(&b, `<?xml version="%s" encoding="%s"?>`, version, label)
	for _, n := range root.children {
		f.node(n, 0)
	}

	out, err := encodeAs(b.String(), label)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty result: %w", ErrMalformedDocument)
	}
	return out, nil
}

type formatter struct {
	w    *strings.Builder
	opts *FormatOptions
}

func (f formatter) indent(depth int) {
	f.w.WriteString("\n")
	f.w.WriteString(strings.Repeat(f.opts.Indent, depth))
}

func (f formatter) node(n *node, depth int) {
	f.indent(depth)
	f.inline(n, depth)
}

// inline writes n at the current position; elements with element children
// still indent those children.
func (f formatter) inline(n *node, depth int) {
	switch n.kind {
	case textNode:
		f.w.WriteString(escapeText(n.text))
	case commentNode:
		f.w.WriteString("<!--" + n.text + "-->")
	case procInstNode:
		f.w.WriteString("<?" + n.name + " " + n.text + "?>")
	case directiveNode:
		f.w.WriteString("<!" + n.text + ">")
	case elementNode:
		f.element(n, depth)
	}
}

func (f formatter) element(n *node, depth int) {
	f.w.WriteString("<" + n.name)
	for _, a := range n.attrs {
		if f.opts.NewLineOnAttributes {
			f.indent(depth + 1)
		} else {
			f.w.WriteString(" ")
		}
		f.w.WriteString(qualified(a.Name) + `="` + escapeAttr(a.Value) + `"`)
	}
	if len(n.children) == 0 {
		f.w.WriteString(" />")
		return
	}
	f.w.WriteString(">")

	mixed := false
	for _, c := range n.children {
		if c.kind == textNode {
			mixed = true
			break
		}
	}
	if mixed {
		// Indentation would change the text content.
		for _, c := range n.children {
			f.inline(c, depth+1)
		}
	} else {
		for _, c := range n.children {
			f.node(c, depth+1)
		}
		f.indent(depth)
	}
	f.w.WriteString("</" + n.name + ">")
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

func escapeText(s string) string { return textEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// encodeAs encodes s in the named character set. Characters the set cannot
// represent become numeric character references.
func encodeAs(s, label string) ([]byte, error) {
	switch strings.ToLower(label) {
	case "utf-16":
		return transformString(unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder(), s, label)
	case "utf-16le":
		return transformString(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(), s, label)
	case "utf-16be":
		return transformString(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder(), s, label)
	case "us-ascii", "ascii", "iso646-us":
		var b strings.Builder
		for _, r := range s {
			if r < utf8.RuneSelf {
				b.WriteRune(r)
			} else {
				fmt.Fprintf(&b, "&#x%X;", r)
			}
		}
		return []byte(b.String()), nil
	case "utf-8", "utf8":
		return []byte(s), nil
	}

	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(label)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w: %w", label, ErrMalformedDocument, err)
		}
	}
	return transformString(encoding.HTMLEscapeUnsupported(enc.NewEncoder()), s, label)
}

func transformString(t transform.Transformer, s, label string) ([]byte, error) {
	out, _, err := transform.Bytes(t, []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding as %s: %w", label, err)
	}
	return out, nil
}
