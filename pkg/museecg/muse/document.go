package muse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

var (
	errNoRoot    = errors.New("no root element")
	errManyRoots = errors.New("more than one root element")
)

// Document is a parsed MUSE XML export.
type Document struct {
	root *xmlquery.Node
}

// Parse reads a MUSE XML document. Any failure is a *DocumentParseError.
func Parse(r io.Reader) (*Document, error) {
	return parse(r, "")
}

// ParseNamed is Parse with source recorded in errors.
func ParseNamed(r io.Reader, source string) (*Document, error) {
	return parse(r, source)
}

// ParseFile opens and parses the document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DocumentParseError{Source: path, Err: err}
	}
	defer f.Close()

	return parse(f, path)
}

func parse(r io.Reader, source string) (*Document, error) {
	top, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &DocumentParseError{Source: source, Err: err}
	}

	var root *xmlquery.Node
	for n := top.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		if root != nil {
			return nil, &DocumentParseError{Source: source, Err: errManyRoots}
		}
		root = n
	}
	if root == nil {
		return nil, &DocumentParseError{Source: source, Err: errNoRoot}
	}
	return &Document{root: root}, nil
}

// RootName returns the tag of the root element, "RestingECG" for MUSE exports.
func (d *Document) RootName() string {
	return d.root.Data
}

// Text returns the text of the first node matching the XPath expression,
// relative to the root, and whether such a node exists.
func (d *Document) Text(expr string) (string, bool) {
	return findText(d.root, expr)
}

// TextOr returns the node text, or def when the node does not exist. An
// existing but empty node yields "".
func (d *Document) TextOr(expr, def string) string {
	if s, ok := d.Text(expr); ok {
		return s
	}
	return def
}

// Int returns the node text as an integer when it is all ASCII digits once
// trimmed; anything else, including a sign, is treated as absent.
func (d *Document) Int(expr string) *int {
	s, ok := d.Text(expr)
	if !ok {
		return nil
	}
	return digitsToInt(s)
}

func (d *Document) all(expr string) []*xmlquery.Node {
	return queryAll(d.root, expr)
}

func queryOne(n *xmlquery.Node, expr string) *xmlquery.Node {
	node, err := xmlquery.Query(n, expr)
	if err != nil {
		panic(fmt.Sprintf("muse: bad xpath %q: %v", expr, err))
	}
	return node
}

func queryAll(n *xmlquery.Node, expr string) []*xmlquery.Node {
	nodes, err := xmlquery.QueryAll(n, expr)
	if err != nil {
		panic(fmt.Sprintf("muse: bad xpath %q: %v", expr, err))
	}
	return nodes
}

func findText(n *xmlquery.Node, expr string) (string, bool) {
	node := queryOne(n, expr)
	if node == nil {
		return "", false
	}
	return ownText(node), true
}

// ownText returns the text that precedes the first child element, which is
// the element's own text rather than the text of its whole subtree.
func ownText(n *xmlquery.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.TextNode && c.Type != xmlquery.CharDataNode {
			break
		}
		sb.WriteString(c.Data)
	}
	return sb.String()
}

func digitsToInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
