package exl

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/net/html/charset"
)

// Node is one level of a parsed document. Values are string, nil, *Node or
// []any (repeated sibling elements, in document order). Key order follows the
// document.
type Node = orderedmap.OrderedMap[string, any]

const (
	attrPrefix = "@"
	textKey    = "#text"
)

// NewNode returns an empty Node.
func NewNode() *Node {
	return orderedmap.New[string, any]()
}

// Parse reads an XML document into a Node keyed by the root element name.
//
// Attributes are stored under "@name", repeated children collapse into a
// []any, text-only elements become strings and empty elements become nil.
// Namespace prefixes are kept as written ("it:RIC").
func Parse(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	var (
		stack []*frame
		root  *Node
	)

	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, fmt.Errorf("unexpected element <%s> after document root", qualifiedName(t.Name))
			}
			f := &frame{name: qualifiedName(t.Name), node: NewNode()}
			for _, attr := range t.Attr {
				f.node.Set(attrPrefix+qualifiedName(attr.Name), attr.Value)
			}
			stack = append(stack, f)

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected closing tag </%s>", qualifiedName(t.Name))
			}
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if name := qualifiedName(t.Name); name != f.name {
				return nil, fmt.Errorf("element <%s> closed by </%s>", f.name, name)
			}

			value := f.value()
			if len(stack) == 0 {
				root = NewNode()
				root.Set(f.name, value)
				continue
			}
			appendChild(stack[len(stack)-1].node, f.name, value)
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

// frame is an element still open during Parse.
type frame struct {
	name string
	node *Node
	text strings.Builder
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if f.node.Len() == 0 {
		if text == "" {
			return nil
		}
		return text
	}
	if text != "" {
		f.node.Set(textKey, text)
	}
	return f.node
}

// appendChild adds value under key, turning a second occurrence into a list.
func appendChild(parent *Node, key string, value any) {
	existing, ok := parent.Get(key)
	if !ok {
		parent.Set(key, value)
		return
	}
	if list, isList := existing.([]any); isList {
		parent.Set(key, append(list, value))
		return
	}
	parent.Set(key, []any{existing, value})
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Encode renders a value from a parsed document as JSON, keeping Node key order.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(ErrorCodeEncoding, "Unable to encode record").WithCause(err)
	}
	return data, nil
}
