package soap

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Node is a schemaless view of an XML element. Results are decoded into a Node
// tree first so that field lookups can go through alias chains instead of
// fixed struct tags.
type Node struct {
	Name     string
	Text     string
	Nil      bool
	Children []*Node
}

func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	for _, a := range start.Attr {
		if a.Name.Local == "nil" && strings.EqualFold(a.Value, "true") {
			n.Nil = true
		}
	}

	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return nil
		}
	}
}

func matches(name string, names []string) bool {
	for _, want := range names {
		if strings.EqualFold(name, want) {
			return true
		}
	}
	return false
}

// Child returns the first child whose name matches any of names, ignoring case.
func (n *Node) Child(names ...string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if matches(c.Name, names) {
			return c
		}
	}
	return nil
}

// FirstChild returns the first element child regardless of its name.
func (n *Node) FirstChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

// Empty reports whether the node is absent, nil or carries neither text nor
// children.
func (n *Node) Empty() bool {
	return n == nil || n.Nil || (n.Text == "" && len(n.Children) == 0)
}

func (n *Node) leaf() bool {
	for _, c := range n.Children {
		if len(c.Children) > 0 {
			return false
		}
	}
	return true
}

// Items normalises a list-shaped result into a slice. Children named like one
// of itemNames are returned; failing that, record-shaped children are returned
// whatever their name; failing that, a node holding fields directly is taken
// as a single record. Absent or empty nodes yield nil.
func (n *Node) Items(itemNames ...string) []*Node {
	if n.Empty() {
		return nil
	}

	var out []*Node
	for _, c := range n.Children {
		if matches(c.Name, itemNames) {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, c := range n.Children {
		if len(c.Children) > 0 {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}

	if len(n.Children) > 0 && n.leaf() {
		return []*Node{n}
	}
	return nil
}

// Str returns the text of the first non-empty field among names.
func (n *Node) Str(names ...string) string {
	if n == nil {
		return ""
	}
	for _, name := range names {
		if c := n.Child(name); c != nil && !c.Nil && c.Text != "" {
			return c.Text
		}
	}
	return ""
}

func (n *Node) Int(names ...string) int {
	return int(n.Int64(names...))
}

func (n *Node) Int64(names ...string) int64 {
	return parseInt64(n.Str(names...))
}

func (n *Node) Decimal(names ...string) decimal.Decimal {
	return parseDecimal(n.Str(names...))
}

func (n *Node) Bool(names ...string) bool {
	v, _ := strconv.ParseBool(strings.ToLower(n.Str(names...)))
	return v
}

func (n *Node) Time(names ...string) time.Time {
	return ParseTime(n.Str(names...))
}

// TextInt reads the node's own text as an integer, for scalar results.
func (n *Node) TextInt() int {
	if n == nil {
		return 0
	}
	return int(parseInt64(n.Text))
}

// TextBool reads the node's own text as a boolean, for scalar results.
func (n *Node) TextBool() bool {
	if n == nil {
		return false
	}
	v, _ := strconv.ParseBool(strings.ToLower(n.Text))
	return v
}

func parseInt64(s string) int64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return v
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the .NET backend emits. Values
// without a zone are read as UTC; unparseable values yield the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
