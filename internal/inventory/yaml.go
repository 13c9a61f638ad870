package inventory

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// parseDocument decodes data into a document node whose root is a mapping.
// Empty input yields an empty mapping.
func parseDocument(data []byte) (*yaml.Node, error) {
	doc := &yaml.Node{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, err
		}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{newMapping()}}
	}

	root := doc.Content[0]
	switch {
	case root.Kind == yaml.MappingNode:
	case isNull(root):
		doc.Content[0] = newMapping()
	default:
		return nil, fmt.Errorf("document root is not a mapping")
	}
	return doc, nil
}

func encodeDocument(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func newString(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && (n.Tag == "!!null" || (n.Tag == "" && n.Value == ""))
}

// lookup returns the value stored under key in mapping m.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// findFirst walks n in document order and returns the value of the first
// mapping entry named key.
func findFirst(n *yaml.Node, key string) *yaml.Node {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			if v := findFirst(c, key); v != nil {
				return v
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return n.Content[i+1]
			}
			if v := findFirst(n.Content[i+1], key); v != nil {
				return v
			}
		}
	}
	return nil
}

// deleteKey removes key from the mapping m and reports whether it was there.
// A mapping left empty becomes a bare null so it is written back as "key:".
func deleteKey(m *yaml.Node, key string) bool {
	if m == nil || m.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != key {
			continue
		}
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
		if len(m.Content) == 0 {
			*m = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Line: m.Line, Column: m.Column}
		}
		return true
	}
	return false
}
