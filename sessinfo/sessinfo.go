// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sessinfo parses the session-info text block embedded in
// telemetry layouts into a navigable key/value tree.
//
// The block is loosely structured YAML, Windows-1252 encoded and padded
// with NUL bytes. No schema is imposed: every key of the block is kept
// and can be reached by its dotted path, e.g.
//
//	WeekendInfo.TrackDisplayName
//	DriverInfo.Drivers[0].UserName
//	DriverInfo.Drivers.0.UserName
package sessinfo // import "github.com/go-lpc/irsdk/sessinfo"

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// Tree is a parsed session-info block.
type Tree struct {
	root *yaml.Node
}

// Parse parses a raw session-info block.
func Parse(raw []byte) (*Tree, error) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}

	txt, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("sessinfo: could not decode text: %w", err)
	}
	txt = sanitize(txt)

	var doc yaml.Node
	err = yaml.Unmarshal(txt, &doc)
	if err != nil {
		return nil, fmt.Errorf("sessinfo: could not parse session info: %w", err)
	}

	tree := &Tree{}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		tree.root = doc.Content[0]
	}
	return tree, nil
}

// Root returns the top-level node of the tree.
func (t *Tree) Root() Node {
	if t == nil {
		return Node{}
	}
	return Node{n: t.root}
}

// Lookup resolves a dotted path from the top of the tree.
func (t *Tree) Lookup(path string) (Node, bool) {
	return t.Root().Lookup(path)
}

// free-text keys whose values may hold YAML special characters.
var textKeys = []string{
	"AbbrevName",
	"CarDesignStr",
	"CarNumberDesignStr",
	"CarScreenName",
	"CarScreenNameShort",
	"ClubName",
	"DivisionName",
	"DriverSetupName",
	"HelmetDesignStr",
	"Initials",
	"SuitDesignStr",
	"TeamName",
	"UserName",
}

var (
	reTextKeys = regexp.MustCompile(
		`(?m)^([ \t]*-?[ \t]*(?:` + strings.Join(textKeys, "|") + `):[ \t]+)(.*?)[ \t]*$`,
	)
	reLeadingComma = regexp.MustCompile(`(?m)^([ \t]*-?[ \t]*\w+:[ \t]+)(,.*?)[ \t]*$`)
)

// sanitize single-quotes values that would otherwise break the parser.
func sanitize(txt []byte) []byte {
	quote := func(re *regexp.Regexp, txt []byte) []byte {
		return re.ReplaceAllFunc(txt, func(line []byte) []byte {
			m := re.FindSubmatch(line)
			key, val := m[1], m[2]
			if len(val) == 0 || val[0] == '\'' || val[0] == '"' {
				return line
			}
			o := make([]byte, 0, len(line)+4)
			o = append(o, key...)
			o = append(o, '\'')
			o = append(o, bytes.ReplaceAll(val, []byte("'"), []byte("''"))...)
			o = append(o, '\'')
			return o
		})
	}
	txt = quote(reTextKeys, txt)
	txt = quote(reLeadingComma, txt)
	return txt
}

// Kind is the kind of a tree node.
type Kind int

const (
	Invalid Kind = iota
	Scalar
	Map
	List
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Map:
		return "map"
	case List:
		return "list"
	}
	return "invalid"
}

// Node is a node of a session-info tree: a scalar text value,
// a mapping or a list.
// The zero Node is the absent value.
type Node struct {
	n *yaml.Node
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// IsValid reports whether n refers to an existing node.
func (n Node) IsValid() bool { return deref(n.n) != nil }

func (n Node) Kind() Kind {
	v := deref(n.n)
	if v == nil {
		return Invalid
	}
	switch v.Kind {
	case yaml.ScalarNode:
		return Scalar
	case yaml.MappingNode:
		return Map
	case yaml.SequenceNode:
		return List
	}
	return Invalid
}

// String returns the text of a scalar node, or "" for other kinds.
func (n Node) String() string {
	v := deref(n.n)
	if v == nil || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

// Keys returns the keys of a mapping node, in document order.
func (n Node) Keys() []string {
	v := deref(n.n)
	if v == nil || v.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(v.Content)/2)
	for i := 0; i+1 < len(v.Content); i += 2 {
		keys = append(keys, v.Content[i].Value)
	}
	return keys
}

// Len returns the number of entries of a mapping or list node.
func (n Node) Len() int {
	v := deref(n.n)
	switch {
	case v == nil:
		return 0
	case v.Kind == yaml.MappingNode:
		return len(v.Content) / 2
	case v.Kind == yaml.SequenceNode:
		return len(v.Content)
	}
	return 0
}

// Index returns the i-th element of a list node.
func (n Node) Index(i int) Node {
	v := deref(n.n)
	if v == nil || v.Kind != yaml.SequenceNode || i < 0 || i >= len(v.Content) {
		return Node{}
	}
	return Node{n: v.Content[i]}
}

// Get returns the value associated with key in a mapping node.
func (n Node) Get(key string) Node {
	v := deref(n.n)
	if v == nil || v.Kind != yaml.MappingNode {
		return Node{}
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		if v.Content[i].Value == key {
			return Node{n: v.Content[i+1]}
		}
	}
	return Node{}
}

// Lookup resolves a dotted path relative to n.
func (n Node) Lookup(path string) (Node, bool) {
	cur := n
	for _, seg := range strings.Split(path, ".") {
		key, idx, ok := splitSegment(seg)
		if !ok {
			return Node{}, false
		}
		if key != "" {
			if i, err := strconv.Atoi(key); err == nil && cur.Kind() == List {
				cur = cur.Index(i)
			} else {
				cur = cur.Get(key)
			}
		}
		for _, i := range idx {
			cur = cur.Index(i)
		}
		if !cur.IsValid() {
			return Node{}, false
		}
	}
	return cur, cur.IsValid()
}

// splitSegment splits "Key[1][2]" into "Key" and [1, 2].
func splitSegment(seg string) (string, []int, bool) {
	i := strings.IndexByte(seg, '[')
	if i < 0 {
		return seg, nil, seg != ""
	}
	key, rest := seg[:i], seg[i:]
	var idx []int
	for rest != "" {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return "", nil, false
		}
		v, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		idx = append(idx, v)
		rest = rest[end+1:]
	}
	return key, idx, true
}

// Decode decodes the sub-tree rooted at n into v.
func (n Node) Decode(v any) error {
	nn := deref(n.n)
	if nn == nil {
		return fmt.Errorf("sessinfo: decode of absent node")
	}
	return nn.Decode(v)
}

// Marshal encodes the sub-tree rooted at n back to text.
func (n Node) Marshal() ([]byte, error) {
	nn := deref(n.n)
	if nn == nil {
		return nil, fmt.Errorf("sessinfo: marshal of absent node")
	}
	return yaml.Marshal(nn)
}
