package ber

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Node is one TLV read without knowing its type in advance.
type Node struct {
	Tag       Tag     `json:"tag"`
	Offset    int64   `json:"offset"`
	HeaderLen int     `json:"header_len"`
	Length    Length  `json:"length"` // Indefinite (-1) for indefinite constructed values
	Value     []byte  `json:"value,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Format writes an indented dump of n and its children.
func (n *Node) Format(w io.Writer) error {
	return n.format(w, 0)
}

func (n *Node) format(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	var err error
	if n.Tag.Constructed {
		_, err = fmt.Fprintf(w, "%6d %s%s len=%s\n", n.Offset, indent, n.Tag, n.Length)
	} else {
		_, err = fmt.Fprintf(w, "%6d %s%s len=%s %s\n", n.Offset, indent, n.Tag, n.Length, n.valueString())
	}
	if err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.format(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) valueString() string {
	if n.Tag.Class != ClassUniversal {
		return hex.EncodeToString(n.Value)
	}
	switch n.Tag.Number {
	case TagBoolean:
		return fmt.Sprint(len(n.Value) == 1 && n.Value[0] != 0)
	case TagInteger:
		if len(n.Value) <= 8 {
			return fmt.Sprint(int64(DecodeInteger(n.Value, true)))
		}
	case TagIA5String, TagPrintableString, TagUTF8String, TagVisibleString:
		return fmt.Sprintf("%q", n.Value)
	}
	return hex.EncodeToString(n.Value)
}

// ReadNode reads the next complete TLV, including all nested values.
func (d *Decoder) ReadNode() (*Node, error) {
	const op = "ReadNode"
	if err := d.check(); err != nil {
		return nil, err
	}
	n, err := d.readNode()
	if err != nil {
		return nil, d.fail(op, "", err)
	}
	if n.Tag.IsEOC() {
		return nil, d.fail(op, "", errors.Wrap(ErrIndefiniteLength, "end-of-contents outside an indefinite value"))
	}
	return n, nil
}

// Inspect reads every top-level TLV until the input ends.
func (d *Decoder) Inspect() ([]*Node, error) {
	var nodes []*Node
	for {
		start := d.Position()
		n, err := d.ReadNode()
		if err != nil {
			if errors.Is(err, ErrStreamEnded) && d.Position() == start {
				d.err = nil
				return nodes, nil
			}
			return nodes, err
		}
		nodes = append(nodes, n)
	}
}

// Inspect parses a TLV stream into a tree, nesting at most maxDepth levels.
func Inspect(r io.Reader, maxDepth int) ([]*Node, error) {
	d, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return d.WithMaxDepth(maxDepth).Inspect()
}

func (d *Decoder) readNode() (*Node, error) {
	off := d.Position()
	tag, length, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	n := &Node{Tag: tag, Offset: off, HeaderLen: int(d.Position() - off), Length: length}

	if !tag.Constructed {
		buf := NewBuffer(nil)
		if err := d.appendContent(buf, length); err != nil {
			return nil, err
		}
		n.Value = buf.Bytes()
		return n, nil
	}

	if err := d.push(tag, length); err != nil {
		return nil, err
	}
	for {
		if !length.IsIndefinite() && d.Position() == off+int64(n.HeaderLen)+int64(length) {
			break
		}
		child, err := d.readNode()
		if err != nil {
			return nil, err
		}
		if child.Tag.IsEOC() {
			if !length.IsIndefinite() || child.Length != 0 {
				return nil, errors.Wrapf(ErrIndefiniteLength, "end-of-contents at %d inside %s", child.Offset, tag)
			}
			break
		}
		n.Children = append(n.Children, child)
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.log.Debug("ber: node", zap.Stringer("tag", tag), zap.Int64("offset", off), zap.Int("children", len(n.Children)))
	return n, nil
}
