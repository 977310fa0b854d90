// Package csv provides AST rendering to CSV bytes.
package csv

import (
	"bytes"
	"fmt"

	"github.com/shapestone/shape-core/pkg/ast"
)

// Render converts an AST node to CSV bytes with the default writer options.
//
// The node should be the result of Parse() or ParseReader(): a file node of
// record nodes, or a single record node. Fields are quoted when needed and
// every record ends with LF.
//
// Example:
//
//	node, _ := csv.Parse("name,age\nAlice,30\nBob,25\n")
//	bytes, _ := csv.Render(node)
//	// bytes: name,age\nAlice,30\nBob,25\n
func Render(node ast.SchemaNode) ([]byte, error) {
	return RenderWithOptions(node, DefaultWriterOptions())
}

// RenderWithOptions converts an AST node to CSV bytes with custom options.
//
// Example:
//
//	opts := csv.DefaultWriterOptions()
//	opts.Dialect.Delimiter = "\t"
//	opts.Dialect.LineEnding = csv.LineEndingCRLF
//	bytes, err := csv.RenderWithOptions(node, opts)
func RenderWithOptions(node ast.SchemaNode, opts WriterOptions) ([]byte, error) {
	if node == nil {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts)
	if err != nil {
		return nil, err
	}
	if err := renderNode(w, node); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderNode renders a file node (array of records) or a record node (array
// of literals).
func renderNode(w *Writer, node ast.SchemaNode) error {
	switch n := node.(type) {
	case *ast.ArrayDataNode:
		elements := n.Elements()
		if len(elements) == 0 {
			return nil
		}
		if _, ok := elements[0].(*ast.ArrayDataNode); !ok {
			return renderRecord(w, n)
		}
		for _, elem := range elements {
			record, ok := elem.(*ast.ArrayDataNode)
			if !ok {
				return fmt.Errorf("unexpected element type in file: %T", elem)
			}
			if err := renderRecord(w, record); err != nil {
				return err
			}
		}
		return nil
	case *ast.LiteralNode:
		if err := w.WriteField([]byte(literalString(n))); err != nil {
			return err
		}
		return w.EndRecord()
	default:
		return fmt.Errorf("unsupported node type for CSV rendering: %T", node)
	}
}

func renderRecord(w *Writer, record *ast.ArrayDataNode) error {
	for _, elem := range record.Elements() {
		lit, ok := elem.(*ast.LiteralNode)
		if !ok {
			return fmt.Errorf("unexpected element type in record: %T", elem)
		}
		if err := w.WriteField([]byte(literalString(lit))); err != nil {
			return err
		}
	}
	return w.EndRecord()
}
