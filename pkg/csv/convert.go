// Package csv provides conversion between AST nodes and Go native types.
package csv

import (
	"fmt"
	"io"

	"github.com/shapestone/shape-core/pkg/ast"
)

// NodeToInterface converts an AST node to native Go types.
//
// For CSV, this converts:
//   - *ast.ArrayDataNode (file) → [][]string (slice of records)
//   - *ast.ArrayDataNode (record) → []string (slice of fields)
//   - *ast.LiteralNode (field) → string (field value)
//
// Example:
//
//	node, _ := csv.Parse("name,age\nAlice,30\n")
//	data := csv.NodeToInterface(node)
//	// data is [][]string{{"name","age"}, {"Alice","30"}}
func NodeToInterface(node ast.SchemaNode) any {
	switch n := node.(type) {
	case *ast.LiteralNode:
		return literalString(n)

	case *ast.ArrayDataNode:
		elements := n.Elements()
		if len(elements) == 0 {
			return [][]string{}
		}
		if _, ok := elements[0].(*ast.ArrayDataNode); ok {
			records := make([][]string, len(elements))
			for i, elem := range elements {
				record, _ := NodeToInterface(elem).([]string)
				if record == nil {
					record = []string{}
				}
				records[i] = record
			}
			return records
		}
		fields := make([]string, len(elements))
		for i, elem := range elements {
			fields[i] = fmt.Sprint(NodeToInterface(elem))
		}
		return fields

	default:
		return nil
	}
}

// literalString returns the field text of a literal. Non-string values are
// formatted with %v.
func literalString(n *ast.LiteralNode) string {
	switch v := n.Value().(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InterfaceToNode converts native Go types to AST nodes.
//
// For CSV, this converts:
//   - [][]string (slice of records) → *ast.ArrayDataNode (file)
//   - []string (slice of fields) → *ast.ArrayDataNode (record)
//   - string (field value) → *ast.LiteralNode
//   - []any holding either of the slice forms
func InterfaceToNode(v any) (ast.SchemaNode, error) {
	pos := ast.Position{}

	switch val := v.(type) {
	case nil:
		return ast.NewLiteralNode("", pos), nil

	case string:
		return ast.NewLiteralNode(val, pos), nil

	case [][]string:
		records := make([]ast.SchemaNode, len(val))
		for i, record := range val {
			records[i] = fieldsNode(record, pos)
		}
		return ast.NewArrayDataNode(records, pos), nil

	case []string:
		return fieldsNode(val, pos), nil

	case []any:
		if len(val) == 0 {
			return ast.NewArrayDataNode([]ast.SchemaNode{}, pos), nil
		}
		switch val[0].(type) {
		case []any, []string:
			records := make([]ast.SchemaNode, len(val))
			for i, item := range val {
				recordNode, err := InterfaceToNode(item)
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", i, err)
				}
				records[i] = recordNode
			}
			return ast.NewArrayDataNode(records, pos), nil
		case string:
			fields := make([]ast.SchemaNode, len(val))
			for i, item := range val {
				fields[i] = ast.NewLiteralNode(fmt.Sprint(item), pos)
			}
			return ast.NewArrayDataNode(fields, pos), nil
		default:
			return nil, fmt.Errorf("unsupported slice element type: %T", val[0])
		}

	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fieldsNode(fields []string, pos ast.Position) *ast.ArrayDataNode {
	nodes := make([]ast.SchemaNode, len(fields))
	for i, f := range fields {
		nodes[i] = ast.NewLiteralNode(f, pos)
	}
	return ast.NewArrayDataNode(nodes, pos)
}

// NodeToRecords converts an AST node to a slice of string records. A single
// record node is wrapped.
func NodeToRecords(node ast.SchemaNode) [][]string {
	switch data := NodeToInterface(node).(type) {
	case [][]string:
		return data
	case []string:
		return [][]string{data}
	}
	return [][]string{}
}

// RecordsToNode converts a slice of string records to an AST node.
func RecordsToNode(records [][]string) (ast.SchemaNode, error) {
	return InterfaceToNode(records)
}

// readNode drains r into a file node. Each record node carries the offset and
// line where the record starts.
func readNode(r *Reader) (*ast.ArrayDataNode, error) {
	records := make([]ast.SchemaNode, 0, 16)
	for {
		row, err := r.Read()
		if err == io.EOF {
			return ast.NewArrayDataNode(records, ast.ZeroPosition()), nil
		}
		if err != nil {
			return nil, err
		}
		pos := ast.NewPosition(int(row.Offset()), row.Line(), 1)
		fields := make([]ast.SchemaNode, row.Len())
		for i := range fields {
			fields[i] = ast.NewLiteralNode(row.FieldString(i), pos)
		}
		records = append(records, ast.NewArrayDataNode(fields, pos))
	}
}
