package contentstream

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tsawler/pagecheck/core"
)

// Operation is one operator together with the operands preceding it.
type Operation struct {
	Operator   string
	Operands   []core.Object
	InlineData []byte
}

// Parser parses a content stream.
type Parser struct {
	data []byte
}

// NewParser returns a parser over decoded content stream data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data}
}

// Parse returns all operations in order. Operands left over at the end of
// the stream, with no operator to consume them, are an error.
func (p *Parser) Parse() ([]Operation, error) {
	cp := core.NewParser(bytes.NewReader(p.data))
	var ops []Operation
	var operands []core.Object

	for {
		obj, op, err := cp.ParseOperand()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("content stream operation %d: %w", len(ops), err)
		}
		if op == "" {
			operands = append(operands, obj)
			continue
		}
		if op == "BI" {
			img, err := parseInlineImage(cp)
			if err != nil {
				return nil, fmt.Errorf("content stream operation %d: %w", len(ops), err)
			}
			ops = append(ops, img)
			operands = nil
			continue
		}
		ops = append(ops, Operation{Operator: op, Operands: operands})
		operands = nil
	}

	if len(operands) > 0 {
		return nil, fmt.Errorf("content stream ends with %d operands and no operator", len(operands))
	}
	return ops, nil
}

func parseInlineImage(cp *core.Parser) (Operation, error) {
	params := core.Dict{}
	for {
		key, op, err := cp.ParseOperand()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image: %w", err)
		}
		if op == "ID" {
			break
		}
		name, ok := key.(core.Name)
		if op != "" || !ok {
			return Operation{}, fmt.Errorf("inline image: expected key name, got %v%s", key, op)
		}
		val, op, err := cp.ParseOperand()
		if err != nil || op != "" {
			return Operation{}, fmt.Errorf("inline image: missing value for /%s", name)
		}
		params[string(name)] = val
	}

	data, err := cp.ReadInlineImageData()
	if err != nil {
		return Operation{}, err
	}
	return Operation{Operator: "BI", Operands: []core.Object{params}, InlineData: data}, nil
}
