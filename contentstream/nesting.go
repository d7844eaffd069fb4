package contentstream

import "fmt"

// CheckNesting reports the first unbalanced graphics-state (q/Q) or text
// object (BT/ET) operator. Text objects may not nest, and a q inside a
// text object is not allowed either.
func CheckNesting(ops []Operation) error {
	depth := 0
	inText := false
	for i, op := range ops {
		switch op.Operator {
		case "q":
			if inText {
				return fmt.Errorf("operation %d: q inside text object", i)
			}
			depth++
		case "Q":
			if inText {
				return fmt.Errorf("operation %d: Q inside text object", i)
			}
			if depth == 0 {
				return fmt.Errorf("operation %d: Q without matching q", i)
			}
			depth--
		case "BT":
			if inText {
				return fmt.Errorf("operation %d: nested BT", i)
			}
			inText = true
		case "ET":
			if !inText {
				return fmt.Errorf("operation %d: ET without BT", i)
			}
			inText = false
		}
	}
	if inText {
		return fmt.Errorf("text object not closed with ET")
	}
	if depth > 0 {
		return fmt.Errorf("%d q operators not closed with Q", depth)
	}
	return nil
}
