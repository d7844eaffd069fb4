// Package contentstream splits PDF content streams into operations.
//
//	ops, err := contentstream.NewParser(data).Parse()
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Operands are core objects. Inline images (BI ... ID ... EI) come back as a
// single BI operation whose only operand is the image dictionary and whose
// InlineData holds the raw image bytes.
//
// [CheckNesting] verifies that q/Q and BT/ET pairs are balanced, which is
// the minimum an overlay has to satisfy before it is appended to a page.
package contentstream
