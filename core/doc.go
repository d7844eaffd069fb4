// Package core holds the low-level PDF syntax layer: the object model,
// a lexer and parser for PDF object syntax, cross-reference tables and
// streams, object streams and stream decoding.
//
// Higher layers (pages, reader, copier) work only in terms of the types
// defined here:
//
//   - [Null], [Bool], [Int], [Real], [String], [Name], [Array] and [Dict]
//     are the basic object types
//   - [Stream] is a dictionary plus raw data
//   - [IndirectRef] is an "n g R" reference to an indirect object
//
// [Parser] reads objects and "n g obj ... endobj" definitions.
// [XRefParser] reads classic xref tables and PDF 1.5 xref streams, and
// follows /Prev chains for incrementally updated files.
// [ObjectStream] extracts objects compressed into /Type /ObjStm streams.
package core
