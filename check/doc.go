// Package check implements three structural checks on a PDF document.
//
// CheckTree compares the page count a document declares in its page tree
// root with the number of leaf pages actually reachable from it.
//
// CheckCopyOperation copies the document page by page into a new one,
// stamping a page number on every page, and watches two bookkeeping
// counters of the copy session: the number of registered page references
// and the number of finalized pages. Once a page's content is altered the
// session must hold exactly one more reference than it has finalized
// pages. The first page where this drifts is reported.
//
// CheckLayers lists the optional content groups (layers) a document
// defines, resolves their default visibility and records which pages
// reference them.
//
// None of the checks return errors. Every failure is carried in the result
// so that one bad document never aborts a batch.
package check
