// Package reader opens PDF documents and resolves their objects.
//
// A Reader is the document model the checks run against. It exposes the
// declared page count, the raw page-tree hierarchy, the flattened page
// list and the optional content properties:
//
//	r, err := reader.Open("report.pdf")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	declared, _ := r.DeclaredPageCount()
//	root, _ := r.PageTreeRoot()
//	page, _ := r.GetPage(0)
//
// Classic xref tables, xref streams, object streams and incremental
// updates are supported. Encrypted documents are not.
//
// A Reader caches parsed objects and is not safe for concurrent use.
package reader
