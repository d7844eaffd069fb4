// Package pages models the PDF document catalog and page tree.
//
// Two views of the tree are offered. [BuildTree] returns the raw node
// hierarchy, keeping branch (/Type /Pages), leaf (/Type /Page) and
// unknown nodes exactly as they are linked through /Kids, which is what a
// structural check needs. [PageTree] flattens the leaves into an ordered
// page list whose [Page] values resolve inheritable attributes
// (Resources, MediaBox, CropBox, Rotate) through every ancestor:
//
//	tree := pages.NewPageTree(catalog.Get("Pages"), resolver)
//	declared, _ := tree.Count()
//	list, _ := tree.Pages()
//	res, _ := list[0].Resources()
package pages

import "github.com/tsawler/pagecheck/core"

// ObjectResolver resolves indirect references against a document.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}
