package pages

import (
	"fmt"

	"github.com/tsawler/pagecheck/core"
)

// Catalog is the document catalog, the /Root of the trailer.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog wraps a catalog dictionary.
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Dict returns the underlying dictionary.
func (c *Catalog) Dict() core.Dict { return c.dict }

// Type returns the /Type name, normally "Catalog".
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Version returns the /Version override, if any.
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// PageTree returns the page tree rooted at /Pages.
func (c *Catalog) PageTree() (*PageTree, error) {
	root := c.dict.Get("Pages")
	if root == nil {
		return nil, fmt.Errorf("catalog has no /Pages entry")
	}
	return NewPageTree(root, c.resolver), nil
}

// OCProperties returns the optional content properties dictionary. The
// boolean is false when the catalog has none.
func (c *Catalog) OCProperties() (core.Dict, bool, error) {
	obj := c.dict.Get("OCProperties")
	if obj == nil {
		return nil, false, nil
	}
	resolved, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, false, fmt.Errorf("resolve /OCProperties: %w", err)
	}
	if core.IsNull(resolved) {
		return nil, false, nil
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, false, fmt.Errorf("/OCProperties is %s, want dictionary", resolved.Type())
	}
	return dict, true, nil
}
