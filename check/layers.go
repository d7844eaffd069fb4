package check

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tsawler/pagecheck/core"
	"github.com/tsawler/pagecheck/pages"
)

// LayerSource supplies what CheckLayers needs from a document.
type LayerSource interface {
	OCProperties() (core.Dict, bool, error)
	Pages() ([]*pages.Page, error)
	Resolve(obj core.Object) (core.Object, error)
}

// LayerInfo describes one optional content group.
type LayerInfo struct {
	Name    string `json:"name,omitempty"`
	HasName bool   `json:"has_name"`
	// Intent is "/View", "/Design" or several of them joined with ", ".
	Intent string `json:"intent,omitempty"`
	// DefaultState is "ON" or "OFF", or empty when the document has no
	// default configuration.
	DefaultState string           `json:"default_state,omitempty"`
	Ref          core.IndirectRef `json:"-"`
}

func (l LayerInfo) String() string {
	name := l.Name
	if !l.HasName {
		name = "(Unnamed)"
	}
	state := l.DefaultState
	if state == "" {
		state = "?"
	}
	s := name + " [" + state + "]"
	if l.Intent != "" {
		s += " intent=" + l.Intent
	}
	return s
}

// OcgLayerCheckResult is the outcome of CheckLayers.
type OcgLayerCheckResult struct {
	HasLayers  bool `json:"has_layers"`
	LayerCount int  `json:"layer_count"`
	// BaseState keeps its name marker, for example "/OFF".
	BaseState       string      `json:"base_state,omitempty"`
	HasBaseState    bool        `json:"has_base_state"`
	HasCustomOrder  bool        `json:"has_custom_order"`
	HasLockedLayers bool        `json:"has_locked_layers"`
	Layers          []LayerInfo `json:"layers"`
	// PageLayerUsage maps 1-based page numbers to the names of the layers
	// the page's resources reference, without duplicates. Pages without
	// layers are absent.
	PageLayerUsage map[int][]string `json:"page_layer_usage"`
	Err            error            `json:"-"`
}

// MarshalJSON adds the error text.
func (r OcgLayerCheckResult) MarshalJSON() ([]byte, error) {
	type plain OcgLayerCheckResult
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(r), errorText(r.Err)})
}

// LayerWarning is printed for documents that define layers.
const LayerWarning = "WARNING: This PDF contains OCG layers; stamping overlays or merging with OCG-based page numbers can conflict with existing layers."

func (r OcgLayerCheckResult) String() string {
	if r.Err != nil {
		return "OCG check error: " + r.Err.Error()
	}
	if !r.HasLayers {
		return "Has OCG layers: NO"
	}

	var sb strings.Builder
	sb.WriteString("Has OCG layers: YES\n")
	fmt.Fprintf(&sb, "Layer count: %d\n", r.LayerCount)
	base := "Default (ON)"
	if r.HasBaseState {
		base = r.BaseState
	}
	fmt.Fprintf(&sb, "Base state: %s\n", base)
	fmt.Fprintf(&sb, "Custom order: %s\n", yesNo(r.HasCustomOrder))
	fmt.Fprintf(&sb, "Locked layers: %s\n", yesNo(r.HasLockedLayers))
	if len(r.Layers) > 0 {
		sb.WriteString("Layers:\n")
		for _, l := range r.Layers {
			fmt.Fprintf(&sb, "  • %s\n", l)
		}
	}
	if len(r.PageLayerUsage) > 0 {
		sb.WriteString("Pages using layers:\n")
		for _, p := range r.UsedPages() {
			fmt.Fprintf(&sb, "  Page %d: %s\n", p, strings.Join(r.PageLayerUsage[p], ", "))
		}
	}
	sb.WriteString(LayerWarning)
	return sb.String()
}

// UsedPages returns the page numbers in PageLayerUsage in ascending order.
func (r OcgLayerCheckResult) UsedPages() []int {
	nums := make([]int, 0, len(r.PageLayerUsage))
	for p := range r.PageLayerUsage {
		nums = append(nums, p)
	}
	sort.Ints(nums)
	return nums
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

// CheckLayers inspects the document's optional content configuration.
// A document without /OCProperties has no layers; that is not an error.
func (c *Checker) CheckLayers(src LayerSource) (result OcgLayerCheckResult) {
	result = OcgLayerCheckResult{
		Layers:         []LayerInfo{},
		PageLayerUsage: map[int][]string{},
	}
	defer func() {
		if r := recover(); r != nil {
			result = c.layerFailure(result, fmt.Errorf("panic: %v", r))
		}
	}()

	props, ok, err := src.OCProperties()
	if err != nil {
		return c.layerFailure(result, err)
	}
	if !ok {
		return result
	}

	ocgs, err := src.Resolve(props.Get("OCGs"))
	if err != nil {
		return c.layerFailure(result, fmt.Errorf("resolve /OCGs: %w", err))
	}
	if arr, ok := ocgs.(core.Array); ok {
		result.LayerCount = len(arr)
		result.HasLayers = len(arr) > 0
		for _, item := range arr {
			if layer, ok := c.layerInfo(src, item); ok {
				result.Layers = append(result.Layers, layer)
			}
		}
	}

	if d, ok := resolveDict(src, props.Get("D")); ok {
		if base, ok := d.GetName("BaseState"); ok {
			result.BaseState = base.String()
			result.HasBaseState = true
		}
		on := layerRefs(src, d.Get("ON"))
		off := layerRefs(src, d.Get("OFF"))
		fallback := "ON"
		if result.HasBaseState {
			fallback = strings.ReplaceAll(result.BaseState, "/", "")
		}
		for i := range result.Layers {
			ref := result.Layers[i].Ref
			switch {
			case on[ref]:
				result.Layers[i].DefaultState = "ON"
			case off[ref]:
				result.Layers[i].DefaultState = "OFF"
			default:
				result.Layers[i].DefaultState = fallback
			}
		}

		if order, err := src.Resolve(d.Get("Order")); err == nil {
			_, result.HasCustomOrder = order.(core.Array)
		}
		if locked, err := src.Resolve(d.Get("Locked")); err == nil {
			arr, ok := locked.(core.Array)
			result.HasLockedLayers = ok && len(arr) > 0
		}
	}

	pageList, err := src.Pages()
	if err != nil {
		return c.layerFailure(result, fmt.Errorf("list pages: %w", err))
	}
	for i, page := range pageList {
		names := c.pageLayers(src, page, i+1)
		if len(names) > 0 {
			result.PageLayerUsage[i+1] = names
		}
	}

	if result.HasLayers {
		c.logger.Info("document has optional content",
			"layers", result.LayerCount, "pages_using_layers", len(result.PageLayerUsage))
	}
	return result
}

// LayerError returns an empty layer result carrying err.
func LayerError(err error) OcgLayerCheckResult {
	return OcgLayerCheckResult{Layers: []LayerInfo{}, PageLayerUsage: map[int][]string{}, Err: err}
}

func (c *Checker) layerFailure(result OcgLayerCheckResult, err error) OcgLayerCheckResult {
	c.logger.Error("layer check failed", "error", err)
	result.Err = err
	return result
}

func (c *Checker) layerInfo(src LayerSource, item core.Object) (LayerInfo, bool) {
	dict, ok := resolveDict(src, item)
	if !ok {
		return LayerInfo{}, false
	}
	var info LayerInfo
	info.Ref, _ = item.(core.IndirectRef)

	if name, err := src.Resolve(dict.Get("Name")); err == nil {
		if s, ok := name.(core.String); ok {
			info.Name = core.DecodeTextString(s)
			info.HasName = true
		}
	}

	intent, err := src.Resolve(dict.Get("Intent"))
	if err != nil {
		return info, true
	}
	switch v := intent.(type) {
	case core.Name:
		info.Intent = v.String()
	case core.Array:
		var intents []string
		for _, el := range v {
			if n, err := src.Resolve(el); err == nil {
				if n, ok := n.(core.Name); ok {
					intents = append(intents, n.String())
				}
			}
		}
		info.Intent = strings.Join(intents, ", ")
	}
	return info, true
}

// pageLayers returns the distinct layer names in the page's
// /Resources /Properties, visiting keys in sorted order.
func (c *Checker) pageLayers(src LayerSource, page *pages.Page, pageNum int) []string {
	props, err := page.Properties()
	if err != nil {
		c.logger.Debug("skip page properties", "page", pageNum, "error", err)
		return nil
	}
	var names []string
	seen := make(map[string]bool)
	for _, key := range props.Keys() {
		dict, ok := resolveDict(src, props[key])
		if !ok {
			continue
		}
		obj, err := src.Resolve(dict.Get("Name"))
		if err != nil {
			continue
		}
		s, ok := obj.(core.String)
		if !ok {
			continue
		}
		name := core.DecodeTextString(s)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// layerRefs collects the references in an /ON or /OFF array that point at
// dictionaries. Layers are matched by reference, never by name.
func layerRefs(src LayerSource, obj core.Object) map[core.IndirectRef]bool {
	refs := make(map[core.IndirectRef]bool)
	arr, err := src.Resolve(obj)
	if err != nil {
		return refs
	}
	items, _ := arr.(core.Array)
	for _, item := range items {
		ref, ok := item.(core.IndirectRef)
		if !ok {
			continue
		}
		if _, ok := resolveDict(src, ref); ok {
			refs[ref] = true
		}
	}
	return refs
}

func resolveDict(src LayerSource, obj core.Object) (core.Dict, bool) {
	resolved, err := src.Resolve(obj)
	if err != nil {
		return nil, false
	}
	d, ok := resolved.(core.Dict)
	return d, ok
}
