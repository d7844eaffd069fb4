package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tsawler/pagecheck"
	"github.com/tsawler/pagecheck/check"
)

const stylesheet = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;margin:.5em 0}
td,th{border:1px solid #ccc;padding:.2em .6em;text-align:left}
.issue{color:#b00}
.ok{color:#070}
tr.drift td{background:#fee}`

// WriteHTML renders the run as a standalone HTML page.
func WriteHTML(w io.Writer, run Run) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, "charset", "utf-8"))
	head.AppendChild(withText(element(atom.Title), "pagecheck report"))
	head.AppendChild(withText(element(atom.Style), stylesheet))
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	body.AppendChild(withText(element(atom.H1), "PDF check report"))
	if run.ID != "" {
		body.AppendChild(withText(element(atom.P), "Run "+run.ID))
	}

	for _, r := range run.Reports {
		body.AppendChild(documentSection(r))
	}
	if len(run.Skipped) > 0 {
		body.AppendChild(withText(element(atom.H2), "Skipped"))
		list := element(atom.Ul)
		for _, s := range run.Skipped {
			list.AppendChild(withText(element(atom.Li), s.Path+": "+s.Reason))
		}
		body.AppendChild(list)
	}
	body.AppendChild(summaryTable(Summarize(run)))

	return html.Render(w, doc)
}

func documentSection(r pagecheck.Report) *html.Node {
	sec := element(atom.Section)
	sec.AppendChild(withText(element(atom.H2), r.File))

	sec.AppendChild(withText(element(atom.H3), "Page tree"))
	if r.Tree.Err != nil {
		sec.AppendChild(status(false, "Error: "+r.Tree.Err.Error()))
	} else {
		sec.AppendChild(status(!r.Tree.HasDiscrepancy, discrepancyLine(r.Tree)))
		sec.AppendChild(table(nil,
			[]string{"Declared /Count", strconv.Itoa(r.Tree.DeclaredCount)},
			[]string{"Leaf pages", strconv.Itoa(r.Tree.ActualCount)},
			[]string{"Difference", strconv.Itoa(r.Tree.Difference())},
		))
	}

	sec.AppendChild(withText(element(atom.H3), "Copy pipeline"))
	sec.AppendChild(status(!r.Copy.HasMismatch, fmt.Sprintf("%s: %s", r.Copy.Outcome, r.Copy.Message)))
	if len(r.Copy.Snapshots) > 0 {
		sec.AppendChild(snapshotTable(r.Copy))
	}

	sec.AppendChild(withText(element(atom.H3), "Optional content"))
	sec.AppendChild(layerSection(r.Layers))
	return sec
}

func discrepancyLine(r check.DiscrepancyResult) string {
	if r.HasDiscrepancy {
		return fmt.Sprintf("Discrepancy: %d declared, %d found", r.DeclaredCount, r.ActualCount)
	}
	return fmt.Sprintf("Counts match at %d pages", r.DeclaredCount)
}

func snapshotTable(r check.CopyOperationResult) *html.Node {
	t := table([]string{"Checkpoint", "currentPageNumber", "pageReferences"})
	tbody := t.LastChild
	for _, s := range r.Snapshots {
		tr := row(s.Label, strconv.Itoa(s.CurrentPageNumber), strconv.Itoa(s.PageReferencesSize))
		if s.Phase == check.PhaseAlter && s.Page == r.ProblematicPage {
			tr.Attr = append(tr.Attr, html.Attribute{Key: "class", Val: "drift"})
		}
		tbody.AppendChild(tr)
	}
	return t
}

func layerSection(r check.OcgLayerCheckResult) *html.Node {
	div := element(atom.Div)
	switch {
	case r.Err != nil:
		div.AppendChild(status(false, "OCG check error: "+r.Err.Error()))
		return div
	case !r.HasLayers:
		div.AppendChild(withText(element(atom.P), "No layers"))
		return div
	}

	base := "Default (ON)"
	if r.HasBaseState {
		base = r.BaseState
	}
	div.AppendChild(table(nil,
		[]string{"Layer count", strconv.Itoa(r.LayerCount)},
		[]string{"Base state", base},
		[]string{"Custom order", yesNo(r.HasCustomOrder)},
		[]string{"Locked layers", yesNo(r.HasLockedLayers)},
	))

	layers := table([]string{"Name", "Default state", "Intent"})
	for _, l := range r.Layers {
		name, state := l.Name, l.DefaultState
		if !l.HasName {
			name = "(Unnamed)"
		}
		if state == "" {
			state = "?"
		}
		layers.LastChild.AppendChild(row(name, state, l.Intent))
	}
	div.AppendChild(layers)

	if len(r.PageLayerUsage) > 0 {
		usage := element(atom.Ul)
		for _, p := range r.UsedPages() {
			usage.AppendChild(withText(element(atom.Li), fmt.Sprintf("Page %d: %s", p, strings.Join(r.PageLayerUsage[p], ", "))))
		}
		div.AppendChild(usage)
	}
	div.AppendChild(status(false, check.LayerWarning))
	return div
}

func summaryTable(s Summary) *html.Node {
	sec := element(atom.Section)
	sec.AppendChild(withText(element(atom.H2), "Summary"))
	sec.AppendChild(table(nil,
		[]string{"Total files checked", strconv.Itoa(s.Checked)},
		[]string{"Files with page tree discrepancy", strconv.Itoa(s.TreeDiscrepancies)},
		[]string{"Files with copy state mismatch", strconv.Itoa(s.CopyMismatches)},
		[]string{"Files without issues", strconv.Itoa(s.Clean)},
	))
	return sec
}

// table builds a table with an optional header row. The body is always
// the last child so callers can append rows to it.
func table(header []string, rows ...[]string) *html.Node {
	t := element(atom.Table)
	if header != nil {
		thead := element(atom.Thead)
		tr := element(atom.Tr)
		for _, h := range header {
			tr.AppendChild(withText(element(atom.Th), h))
		}
		thead.AppendChild(tr)
		t.AppendChild(thead)
	}
	tbody := element(atom.Tbody)
	for _, r := range rows {
		tbody.AppendChild(row(r...))
	}
	t.AppendChild(tbody)
	return t
}

func row(cells ...string) *html.Node {
	tr := element(atom.Tr)
	for _, c := range cells {
		tr.AppendChild(withText(element(atom.Td), c))
	}
	return tr
}

func status(ok bool, msg string) *html.Node {
	class := "issue"
	if ok {
		class = "ok"
	}
	return withText(element(atom.P, "class", class), msg)
}

// element creates an element node; attrs are key, value pairs.
func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func withText(n *html.Node, s string) *html.Node {
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	return n
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
