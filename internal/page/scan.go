package page

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagefx/internal/viewport"
)

var ErrNoCount = errors.New("data-count has no integer value")

// DefaultRevealClasses mark elements that fade in on first view.
var DefaultRevealClasses = []string{
	"course-card", "feature-card", "testimonial-card",
	"section-header", "hero-content", "hero-visual",
}

type Selectors struct {
	RevealClasses []string
}

func (s Selectors) revealClasses() []string {
	if len(s.RevealClasses) == 0 {
		return DefaultRevealClasses
	}
	return s.RevealClasses
}

// ScanFile opens path on fsys and scans it.
func ScanFile(fsys afero.Fs, path string, sel Selectors) (*Document, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Scan(f, sel)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return doc, nil
}

// Scan parses an HTML page and discovers the elements the runtime drives.
func Scan(r io.Reader, sel Selectors) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	s := &scanner{
		sel:     sel,
		doc:     &Document{byID: map[viewport.ElementID]*Element{}},
		nodes:   map[*html.Node]*Element{},
		tagSeq:  map[string]int{},
		targets: map[string]bool{},
	}
	s.collectTargets(root)
	s.walk(root)
	return s.doc, nil
}

type scanner struct {
	sel     Selectors
	doc     *Document
	nodes   map[*html.Node]*Element
	tagSeq  map[string]int
	targets map[string]bool
}

func (s *scanner) collectTargets(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		if href, ok := inPageHref(n); ok {
			s.targets[href] = true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.collectTargets(c)
	}
}

func inPageHref(n *html.Node) (string, bool) {
	href := strings.TrimSpace(attr(n, "href"))
	if !strings.HasPrefix(href, "#") || href == "#" {
		return "", false
	}
	return href[1:], true
}

func (s *scanner) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		s.visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c)
	}
}

func (s *scanner) visit(n *html.Node) {
	classes := strings.Fields(attr(n, "class"))
	has := func(c string) bool {
		for _, x := range classes {
			if x == c {
				return true
			}
		}
		return false
	}
	idAttr := strings.TrimSpace(attr(n, "id"))
	d := s.doc

	switch {
	case n.DataAtom == atom.Title && d.Title == "":
		d.Title = textOf(n)
		return
	case idAttr == "navbar" || (d.Navbar == "" && n.DataAtom == atom.Nav && has("navbar")):
		d.Navbar = s.element(n, classes).ID
	case idAttr == "back-to-top":
		d.BackToTop = s.element(n, classes).ID
	case idAttr == "mobile-menu-btn":
		d.MenuButton = s.element(n, classes).ID
	case idAttr == "nav-menu":
		d.NavMenu = s.element(n, classes).ID
	}

	if idAttr != "" && s.targets[idAttr] {
		d.Sections = append(d.Sections, s.element(n, classes).ID)
	}

	if has("stat-number") && hasAttr(n, "data-count") {
		raw := attr(n, "data-count")
		target, err := parseCount(raw)
		d.Counters = append(d.Counters, Counter{ID: s.element(n, classes).ID, Raw: raw, Target: target, Err: err})
	}
	for _, rc := range s.sel.revealClasses() {
		if has(rc) {
			d.Reveals = append(d.Reveals, s.element(n, classes).ID)
			break
		}
	}
	if n.DataAtom == atom.Img && hasAttr(n, "data-src") {
		d.Images = append(d.Images, Image{ID: s.element(n, classes).ID, Src: attr(n, "data-src")})
	}
	if has("faq-item") {
		q := ""
		if qn := findFirst(n, func(c *html.Node) bool { return hasClassNode(c, "faq-question") }); qn != nil {
			q = textOf(qn)
		}
		d.FAQ = append(d.FAQ, FAQItem{ID: s.element(n, classes).ID, Question: q})
	}
	if has("course-card") {
		d.Courses = append(d.Courses, CourseCard{ID: s.element(n, classes).ID, Category: attr(n, "data-category")})
	}
	if has("filter-btn") && hasAttr(n, "data-filter") {
		d.Filters = append(d.Filters, FilterButton{ID: s.element(n, classes).ID, Filter: attr(n, "data-filter")})
	}
	if n.DataAtom == atom.Form {
		s.form(n, classes)
	}
	if n.DataAtom == atom.A {
		if href, ok := inPageHref(n); ok {
			d.Anchors = append(d.Anchors, Anchor{ID: s.element(n, classes).ID, Target: viewport.ElementID(href)})
		}
	}
}

func (s *scanner) form(n *html.Node, classes []string) {
	f := Form{ID: s.element(n, classes).ID, Action: attr(n, "action")}
	btn := findFirst(n, func(c *html.Node) bool {
		return c.DataAtom == atom.Button && strings.EqualFold(attr(c, "type"), "submit")
	})
	if btn != nil {
		f.Submit = s.element(btn, strings.Fields(attr(btn, "class"))).ID
		f.SubmitText = textOf(btn)
	}
	eachNode(n, func(c *html.Node) {
		switch c.DataAtom {
		case atom.Input, atom.Textarea, atom.Select:
		default:
			return
		}
		name := attr(c, "name")
		if name == "" {
			return
		}
		typ := strings.ToLower(attr(c, "type"))
		if typ == "" {
			typ = c.Data
		}
		if typ == "submit" || typ == "hidden" {
			return
		}
		f.Fields = append(f.Fields, Field{Name: name, Type: typ, Required: hasAttr(c, "required")})
	})
	s.doc.Forms = append(s.doc.Forms, f)
}

// element returns the Element for n, creating it on first sight. Nodes
// without a usable id get `<tag>-<n>`.
func (s *scanner) element(n *html.Node, classes []string) *Element {
	if e, ok := s.nodes[n]; ok {
		return e
	}
	id := viewport.ElementID(strings.TrimSpace(attr(n, "id")))
	if _, taken := s.doc.byID[id]; id == "" || taken {
		for {
			s.tagSeq[n.Data]++
			id = viewport.ElementID(n.Data + "-" + strconv.Itoa(s.tagSeq[n.Data]))
			if _, taken := s.doc.byID[id]; !taken {
				break
			}
		}
	}
	e := &Element{ID: id, Tag: n.Data, Order: len(s.doc.Elements), Classes: classes, Text: textOf(n)}
	s.nodes[n] = e
	s.doc.byID[id] = e
	s.doc.Elements = append(s.doc.Elements, e)
	return e
}

// parseCount reads a leading optionally signed integer, ignoring the rest.
func parseCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%w: %q", ErrNoCount, raw)
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoCount, raw)
	}
	return v, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClassNode(n *html.Node, c string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, x := range strings.Fields(attr(n, "class")) {
		if x == c {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func eachNode(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		eachNode(c, fn)
	}
}

// textOf returns the whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for x := c.FirstChild; x != nil; x = x.NextSibling {
			rec(x)
		}
	}
	rec(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
