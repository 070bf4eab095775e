package page

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"pagefx/internal/viewport"
)

const samplePage = `<!DOCTYPE html>
<html><head><title> NIPS  Education </title></head>
<body>
<nav id="navbar" class="navbar">
  <button id="mobile-menu-btn"></button>
  <ul id="nav-menu"><li><a href="#courses">Courses</a></li><li><a href="#">Top</a></li></ul>
</nav>
<section class="hero"><div class="hero-content">Learn</div><div class="hero-visual"></div></section>
<div class="stats">
  <span class="stat-number" data-count="250">0</span>
  <span class="stat-number" data-count="98%">0</span>
  <span class="stat-number" data-count="many">0</span>
  <span class="stat-number">42</span>
</div>
<section id="courses">
  <div class="section-header">Courses</div>
  <button class="filter-btn active" data-filter="all">All</button>
  <button class="filter-btn" data-filter="tech">Tech</button>
  <div class="course-card" data-category="tech" id="go-101">Go</div>
  <div class="course-card" data-category="business">MBA</div>
</section>
<img data-src="/img/campus.jpg" alt="">
<img src="/img/logo.png">
<div class="faq-item"><div class="faq-question"> What is   NIPS? </div><div class="faq-answer">A school</div></div>
<div class="faq-item"><div class="faq-question">Fees?</div></div>
<form id="enrollment-form" action="/enroll">
  <input name="email" type="email" required>
  <input name="phone" type="tel">
  <input name="token" type="hidden">
  <textarea name="message"></textarea>
  <button type="submit"><span>Enroll Now</span></button>
</form>
<form action="https://formspree.io/f/abc"><button type="submit">Send</button></form>
<div id="go-101" class="feature-card"></div>
<button id="back-to-top">^</button>
</body></html>`

func TestScanDiscoversElements(t *testing.T) {
	t.Parallel()
	doc, err := Scan(strings.NewReader(samplePage), Selectors{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if doc.Title != "NIPS Education" {
		t.Fatalf("Title = %q", doc.Title)
	}
	if doc.Navbar != "navbar" || doc.BackToTop != "back-to-top" || doc.MenuButton != "mobile-menu-btn" || doc.NavMenu != "nav-menu" {
		t.Fatalf("nav = %q %q %q %q", doc.Navbar, doc.BackToTop, doc.MenuButton, doc.NavMenu)
	}

	if len(doc.Counters) != 3 {
		t.Fatalf("counters = %+v", doc.Counters)
	}
	if doc.Counters[0].Target != 250 || doc.Counters[0].Err != nil {
		t.Fatalf("counter 0 = %+v", doc.Counters[0])
	}
	if doc.Counters[1].Target != 98 || doc.Counters[1].Err != nil {
		t.Fatalf("counter 1 = %+v", doc.Counters[1])
	}
	if !errors.Is(doc.Counters[2].Err, ErrNoCount) {
		t.Fatalf("counter 2 err = %v", doc.Counters[2].Err)
	}

	wantReveals := []viewport.ElementID{"div-1", "div-2", "div-3", "go-101", "div-4", "div-7"}
	if len(doc.Reveals) != len(wantReveals) {
		t.Fatalf("reveals = %v, want %v", doc.Reveals, wantReveals)
	}
	for i, id := range wantReveals {
		if doc.Reveals[i] != id {
			t.Fatalf("reveals = %v, want %v", doc.Reveals, wantReveals)
		}
	}

	if len(doc.Images) != 1 || doc.Images[0].Src != "/img/campus.jpg" {
		t.Fatalf("images = %+v", doc.Images)
	}
	if len(doc.FAQ) != 2 || doc.FAQ[0].Question != "What is NIPS?" {
		t.Fatalf("faq = %+v", doc.FAQ)
	}
	if len(doc.Courses) != 2 || doc.Courses[0].Category != "tech" || doc.Courses[1].Category != "business" {
		t.Fatalf("courses = %+v", doc.Courses)
	}
	if len(doc.Filters) != 2 || doc.Filters[1].Filter != "tech" {
		t.Fatalf("filters = %+v", doc.Filters)
	}

	if len(doc.Forms) != 2 {
		t.Fatalf("forms = %+v", doc.Forms)
	}
	f, ok := doc.Form("enrollment-form")
	if !ok {
		t.Fatal("enrollment form not found")
	}
	if f.Action != "/enroll" || f.SubmitText != "Enroll Now" || f.Submit == "" {
		t.Fatalf("form = %+v", f)
	}
	if len(f.Fields) != 3 || f.Fields[0].Name != "email" || !f.Fields[0].Required || f.Fields[2].Type != "textarea" {
		t.Fatalf("fields = %+v", f.Fields)
	}

	if len(doc.Anchors) != 1 || doc.Anchors[0].Target != "courses" {
		t.Fatalf("anchors = %+v", doc.Anchors)
	}
	if len(doc.Sections) != 1 || doc.Sections[0] != "courses" {
		t.Fatalf("sections = %v", doc.Sections)
	}
}

func TestScanAssignsDocumentOrder(t *testing.T) {
	t.Parallel()
	doc, err := Scan(strings.NewReader(samplePage), Selectors{})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[viewport.ElementID]bool{}
	for i, e := range doc.Elements {
		if e.Order != i {
			t.Fatalf("element %s order = %d, want %d", e.ID, e.Order, i)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
		got, ok := doc.Lookup(e.ID)
		if !ok || got != e {
			t.Fatalf("Lookup(%s) mismatch", e.ID)
		}
	}
	hero, _ := doc.Lookup("div-1")
	card, _ := doc.Lookup("go-101")
	if hero.Order >= card.Order {
		t.Fatalf("hero (%d) should precede course card (%d)", hero.Order, card.Order)
	}
}

func TestScanCustomRevealClasses(t *testing.T) {
	t.Parallel()
	doc, err := Scan(strings.NewReader(`<div class="promo"></div><div class="course-card"></div>`), Selectors{RevealClasses: []string{"promo"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Reveals) != 1 || doc.Reveals[0] != "div-1" {
		t.Fatalf("reveals = %v", doc.Reveals)
	}
	if len(doc.Courses) != 1 {
		t.Fatalf("course cards are discovered regardless of reveal classes")
	}
}

func TestScanFile(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/site/index.html", []byte(samplePage), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ScanFile(fs, "/site/index.html", Selectors{})
	if err != nil {
		t.Fatalf("ScanFile: %v", err)
	}
	if len(doc.Counters) != 3 {
		t.Fatalf("counters = %d", len(doc.Counters))
	}
	if _, err := ScanFile(fs, "/site/missing.html", Selectors{}); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{raw: "250", want: 250},
		{raw: " 15000+ ", want: 15000},
		{raw: "-3", want: -3},
		{raw: "1,200", want: 1},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "-", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseCount(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseCount(%q) err = %v", tt.raw, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("parseCount(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
