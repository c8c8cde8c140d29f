package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - daily\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "daily" {
		t.Errorf("tags = %v, want [go daily]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_CommaSeparatedTags(t *testing.T) {
	r, _ := Parse([]byte("---\ntags: work, errands\n---\ntext\n"))
	if len(r.Tags) != 2 || r.Tags[0] != "work" || r.Tags[1] != "errands" {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := &Frontmatter{Tags: tagList{"alpha"}}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(&Frontmatter{Title: "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}

func TestDraft_FrontmatterTitle(t *testing.T) {
	d, err := Draft("2024-03-10.md", []byte("---\ntitle: Groceries\naudio: /audio/x.wav\n---\n# Shopping\nMilk\n"))
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if d.Title != "Groceries" {
		t.Errorf("title = %q", d.Title)
	}
	// The heading is content when the title came from frontmatter.
	if d.Content != "# Shopping\nMilk" {
		t.Errorf("content = %q", d.Content)
	}
	if d.AudioURL == nil || *d.AudioURL != "/audio/x.wav" {
		t.Errorf("audio = %v", d.AudioURL)
	}
}

func TestDraft_HeadingTitleIsRemovedFromContent(t *testing.T) {
	d, _ := Draft("x.md", []byte("# Call mom\n\nAbout the weekend #family\n"))
	if d.Title != "Call mom" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Content != "About the weekend #family" {
		t.Errorf("content = %q", d.Content)
	}
	if len(d.Tags) != 1 || d.Tags[0] != "family" {
		t.Errorf("tags = %v", d.Tags)
	}
	if d.AudioURL != nil {
		t.Errorf("audio = %v, want nil", *d.AudioURL)
	}
}

func TestDraft_FileStemFallback(t *testing.T) {
	d, _ := Draft("notes/Monday thoughts.md", []byte("just text\n"))
	if d.Title != "Monday thoughts" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Content != "just text" {
		t.Errorf("content = %q", d.Content)
	}
}
