// Package parser turns Markdown files with optional YAML frontmatter into
// note drafts for import.
package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dailynotes/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Frontmatter is the recognised subset of the YAML header.
type Frontmatter struct {
	Title string  `yaml:"title"`
	Tags  tagList `yaml:"tags"`
	Audio string  `yaml:"audio"`
}

// tagList accepts either a YAML sequence or a comma-separated string.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*t = items
	case yaml.ScalarNode:
		*t = strings.Split(node.Value, ",")
	}
	return nil
}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter *Frontmatter
	Body        string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, tags and title from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Draft converts a Markdown file into a note draft. The title falls back to
// the first H1 heading and then to the file name without extension; a
// heading used as the title is removed from the content.
func Draft(name string, data []byte) (models.Draft, error) {
	r, err := Parse(data)
	if err != nil {
		return models.Draft{}, err
	}
	content := r.Body
	title := r.Title
	if r.Frontmatter == nil || strings.TrimSpace(r.Frontmatter.Title) == "" {
		if title != "" {
			content = dropHeading(content)
		} else {
			title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
	}
	d := models.Draft{
		Title:   title,
		Content: strings.TrimSpace(content),
		Tags:    r.Tags,
	}
	if r.Frontmatter != nil {
		d.AudioURL = models.StringPtr(strings.TrimSpace(r.Frontmatter.Audio))
	}
	return d, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Missing or invalid frontmatter leaves everything as body.
func splitFrontmatter(data []byte) (*Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return &fm, body
}

// extractTags collects frontmatter tags followed by inline #tags, deduplicated.
func extractTags(body string, fm *Frontmatter) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if fm != nil {
		for _, s := range fm.Tags {
			add(s)
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter title if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm *Frontmatter, body string) string {
	if fm != nil && strings.TrimSpace(fm.Title) != "" {
		return strings.TrimSpace(fm.Title)
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// dropHeading removes the first H1 line.
func dropHeading(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "# ") {
			return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
	}
	return body
}
