// Package skills expands requested skills through a curated synonym table
// and partitions the expanded set into size-bounded groups for parallel
// execution.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table is a static, case-insensitive, bidirectional synonym table with an
// optional misspelling map. It is externally curated input; it never learns.
type Table struct {
	groups map[string][]string // lower(term) -> full equivalence group
	typos  map[string]string   // lower(misspelling) -> correction
}

// tableFile is the YAML shape of an externally curated table.
type tableFile struct {
	Synonyms [][]string        `yaml:"synonyms"`
	Typos    map[string]string `yaml:"typos"`
}

// defaultGroups is the built-in equivalence table used when no external
// table is configured.
var defaultGroups = [][]string{
	{"go", "golang"},
	{"js", "javascript", "ecmascript"},
	{"ts", "typescript"},
	{"react", "reactjs", "react.js"},
	{"vue", "vuejs", "vue.js"},
	{"angular", "angularjs"},
	{"node", "nodejs", "node.js"},
	{"py", "python"},
	{"postgres", "postgresql"},
	{"k8s", "kubernetes"},
	{"ml", "machine learning"},
	{"ai", "artificial intelligence"},
	{"devops", "dev ops"},
	{"c#", "csharp", "dotnet", ".net"},
	{"objective-c", "objc"},
	{"frontend", "front-end", "front end"},
	{"backend", "back-end", "back end"},
	{"fullstack", "full-stack", "full stack"},
}

var defaultTypos = map[string]string{
	"javascirpt": "javascript",
	"javasript":  "javascript",
	"pyton":      "python",
	"pyhton":     "python",
	"kuberentes": "kubernetes",
	"postgress":  "postgres",
	"reactjs.":   "reactjs",
	"gloang":     "golang",
}

// Default returns the built-in table.
func Default() *Table {
	return build(defaultGroups, defaultTypos)
}

// Load reads an externally curated table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read synonym table %s: %w", path, err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse synonym table: %w", err)
	}
	return build(f.Synonyms, f.Typos), nil
}

func build(groups [][]string, typos map[string]string) *Table {
	t := &Table{
		groups: make(map[string][]string),
		typos:  make(map[string]string, len(typos)),
	}
	for _, group := range groups {
		clean := make([]string, 0, len(group))
		for _, term := range group {
			term = strings.TrimSpace(term)
			if term != "" {
				clean = append(clean, term)
			}
		}
		if len(clean) < 2 {
			continue
		}
		for _, term := range clean {
			t.groups[strings.ToLower(term)] = clean
		}
	}
	for miss, fix := range typos {
		miss = strings.ToLower(strings.TrimSpace(miss))
		fix = strings.TrimSpace(fix)
		if miss != "" && fix != "" {
			t.typos[miss] = fix
		}
	}
	return t
}

// Expand returns the full equivalence group for a skill, the skill itself
// first. Unmatched skills pass through unchanged.
func (t *Table) Expand(skill string) []string {
	group, ok := t.groups[strings.ToLower(skill)]
	if !ok {
		return []string{skill}
	}
	out := make([]string, 0, len(group))
	out = append(out, skill)
	seen := map[string]struct{}{strings.ToLower(skill): {}}
	for _, term := range group {
		k := strings.ToLower(term)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, term)
	}
	return out
}

// CorrectTypo maps a known misspelling to its correction. The second return
// reports whether a correction was applied.
func (t *Table) CorrectTypo(skill string) (string, bool) {
	if fix, ok := t.typos[strings.ToLower(skill)]; ok {
		return fix, true
	}
	return skill, false
}
