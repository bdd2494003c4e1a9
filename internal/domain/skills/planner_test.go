package skills

import (
	"fmt"
	"strings"
	"testing"
)

func TestPlanGroups_ExpandsAndPartitions(t *testing.T) {
	groups := PlanGroups(Default(), []string{"go", "react"})
	if len(groups) == 0 {
		t.Fatal("expected at least one group")
	}

	var all []string
	for i, g := range groups {
		if g.Index != i {
			t.Errorf("group %d has index %d", i, g.Index)
		}
		if len(g.Skills) > MaxSkillsPerGroup {
			t.Errorf("group %d oversized: %d", i, len(g.Skills))
		}
		all = append(all, g.Skills...)
	}

	want := []string{"go", "react", "golang", "reactjs", "react.js"}
	if len(all) != len(want) {
		t.Fatalf("expected %d terms, got %v", len(want), all)
	}
	for _, term := range want {
		if !containsFold(all, term) {
			t.Errorf("missing expanded term %q in %v", term, all)
		}
	}
}

func TestPlanGroups_UnmatchedPassThrough(t *testing.T) {
	groups := PlanGroups(Default(), []string{"cobol-85"})
	if len(groups) != 1 || len(groups[0].Skills) != 1 || groups[0].Skills[0] != "cobol-85" {
		t.Errorf("unexpected plan for unmatched skill: %+v", groups)
	}
}

func TestPlanGroups_DeduplicatesCaseInsensitively(t *testing.T) {
	groups := PlanGroups(Default(), []string{"Go", "GO", "golang"})
	var all []string
	for _, g := range groups {
		all = append(all, g.Skills...)
	}
	if len(all) != 2 {
		t.Errorf("expected [Go golang]-shaped union, got %v", all)
	}
}

func TestPlanGroups_OverflowSumsToCapExactly(t *testing.T) {
	table := build(bigSynonymGroups(40, 5), nil)
	requested := make([]string, 40)
	for i := range requested {
		requested[i] = fmt.Sprintf("skill%d", i)
	}

	groups := PlanGroups(table, requested)

	total := 0
	for _, g := range groups {
		if len(g.Skills) > MaxSkillsPerGroup {
			t.Errorf("group %d oversized: %d", g.Index, len(g.Skills))
		}
		total += len(g.Skills)
	}
	if total != MaxTotalSkills {
		t.Errorf("expected total exactly %d, got %d", MaxTotalSkills, total)
	}

	// All requested originals must survive the cap.
	var all []string
	for _, g := range groups {
		all = append(all, g.Skills...)
	}
	for _, orig := range requested {
		if !containsFold(all, orig) {
			t.Errorf("original term %q dropped in favor of a synonym", orig)
		}
	}
}

func TestCorrectTypo(t *testing.T) {
	table := Default()

	fixed, changed := table.CorrectTypo("javascirpt")
	if !changed || fixed != "javascript" {
		t.Errorf("CorrectTypo(javascirpt) = %q, %v", fixed, changed)
	}

	same, changed := table.CorrectTypo("golang")
	if changed || same != "golang" {
		t.Errorf("CorrectTypo(golang) = %q, %v", same, changed)
	}
}

func TestExpand_Bidirectional(t *testing.T) {
	table := Default()
	for _, skill := range []string{"go", "golang", "GOLANG"} {
		terms := table.Expand(skill)
		if len(terms) != 2 {
			t.Errorf("Expand(%q) = %v, want both directions of the pair", skill, terms)
		}
	}
}

// bigSynonymGroups builds n equivalence groups of the given size:
// skill<i> plus synonyms.
func bigSynonymGroups(n, size int) [][]string {
	groups := make([][]string, n)
	for i := range groups {
		g := make([]string, size)
		g[0] = fmt.Sprintf("skill%d", i)
		for j := 1; j < size; j++ {
			g[j] = fmt.Sprintf("skill%d-alt%d", i, j)
		}
		groups[i] = g
	}
	return groups
}

func containsFold(list []string, term string) bool {
	for _, s := range list {
		if strings.EqualFold(s, term) {
			return true
		}
	}
	return false
}
