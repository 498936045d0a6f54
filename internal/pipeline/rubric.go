package pipeline

import (
	"math"
	"strings"
)

const (
	mustHaveWeight   = 0.7
	niceToHaveWeight = 0.3
	// MissingMustHaveCap bounds the score when any must-have skill lacks evidence.
	MissingMustHaveCap = 40
)

var notFoundMarkers = map[string]struct{}{
	"not found": {},
	"notfound":  {},
	"n/a":       {},
	"na":        {},
	"none":      {},
	"null":      {},
	"-":         {},
}

// SkillCheck is one rubric line: a skill and the résumé quote proving it.
type SkillCheck struct {
	Skill    string
	Evidence string
	Present  bool
}

// NewSkillCheck marks the skill present only when evidence is a quote that
// actually occurs in resume, ignoring case and whitespace. An explicit
// found=false always wins.
func NewSkillCheck(resume, skill, evidence string, found *bool) SkillCheck {
	evidence = strings.TrimSpace(evidence)
	present := hasEvidence(foldText(resume), evidence)
	if found != nil && !*found {
		present = false
	}
	if !present {
		evidence = ""
	}
	return SkillCheck{Skill: strings.TrimSpace(skill), Evidence: evidence, Present: present}
}

func hasEvidence(foldedResume, evidence string) bool {
	quote := foldText(strings.Trim(strings.TrimSpace(evidence), ".\"'`“”‘’…"))
	if quote == "" || foldedResume == "" {
		return false
	}
	if _, marker := notFoundMarkers[quote]; marker {
		return false
	}
	return strings.Contains(foldedResume, quote)
}

// foldText lowercases s and collapses every whitespace run to one space.
func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Rubric is the evidence-gated, two-tier skill assessment.
type Rubric struct {
	MustHave   []SkillCheck
	NiceToHave []SkillCheck
}

// Matched returns the must-have skills backed by evidence.
func (r Rubric) Matched() []string {
	return skillNames(r.MustHave, true)
}

// Missing returns the must-have skills without evidence.
func (r Rubric) Missing() []string {
	return skillNames(r.MustHave, false)
}

// WeightedScore computes the 70/30 score from evidence alone. When a tier is
// empty its weight goes to the other tier.
func (r Rubric) WeightedScore() float64 {
	must, hasMust := coverage(r.MustHave)
	nice, hasNice := coverage(r.NiceToHave)

	switch {
	case hasMust && hasNice:
		return 100 * (mustHaveWeight*must + niceToHaveWeight*nice)
	case hasMust:
		return 100 * must
	case hasNice:
		return 100 * nice
	default:
		return 0
	}
}

// Score returns the final integer score in [0, 100]. It is derived from the
// evidence alone, and the must-have ceiling always applies.
func (r Rubric) Score() int {
	score := math.Max(0, math.Min(100, r.WeightedScore()))
	if len(r.Missing()) > 0 && score > MissingMustHaveCap {
		score = MissingMustHaveCap
	}
	return int(math.Round(score))
}

func coverage(checks []SkillCheck) (float64, bool) {
	total := 0
	present := 0
	for _, check := range checks {
		if check.Skill == "" {
			continue
		}
		total++
		if check.Present {
			present++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(present) / float64(total), true
}

func skillNames(checks []SkillCheck, present bool) []string {
	names := make([]string, 0, len(checks))
	seen := make(map[string]struct{}, len(checks))
	for _, check := range checks {
		if check.Skill == "" || check.Present != present {
			continue
		}
		key := strings.ToLower(check.Skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, check.Skill)
	}
	return names
}
