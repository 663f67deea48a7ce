package form

import (
	"sort"
	"strings"
	"unicode"
)

const minKeywordLen = 4

// ExtractKeywords derives the clinical terms used to match a submission
// against neurologist specializations. The result is sorted and unique.
func ExtractKeywords(cmd *SubmitFormCommand) []string {
	set := make(map[string]struct{})
	add := func(words ...string) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
	}

	if st := strings.ToLower(string(cmd.SeizureType)); st != "" {
		add(st)
		switch {
		case strings.Contains(st, "absence"):
			add("petit mal", "absence")
		case strings.Contains(st, "tonic"), strings.Contains(st, "clonic"):
			add("grand mal", "convulsive")
		case strings.Contains(st, "focal"):
			add("partial", "focal")
		}
	}

	sy := cmd.Symptoms
	if sy.LossOfConsciousness {
		add("conscience", "unconscious")
	}
	if sy.BodyStiffening {
		add("tonic", "stiffening", "rigidity")
	}
	if sy.ClonicJerks {
		add("clonic", "jerking", "convulsion")
	}
	if sy.EyeDeviation {
		add("ocular", "eye", "vision")
	}
	if sy.HasAura && strings.TrimSpace(sy.AuraDescription) != "" {
		add("aura")
		add(tokens(sy.AuraDescription)...)
	}
	add(tokens(sy.OtherInformation)...)

	switch cmd.SeizureFrequency {
	case FrequencyDaily:
		add("daily", "frequent", "severe")
	case FrequencyWeekly:
		add("weekly", "regular", "moderate")
	case FrequencyMonthly:
		add("monthly", "occasional", "rare")
	case FrequencyYearly:
		add("yearly", "occasional", "rare")
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// tokens splits free text on anything that is not a letter or digit and
// keeps words of at least minKeywordLen runes.
func tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minKeywordLen {
			out = append(out, f)
		}
	}
	return out
}

// MatchesSpecialization reports whether the specialization text contains
// any of the keywords, ignoring case.
func MatchesSpecialization(specialization string, keywords []string) bool {
	spec := strings.ToLower(specialization)
	if strings.TrimSpace(spec) == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(spec, k) {
			return true
		}
	}
	return false
}
