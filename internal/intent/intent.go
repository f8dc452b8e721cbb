// Package intent maps short natural-language requests such as
// "organize my downloads by month" to an organization rule.
package intent

import (
	"regexp"
	"strings"

	"tidy-go/internal/tidy"
)

// matcher recognizes one rule. Matchers are tried in order; the first hit wins,
// so more specific phrasings come before generic ones.
type matcher struct {
	rule    tidy.Rule
	pattern *regexp.Regexp
}

var matchers = []matcher{
	{tidy.RuleFlatten, regexp.MustCompile(`\b(flatten|unnest|un-nest|single folder|one folder)\b`)},
	{tidy.RuleCustom, regexp.MustCompile(`\b(custom|my (own )?categories)\b`)},
	{tidy.RuleByExtension, regexp.MustCompile(`\b(extensions?|suffix(es)?|file endings?)\b`)},
	{tidy.RuleByDate, regexp.MustCompile(`\b(dates?|days?|daily|months?|monthly|years?|yearly|annual(ly)?|modified|chronologically)\b`)},
	{tidy.RuleBySize, regexp.MustCompile(`\b(sizes?|big(gest)?|large(st)?|small(est)?|huge|tiny)\b`)},
	{tidy.RuleByType, regexp.MustCompile(`\b(types?|kinds?|categor(y|ies)|category|format)\b`)},
}

// byPattern captures the words right after "by", which name the rule most directly.
var byPattern = regexp.MustCompile(`\bby ([a-z-]+(?: [a-z-]+)?)`)

var (
	dayPattern   = regexp.MustCompile(`\b(days?|daily)\b`)
	monthPattern = regexp.MustCompile(`\b(months?|monthly)\b`)
	yearPattern  = regexp.MustCompile(`\b(years?|yearly|annual(ly)?)\b`)
)

// Resolve returns the rule and options text asks for, starting from defaults.
// ok is false when no rule is recognized; callers then do nothing.
// A custom rule is only recognized when defaults carry custom categories.
func Resolve(text string, defaults tidy.RuleOptions) (rule tidy.Rule, opts tidy.RuleOptions, ok bool) {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	opts = defaults
	if normalized == "" {
		return "", opts, false
	}

	candidates := []string{}
	for _, m := range byPattern.FindAllStringSubmatch(normalized, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, normalized)

	for _, c := range candidates {
		if rule, found := match(c, len(defaults.CustomCategories) > 0); found {
			if rule == tidy.RuleByDate {
				opts.DateGranularity = granularity(c, defaults.DateGranularity)
			}
			return rule, opts, true
		}
	}
	return "", opts, false
}

func match(text string, haveCustom bool) (tidy.Rule, bool) {
	for _, m := range matchers {
		if m.rule == tidy.RuleCustom && !haveCustom {
			continue
		}
		if m.pattern.MatchString(text) {
			return m.rule, true
		}
	}
	return "", false
}

func granularity(text string, fallback tidy.DateGranularity) tidy.DateGranularity {
	switch {
	case dayPattern.MatchString(text):
		return tidy.GranularityYearMonthDay
	case monthPattern.MatchString(text):
		return tidy.GranularityYearMonth
	case yearPattern.MatchString(text):
		return tidy.GranularityYear
	}
	if fallback == "" {
		return tidy.GranularityYearMonth
	}
	return fallback
}
