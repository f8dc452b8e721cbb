package intent

import (
	"testing"

	"tidy-go/internal/tidy"
)

func TestResolve(t *testing.T) {
	defaults := tidy.DefaultRuleOptions()
	withCustom := tidy.DefaultRuleOptions()
	withCustom.CustomCategories = []tidy.CustomCategory{{Name: "Reports", Extensions: []string{"pdf"}}}

	tests := []struct {
		name            string
		text            string
		defaults        tidy.RuleOptions
		wantRule        tidy.Rule
		wantGranularity tidy.DateGranularity
		wantOK          bool
	}{
		{"by type", "Organize my files by type", defaults, tidy.RuleByType, defaults.DateGranularity, true},
		{"by category", "sort into categories please", defaults, tidy.RuleByType, defaults.DateGranularity, true},
		{"by month", "organize my downloads by month", defaults, tidy.RuleByDate, tidy.GranularityYearMonth, true},
		{"by year", "group these by YEAR", defaults, tidy.RuleByDate, tidy.GranularityYear, true},
		{"by day", "sort photos daily", defaults, tidy.RuleByDate, tidy.GranularityYearMonthDay, true},
		{"by date uses default granularity", "sort by date", defaults, tidy.RuleByDate, defaults.DateGranularity, true},
		{"by size", "put the big files somewhere", defaults, tidy.RuleBySize, defaults.DateGranularity, true},
		{"by extension", "group by file extension", defaults, tidy.RuleByExtension, defaults.DateGranularity, true},
		{"extension beats type", "organize by extension type", defaults, tidy.RuleByExtension, defaults.DateGranularity, true},
		{"the word after by wins", "sort by type when you can", defaults, tidy.RuleByType, defaults.DateGranularity, true},
		{"by clause beats earlier keywords", "move the big files by year", defaults, tidy.RuleByDate, tidy.GranularityYear, true},
		{"by clause without a rule falls back", "tidy up by hand please, flatten it", defaults, tidy.RuleFlatten, defaults.DateGranularity, true},
		{"flatten", "flatten everything into one folder", defaults, tidy.RuleFlatten, defaults.DateGranularity, true},
		{"custom with categories", "use my categories", withCustom, tidy.RuleCustom, defaults.DateGranularity, true},
		{"custom without categories", "use my custom setup", defaults, "", defaults.DateGranularity, false},
		{"no rule", "hello there", defaults, "", defaults.DateGranularity, false},
		{"blank", "   ", defaults, "", defaults.DateGranularity, false},
		{"word fragments do not match", "typewriter sizeable", defaults, "", defaults.DateGranularity, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, opts, ok := Resolve(tt.text, tt.defaults)
			if ok != tt.wantOK || rule != tt.wantRule {
				t.Fatalf("Resolve(%q) = %q, %v; want %q, %v", tt.text, rule, ok, tt.wantRule, tt.wantOK)
			}
			if opts.DateGranularity != tt.wantGranularity {
				t.Errorf("DateGranularity = %q, want %q", opts.DateGranularity, tt.wantGranularity)
			}
			if opts.SizeThresholds != tt.defaults.SizeThresholds {
				t.Errorf("SizeThresholds = %+v, want defaults", opts.SizeThresholds)
			}
		})
	}
}
