package tidy

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// Rule is the strategy used to compute destination folders.
type Rule string

const (
	RuleByType      Rule = "byType"
	RuleByDate      Rule = "byDate"
	RuleBySize      Rule = "bySize"
	RuleByExtension Rule = "byExtension"
	RuleFlatten     Rule = "flatten"
	RuleCustom      Rule = "custom"
)

// Rules lists every supported rule in display order.
var Rules = []Rule{RuleByType, RuleByDate, RuleBySize, RuleByExtension, RuleFlatten, RuleCustom}

// ParseRule accepts a rule name case-insensitively, with or without the "by" prefix
// ("byDate", "date", "by-date").
func ParseRule(s string) (Rule, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, r := range Rules {
		name := strings.ToLower(string(r))
		if norm == name || "by"+norm == name {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRule, s)
}

// Label is the human readable rule name used in plan titles.
func (r Rule) Label() string {
	switch r {
	case RuleByType:
		return "type"
	case RuleByDate:
		return "date"
	case RuleBySize:
		return "size"
	case RuleByExtension:
		return "extension"
	case RuleFlatten:
		return "flattening"
	case RuleCustom:
		return "custom categories"
	default:
		return string(r)
	}
}

// DateGranularity selects how deep byDate folders go.
type DateGranularity string

const (
	GranularityYear         DateGranularity = "year"
	GranularityYearMonth    DateGranularity = "year-month"
	GranularityYearMonthDay DateGranularity = "year-month-day"
)

// SizeThresholds split files into small (< SmallBytes), medium (< MediumBytes) and large.
type SizeThresholds struct {
	SmallBytes  int64 `toml:"small_bytes"`
	MediumBytes int64 `toml:"medium_bytes"`
}

// CustomCategory is one named bucket of the custom rule.
type CustomCategory struct {
	Name       string   `toml:"name"`
	Extensions []string `toml:"extensions"`
}

// RuleOptions configures a rule. CustomCategories is ordered: an extension
// listed by more than one category lands in the first.
type RuleOptions struct {
	DateGranularity  DateGranularity
	SizeThresholds   SizeThresholds
	CustomCategories []CustomCategory
}

const (
	// DefaultSmallBytes is 1 MiB.
	DefaultSmallBytes int64 = 1 << 20
	// DefaultMediumBytes is 100 MiB.
	DefaultMediumBytes int64 = 100 << 20

	// NoExtensionFolder collects files without an extension under byExtension.
	NoExtensionFolder = "No Extension"
	// UncategorizedFolder collects custom-rule files no category claims.
	UncategorizedFolder = "Uncategorized"
)

// DefaultRuleOptions returns year-month dates and 1 MiB / 100 MiB size buckets.
func DefaultRuleOptions() RuleOptions {
	return RuleOptions{
		DateGranularity: GranularityYearMonth,
		SizeThresholds: SizeThresholds{
			SmallBytes:  DefaultSmallBytes,
			MediumBytes: DefaultMediumBytes,
		},
	}
}

// Validate checks that opts can drive rule. Only the options the rule reads are checked.
func (opts RuleOptions) Validate(rule Rule) error {
	switch rule {
	case RuleByType, RuleByExtension, RuleFlatten:
		return nil
	case RuleByDate:
		switch opts.DateGranularity {
		case GranularityYear, GranularityYearMonth, GranularityYearMonthDay:
			return nil
		default:
			return fmt.Errorf("%w: unknown date granularity %q", ErrInvalidOptions, opts.DateGranularity)
		}
	case RuleBySize:
		t := opts.SizeThresholds
		if t.SmallBytes <= 0 {
			return fmt.Errorf("%w: small threshold must be positive, got %d", ErrInvalidOptions, t.SmallBytes)
		}
		if t.MediumBytes <= t.SmallBytes {
			return fmt.Errorf("%w: medium threshold %d must exceed small threshold %d", ErrInvalidOptions, t.MediumBytes, t.SmallBytes)
		}
		return nil
	case RuleCustom:
		if len(opts.CustomCategories) == 0 {
			return fmt.Errorf("%w: custom rule needs at least one category", ErrInvalidOptions)
		}
		for i, c := range opts.CustomCategories {
			if strings.TrimSpace(c.Name) == "" {
				return fmt.Errorf("%w: custom category %d has no name", ErrInvalidOptions, i)
			}
			if err := checkFolderName(c.Name); err != nil {
				return fmt.Errorf("%w: custom category %q: %v", ErrInvalidOptions, c.Name, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRule, rule)
	}
}

// ResolveDestination computes the folder, relative to the organization root,
// that file belongs in under rule. ok is false for nodes that are never
// moved (folders). The returned folder may be "" (the root itself).
func ResolveDestination(file *FileNode, rule Rule, opts RuleOptions) (folder string, ok bool, err error) {
	if err := opts.Validate(rule); err != nil {
		return "", false, err
	}
	if !file.IsFile() {
		return "", false, nil
	}
	return resolve(file, rule, opts), true, nil
}

// resolve assumes opts were validated for rule.
func resolve(file *FileNode, rule Rule, opts RuleOptions) string {
	switch rule {
	case RuleByType:
		return categoryOf(file).FolderName()
	case RuleByDate:
		return dateFolder(file, opts.DateGranularity)
	case RuleBySize:
		return SizeBucket(file.SizeBytes, opts.SizeThresholds)
	case RuleByExtension:
		if ext := Extension(file.Name); ext != "" {
			return strings.ToUpper(ext)
		}
		return NoExtensionFolder
	case RuleFlatten:
		return ""
	case RuleCustom:
		return customFolder(file.Name, opts.CustomCategories)
	}
	return ""
}

func dateFolder(file *FileNode, g DateGranularity) string {
	t := file.ModifiedAt
	year := t.Format("2006")
	switch g {
	case GranularityYear:
		return year
	case GranularityYearMonthDay:
		return year + "/" + t.Format("2006-01") + "/" + t.Format("2006-01-02")
	default:
		return year + "/" + t.Format("2006-01")
	}
}

// SizeBucket returns the bySize folder for a file of size bytes.
// The lower bound of each bucket is inclusive.
func SizeBucket(size int64, t SizeThresholds) string {
	switch {
	case size < t.SmallBytes:
		return fmt.Sprintf("Small (< %s)", humanize.IBytes(uint64(t.SmallBytes)))
	case size < t.MediumBytes:
		return fmt.Sprintf("Medium (< %s)", humanize.IBytes(uint64(t.MediumBytes)))
	default:
		return fmt.Sprintf("Large (>= %s)", humanize.IBytes(uint64(t.MediumBytes)))
	}
}

// checkFolderName rejects names that would not stay a folder below the root.
func checkFolderName(name string) error {
	if strings.TrimSpace(name) != name {
		return errors.New("leading or trailing whitespace")
	}
	if path.IsAbs(name) {
		return errors.New("absolute path")
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("escapes the root")
	}
	for _, part := range strings.Split(clean, "/") {
		if strings.TrimSpace(part) != part {
			return fmt.Errorf("path element %q has surrounding whitespace", part)
		}
	}
	return nil
}

func customFolder(name string, categories []CustomCategory) string {
	ext := Extension(name)
	if ext == "" {
		return UncategorizedFolder
	}
	for _, c := range categories {
		for _, e := range c.Extensions {
			if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
				return c.Name
			}
		}
	}
	return UncategorizedFolder
}
