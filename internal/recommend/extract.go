// Package recommend pulls the recommended hairstyle name out of a free-text
// consultation report.
package recommend

import (
	"net/url"
	"regexp"
	"strings"

	"styliq/internal/domain"
)

// Marker is the tagged line the consultation prompt asks the model to emit.
const Marker = "HAIRSTYLE_NAME:"

// Strategy names which rule produced a Result.
type Strategy string

const (
	StrategyMarker  Strategy = "marker"
	StrategyHeading Strategy = "heading"
	StrategyDefault Strategy = "default"
)

// Result is either a found name or the sentinel default. Fragment is the
// marker text as the model wrote it, emphasis included; it is empty unless
// the marker rule matched.
type Result struct {
	Name     string
	Found    bool
	Strategy Strategy
	Fragment string
}

var (
	headingRe = regexp.MustCompile(`^\s{0,3}#{1,6}\s+.*(?i:recommendation)`)
	boldRe    = regexp.MustCompile(`\*\*\s*([^*]+?)\s*\*\*`)
)

// Extract applies the marker rule, then the heading rule, then falls back to
// domain.DefaultHairstyleName. It never fails.
func Extract(report string) Result {
	if name, fragment, ok := fromMarker(report); ok {
		return Result{Name: name, Found: true, Strategy: StrategyMarker, Fragment: fragment}
	}
	if name, ok := fromHeading(report); ok {
		return Result{Name: name, Found: true, Strategy: StrategyHeading}
	}
	return Result{Name: domain.DefaultHairstyleName, Strategy: StrategyDefault}
}

// fromMarker scans every line carrying the marker. The last acceptable value
// wins; values that are empty or still contain a "[" placeholder are skipped.
func fromMarker(report string) (string, string, bool) {
	var (
		name, fragment string
		found          bool
	)
	for _, line := range splitLines(report) {
		idx := strings.Index(line, Marker)
		if idx < 0 {
			continue
		}
		value := sanitize(line[idx+len(Marker):])
		if value == "" || strings.Contains(value, "[") {
			continue
		}
		start := idx
		for start > 0 && strings.IndexByte(emphasis, line[start-1]) >= 0 {
			start--
		}
		name, fragment, found = value, strings.TrimRight(line[start:], " \t"), true
	}
	return name, fragment, found
}

// fromHeading looks for a "Recommendation" heading followed by a bold span on
// the next non-blank line.
func fromHeading(report string) (string, bool) {
	lines := splitLines(report)
	for i, line := range lines {
		if !headingRe.MatchString(line) {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			m := boldRe.FindStringSubmatch(next)
			if m == nil {
				break
			}
			if value := strings.TrimSpace(m[1]); value != "" && !strings.Contains(value, "[") {
				return value, true
			}
			break
		}
	}
	return "", false
}

// Clean removes the marker fragment behind r from the report shown to the
// user. Without a matched fragment only the literal "HAIRSTYLE_NAME: <name>"
// is removed. Nothing else is touched.
func Clean(report string, r Result) string {
	if r.Fragment != "" {
		report = strings.ReplaceAll(report, r.Fragment, "")
	}
	return strings.ReplaceAll(report, Marker+" "+r.Name, "")
}

// SearchURL returns a Pinterest pin search for the hairstyle.
func SearchURL(name string) string {
	q := url.Values{"q": {name + " hairstyle"}}
	return "https://www.pinterest.com/search/pins/?" + q.Encode()
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

const emphasis = "*_`"

func sanitize(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, emphasis)
	return strings.TrimSpace(value)
}
