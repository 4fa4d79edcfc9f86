package scenario

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter decides whether to run the scenario with the name or not
type Filter func(name string) bool

// RegexFilters selects scenarios by their names
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

// AsFilter interface
func (r RegexFilters) AsFilter(name string) bool {
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(name)) &&
		!r.MustNotMatch.AnyMatch(name)
}

// RegexList can be used as a repeatable command line flag
type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	r.patterns = append(r.patterns, rx)
	return nil
}

// Type is called by the command line parser
func (r *RegexList) Type() string {
	return "regex"
}

// IsDefined returns true if there's any pattern
func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

// AnyMatch returns true if s matches any of the patterns
func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
