package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsWellFormedCode reports whether code is exactly three ASCII letters.
func IsWellFormedCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// CurrencySet is the fixed, configured set of supported currency codes.
// Lookups are case-insensitive because every code is normalized on the way in.
type CurrencySet struct {
	codes []string
	index map[string]struct{}
}

// NewCurrencySet builds a set from codes, normalizing and de-duplicating them
// while keeping the configured order.
func NewCurrencySet(codes ...string) (CurrencySet, error) {
	normalized := lo.Uniq(lo.Map(codes, func(c string, _ int) string { return NormalizeCode(c) }))
	normalized = lo.Compact(normalized)
	for _, c := range normalized {
		if !IsWellFormedCode(c) {
			return CurrencySet{}, fmt.Errorf("invalid currency code %q", c)
		}
	}
	return CurrencySet{
		codes: normalized,
		index: lo.SliceToMap(normalized, func(c string) (string, struct{}) { return c, struct{}{} }),
	}, nil
}

// MustCurrencySet is NewCurrencySet for static inputs; it panics on a bad code.
func MustCurrencySet(codes ...string) CurrencySet {
	set, err := NewCurrencySet(codes...)
	if err != nil {
		panic(err)
	}
	return set
}

// Contains reports whether code (in any case) is supported.
func (s CurrencySet) Contains(code string) bool {
	_, ok := s.index[NormalizeCode(code)]
	return ok
}

// Codes returns a copy of the supported codes in configured order.
func (s CurrencySet) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Sorted returns the supported codes in alphabetical order.
func (s CurrencySet) Sorted() []string {
	out := s.Codes()
	sort.Strings(out)
	return out
}

// Len is the number of supported codes.
func (s CurrencySet) Len() int {
	return len(s.codes)
}
