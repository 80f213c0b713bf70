// Package xregexp matches names against cached, fully anchored patterns.
// Patterns without regex metacharacters compare literally.
package xregexp

import (
	"strings"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 512

type compiled struct {
	regex   *regexp2.Regexp
	literal bool
	invalid bool
}

var cache, _ = lru.New[string, *compiled](cacheSize)

// MatchString reports whether str matches pattern. Invalid patterns never match.
func MatchString(pattern, str string) bool {
	c := compile(pattern)

	switch {
	case c.invalid:
		return false
	case c.literal:
		return pattern == str
	}

	ok, err := c.regex.MatchString(str)

	return err == nil && ok
}

// MatchAny reports whether str matches at least one of patterns.
func MatchAny(patterns []string, str string) bool {
	for _, p := range patterns {
		if MatchString(p, str) {
			return true
		}
	}

	return false
}

func compile(pattern string) *compiled {
	if c, ok := cache.Get(pattern); ok {
		return c
	}

	c := &compiled{}

	if !strings.ContainsAny(pattern, `*?+[]{}()^$.|\`) {
		c.literal = true
	} else {
		re, err := regexp2.Compile(anchor(pattern), regexp2.None)
		if err != nil {
			c.invalid = true
		} else {
			c.regex = re
		}
	}

	cache.Add(pattern, c)

	return c
}

func anchor(pattern string) string {
	if !strings.HasPrefix(pattern, "^") {
		pattern = "^(?:" + pattern + ")"
	}

	if !strings.HasSuffix(pattern, "$") {
		pattern += "$"
	}

	return pattern
}
