package cache

import (
	"regexp"
	"strings"
)

// compilePattern turns a glob where '*' matches any substring into an
// unanchored regexp. No other character is special.
func compilePattern(glob string) *regexp.Regexp {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(strings.Join(parts, ".*"))
}

// DeletePattern removes every key matching glob and returns how many were removed
func (c *TTLCache[V]) DeletePattern(glob string) int {
	re := compilePattern(glob)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.items {
		if re.MatchString(key) {
			c.removeElement(el)
			removed++
		}
	}
	c.deletes += int64(removed)
	return removed
}
