package resource

import (
	"strings"

	"github.com/kestrelplan/pulsar/internal/calendar"
)

// Config is the external resource configuration:
// the canonical resource order used to break ties, per-resource and global
// calendar unavailability, and named spec-group expansions usable inside a
// resource-spec pattern.
type Config struct {
	ResourceOrder        []string
	DNSPeriods           map[string][]calendar.Range
	GlobalUnavailability []calendar.Range
	SpecExpansion        map[string][]string
}

// UnavailabilityFor returns the combined DNS windows for a resource: its
// own plus the global ones that apply to every resource.
func (c Config) UnavailabilityFor(name string) []calendar.Range {
	out := append([]calendar.Range(nil), c.GlobalUnavailability...)
	out = append(out, c.DNSPeriods[name]...)
	return out
}

// ExpandResourceSpec expands a resource-spec pattern into a concrete,
// deduplicated list of resource names in the order inclusions were
// encountered (canonical ResourceOrder only surfaces when the universe
// defaults to "*", or within a single "*"/alias token's own expansion).
//
// Tokens are separated by '|'. An unprefixed token names a resource
// directly, or — first — a spec_expansion alias. The token "*" expands to
// every resource in ResourceOrder. A token prefixed with '!' excludes the
// resources it names (or its alias expansion) from the result. If no
// unprefixed inclusion token is present, the universe starts as "*".
func (c Config) ExpandResourceSpec(spec string) []string {
	tokens := strings.Split(spec, "|")

	hasInclusion := false
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok != "" && !strings.HasPrefix(tok, "!") {
			hasInclusion = true
			break
		}
	}

	included := make(map[string]bool)
	var order []string
	addOrdered := func(names []string) {
		for _, n := range names {
			if !included[n] {
				included[n] = true
				order = append(order, n)
			}
		}
	}

	if hasInclusion {
		for _, tok := range tokens {
			tok = strings.TrimSpace(tok)
			if tok == "" || strings.HasPrefix(tok, "!") {
				continue
			}
			addOrdered(c.resolveToken(tok))
		}
	} else {
		addOrdered(c.resolveToken("*"))
	}

	excluded := make(map[string]bool)
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if !strings.HasPrefix(tok, "!") {
			continue
		}
		for _, n := range c.resolveToken(strings.TrimPrefix(tok, "!")) {
			excluded[n] = true
		}
	}

	result := make([]string, 0, len(order))
	for _, n := range order {
		if !excluded[n] {
			result = append(result, n)
		}
	}
	return result
}

// resolveToken expands a single bare token: "*" means every canonical
// resource; a name matching a spec_expansion alias expands to that alias's
// members; otherwise the token is a literal resource name.
func (c Config) resolveToken(tok string) []string {
	if tok == "*" {
		return append([]string(nil), c.ResourceOrder...)
	}
	if group, ok := c.SpecExpansion[tok]; ok {
		return group
	}
	return []string{tok}
}
