package robots

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one block of consecutive User-agent lines and the directives
// that follow them.
type Group struct {
	Agents     []string
	Rules      []Rule
	CrawlDelay *time.Duration
}

// Rule is a single Allow or Disallow line.
type Rule struct {
	Pattern string
	Allow   bool

	re *regexp.Regexp
}

// Parse reads robots.txt text. Unknown directives and malformed lines are
// ignored; an empty Disallow is kept but never matches.
func Parse(text string) Rules {
	var (
		groups  []Group
		current *Group
		// inRules is set once the current group has seen a directive, so the
		// next User-agent line opens a new group.
		inRules bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		if key == "user-agent" || key == "useragent" {
			if current == nil || inRules {
				groups = append(groups, Group{})
				current = &groups[len(groups)-1]
				inRules = false
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
			continue
		}
		if current == nil {
			continue
		}
		switch key {
		case "allow", "disallow":
			current.Rules = append(current.Rules, newRule(val, key == "allow"))
			inRules = true
		case "crawl-delay", "crawldelay":
			if secs, err := strconv.ParseFloat(val, 64); err == nil && secs >= 0 {
				d := time.Duration(secs * float64(time.Second))
				current.CrawlDelay = &d
			}
			inRules = true
		}
	}
	return Rules{Groups: groups}
}

func newRule(pattern string, allow bool) Rule {
	r := Rule{Pattern: pattern, Allow: allow}
	if pattern == "" {
		return r
	}
	body, anchored := strings.CutSuffix(pattern, "$")
	parts := strings.Split(body, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchored {
		expr += "$"
	}
	r.re = regexp.MustCompile(expr)
	return r
}

// specificity is the pattern length without wildcards or the end anchor.
func (r Rule) specificity() int {
	return len(strings.ReplaceAll(strings.TrimSuffix(r.Pattern, "$"), "*", ""))
}

func (r Rule) matches(path string) bool {
	return r.re != nil && r.re.MatchString(path)
}

// IsAllowed evaluates path (optionally with a query) for userAgent. The group
// naming the longest agent token contained in userAgent applies, "*" being
// the fallback. Within it the most specific matching rule decides and Allow
// wins ties. No matching rule means allowed.
func (r Rules) IsAllowed(userAgent, path string) bool {
	g := r.groupFor(userAgent)
	if g == nil {
		return true
	}
	best := -1
	allowed := true
	for _, rule := range g.Rules {
		if !rule.matches(path) {
			continue
		}
		score := rule.specificity()
		if score > best || (score == best && rule.Allow) {
			best, allowed = score, rule.Allow
		}
	}
	return allowed
}

// CrawlDelayFor returns the crawl delay of the group applying to userAgent.
func (r Rules) CrawlDelayFor(userAgent string) *time.Duration {
	if g := r.groupFor(userAgent); g != nil {
		return g.CrawlDelay
	}
	return nil
}

func (r Rules) groupFor(userAgent string) *Group {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	var found *Group
	bestLen := -1
	for i := range r.Groups {
		for _, agent := range r.Groups[i].Agents {
			n := -1
			switch {
			case agent == "*":
				n = 0
			case agent != "" && strings.Contains(ua, agent):
				n = len(agent)
			}
			if n > bestLen {
				bestLen, found = n, &r.Groups[i]
			}
		}
	}
	return found
}
