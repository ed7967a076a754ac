package normalize

import (
	"regexp"
	"strings"

	"github.com/radiusdt/growth-report/internal/project"
)

var (
	androidBundle = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*(\.[a-zA-Z][a-zA-Z0-9_]*)+$`)
	iosBundle     = regexp.MustCompile(`^[0-9]{8,}$`)
)

// IsBundleID reports whether s looks like a reverse-DNS Android package or
// a numeric iOS app id of at least 8 digits.
func IsBundleID(s string) bool {
	return androidBundle.MatchString(s) || iosBundle.MatchString(s)
}

// ExtractBundleID returns the bundle id embedded in a campaign name. iOS ids
// may carry an "id" prefix.
//
// Underscores separate campaign name fields but are also legal inside
// Android package segments, so every run of "_" fields that starts and ends
// with a dotted field is a candidate. Packages with two or more dots win,
// then iOS ids, then single-dot packages; ties go to the shortest run and
// then the last one, so tier tokens like "us.t1" lose to a real package.
func ExtractBundleID(campaignName string) (string, bool) {
	tokens := strings.FieldsFunc(campaignName, func(r rune) bool {
		switch r {
		case '|', '=', ',', ';', '/', ' ', '\t':
			return true
		}
		return false
	})

	var best bundleCandidate
	for _, tok := range tokens {
		fields := strings.Split(tok, "_")
		for i, f := range fields {
			if id, ok := iosID(f); ok {
				best = best.better(bundleCandidate{id: id, rank: 2, fields: 1})
				continue
			}
			if !strings.Contains(f, ".") {
				continue
			}
			for j := i; j < len(fields); j++ {
				if !strings.Contains(fields[j], ".") {
					continue
				}
				s := strings.Join(fields[i:j+1], "_")
				if !androidBundle.MatchString(s) {
					continue
				}
				rank := 1
				if strings.Count(s, ".") >= 2 {
					rank = 3
				}
				best = best.better(bundleCandidate{id: s, rank: rank, fields: j - i + 1})
			}
		}
	}
	return best.id, best.rank > 0
}

type bundleCandidate struct {
	id     string
	rank   int
	fields int
}

// better returns c when it outranks b. Later candidates win ties.
func (b bundleCandidate) better(c bundleCandidate) bundleCandidate {
	switch {
	case c.rank != b.rank:
		if c.rank > b.rank {
			return c
		}
		return b
	case c.fields < b.fields:
		return c
	case c.fields > b.fields:
		return b
	}
	return c
}

func iosID(field string) (string, bool) {
	field = strings.TrimPrefix(field, "id")
	return field, iosBundle.MatchString(field)
}

func (n *Normalizer) geoOf(campaignName string) string {
	for _, g := range n.geo {
		if g.re.MatchString(campaignName) {
			return g.tag
		}
	}
	return OtherGeo
}

// sourceAppOf returns the display source app and, when found, its bundle id.
func (n *Normalizer) sourceAppOf(campaignName string) (string, string) {
	rule := n.cfg.SourceApp
	switch rule.Kind {
	case project.SourceAppAfterEquals:
		i := strings.Index(campaignName, "=")
		if i < 0 {
			return UnknownSourceApp, ""
		}
		rest := campaignName[i+1:]
		if rule.Marker != "" {
			if j := strings.Index(rest, rule.Marker); j >= 0 {
				rest = rest[:j]
			}
		}
		return orUnknown(rest), ""

	case project.SourceAppAfterLastPipe:
		i := strings.LastIndex(campaignName, "|")
		if i < 0 {
			return UnknownSourceApp, ""
		}
		return orUnknown(campaignName[i+1:]), ""

	case project.SourceAppBundle:
		bundle, ok := ExtractBundleID(campaignName)
		if !ok {
			return UnknownSourceApp, ""
		}
		if entry, found := n.apps.Lookup(bundle); found {
			return entry.DisplayName(), bundle
		}
		return bundle, bundle
	}
	return UnknownSourceApp, ""
}

func (n *Normalizer) countryOf(campaignName string) string {
	if n.country == nil {
		return ""
	}
	m := n.country.FindStringSubmatch(campaignName)
	if len(m) < 2 {
		return ""
	}
	return strings.ToUpper(m[1])
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownSourceApp
	}
	return s
}
