// Package satiregate implements the satire/temporal gate (C5): a cheap,
// network-free check that runs before classification and rejects satire
// sources and temporally implausible incidents.
package satiregate

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Verdict is the gate's decision.
type Verdict struct {
	OK     bool
	Reason string // rejection category, empty when OK
}

// Gate holds the satire domain blacklist and temporal window configuration.
type Gate struct {
	satireDomains map[string]struct{}
	maxAgeDays    int
	now           func() time.Time
}

// New constructs a Gate with the given max age window (days) and the
// default satire domain blacklist.
func New(maxAgeDays int) *Gate {
	return &Gate{
		satireDomains: buildSatireDomainSet(),
		maxAgeDays:    maxAgeDays,
		now:           time.Now,
	}
}

// CheckSource rejects incidents whose source URL belongs to a known
// satirical/parody outlet.
func (g *Gate) CheckSource(sourceURL string) Verdict {
	if sourceURL == "" {
		return Verdict{OK: true}
	}
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return Verdict{OK: true} // malformed URL is not this gate's concern
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if _, blocked := g.satireDomains[host]; blocked {
		return Verdict{OK: false, Reason: "satire_source"}
	}
	return Verdict{OK: true}
}

// CheckTemporal validates occurred_at falls within the plausible window:
// not more than one day in the future, not older than maxAgeDays.
func (g *Gate) CheckTemporal(occurredAt time.Time) Verdict {
	if occurredAt.IsZero() {
		return Verdict{OK: false, Reason: "invalid_date"}
	}
	now := g.now()
	if occurredAt.After(now.Add(24 * time.Hour)) {
		return Verdict{OK: false, Reason: fmt.Sprintf("occurred_at is in the future: %s", occurredAt.Format(time.RFC3339))}
	}
	cutoff := now.AddDate(0, 0, -g.maxAgeDays)
	if occurredAt.Before(cutoff) {
		return Verdict{OK: false, Reason: fmt.Sprintf("occurred_at exceeds max age of %d days", g.maxAgeDays)}
	}
	return Verdict{OK: true}
}
