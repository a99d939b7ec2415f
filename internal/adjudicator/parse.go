package adjudicator

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	verdictRe    = regexp.MustCompile(`(?im)^\s*verdict\s*:\s*(.+?)\s*$`)
	confidenceRe = regexp.MustCompile(`(?im)^\s*confidence\s*:\s*([0-9.]+)\s*$`)
	reasoningRe  = regexp.MustCompile(`(?im)^\s*reasoning\s*:\s*(.+)$`)
)

// structuredReply is the tolerant parse of a VERDICT/CONFIDENCE/REASONING
// response. Fields default when the model omits or mangles a line rather
// than failing the call outright.
type structuredReply struct {
	Verdict    string
	Confidence float64
	Reasoning  string
}

// parseStructuredReply reads a loosely-formatted three-line response. Case
// is ignored, extra whitespace and surrounding prose are tolerated, and
// missing fields fall back to defaults instead of an error — per spec, a
// malformed reply from a free-tier model is expected, not exceptional.
func parseStructuredReply(text string) structuredReply {
	reply := structuredReply{Verdict: "", Confidence: 0.5}

	if m := verdictRe.FindStringSubmatch(text); m != nil {
		reply.Verdict = strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			reply.Confidence = v
		}
	}
	if m := reasoningRe.FindStringSubmatch(text); m != nil {
		reply.Reasoning = strings.TrimSpace(m[1])
	}

	return reply
}
