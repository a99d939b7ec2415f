// Package classify implements the incident classifier (C4): it decides
// whether a candidate's text actually describes a drone incident, as
// opposed to policy news, a defense-posture story, a drill, commentary, or
// an unrelated topic.
package classify

import (
	"regexp"
	"strings"
)

// Category is the classifier's verdict bucket.
type Category string

const (
	CategoryIncident   Category = "incident"
	CategoryPolicy     Category = "policy"
	CategoryDefense    Category = "defense"
	CategorySimulation Category = "simulation"
	CategoryDiscussion Category = "discussion"
	CategoryForeign    Category = "foreign"
	CategoryNotDrone   Category = "not_drone"
)

// Verdict is the classifier's decision for one candidate.
type Verdict struct {
	IsIncident bool
	Confidence float64
	Category   Category
	Reason     string
}

// Classifier holds the compiled multilingual keyword/phrase sets.
type Classifier struct {
	droneWord        *regexp.Regexp
	observation      []string
	operationalImpact []string
	response         []string
	commercial       []string
	policyPhrases    []*regexp.Regexp
	defensePhrases   []*regexp.Regexp
	simulationWords  []string
	simulationPhrases []*regexp.Regexp
	policeWords      []string
	airportWords     []string
}

// New constructs a Classifier with the default curated word/phrase sets.
func New() *Classifier {
	return &Classifier{
		droneWord:        regexp.MustCompile(`(?i)\b(drones?|uav|drohnen?|drönare)\b`),
		observation:      []string{"observed", "spotted", "sighted", "seen", "detected", "set", "observeret", "opdaget"},
		operationalImpact: []string{"closed", "closure", "shut down", "grounded", "disruption", "disrupted", "suspended", "lukket", "stengt", "stängd"},
		response:         []string{"scrambled", "responded", "investigation launched", "police called", "politi", "forsvar"},
		commercial:       []string{"delivery", "deliveries", "royalty", "royal wedding", "drone show", "light show", "commercial drone service"},
		policyPhrases: compileAll([]string{
			`\banno[un]*ced\b`, `\bproposed\b`, `\bban\b`, `droneforbud`,
			`in connection with.*eu presidency`, `drone wall`, `will impose`, `giver nyt`,
		}),
		defensePhrases: compileAll([]string{
			`rushed to`, `frigate`, `deployed to defend`, `anti-drone systems sent`,
		}),
		simulationWords: []string{
			"exercise", "drill", "training", "simulation", "mock", "rehearsal",
			"øvelse", "trening", "övning", "harjoitus", "übung", "exercice", "oefening",
			"ejercicio", "esercitazione", "ćwiczenia",
		},
		simulationPhrases: compileAll([]string{
			`military\s+exercise`, `airport\s+(drill|exercise)`, `test\s+of\s+.*drone.*system`,
			`planned\s+(exercise|drill)`, `training\s+(scenario|exercise)`,
		}),
		policeWords:  []string{"police", "politi", "polis", "poliisi"},
		airportWords: []string{"airport", "lufthavn", "flygplats", "flyplass", "lentokenttä"},
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Classify scores a candidate's title and narrative.
func (c *Classifier) Classify(title, narrative string) Verdict {
	text := title + " " + narrative
	lower := strings.ToLower(text)

	if !c.droneWord.MatchString(text) {
		return Verdict{IsIncident: false, Category: CategoryNotDrone, Reason: "no drone keyword present"}
	}

	for _, w := range c.commercial {
		if strings.Contains(lower, w) {
			return Verdict{IsIncident: false, Category: CategoryNotDrone, Reason: "commercial/delivery context: " + w}
		}
	}

	for _, re := range c.policyPhrases {
		if re.MatchString(text) {
			return Verdict{IsIncident: false, Category: CategoryPolicy, Reason: "policy-announcement phrase matched"}
		}
	}

	for _, re := range c.defensePhrases {
		if re.MatchString(text) {
			return Verdict{IsIncident: false, Category: CategoryDefense, Reason: "defense-posture phrase matched"}
		}
	}

	for _, re := range c.simulationPhrases {
		if re.MatchString(text) {
			return Verdict{IsIncident: false, Category: CategorySimulation, Reason: "simulation phrase matched"}
		}
	}
	for _, w := range c.simulationWords {
		if strings.Contains(lower, w) {
			return Verdict{IsIncident: false, Category: CategorySimulation, Reason: "simulation keyword: " + w}
		}
	}

	hasMarker := containsAny(lower, c.observation) || containsAny(lower, c.operationalImpact) || containsAny(lower, c.response)
	if !hasMarker {
		return Verdict{IsIncident: false, Category: CategoryDiscussion, Reason: "no observation/impact/response marker"}
	}

	confidence := 0.8
	if containsAny(lower, c.policeWords) {
		confidence += 0.1
	}
	if containsAny(lower, c.airportWords) {
		confidence += 0.05
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Verdict{IsIncident: true, Confidence: confidence, Category: CategoryIncident, Reason: "drone keyword plus incident marker present"}
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
