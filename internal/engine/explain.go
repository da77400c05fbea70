package engine

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind selects the explanation template.
type Kind string

// Explanation kinds.
const (
	KindPriority   Kind = "priority"
	KindWorkload   Kind = "workload"
	KindEstimate   Kind = "estimate"
	KindDependency Kind = "dependency"
	KindDuplicate  Kind = "duplicate"
)

// Factor is one entry of an explanation trace.
type Factor struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"` // empty when the factor had no visible effect
	Value       float64 `json:"value"`                 // raw contribution
	Weight      float64 `json:"weight"`
	Impact      float64 `json:"impact"` // Value * Weight
}

type template struct {
	empty  string
	prefix string
	sep    string
}

var templates = map[Kind]template{
	KindPriority:   {empty: "Standard priority based on default factors.", sep: ", "},
	KindWorkload:   {empty: "Workload is within the normal range.", sep: "; "},
	KindEstimate:   {empty: "Estimate based on default assumptions.", prefix: "Estimate ", sep: ", "},
	KindDependency: {empty: "No dependency relationships affect this task.", sep: ", "},
	KindDuplicate:  {empty: "No similar tasks found.", sep: "; "},
}

// BuildExplanation renders factors into one sentence using the template for kind.
// Factors without a description are skipped; with none left, the kind's
// generic message is returned. Unknown kinds render "name: impact; ...".
func BuildExplanation(kind Kind, factors []Factor) string {
	tmpl, ok := templates[kind]
	if !ok {
		return genericExplanation(factors)
	}

	clauses := make([]string, 0, len(factors))
	for _, f := range factors {
		if f.Description != "" {
			clauses = append(clauses, f.Description)
		}
	}
	if len(clauses) == 0 {
		return tmpl.empty
	}

	sentence := strings.Join(clauses, tmpl.sep)
	if tmpl.prefix != "" {
		sentence = tmpl.prefix + sentence
	}
	return capitalize(sentence) + "."
}

func genericExplanation(factors []Factor) string {
	parts := make([]string, 0, len(factors))
	for _, f := range factors {
		if f.Name == "" {
			continue
		}
		parts = append(parts, f.Name+": "+strconv.FormatFloat(round2(f.Impact), 'f', -1, 64))
	}
	if len(parts) == 0 {
		return "No contributing factors."
	}
	return strings.Join(parts, "; ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
