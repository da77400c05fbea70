package engine

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/lollopanta/Projex-sub000/internal/domain"
)

// SimilarTask is one near-duplicate match.
type SimilarTask struct {
	TaskID     string  `json:"taskId"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// DuplicateResult lists the near-duplicates of one task.
type DuplicateResult struct {
	TaskID        string        `json:"taskId"`
	Explanation   string        `json:"explanation"`
	SimilarTasks  []SimilarTask `json:"similarTasks"`
	HasDuplicates bool          `json:"hasDuplicates"`
}

type tokenSet map[string]struct{}

// DetectDuplicates compares every pair of task titles and returns, in input
// order, the tasks with at least one match at or above the similarity threshold.
// Titles with fewer than MinTokens tokens take no part in the comparison.
func DetectDuplicates(tasks []domain.TaskSnapshot, cfg domain.EngineConfig) []DuplicateResult {
	dc := cfg.Duplication
	caser := cases.Fold()

	sets := make([]tokenSet, len(tasks))
	for i, t := range tasks {
		sets[i] = titleTokens(caser, t.Title, dc.MinTokens)
	}

	matches := make([][]SimilarTask, len(tasks))
	for i := range tasks {
		if sets[i] == nil {
			continue
		}
		for j := i + 1; j < len(tasks); j++ {
			if sets[j] == nil {
				continue
			}
			sim := jaccard(sets[i], sets[j])
			if sim < dc.SimilarityThreshold {
				continue
			}
			sim = round2(sim)
			matches[i] = append(matches[i], SimilarTask{TaskID: tasks[j].ID, Title: tasks[j].Title, Similarity: sim})
			matches[j] = append(matches[j], SimilarTask{TaskID: tasks[i].ID, Title: tasks[i].Title, Similarity: sim})
		}
	}

	results := []DuplicateResult{}
	for i, m := range matches {
		if len(m) == 0 {
			continue
		}
		sortSimilar(m)
		results = append(results, DuplicateResult{
			TaskID:        tasks[i].ID,
			HasDuplicates: true,
			SimilarTasks:  m,
			Explanation:   BuildExplanation(KindDuplicate, similarFactors(m)),
		})
	}
	return results
}

// FindSimilar returns the tasks whose title is a near-duplicate of title,
// most similar first. Used before a task exists.
func FindSimilar(title string, tasks []domain.TaskSnapshot, cfg domain.EngineConfig) []SimilarTask {
	dc := cfg.Duplication
	caser := cases.Fold()

	want := titleTokens(caser, title, dc.MinTokens)
	if want == nil {
		return nil
	}

	var found []SimilarTask
	for _, t := range tasks {
		set := titleTokens(caser, t.Title, dc.MinTokens)
		if set == nil {
			continue
		}
		if sim := jaccard(want, set); sim >= dc.SimilarityThreshold {
			found = append(found, SimilarTask{TaskID: t.ID, Title: t.Title, Similarity: round2(sim)})
		}
	}
	sortSimilar(found)
	return found
}

// normalizedFields case-folds title, strips punctuation and splits it on whitespace.
func normalizedFields(caser cases.Caser, title string) []string {
	folded := caser.String(title)
	stripped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, folded)
	return strings.Fields(stripped)
}

// titleTokens returns the token set of title, or nil when the title has fewer
// than minTokens tokens. Repeated words count toward minTokens.
func titleTokens(caser cases.Caser, title string, minTokens int) tokenSet {
	fields := normalizedFields(caser, title)
	if len(fields) == 0 || len(fields) < minTokens {
		return nil
	}
	set := make(tokenSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b tokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func sortSimilar(m []SimilarTask) {
	slices.SortStableFunc(m, func(a, b SimilarTask) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return 0
	})
}

func similarFactors(m []SimilarTask) []Factor {
	factors := make([]Factor, 0, len(m))
	for _, s := range m {
		factors = append(factors, Factor{
			Name:        s.TaskID,
			Value:       s.Similarity,
			Impact:      s.Similarity,
			Description: fmt.Sprintf("similar to %q (%d%%)", s.Title, int(math.Round(s.Similarity*100))),
		})
	}
	return factors
}
