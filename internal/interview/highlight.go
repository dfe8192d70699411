package interview

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxHighlights = 3

	highlightSeparator  = "\n---\n"
	reasonEvidenceMatch = "evidence match"
	reasonHeuristic     = "heuristic: completeness and length"
)

// HighlightSelection is the outcome of highlight selection over a transcript.
type HighlightSelection struct {
	TurnNumbers []int
	Text        string
	Reason      string
}

// SelectHighlights picks up to three transcript excerpts that justify the
// evaluation. Turns containing a verbatim evidence substring take priority;
// otherwise the top answers by a completeness/length/recency heuristic are
// used.
func SelectHighlights(turns []Turn, eval *Evaluation) HighlightSelection {
	selected := evidenceMatches(turns, eval)
	reason := reasonEvidenceMatch

	if len(selected) == 0 {
		selected = topHeuristic(turns)
		reason = reasonHeuristic
	}

	if len(selected) > maxHighlights {
		selected = selected[:maxHighlights]
	}

	numbers := make([]int, 0, len(selected))
	texts := make([]string, 0, len(selected))
	reasons := make([]string, 0, len(selected))
	for _, turn := range selected {
		numbers = append(numbers, turn.TurnNumber)
		texts = append(texts, turn.Content)
		reasons = append(reasons, reason)
	}

	return HighlightSelection{
		TurnNumbers: numbers,
		Text:        strings.Join(texts, highlightSeparator),
		Reason:      strings.Join(distinct(reasons), " / "),
	}
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func evidenceMatches(turns []Turn, eval *Evaluation) []Turn {
	evidence := []string{
		eval.Strengths.Evidence,
		eval.Concerns.Evidence,
		eval.FollowUps.Evidence,
	}

	seen := make(map[int]bool)
	matches := make([]Turn, 0)

	for _, field := range evidence {
		field = strings.TrimSpace(field)
		if field == "" || field == insufficientDataText {
			continue
		}

		for _, turn := range turns {
			if seen[turn.TurnNumber] {
				continue
			}
			if strings.Contains(turn.Content, field) {
				seen[turn.TurnNumber] = true
				matches = append(matches, turn)
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].TurnNumber < matches[j].TurnNumber
	})

	return matches
}

func topHeuristic(turns []Turn) []Turn {
	type scored struct {
		turn  Turn
		score float64
	}

	answers := make([]scored, 0)
	for _, turn := range turns {
		if turn.Kind != TurnAnswer {
			continue
		}

		score := 0.0
		if turn.Accepted {
			score += 10
		}

		length := float64(utf8.RuneCountInString(turn.Content)) / 50
		if length > 10 {
			length = 10
		}
		score += length

		// Later turns get a larger bonus, capped at 5.
		recency := 5 * float64(turn.TurnNumber) / float64(len(turns))
		if recency > 5 {
			recency = 5
		}
		score += recency

		answers = append(answers, scored{turn: turn, score: score})
	}

	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].score > answers[j].score
	})

	top := make([]Turn, 0, maxHighlights)
	for _, entry := range answers {
		if len(top) == maxHighlights {
			break
		}
		top = append(top, entry.turn)
	}

	return top
}
