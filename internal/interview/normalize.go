package interview

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// OpinionTriple is one narrative evaluation block.
type OpinionTriple struct {
	Content  string
	Opinion  string
	Evidence string
}

// SkillScore is one entry of the canonical ordered skill -> score mapping.
type SkillScore struct {
	Skill string
	Score float64
}

// Evaluation is the canonical, validated evaluation shape. Scores are always
// within [0,100] after Normalize, regardless of what the upstream produced.
type Evaluation struct {
	HardScore  float64
	SoftScore  float64
	TotalScore float64

	Summary    string
	HardDetail []SkillScore
	SoftDetail []SkillScore

	Strengths OpinionTriple
	Concerns  OpinionTriple
	FollowUps OpinionTriple

	FinalOpinion string

	Highlight       string
	HighlightReason string
}

// Fixed substitution strings for absent narrative fields.
const (
	insufficientDataText   = "Insufficient evaluation data."
	furtherReviewText      = "Further assessment is required."
	summaryNotCompleteText = "The AI evaluation was not completed."
	finalNotCompleteText   = "The AI evaluation could not be completed."
)

// totalScoreGapLimit is the accepted gap between total_score and the
// hard/soft average before a consistency warning is recorded. The value is
// warned about, never corrected.
const totalScoreGapLimit = 20

// Normalize turns a raw generation-capability payload into the canonical
// Evaluation shape. It never fails: missing or invalid fields are replaced
// with defaults and each substitution is reported as a warning.
func Normalize(raw map[string]any, hardSkills, softSkills []string) (*Evaluation, []string) {
	var warnings []string

	eval := &Evaluation{}

	eval.HardScore = normalizeScore(raw, "hard_score", &warnings)
	eval.SoftScore = normalizeScore(raw, "soft_score", &warnings)
	eval.TotalScore = normalizeScore(raw, "total_score", &warnings)

	expected := (eval.HardScore + eval.SoftScore) / 2
	if math.Abs(eval.TotalScore-expected) > totalScoreGapLimit {
		warnings = append(warnings, fmt.Sprintf(
			"total_score %.1f deviates from the hard/soft average %.1f by more than %d points",
			eval.TotalScore, expected, totalScoreGapLimit))
	}

	eval.HardDetail = normalizeDetail(raw["hard_detail_scores"], hardSkills, "hard_detail_scores", &warnings)
	eval.SoftDetail = normalizeDetail(raw["soft_detail_scores"], softSkills, "soft_detail_scores", &warnings)

	eval.Summary = normalizeText(raw, "ai_summary", summaryNotCompleteText, &warnings)
	eval.Strengths = OpinionTriple{
		Content:  normalizeText(raw, "strengths_content", insufficientDataText, &warnings),
		Opinion:  normalizeText(raw, "strengths_opinion", furtherReviewText, &warnings),
		Evidence: normalizeText(raw, "strengths_evidence", insufficientDataText, &warnings),
	}
	eval.Concerns = OpinionTriple{
		Content:  normalizeText(raw, "concerns_content", insufficientDataText, &warnings),
		Opinion:  normalizeText(raw, "concerns_opinion", furtherReviewText, &warnings),
		Evidence: normalizeText(raw, "concerns_evidence", insufficientDataText, &warnings),
	}
	eval.FollowUps = OpinionTriple{
		Content:  normalizeText(raw, "followup_content", furtherReviewText, &warnings),
		Opinion:  normalizeText(raw, "followup_opinion", furtherReviewText, &warnings),
		Evidence: normalizeText(raw, "followup_evidence", insufficientDataText, &warnings),
	}
	eval.FinalOpinion = normalizeText(raw, "final_opinion", finalNotCompleteText, &warnings)

	return eval, warnings
}

func normalizeScore(raw map[string]any, key string, warnings *[]string) float64 {
	value, ok := raw[key]
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("%s missing, substituted 0", key))
		return 0
	}

	score, ok := coerceScore(value)
	if !ok || score < 0 || score > 100 {
		*warnings = append(*warnings, fmt.Sprintf("%s out of range or non-numeric (%v), substituted 0", key, value))
		return 0
	}

	return score
}

func normalizeText(raw map[string]any, key, fallback string, warnings *[]string) string {
	if value, ok := raw[key].(string); ok {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}

	*warnings = append(*warnings, fmt.Sprintf("%s missing, substituted default", key))
	return fallback
}

// normalizeDetail coerces the ad hoc detail score shapes (ordered mapping,
// unlabeled list, comma-separated string, bare scalar) into one canonical
// ordered mapping positionally matching the posting's skill list.
func normalizeDetail(value any, skills []string, key string, warnings *[]string) []SkillScore {
	detail := make([]SkillScore, len(skills))
	for i, skill := range skills {
		detail[i] = SkillScore{Skill: skill}
	}

	switch v := value.(type) {
	case nil:
		if len(skills) > 0 {
			*warnings = append(*warnings, fmt.Sprintf("%s missing, scores default to 0", key))
		}
	case map[string]any:
		known := make(map[string]bool, len(skills))
		for i, skill := range skills {
			known[skill] = true
			if s, ok := coerceScore(v[skill]); ok {
				detail[i].Score = clampScore(s, key, warnings)
			}
		}
		// Keep entries the source labeled with skills the posting does not
		// declare, in a stable order.
		extra := make([]string, 0)
		for name := range v {
			if !known[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			if s, ok := coerceScore(v[name]); ok {
				detail = append(detail, SkillScore{Skill: name, Score: clampScore(s, key, warnings)})
			}
		}
	case []any:
		for i := range detail {
			if i >= len(v) {
				break
			}
			if s, ok := coerceScore(v[i]); ok {
				detail[i].Score = clampScore(s, key, warnings)
			}
		}
	case string:
		parts := strings.Split(v, ",")
		for i := range detail {
			if i >= len(parts) {
				break
			}
			if s, ok := coerceScore(strings.TrimSpace(parts[i])); ok {
				detail[i].Score = clampScore(s, key, warnings)
			}
		}
	default:
		if s, ok := coerceScore(value); ok {
			clamped := clampScore(s, key, warnings)
			for i := range detail {
				detail[i].Score = clamped
			}
		} else {
			*warnings = append(*warnings, fmt.Sprintf("%s has unsupported shape %T, scores default to 0", key, value))
		}
	}

	return detail
}

func clampScore(score float64, key string, warnings *[]string) float64 {
	if score < 0 || score > 100 {
		*warnings = append(*warnings, fmt.Sprintf("%s entry %.1f out of range, substituted 0", key, score))
		return 0
	}
	return score
}

func coerceScore(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
