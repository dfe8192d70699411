package interview

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultScoringTimeout = 5 * time.Minute

// Aggregator runs the full transcript through one final-scoring call and
// normalizes the result. A failed or invalid call degrades to a deterministic
// local evaluation instead of failing the application.
type Aggregator struct {
	scorer  Scorer
	logger  *zap.Logger
	timeout time.Duration
}

func NewAggregator(scorer Scorer, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = defaultScoringTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		scorer:  scorer,
		logger:  logger,
		timeout: timeout,
	}
}

// Evaluate never fails; the worst outcome is the fallback evaluation.
func (a *Aggregator) Evaluate(ctx context.Context, results []QuestionResult, hardSkills, softSkills []string) *Evaluation {
	summary := SummarizeResults(results)

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.scorer.ScoreTranscript(callCtx, summary, hardSkills, softSkills)
	if err != nil {
		a.logger.Warn("final scoring failed, using fallback evaluation", zap.Error(err))
		return FallbackEvaluation(results, hardSkills, softSkills)
	}

	eval, warnings := Normalize(raw, hardSkills, softSkills)
	for _, warning := range warnings {
		a.logger.Warn("evaluation normalization", zap.String("detail", warning))
	}

	return eval
}

// FallbackEvaluation is the degraded-mode evaluation applied when final
// scoring is unavailable: score = min(completion_rate * 0.8, 85), uniformly.
func FallbackEvaluation(results []QuestionResult, hardSkills, softSkills []string) *Evaluation {
	complete := 0
	for _, r := range results {
		if r.Complete {
			complete++
		}
	}

	completionRate := 0.0
	if len(results) > 0 {
		completionRate = float64(complete) / float64(len(results)) * 100
	}

	score := completionRate * 0.8
	if score > 85 {
		score = 85
	}

	detail := func(skills []string) []SkillScore {
		scores := make([]SkillScore, len(skills))
		for i, skill := range skills {
			scores[i] = SkillScore{Skill: skill, Score: score}
		}
		return scores
	}

	return &Evaluation{
		HardScore:  score,
		SoftScore:  score,
		TotalScore: score,
		Summary: fmt.Sprintf(
			"Baseline evaluation from a %.1f%% interview completion rate. (AI scoring was unavailable, degraded scoring applied.)",
			completionRate),
		HardDetail: detail(hardSkills),
		SoftDetail: detail(softSkills),
		Strengths: OpinionTriple{
			Content:  "The candidate responded to the interview in good faith.",
			Opinion:  "Basic communication ability was demonstrated.",
			Evidence: "The candidate answered the interview questions sincerely.",
		},
		Concerns: OpinionTriple{
			Content:  "More concrete confirmation of experience and competencies is needed.",
			Opinion:  "Additional technical verification may be required.",
			Evidence: "Some answers were incomplete or lacked specifics.",
		},
		FollowUps: OpinionTriple{
			Content:  "Verification through an additional interview or technical test is required.",
			Opinion:  "Further verification is recommended for an accurate evaluation.",
			Evidence: "The current interview results alone do not allow an accurate competency evaluation.",
		},
		FinalOpinion: "Basic qualifications are in place, but additional verification is required.",
	}
}
