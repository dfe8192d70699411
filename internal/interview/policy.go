package interview

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Outcome is the completeness decision for the latest answer.
type Outcome int

const (
	Accept Outcome = iota
	Retry
	GiveUp
)

// Decision is the result of one policy evaluation.
type Decision struct {
	Outcome Outcome
	// NextPrompt is the modified question for the next attempt when the
	// outcome is Retry.
	NextPrompt string
	// Notice is a terminal message recorded on the transcript when the
	// outcome is GiveUp. May be empty.
	Notice string
}

// QuestionState is the per-question history a policy decides on. It is reset
// between questions; attempt counters never carry over.
type QuestionState struct {
	// Question is the original question text.
	Question string
	// Prompt is the question variant the latest answer responded to.
	Prompt string
	// Answer is the latest answer.
	Answer string
	// Attempt counts answers generated so far for this question, starting at 1.
	Attempt int
}

// Policy decides whether an answer is accepted, retried with a modified
// prompt, or abandoned. Implementations must be agnostic to the driver.
type Policy interface {
	Name() string
	// MaxAttempts bounds the total answer-generation attempts per question.
	MaxAttempts() int
	Decide(ctx context.Context, state *QuestionState) (*Decision, error)
}

const (
	heuristicMaxAttempts = 3
	minAnswerRunes       = 50
	maxAnswerRunes       = 2000

	judgedMaxFollowUps = 2
	judgeTimeout       = 30 * time.Second
)

// lowInfoPhrases mark an answer as substantively empty regardless of length.
var lowInfoPhrases = []string{
	"i don't know",
	"i do not know",
	"cannot answer",
	"can't answer",
	"no information",
	"i don't remember",
	"hard to answer",
}

var retryPrompts = []string{
	"%s\n\nYour previous answer was too brief. Please answer again with more concrete and detailed experience.",
	"%s\n\nPlease explain in more detail, including specific examples or experiences.",
	"%s\n\nPlease answer more concretely, based on situations you have actually been through.",
}

// HeuristicPolicy accepts an answer purely on local signals: minimum length
// and absence of low-information phrases. Overlong answers are treated as
// inherently substantive.
type HeuristicPolicy struct{}

func NewHeuristicPolicy() *HeuristicPolicy {
	return &HeuristicPolicy{}
}

func (p *HeuristicPolicy) Name() string { return "heuristic" }

func (p *HeuristicPolicy) MaxAttempts() int { return heuristicMaxAttempts }

func (p *HeuristicPolicy) Decide(_ context.Context, state *QuestionState) (*Decision, error) {
	if isCompleteAnswer(state.Answer) {
		return &Decision{Outcome: Accept}, nil
	}

	if state.Attempt >= p.MaxAttempts() {
		return &Decision{Outcome: GiveUp}, nil
	}

	variant := retryPrompts[min(state.Attempt-1, len(retryPrompts)-1)]

	return &Decision{
		Outcome:    Retry,
		NextPrompt: fmt.Sprintf(variant, state.Question),
	}, nil
}

func isCompleteAnswer(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < minAnswerRunes {
		return false
	}

	// Long answers are accepted without phrase checks.
	if utf8.RuneCountInString(trimmed) > maxAnswerRunes {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range lowInfoPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return true
}

// JudgedPolicy delegates the satisfaction decision to an evaluator capability
// that may propose a follow-up question. After judgedMaxFollowUps unsatisfied
// verdicts it gives up and records a terminal notice.
type JudgedPolicy struct {
	judge Judge
}

func NewJudgedPolicy(judge Judge) *JudgedPolicy {
	return &JudgedPolicy{judge: judge}
}

func (p *JudgedPolicy) Name() string { return "judged" }

// MaxAttempts is one initial answer plus the allowed follow-up rounds.
func (p *JudgedPolicy) MaxAttempts() int { return 1 + judgedMaxFollowUps }

func (p *JudgedPolicy) Decide(ctx context.Context, state *QuestionState) (*Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, judgeTimeout)
	defer cancel()

	verdict, err := p.judge.JudgeAnswer(callCtx, state.Prompt, state.Answer)
	if err != nil {
		return nil, fmt.Errorf("judge answer: %w", err)
	}

	if verdict.Satisfied {
		return &Decision{Outcome: Accept}, nil
	}

	if state.Attempt >= p.MaxAttempts() {
		return &Decision{
			Outcome: GiveUp,
			Notice: fmt.Sprintf("answer remained unsatisfactory after %d follow-up rounds; moving to the next question",
				judgedMaxFollowUps),
		}, nil
	}

	followUp := strings.TrimSpace(verdict.FollowUp)
	if followUp == "" {
		followUp = fmt.Sprintf("%s\n\nPlease elaborate on your previous answer.", state.Question)
	}

	return &Decision{Outcome: Retry, NextPrompt: followUp}, nil
}
