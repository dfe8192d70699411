package interview

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultAnswerTimeout = 3 * time.Minute

// Driver runs the per-question state machine:
// AskQuestion -> AwaitAnswer -> Judge -> {Accept | Retry -> AskQuestion | GiveUp}.
// Failures of the answer or judge capability are contained to the current
// question: a notice turn is recorded and the driver gives up on it.
type Driver struct {
	answers       AnswerGenerator
	policy        Policy
	logger        *zap.Logger
	answerTimeout time.Duration
}

func NewDriver(answers AnswerGenerator, policy Policy, answerTimeout time.Duration, logger *zap.Logger) *Driver {
	if answerTimeout <= 0 {
		answerTimeout = defaultAnswerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		answers:       answers,
		policy:        policy,
		logger:        logger,
		answerTimeout: answerTimeout,
	}
}

// RunInterview drives every question sequentially against one candidate
// profile, accumulating all turns on a single transcript. Attempt state is
// reset per question.
func (d *Driver) RunInterview(ctx context.Context, questions []string, profile string) (*Transcript, []QuestionResult) {
	transcript := NewTranscript()
	results := make([]QuestionResult, 0, len(questions))

	for i, question := range questions {
		result := d.runQuestion(ctx, transcript, i+1, question, profile)
		results = append(results, result)
	}

	return transcript, results
}

func (d *Driver) runQuestion(ctx context.Context, transcript *Transcript, number int, question, profile string) QuestionResult {
	result := QuestionResult{Number: number, Question: question}
	prompt := question

	for attempt := 1; attempt <= d.policy.MaxAttempts(); attempt++ {
		result.Attempts = attempt

		kind := TurnQuestion
		if attempt > 1 {
			kind = TurnFollowUp
		}
		transcript.Append(SenderInterviewer, kind, prompt)

		answer, err := d.generateAnswer(ctx, prompt, profile)
		if err != nil {
			d.logger.Warn("answer generation failed",
				zap.Int("question_number", number),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			transcript.Append(SenderInterviewer, TurnNotice,
				fmt.Sprintf("answer generation failed: %v", err))
			return result
		}

		answerTurn := transcript.Append(SenderCandidate, TurnAnswer, answer)
		result.Answer = answer

		state := &QuestionState{
			Question: question,
			Prompt:   prompt,
			Answer:   answer,
			Attempt:  attempt,
		}

		decision, err := d.policy.Decide(ctx, state)
		if err != nil {
			d.logger.Warn("completeness decision failed",
				zap.Int("question_number", number),
				zap.Int("attempt", attempt),
				zap.String("policy", d.policy.Name()),
				zap.Error(err),
			)
			transcript.Append(SenderInterviewer, TurnNotice,
				fmt.Sprintf("completeness decision failed: %v", err))
			return result
		}

		// The policy cannot ask for another attempt past its own bound.
		if decision.Outcome == Retry && attempt >= d.policy.MaxAttempts() {
			decision = &Decision{Outcome: GiveUp}
		}

		switch decision.Outcome {
		case Accept:
			answerTurn.Accepted = true
			result.Complete = true
			d.logger.Debug("question complete",
				zap.Int("question_number", number),
				zap.Int("attempts", attempt),
			)
			return result
		case Retry:
			prompt = decision.NextPrompt
		case GiveUp:
			if decision.Notice != "" {
				transcript.Append(SenderInterviewer, TurnNotice, decision.Notice)
			}
			d.logger.Info("question abandoned as incomplete",
				zap.Int("question_number", number),
				zap.Int("attempts", attempt),
				zap.String("policy", d.policy.Name()),
			)
			return result
		}
	}

	return result
}

func (d *Driver) generateAnswer(ctx context.Context, prompt, profile string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.answerTimeout)
	defer cancel()

	return d.answers.GenerateAnswer(callCtx, prompt, profile)
}
