package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// questionSetSize is the contract with the question generation prompt:
// 3 technical + 3 experience + 2 situational + 2 culture-fit.
const questionSetSize = 10

const defaultQuestionTimeout = 2 * time.Minute

// QuestionStore persists the generated question set onto the posting so
// re-runs reuse it unchanged.
type QuestionStore interface {
	SaveQuestionSet(ctx context.Context, postingID string, questions []string) error
}

// QuestionProvider returns the interview question set for a posting: the
// cached set when one exists, otherwise a freshly generated one, otherwise the
// deterministic fallback set. Whichever set is used gets persisted.
type QuestionProvider struct {
	generator QuestionGenerator
	store     QuestionStore
	logger    *zap.Logger
	timeout   time.Duration
}

func NewQuestionProvider(generator QuestionGenerator, store QuestionStore, timeout time.Duration, logger *zap.Logger) *QuestionProvider {
	if timeout <= 0 {
		timeout = defaultQuestionTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuestionProvider{
		generator: generator,
		store:     store,
		logger:    logger,
		timeout:   timeout,
	}
}

// Questions never fails: generation problems degrade to the fallback set.
func (p *QuestionProvider) Questions(ctx context.Context, posting *Posting) []string {
	if len(posting.Questions) > 0 {
		p.logger.Info("reusing stored question set",
			zap.String("job_posting_id", posting.ID),
			zap.Int("count", len(posting.Questions)),
		)
		return posting.Questions
	}

	questions := p.generate(ctx, posting)
	if questions == nil {
		questions = DefaultQuestions(posting.Title)
		p.logger.Warn("falling back to the default question set",
			zap.String("job_posting_id", posting.ID),
		)
	}

	if err := p.store.SaveQuestionSet(ctx, posting.ID, questions); err != nil {
		p.logger.Warn("persisting question set failed",
			zap.String("job_posting_id", posting.ID),
			zap.Error(err),
		)
	}
	posting.Questions = questions

	return questions
}

func (p *QuestionProvider) generate(ctx context.Context, posting *Posting) []string {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	questions, err := p.generator.GenerateQuestions(callCtx, posting)
	if err != nil {
		p.logger.Warn("question generation failed",
			zap.String("job_posting_id", posting.ID),
			zap.Error(err),
		)
		return nil
	}

	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}

	if len(cleaned) != questionSetSize {
		p.logger.Warn("generated question set has wrong size",
			zap.String("job_posting_id", posting.ID),
			zap.Int("got", len(cleaned)),
			zap.Int("want", questionSetSize),
		)
		return nil
	}

	return cleaned
}

// DefaultQuestions is the deterministic question set used when generation is
// unavailable. Only the first question depends on the posting.
func DefaultQuestions(title string) []string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "this"
	}

	return []string{
		fmt.Sprintf("Why did you apply for the %s position?", title),
		"What was the most challenging project in your previous experience?",
		"How do you collaborate in situations where teamwork is critical?",
		"What methods do you use when learning a new technology?",
		"How do you respond when an unexpected problem occurs at work?",
		"What contribution would you like to make at this company?",
		"What are your long-term career goals?",
		"How do you cope with stressful situations?",
		"If you have leadership experience, how did you lead your team?",
		"Is there anything else you would like to tell us?",
	}
}
