package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/verifit/interview-runner/internal/interview"
	"github.com/verifit/interview-runner/internal/logger"
)

//go:embed prompts/questions.md
var questionsTemplate string

//go:embed prompts/answer.md
var answerTemplate string

//go:embed prompts/judge.md
var judgeTemplate string

//go:embed prompts/scoring.md
var scoringTemplate string

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Interviewer implements the pipeline's four capability calls (question
// generation, candidate answers, judge verdicts, final scoring) on top of one
// prompt-based generator.
type Interviewer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewInterviewer(generator contentGenerator, maxLogLength int, log *zap.Logger) *Interviewer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Interviewer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// GenerateQuestions asks for the 3/3/2/2 question set of a posting.
func (iv *Interviewer) GenerateQuestions(ctx context.Context, posting *interview.Posting) ([]string, error) {
	prompt := fill(questionsTemplate, map[string]string{
		"TITLE":        posting.Title,
		"MAIN_TASKS":   orNone(posting.MainTasks),
		"REQUIREMENTS": orNone(posting.Requirements),
		"PREFERRED":    orNone(posting.Preferred),
		"HARD_SKILLS":  joinOrNone(posting.HardSkills),
		"SOFT_SKILLS":  joinOrNone(posting.SoftSkills),
	})

	raw, err := iv.call(ctx, "generate_questions", prompt)
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}

	questions := coerceStringSlice(data["questions"])
	if len(questions) == 0 {
		return nil, fmt.Errorf("question generation: response contains no questions")
	}

	return questions, nil
}

// GenerateAnswer produces the simulated candidate answer for one prompt.
func (iv *Interviewer) GenerateAnswer(ctx context.Context, question, profile string) (string, error) {
	prompt := fill(answerTemplate, map[string]string{
		"QUESTION": question,
		"PROFILE":  profile,
	})

	raw, err := iv.call(ctx, "generate_answer", prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(raw), nil
}

// JudgeAnswer returns the satisfaction verdict and optional follow-up.
func (iv *Interviewer) JudgeAnswer(ctx context.Context, question, answer string) (*interview.Verdict, error) {
	prompt := fill(judgeTemplate, map[string]string{
		"QUESTION": question,
		"ANSWER":   answer,
	})

	raw, err := iv.call(ctx, "judge_answer", prompt)
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("judge verdict: %w", err)
	}

	return &interview.Verdict{
		Satisfied: coerceBool(data["satisfied"]),
		FollowUp:  coerceString(data["follow_up"]),
	}, nil
}

// ScoreTranscript runs the final-scoring call and returns the raw payload for
// normalization downstream.
func (iv *Interviewer) ScoreTranscript(ctx context.Context, summary string, hardSkills, softSkills []string) (map[string]any, error) {
	prompt := fill(scoringTemplate, map[string]string{
		"HARD_SKILLS": joinOrNone(hardSkills),
		"SOFT_SKILLS": joinOrNone(softSkills),
		"SUMMARY":     summary,
	})

	raw, err := iv.call(ctx, "score_transcript", prompt)
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("final scoring: %w", err)
	}

	return data, nil
}

func (iv *Interviewer) call(ctx context.Context, task, prompt string) (string, error) {
	iv.logger.Debug("gemini generate content request",
		zap.String("task", task),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, iv.maxLogLen)),
	)

	raw, err := iv.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	iv.logger.Debug("gemini generate content response",
		zap.String("task", task),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, iv.maxLogLen)),
	)

	return raw, nil
}

func fill(template string, values map[string]string) string {
	prompt := template
	for key, value := range values {
		prompt = strings.ReplaceAll(prompt, "{{"+key+"}}", value)
	}
	return prompt
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "none"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
