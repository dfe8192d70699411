package interview

import "context"

// The pipeline's only wire-level boundary is the text-generation capability.
// It is split into the four task-shaped calls the pipeline makes so tests can
// substitute each one independently.

// QuestionGenerator produces the ordered interview question set for a posting.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, posting *Posting) ([]string, error)
}

// AnswerGenerator produces a simulated candidate answer to a question, grounded
// on the candidate profile context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, profile string) (string, error)
}

// Verdict is a judge decision over a single answer.
type Verdict struct {
	Satisfied bool
	// FollowUp is the proposed follow-up question when the judge is not
	// satisfied. May be empty.
	FollowUp string
}

// Judge decides whether an answer adequately addresses the question.
type Judge interface {
	JudgeAnswer(ctx context.Context, question, answer string) (*Verdict, error)
}

// Scorer produces the raw structured evaluation for a full transcript summary.
// The payload is untrusted and goes through Normalize before persistence.
type Scorer interface {
	ScoreTranscript(ctx context.Context, summary string, hardSkills, softSkills []string) (map[string]any, error)
}

// Ingestor is the optional knowledge-base collaborator. Ingest requests are
// fire-and-forget; failures never affect the interview outcome.
type Ingestor interface {
	Ingest(ctx context.Context, postingID, applicantID string, profile *Profile) error
}
