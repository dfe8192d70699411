package interview

import (
	"fmt"
	"strings"
)

// Sender identifies the author of a transcript turn.
type Sender string

const (
	SenderInterviewer Sender = "interviewer"
	SenderCandidate   Sender = "candidate"
)

// TurnKind classifies a transcript turn.
type TurnKind string

const (
	TurnQuestion   TurnKind = "question"
	TurnAnswer     TurnKind = "answer"
	TurnFollowUp   TurnKind = "follow_up"
	TurnEvaluation TurnKind = "evaluation"
	TurnNotice     TurnKind = "notice"
)

// Turn is a single utterance in an interview transcript. TurnNumber is
// strictly increasing within an application, starting at 1.
type Turn struct {
	Sender     Sender
	Kind       TurnKind
	Content    string
	TurnNumber int
	Accepted   bool
	Highlight  bool
}

// Transcript accumulates turns for one application in generation order.
type Transcript struct {
	turns []Turn
	next  int
}

func NewTranscript() *Transcript {
	return &Transcript{next: 1}
}

// Append adds a turn and assigns the next turn number.
func (t *Transcript) Append(sender Sender, kind TurnKind, content string) *Turn {
	t.turns = append(t.turns, Turn{
		Sender:     sender,
		Kind:       kind,
		Content:    content,
		TurnNumber: t.next,
	})
	t.next++
	return &t.turns[len(t.turns)-1]
}

// Turns returns the accumulated turns in order.
func (t *Transcript) Turns() []Turn {
	return t.turns
}

func (t *Transcript) Len() int {
	return len(t.turns)
}

// Posting carries the job posting fields the pipeline reads, plus the two
// fields it is allowed to write back: the cached question set and eval status.
type Posting struct {
	ID           string
	Title        string
	MainTasks    string
	Requirements string
	Preferred    string
	HardSkills   []string
	SoftSkills   []string
	Questions    []string
	EvalStatus   string
}

// Posting eval status values.
const (
	EvalStatusIdle       = "idle"
	EvalStatusInProgress = "in_progress"
	EvalStatusFinished   = "finished"
)

// Profile is the read-only candidate text bundle consumed per application.
type Profile struct {
	FullText     string
	BehaviorText string
	Big5Text     string
	AIQAText     string
}

// MissingFieldError reports an empty required profile field. It fails only the
// application it belongs to.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("candidate profile field %q is empty", e.Field)
}

// Validate checks the interview preconditions. The aiqa text is optional;
// full, behavior and big5 texts must be present.
func (p *Profile) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"full_text", p.FullText},
		{"behavior_text", p.BehaviorText},
		{"big5_text", p.Big5Text},
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return &MissingFieldError{Field: field.name}
		}
	}

	return nil
}

// Context renders the bundle into the profile text that answer prompts are
// grounded on.
func (p *Profile) Context() string {
	var b strings.Builder

	b.WriteString("=== Candidate profile ===\n")
	b.WriteString(strings.TrimSpace(p.FullText))

	sections := []struct {
		title string
		text  string
	}{
		{"Behavioral assessment", p.BehaviorText},
		{"Personality assessment (Big5)", p.Big5Text},
		{"Candidate Q&A", p.AIQAText},
	}

	for _, section := range sections {
		text := strings.TrimSpace(section.text)
		if text == "" {
			continue
		}
		b.WriteString("\n\n=== ")
		b.WriteString(section.title)
		b.WriteString(" ===\n")
		b.WriteString(text)
	}

	return b.String()
}

// QuestionResult is the per-question outcome of a driver run.
type QuestionResult struct {
	Number   int
	Question string
	Answer   string
	Attempts int
	Complete bool
}

// SummarizeResults renders the per-question outcomes into the compact
// transcript summary consumed by the final-scoring call.
func SummarizeResults(results []QuestionResult) string {
	var b strings.Builder
	b.WriteString("=== Interview summary ===\n")

	for _, r := range results {
		status := "incomplete"
		if r.Complete {
			status = "complete"
		}

		answer := r.Answer
		if runes := []rune(answer); len(runes) > 200 {
			answer = string(runes[:200]) + "..."
		}

		fmt.Fprintf(&b, "\nQuestion %d: %s\n", r.Number, r.Question)
		fmt.Fprintf(&b, "Answer: %s\n", answer)
		fmt.Fprintf(&b, "Status: %s (attempts: %d)\n", status, r.Attempts)
	}

	return b.String()
}
