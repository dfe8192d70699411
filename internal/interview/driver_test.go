package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

type stubAnswers struct {
	mu      sync.Mutex
	answers []string
	err     error
	calls   int
}

func (s *stubAnswers) GenerateAnswer(_ context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	answer := s.answers[0]
	if len(s.answers) > 1 {
		s.answers = s.answers[1:]
	}
	return answer, nil
}

func substantiveAnswer() string {
	return strings.Repeat("I shipped the payments rewrite and it went well. ", 3)
}

func TestDriverAssignsStrictlyIncreasingTurnNumbers(t *testing.T) {
	answers := &stubAnswers{answers: []string{substantiveAnswer()}}
	driver := NewDriver(answers, NewHeuristicPolicy(), 0, zap.NewNop())

	transcript, _ := driver.RunInterview(context.Background(),
		[]string{"q1", "q2", "q3"}, "profile")

	turns := transcript.Turns()
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.TurnNumber != i+1 {
			t.Fatalf("turn %d has number %d", i, turn.TurnNumber)
		}
	}
}

func TestDriverAcceptsAndMarksAnswerTurn(t *testing.T) {
	answers := &stubAnswers{answers: []string{substantiveAnswer()}}
	driver := NewDriver(answers, NewHeuristicPolicy(), 0, zap.NewNop())

	transcript, results := driver.RunInterview(context.Background(), []string{"q1"}, "profile")

	if len(results) != 1 || !results[0].Complete || results[0].Attempts != 1 {
		t.Fatalf("unexpected result: %+v", results)
	}

	turns := transcript.Turns()
	if turns[0].Kind != TurnQuestion || turns[1].Kind != TurnAnswer {
		t.Fatalf("unexpected turn kinds: %v %v", turns[0].Kind, turns[1].Kind)
	}
	if !turns[1].Accepted {
		t.Fatalf("expected the accepted answer turn to be marked")
	}
}

func TestDriverRetriesAsFollowUpsAndGivesUp(t *testing.T) {
	answers := &stubAnswers{answers: []string{"too short"}}
	policy := NewHeuristicPolicy()
	driver := NewDriver(answers, policy, 0, zap.NewNop())

	transcript, results := driver.RunInterview(context.Background(), []string{"q1"}, "profile")

	if results[0].Complete {
		t.Fatalf("expected an incomplete result")
	}
	if results[0].Attempts != policy.MaxAttempts() {
		t.Fatalf("expected %d attempts, got %d", policy.MaxAttempts(), results[0].Attempts)
	}
	if answers.calls != policy.MaxAttempts() {
		t.Fatalf("expected %d answer calls, got %d", policy.MaxAttempts(), answers.calls)
	}

	turns := transcript.Turns()
	followUps := 0
	for _, turn := range turns {
		if turn.Kind == TurnFollowUp {
			followUps++
		}
		if turn.Kind == TurnAnswer && turn.Accepted {
			t.Fatalf("no answer should be accepted")
		}
	}
	if followUps != policy.MaxAttempts()-1 {
		t.Fatalf("expected %d follow-up turns, got %d", policy.MaxAttempts()-1, followUps)
	}
}

func TestDriverRecordsNoticeOnAnswerFailure(t *testing.T) {
	answers := &stubAnswers{err: errors.New("model unavailable")}
	driver := NewDriver(answers, NewHeuristicPolicy(), 0, zap.NewNop())

	transcript, results := driver.RunInterview(context.Background(),
		[]string{"q1", "q2"}, "profile")

	// Both questions get a question turn and a notice turn; the failure of one
	// question never stops the next.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Complete {
			t.Fatalf("expected incomplete results")
		}
	}

	turns := transcript.Turns()
	notices := 0
	for _, turn := range turns {
		if turn.Kind == TurnNotice {
			notices++
		}
	}
	if notices != 2 {
		t.Fatalf("expected 2 notice turns, got %d", notices)
	}
}

func TestDriverRecordsGiveUpNotice(t *testing.T) {
	judge := &stubJudge{verdicts: []*Verdict{{Satisfied: false}}}
	answers := &stubAnswers{answers: []string{substantiveAnswer()}}
	policy := NewJudgedPolicy(judge)
	driver := NewDriver(answers, policy, 0, zap.NewNop())

	transcript, results := driver.RunInterview(context.Background(), []string{"q1"}, "profile")

	if results[0].Complete {
		t.Fatalf("expected an incomplete result")
	}
	if judge.calls != policy.MaxAttempts() {
		t.Fatalf("expected %d judge rounds, got %d", policy.MaxAttempts(), judge.calls)
	}

	turns := transcript.Turns()
	last := turns[len(turns)-1]
	if last.Kind != TurnNotice {
		t.Fatalf("expected a terminal notice turn, got %v", last.Kind)
	}
}

func TestDriverResetsAttemptsBetweenQuestions(t *testing.T) {
	answers := &stubAnswers{answers: []string{
		"too short",
		"too short",
		"too short",
		substantiveAnswer(),
	}}
	driver := NewDriver(answers, NewHeuristicPolicy(), 0, zap.NewNop())

	_, results := driver.RunInterview(context.Background(), []string{"q1", "q2"}, "profile")

	if results[0].Complete || results[0].Attempts != 3 {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if !results[1].Complete || results[1].Attempts != 1 {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}
