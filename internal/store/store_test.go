package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/verifit/interview-runner/internal/interview"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	return store
}

func mustJSON(t *testing.T, v any) datatypes.JSON {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return datatypes.JSON(data)
}

func seedPosting(t *testing.T, store *Store) *JobPosting {
	t.Helper()

	posting := &JobPosting{
		Title:        "Backend Engineer",
		MainTasks:    "Build services",
		Requirements: "Go experience",
		HardSkills:   mustJSON(t, []string{"Go", "SQL"}),
		SoftSkills:   mustJSON(t, []string{"Communication"}),
	}
	require.NoError(t, store.db.Create(posting).Error)
	return posting
}

func seedApplication(t *testing.T, store *Store, postingID string) *Application {
	t.Helper()

	app := &Application{JobPostingID: postingID, JobSeekerID: "seeker-1"}
	require.NoError(t, store.db.Create(app).Error)
	return app
}

func sampleEvaluation() *interview.Evaluation {
	return &interview.Evaluation{
		HardScore:  80,
		SoftScore:  70,
		TotalScore: 75,
		Summary:    "Solid candidate.",
		HardDetail: []interview.SkillScore{{Skill: "Go", Score: 80}, {Skill: "SQL", Score: 70}},
		SoftDetail: []interview.SkillScore{{Skill: "Communication", Score: 70}},
		Strengths: interview.OpinionTriple{
			Content:  "Broad backend experience.",
			Opinion:  "Ready for the role.",
			Evidence: "Described the ledger rewrite in detail.",
		},
		FinalOpinion: "Hire.",
	}
}

func TestPostingRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seeded := seedPosting(t, store)

	posting, err := store.Posting(context.Background(), seeded.ID)
	require.NoError(t, err)

	require.Equal(t, "Backend Engineer", posting.Title)
	require.Equal(t, []string{"Go", "SQL"}, posting.HardSkills)
	require.Equal(t, []string{"Communication"}, posting.SoftSkills)
	require.Empty(t, posting.Questions)
	require.Equal(t, interview.EvalStatusIdle, posting.EvalStatus)
}

func TestPostingNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Posting(context.Background(), "missing")
	require.Error(t, err)
}

func TestSaveQuestionSetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	seeded := seedPosting(t, store)

	questions := []string{"q1", "q2", "q3"}
	require.NoError(t, store.SaveQuestionSet(context.Background(), seeded.ID, questions))

	posting, err := store.Posting(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, questions, posting.Questions)
}

func TestSetEvalStatus(t *testing.T) {
	store := openTestStore(t)
	seeded := seedPosting(t, store)

	require.NoError(t, store.SetEvalStatus(context.Background(), seeded.ID, interview.EvalStatusInProgress))

	posting, err := store.Posting(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, interview.EvalStatusInProgress, posting.EvalStatus)
}

func TestApplicationsListsOnlyThePosting(t *testing.T) {
	store := openTestStore(t)
	first := seedPosting(t, store)
	second := seedPosting(t, store)

	app := seedApplication(t, store, first.ID)
	seedApplication(t, store, second.ID)

	refs, err := store.Applications(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, app.ID, refs[0].ID)
	require.Equal(t, "seeker-1", refs[0].JobSeekerID)
}

func TestProfileRoundTrip(t *testing.T) {
	store := openTestStore(t)
	posting := seedPosting(t, store)
	app := seedApplication(t, store, posting.ID)

	require.NoError(t, store.db.Create(&CandidateProfile{
		ApplicationID: app.ID,
		FullText:      "full",
		BehaviorText:  "behavior",
		Big5Text:      "big5",
		AIQAText:      "qa",
	}).Error)

	profile, err := store.Profile(context.Background(), app.ID)
	require.NoError(t, err)
	require.Equal(t, "full", profile.FullText)
	require.Equal(t, "behavior", profile.BehaviorText)
	require.Equal(t, "big5", profile.Big5Text)
	require.Equal(t, "qa", profile.AIQAText)
}

func TestSaveResultPersistsTurnsAndEvaluation(t *testing.T) {
	store := openTestStore(t)
	posting := seedPosting(t, store)
	app := seedApplication(t, store, posting.ID)

	turns := []interview.Turn{
		{Sender: interview.SenderInterviewer, Kind: interview.TurnQuestion, Content: "q1", TurnNumber: 1},
		{Sender: interview.SenderCandidate, Kind: interview.TurnAnswer, Content: "a1", TurnNumber: 2, Accepted: true, Highlight: true},
	}

	require.NoError(t, store.SaveResult(context.Background(), app.ID, turns, sampleEvaluation()))

	stored, err := store.Turns(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, 1, stored[0].TurnNumber)
	require.Equal(t, "question", stored[0].Kind)
	require.True(t, stored[1].Accepted)
	require.True(t, stored[1].Highlight)

	var eval Evaluation
	require.NoError(t, store.db.First(&eval, "application_id = ?", app.ID).Error)
	require.Equal(t, 75.0, eval.TotalScore)
	require.Equal(t, "Solid candidate.", eval.AISummary)
	require.Equal(t, "Described the ledger rewrite in detail.", eval.StrengthsEvidence)

	var entries []map[string]float64
	require.NoError(t, json.Unmarshal(eval.HardDetailScores, &entries))
	require.Equal(t, []map[string]float64{{"Go": 80}, {"SQL": 70}}, entries)

	var updated Application
	require.NoError(t, store.db.First(&updated, "id = ?", app.ID).Error)
	require.Equal(t, ApplicationStatusEvaluated, updated.Status)
}

func TestSaveResultReplacesPreviousRun(t *testing.T) {
	store := openTestStore(t)
	posting := seedPosting(t, store)
	app := seedApplication(t, store, posting.ID)

	first := []interview.Turn{
		{Sender: interview.SenderInterviewer, Kind: interview.TurnQuestion, Content: "old q", TurnNumber: 1},
		{Sender: interview.SenderCandidate, Kind: interview.TurnAnswer, Content: "old a", TurnNumber: 2},
		{Sender: interview.SenderInterviewer, Kind: interview.TurnNotice, Content: "old n", TurnNumber: 3},
	}
	require.NoError(t, store.SaveResult(context.Background(), app.ID, first, sampleEvaluation()))

	second := []interview.Turn{
		{Sender: interview.SenderInterviewer, Kind: interview.TurnQuestion, Content: "new q", TurnNumber: 1},
		{Sender: interview.SenderCandidate, Kind: interview.TurnAnswer, Content: "new a", TurnNumber: 2},
	}
	eval := sampleEvaluation()
	eval.TotalScore = 40
	eval.Summary = "Re-evaluated."
	require.NoError(t, store.SaveResult(context.Background(), app.ID, second, eval))

	stored, err := store.Turns(context.Background(), app.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2, "previous turns must be fully replaced")
	require.Equal(t, "new q", stored[0].Content)

	var evals []Evaluation
	require.NoError(t, store.db.Where("application_id = ?", app.ID).Find(&evals).Error)
	require.Len(t, evals, 1, "evaluation must be upserted, not duplicated")
	require.Equal(t, 40.0, evals[0].TotalScore)
	require.Equal(t, "Re-evaluated.", evals[0].AISummary)
}

func TestSaveResultWithNoTurns(t *testing.T) {
	store := openTestStore(t)
	posting := seedPosting(t, store)
	app := seedApplication(t, store, posting.ID)

	require.NoError(t, store.SaveResult(context.Background(), app.ID, nil, sampleEvaluation()))

	stored, err := store.Turns(context.Background(), app.ID)
	require.NoError(t, err)
	require.Empty(t, stored)
}
