package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verifit/interview-runner/internal/interview"
)

// Store exposes the persistence operations the interview pipeline needs. It
// implements interview.Store.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the database behind the DSN and migrates the pipeline's
// tables.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&JobPosting{},
		&Application{},
		&CandidateProfile{},
		&ConversationTurn{},
		&Evaluation{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// New wraps an already opened gorm connection. Used by tests.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Posting loads a posting in the pipeline's shape.
func (s *Store) Posting(ctx context.Context, id string) (*interview.Posting, error) {
	var row JobPosting
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("job posting %s: %w", id, err)
	}

	return &interview.Posting{
		ID:           row.ID,
		Title:        row.Title,
		MainTasks:    row.MainTasks,
		Requirements: row.Requirements,
		Preferred:    row.Preferred,
		HardSkills:   decodeStrings(row.HardSkills),
		SoftSkills:   decodeStrings(row.SoftSkills),
		Questions:    decodeStrings(row.InterviewQuestions),
		EvalStatus:   row.EvalStatus,
	}, nil
}

// SaveQuestionSet writes the generated question set onto the posting. Written
// once per posting; later runs reuse the stored set.
func (s *Store) SaveQuestionSet(ctx context.Context, postingID string, questions []string) error {
	payload, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode question set: %w", err)
	}

	return s.db.WithContext(ctx).
		Model(&JobPosting{}).
		Where("id = ?", postingID).
		Update("interview_questions", datatypes.JSON(payload)).Error
}

// SetEvalStatus transitions the posting's evaluation status.
func (s *Store) SetEvalStatus(ctx context.Context, postingID, status string) error {
	return s.db.WithContext(ctx).
		Model(&JobPosting{}).
		Where("id = ?", postingID).
		Update("eval_status", status).Error
}

// Applications lists all applications of a posting.
func (s *Store) Applications(ctx context.Context, postingID string) ([]interview.ApplicationRef, error) {
	var rows []Application
	if err := s.db.WithContext(ctx).
		Where("job_posting_id = ?", postingID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	refs := make([]interview.ApplicationRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, interview.ApplicationRef{
			ID:          row.ID,
			JobSeekerID: row.JobSeekerID,
		})
	}

	return refs, nil
}

// Profile loads the candidate text bundle for an application.
func (s *Store) Profile(ctx context.Context, applicationID string) (*interview.Profile, error) {
	var row CandidateProfile
	if err := s.db.WithContext(ctx).
		First(&row, "application_id = ?", applicationID).Error; err != nil {
		return nil, fmt.Errorf("candidate profile for application %s: %w", applicationID, err)
	}

	return &interview.Profile{
		FullText:     row.FullText,
		BehaviorText: row.BehaviorText,
		Big5Text:     row.Big5Text,
		AIQAText:     row.AIQAText,
	}, nil
}

// SaveResult persists one evaluation run in a single transaction: the turn set
// is replaced (no append-merge), the evaluation row is upserted on
// application_id and the application is marked evaluated. Nothing is written
// on error.
func (s *Store) SaveResult(ctx context.Context, applicationID string, turns []interview.Turn, eval *interview.Evaluation) error {
	hardDetail, err := encodeDetail(eval.HardDetail)
	if err != nil {
		return fmt.Errorf("encode hard detail scores: %w", err)
	}
	softDetail, err := encodeDetail(eval.SoftDetail)
	if err != nil {
		return fmt.Errorf("encode soft detail scores: %w", err)
	}

	rows := make([]ConversationTurn, 0, len(turns))
	for _, turn := range turns {
		rows = append(rows, ConversationTurn{
			ApplicationID: applicationID,
			Sender:        string(turn.Sender),
			Kind:          string(turn.Kind),
			Content:       turn.Content,
			TurnNumber:    turn.TurnNumber,
			Accepted:      turn.Accepted,
			Highlight:     turn.Highlight,
		})
	}

	record := Evaluation{
		ApplicationID:     applicationID,
		HardScore:         eval.HardScore,
		SoftScore:         eval.SoftScore,
		TotalScore:        eval.TotalScore,
		AISummary:         eval.Summary,
		HardDetailScores:  hardDetail,
		SoftDetailScores:  softDetail,
		StrengthsContent:  eval.Strengths.Content,
		StrengthsOpinion:  eval.Strengths.Opinion,
		StrengthsEvidence: eval.Strengths.Evidence,
		ConcernsContent:   eval.Concerns.Content,
		ConcernsOpinion:   eval.Concerns.Opinion,
		ConcernsEvidence:  eval.Concerns.Evidence,
		FollowupContent:   eval.FollowUps.Content,
		FollowupOpinion:   eval.FollowUps.Opinion,
		FollowupEvidence:  eval.FollowUps.Evidence,
		FinalOpinion:      eval.FinalOpinion,
		Highlight:         eval.Highlight,
		HighlightReason:   eval.HighlightReason,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ?", applicationID).
			Delete(&ConversationTurn{}).Error; err != nil {
			return fmt.Errorf("delete previous turns: %w", err)
		}

		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert turns: %w", err)
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "application_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hard_score", "soft_score", "total_score",
				"ai_summary", "hard_detail_scores", "soft_detail_scores",
				"strengths_content", "strengths_opinion", "strengths_evidence",
				"concerns_content", "concerns_opinion", "concerns_evidence",
				"followup_content", "followup_opinion", "followup_evidence",
				"final_opinion", "highlight", "highlight_reason", "updated_at",
			}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("upsert evaluation: %w", err)
		}

		if err := tx.Model(&Application{}).
			Where("id = ?", applicationID).
			Update("status", ApplicationStatusEvaluated).Error; err != nil {
			return fmt.Errorf("mark application evaluated: %w", err)
		}

		return nil
	})
}

// Turns returns the stored transcript for an application in turn order.
func (s *Store) Turns(ctx context.Context, applicationID string) ([]ConversationTurn, error) {
	var rows []ConversationTurn
	err := s.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("turn_number asc").
		Find(&rows).Error
	return rows, err
}

func decodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// encodeDetail keeps the skill order by encoding the mapping as an array of
// single-pair objects.
func encodeDetail(detail []interview.SkillScore) (datatypes.JSON, error) {
	entries := make([]map[string]float64, 0, len(detail))
	for _, entry := range detail {
		entries = append(entries, map[string]float64{entry.Skill: entry.Score})
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}

	return datatypes.JSON(payload), nil
}
