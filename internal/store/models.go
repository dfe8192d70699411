package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobPosting is the posting row. The pipeline only ever writes
// InterviewQuestions and EvalStatus; everything else belongs to the posting's
// own lifecycle.
type JobPosting struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Title        string `gorm:"size:200;not null"`
	MainTasks    string `gorm:"type:text"`
	Requirements string `gorm:"type:text"`
	Preferred    string `gorm:"type:text"`

	HardSkills         datatypes.JSON
	SoftSkills         datatypes.JSON
	InterviewQuestions datatypes.JSON

	EvalStatus string `gorm:"size:20;default:idle"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *JobPosting) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Application links a job seeker to a posting.
type Application struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	JobPostingID string `gorm:"type:uuid;not null;index"`
	JobSeekerID  string `gorm:"type:uuid;not null"`
	Status       string `gorm:"size:20;default:applied"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Application) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// ApplicationStatusEvaluated marks an application whose evaluation run
// completed successfully.
const ApplicationStatusEvaluated = "evaluated"

// CandidateProfile is the read-only text bundle for one application.
type CandidateProfile struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	ApplicationID string `gorm:"type:uuid;not null;uniqueIndex"`

	FullText     string `gorm:"type:text"`
	BehaviorText string `gorm:"type:text"`
	Big5Text     string `gorm:"type:text"`
	AIQAText     string `gorm:"type:text;column:aiqa_text"`

	CreatedAt time.Time
}

func (c *CandidateProfile) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ConversationTurn is one transcript turn. Turn numbers are strictly
// increasing per application; a re-evaluation replaces the whole set.
type ConversationTurn struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	ApplicationID string `gorm:"type:uuid;not null;index"`

	Sender     string `gorm:"size:20;not null"`
	Kind       string `gorm:"size:20;not null"`
	Content    string `gorm:"type:text;not null"`
	TurnNumber int    `gorm:"not null"`
	Accepted   bool
	Highlight  bool

	CreatedAt time.Time
}

func (t *ConversationTurn) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Evaluation is the one-row-per-application evaluation result.
type Evaluation struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	ApplicationID string `gorm:"type:uuid;not null;uniqueIndex"`

	HardScore  float64 `gorm:"not null"`
	SoftScore  float64 `gorm:"not null"`
	TotalScore float64 `gorm:"not null"`

	AISummary string `gorm:"type:text;column:ai_summary"`

	HardDetailScores datatypes.JSON
	SoftDetailScores datatypes.JSON

	StrengthsContent  string `gorm:"type:text"`
	StrengthsOpinion  string `gorm:"type:text"`
	StrengthsEvidence string `gorm:"type:text"`
	ConcernsContent   string `gorm:"type:text"`
	ConcernsOpinion   string `gorm:"type:text"`
	ConcernsEvidence  string `gorm:"type:text"`
	FollowupContent   string `gorm:"type:text"`
	FollowupOpinion   string `gorm:"type:text"`
	FollowupEvidence  string `gorm:"type:text"`

	FinalOpinion string `gorm:"type:text"`

	Highlight       string `gorm:"type:text"`
	HighlightReason string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Evaluation) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
