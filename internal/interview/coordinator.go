package interview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verifit/interview-runner/internal/logger"
)

const (
	defaultConcurrency = 4
	kbPublishTimeout   = 10 * time.Second
)

// ApplicationRef identifies one application of a posting.
type ApplicationRef struct {
	ID          string
	JobSeekerID string
}

// Store is the persistence surface the coordinator depends on.
type Store interface {
	QuestionStore

	Posting(ctx context.Context, id string) (*Posting, error)
	SetEvalStatus(ctx context.Context, postingID, status string) error
	Applications(ctx context.Context, postingID string) ([]ApplicationRef, error)
	Profile(ctx context.Context, applicationID string) (*Profile, error)
	// SaveResult atomically replaces the application's conversation turns,
	// upserts its evaluation and marks the application evaluated.
	SaveResult(ctx context.Context, applicationID string, turns []Turn, eval *Evaluation) error
}

// ApplicationFailure records one isolated per-application failure.
type ApplicationFailure struct {
	ApplicationID string
	Reason        string
}

// Summary is the batch-level result. It is always returned without a hard
// error, even when individual applications failed or used fallback scoring.
type Summary struct {
	PostingID string
	Total     int
	Evaluated int
	Failures  []ApplicationFailure
}

// Coordinator runs the interview pipeline for every application of a posting
// with per-application failure isolation and a bounded worker pool.
type Coordinator struct {
	store       Store
	questions   *QuestionProvider
	driver      *Driver
	aggregator  *Aggregator
	kb          Ingestor
	logger      *zap.Logger
	concurrency int
}

func NewCoordinator(store Store, questions *QuestionProvider, driver *Driver, aggregator *Aggregator, kb Ingestor, concurrency int, logger *zap.Logger) *Coordinator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		store:       store,
		questions:   questions,
		driver:      driver,
		aggregator:  aggregator,
		kb:          kb,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run evaluates all applications of the posting. Questions within one
// application are strictly sequential; applications run concurrently up to the
// configured bound.
func (c *Coordinator) Run(ctx context.Context, postingID string) (*Summary, error) {
	posting, err := c.store.Posting(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("load posting: %w", err)
	}

	apps, err := c.store.Applications(ctx, postingID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	summary := &Summary{PostingID: postingID, Total: len(apps)}

	if len(apps) == 0 {
		c.logger.Info("no applications to evaluate",
			zap.String(logger.FieldPosting, postingID),
		)
		if err := c.store.SetEvalStatus(ctx, postingID, EvalStatusFinished); err != nil {
			return nil, fmt.Errorf("finish posting: %w", err)
		}
		return summary, nil
	}

	if err := c.store.SetEvalStatus(ctx, postingID, EvalStatusInProgress); err != nil {
		return nil, fmt.Errorf("start posting: %w", err)
	}

	questions := c.questions.Questions(ctx, posting)

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan ApplicationRef)
	)

	for range c.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range jobs {
				if err := c.processApplication(ctx, posting, questions, app); err != nil {
					c.logger.Warn("application evaluation failed",
						zap.String(logger.FieldApplication, app.ID),
						zap.Error(err),
					)
					mu.Lock()
					summary.Failures = append(summary.Failures, ApplicationFailure{
						ApplicationID: app.ID,
						Reason:        err.Error(),
					})
					mu.Unlock()
					continue
				}

				mu.Lock()
				summary.Evaluated++
				mu.Unlock()
			}
		}()
	}

	for _, app := range apps {
		jobs <- app
	}
	close(jobs)
	wg.Wait()

	// The batch is finished even when the context was canceled mid-run.
	finishCtx := context.WithoutCancel(ctx)
	if err := c.store.SetEvalStatus(finishCtx, postingID, EvalStatusFinished); err != nil {
		return nil, fmt.Errorf("finish posting: %w", err)
	}

	c.logger.Info("batch evaluation finished",
		zap.String(logger.FieldPosting, postingID),
		zap.Int("total", summary.Total),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("failed", len(summary.Failures)),
	)

	return summary, nil
}

func (c *Coordinator) processApplication(ctx context.Context, posting *Posting, questions []string, app ApplicationRef) (err error) {
	defer func() {
		// An uncaught panic in one application must not take down the batch.
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while evaluating application: %v", r)
		}
	}()

	profile, err := c.store.Profile(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("load candidate profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return err
	}

	c.requestIngestion(ctx, posting.ID, app, profile)

	c.logger.Info("starting interview",
		zap.String(logger.FieldApplication, app.ID),
		zap.Int("questions", len(questions)),
	)

	transcript, results := c.driver.RunInterview(ctx, questions, profile.Context())

	eval := c.aggregator.Evaluate(ctx, results, posting.HardSkills, posting.SoftSkills)

	turns := transcript.Turns()
	selection := SelectHighlights(turns, eval)
	eval.Highlight = selection.Text
	eval.HighlightReason = selection.Reason

	flagged := make(map[int]bool, len(selection.TurnNumbers))
	for _, n := range selection.TurnNumbers {
		flagged[n] = true
	}
	for i := range turns {
		turns[i].Highlight = flagged[turns[i].TurnNumber]
	}

	if err := c.store.SaveResult(ctx, app.ID, turns, eval); err != nil {
		return fmt.Errorf("persist evaluation: %w", err)
	}

	c.logger.Info("application evaluated",
		zap.String(logger.FieldApplication, app.ID),
		zap.Float64("total_score", eval.TotalScore),
		zap.Int("turns", len(turns)),
	)

	return nil
}

// requestIngestion emits the fire-and-forget KB indexing request. Failures are
// logged and never surfaced.
func (c *Coordinator) requestIngestion(ctx context.Context, postingID string, app ApplicationRef, profile *Profile) {
	if c.kb == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, kbPublishTimeout)
	defer cancel()

	if err := c.kb.Ingest(pubCtx, postingID, app.JobSeekerID, profile); err != nil {
		c.logger.Warn("kb ingestion request failed",
			zap.String(logger.FieldApplication, app.ID),
			zap.Error(err),
		)
	}
}
