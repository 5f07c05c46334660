package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/eligibility"
	"github.com/spigell/rnd-matcher/internal/explain"
	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/logger"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

const DefaultTopK = 20

// Options control one run. Now is required: scoring never reads the clock.
type Options struct {
	Now      time.Time
	Mode     scoring.Mode
	TopK     int
	MinScore float64
	Workers  int

	// ExcludedIDs and ExcludedAgencies drop programs before the gate.
	// Agencies match the program agency or ministry ignoring spacing.
	ExcludedIDs      []string
	ExcludedAgencies []string
}

func (o Options) Validate() error {
	if o.Now.IsZero() {
		return errors.New("now is required")
	}
	if _, err := scoring.ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if math.IsNaN(o.MinScore) || o.MinScore < 0 || o.MinScore > 100 {
		return fmt.Errorf("min score %v is outside [0,100]", o.MinScore)
	}
	if o.TopK < 0 {
		return fmt.Errorf("top-k must not be negative, got %d", o.TopK)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = scoring.ModeStandard
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

type MatchResult struct {
	Program              *funding.Program            `json:"program"`
	Score                float64                     `json:"score"`
	Breakdown            scoring.ScoreBreakdown      `json:"breakdown"`
	Explanation          explain.Explanation         `json:"explanation"`
	ApplicationType      eligibility.ApplicationType `json:"applicationType"`
	Industry             classify.IndustryResult     `json:"industry"`
	Confidence           funding.Confidence          `json:"confidence"`
	ManualReviewRequired bool                        `json:"manualReviewRequired"`
	ProfileCompleteness  int                         `json:"profileCompleteness"`
}

// Rejection records why the gate stopped a program.
type Rejection struct {
	ProgramID       string                      `json:"programId"`
	Title           string                      `json:"title"`
	ApplicationType eligibility.ApplicationType `json:"applicationType"`
	Reasons         []eligibility.BlockReason   `json:"reasons"`
}

type Result struct {
	RunID          string                      `json:"runId"`
	OrganizationID string                      `json:"organizationId"`
	GeneratedAt    time.Time                   `json:"generatedAt"`
	Mode           scoring.Mode                `json:"mode"`
	WeightsVersion string                      `json:"weightsVersion"`
	Completeness   classify.CompletenessResult `json:"completeness"`
	Matches        []MatchResult               `json:"matches"`
	Rejected       []Rejection                 `json:"rejected"`
	Steps          []Step                      `json:"steps"`
}

// Programs returns the matched programs in rank order.
func (r *Result) Programs() *funding.Programs {
	items := make([]*funding.Program, 0, len(r.Matches))
	for _, m := range r.Matches {
		items = append(items, m.Program)
	}
	return &funding.Programs{Items: items}
}

// Find returns the match for a program id.
func (r *Result) Find(programID string) (MatchResult, bool) {
	for _, m := range r.Matches {
		if m.Program.ID == programID {
			return m, true
		}
	}
	return MatchResult{}, false
}

// candidate is a program that passed the gate, with its match under
// construction.
type candidate struct {
	gate   eligibility.GateResult
	ticket eligibility.Ticket
	match  MatchResult
}

type batch struct {
	org          *funding.Organization
	opts         Options
	completeness classify.CompletenessResult
	programs     []*funding.Program
	candidates   []*candidate
	rejected     []Rejection
}

// Engine runs gate, scoring, selection and explanation for one organization
// against a program set. It is safe for concurrent use once configured.
type Engine struct {
	deps   Deps
	scorer *scoring.Scorer
	stages []stage
}

func New(gate *eligibility.Gate, scorer *scoring.Scorer, explainer *explain.Generator, deps Deps) (*Engine, error) {
	if gate == nil {
		return nil, errors.New("eligibility gate is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if explainer == nil {
		explainer = explain.NewGenerator(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	stages := []stage{
		&excludeStage{},
		&gateStage{gate: gate},
		&scoreStage{scorer: scorer},
		&minScoreStage{},
		&topKStage{},
		&explainStage{explainer: explainer},
		&phrasingStage{},
	}
	if deps.Phraser == nil {
		disableByName(stages, phrasingStageName, "phraser is not configured")
	}

	return &Engine{deps: deps, scorer: scorer, stages: stages}, nil
}

// DisableStage switches off an optional stage. Call it before running. It
// returns false when no optional stage has that name.
func (e *Engine) DisableStage(name, reason string) bool {
	return disableByName(e.stages, name, reason)
}

// Describe reports the configured stages.
func (e *Engine) Describe() []Status {
	return describe(e.stages)
}

// GenerateMatches gates every program for org, scores the survivors and
// returns the best ones with explanations. Matches are ordered by score
// descending, then deadline ascending with missing deadlines last, then id.
func (e *Engine) GenerateMatches(ctx context.Context, org *funding.Organization, programs []*funding.Program, opts Options) (*Result, error) {
	if org == nil {
		return nil, errors.New("organization is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	opts = opts.withDefaults()

	runID := uuid.NewString()
	deps := e.deps
	deps.Logger = logger.WithRunFields(e.deps.Logger, runID, org.ID)

	b := &batch{
		org:          org,
		opts:         opts,
		completeness: classify.Completeness(org),
		programs:     make([]*funding.Program, 0, len(programs)),
	}
	for _, p := range programs {
		if p != nil {
			b.programs = append(b.programs, p)
		}
	}

	deps.Logger.Info("match run started",
		zap.Int("programs", len(b.programs)),
		zap.String("mode", string(opts.Mode)),
		zap.Int("profile_completeness", b.completeness.Percentage),
	)

	started := time.Now()
	steps, err := run(ctx, opts, deps, e.stages, b)
	if err != nil {
		deps.Metrics.ObserveRun(string(opts.Mode), "error", time.Since(started))
		return nil, err
	}
	deps.Metrics.ObserveRun(string(opts.Mode), "ok", time.Since(started))

	result := &Result{
		RunID:          runID,
		OrganizationID: org.ID,
		GeneratedAt:    opts.Now,
		Mode:           opts.Mode,
		WeightsVersion: e.scorer.Weights().Version,
		Completeness:   b.completeness,
		Matches:        make([]MatchResult, 0, len(b.candidates)),
		Rejected:       b.rejected,
		Steps:          steps,
	}
	if result.Rejected == nil {
		result.Rejected = []Rejection{}
	}
	for _, c := range b.candidates {
		result.Matches = append(result.Matches, c.match)
		deps.Metrics.ObserveMatch(c.match.Score)
	}

	deps.Logger.Info("match run finished",
		zap.Int("matches", len(result.Matches)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// forEach calls fn for every index in [0, n) on at most workers goroutines.
// fn must only write to its own index.
func forEach(ctx context.Context, workers, n int, fn func(i int)) error {
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}

		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			fn(i)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}

func sortMatches(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].match, candidates[j].match
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		da, db := a.Program.Deadline, b.Program.Deadline
		switch {
		case da != nil && db != nil && !da.Equal(*db):
			return da.Before(*db)
		case da != nil && db == nil:
			return true
		case da == nil && db != nil:
			return false
		}
		return a.Program.ID < b.Program.ID
	})
}

// confidenceFor uses the program's extraction flag and falls back to the
// industry classification strength when the flag is missing.
func confidenceFor(p *funding.Program, industry classify.IndustryResult) funding.Confidence {
	switch p.ClassificationConfidence {
	case funding.ConfidenceHigh, funding.ConfidenceMedium, funding.ConfidenceLow:
		return p.ClassificationConfidence
	}
	switch {
	case industry.Confidence >= 0.7:
		return funding.ConfidenceHigh
	case industry.Confidence >= 0.4:
		return funding.ConfidenceMedium
	default:
		return funding.ConfidenceLow
	}
}
