package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/rnd-matcher/internal/ai"
	"github.com/spigell/rnd-matcher/internal/classify"
	"github.com/spigell/rnd-matcher/internal/eligibility"
	"github.com/spigell/rnd-matcher/internal/explain"
	"github.com/spigell/rnd-matcher/internal/funding"
	"github.com/spigell/rnd-matcher/internal/scoring"
)

const (
	excludeStageName  = "exclusions"
	gateStageName     = "eligibility_gate"
	scoreStageName    = "scoring"
	minScoreStageName = "min_score"
	topKStageName     = "top_k"
	explainStageName  = "explain"
	phrasingStageName = "ai_phrasing"
)

// excludeStage drops programs listed in the exclude file or published by an
// excluded agency. They never reach the gate and are not reported as rejected.
type excludeStage struct {
	alwaysOn
}

func (s *excludeStage) Name() string { return excludeStageName }

func (s *excludeStage) Validate(Options) error { return nil }

func (s *excludeStage) Apply(_ context.Context, deps Deps, b *batch) (Step, error) {
	initial := len(b.programs)
	if len(b.opts.ExcludedIDs) == 0 && len(b.opts.ExcludedAgencies) == 0 {
		return Step{Initial: initial, Left: initial}, nil
	}

	ids := make(map[string]struct{}, len(b.opts.ExcludedIDs))
	for _, id := range b.opts.ExcludedIDs {
		ids[id] = struct{}{}
	}
	agencies := make(map[string]struct{}, len(b.opts.ExcludedAgencies))
	for _, a := range b.opts.ExcludedAgencies {
		if key := classify.Compact(a); key != "" {
			agencies[key] = struct{}{}
		}
	}

	kept := b.programs[:0]
	var removed []string
	for _, p := range b.programs {
		_, byID := ids[p.ID]
		_, byAgency := agencies[classify.Compact(p.Agency)]
		_, byMinistry := agencies[classify.Compact(p.Ministry)]
		if byID || byAgency || byMinistry {
			removed = append(removed, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	b.programs = kept

	if len(removed) > 0 {
		deps.Logger.Info("excluding programs",
			zap.Strings("excluded_programs", removed),
			zap.Int("programs_left", len(kept)),
		)
	}
	return Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

type gateStage struct {
	alwaysOn
	gate *eligibility.Gate
}

func (s *gateStage) Name() string { return gateStageName }

func (s *gateStage) Validate(Options) error { return nil }

func (s *gateStage) Apply(ctx context.Context, deps Deps, b *batch) (Step, error) {
	initial := len(b.programs)
	results := make([]eligibility.GateResult, initial)
	err := forEach(ctx, b.opts.Workers, initial, func(i int) {
		results[i] = s.gate.Evaluate(b.programs[i], b.org)
	})
	if err != nil {
		return Step{}, err
	}

	var reasons []string
	for i, res := range results {
		program := b.programs[i]
		ticket, ok := res.Ticket()
		if !ok {
			b.rejected = append(b.rejected, Rejection{
				ProgramID:       program.ID,
				Title:           program.Title,
				ApplicationType: res.ApplicationType,
				Reasons:         res.BlockReasons,
			})
			for _, r := range res.BlockReasons {
				reasons = append(reasons, string(r))
			}
			deps.Logger.Debug("program blocked by eligibility gate",
				zap.String("program_id", program.ID),
				zap.Strings("reasons", blockReasonStrings(res.BlockReasons)),
			)
			continue
		}
		b.candidates = append(b.candidates, &candidate{gate: res, ticket: ticket})
	}
	deps.Metrics.ObserveGate(initial, reasons)

	return Step{Initial: initial, Dropped: len(b.rejected), Left: len(b.candidates)}, nil
}

func blockReasonStrings(reasons []eligibility.BlockReason) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, string(r))
	}
	return out
}

type scoreStage struct {
	alwaysOn
	scorer *scoring.Scorer
}

func (s *scoreStage) Name() string { return scoreStageName }

func (s *scoreStage) Validate(Options) error { return nil }

func (s *scoreStage) Apply(ctx context.Context, _ Deps, b *batch) (Step, error) {
	n := len(b.candidates)
	opts := scoring.Options{Now: b.opts.Now, Mode: b.opts.Mode}
	err := forEach(ctx, b.opts.Workers, n, func(i int) {
		c := b.candidates[i]
		breakdown := s.scorer.Score(c.ticket, opts)
		program := c.ticket.Program()
		confidence := confidenceFor(program, c.gate.Industry)
		c.match = MatchResult{
			Program:              program,
			Score:                breakdown.Total,
			Breakdown:            breakdown,
			ApplicationType:      c.gate.ApplicationType,
			Industry:             c.gate.Industry,
			Confidence:           confidence,
			ManualReviewRequired: confidence == funding.ConfidenceLow,
			ProfileCompleteness:  b.completeness.Percentage,
		}
	})
	if err != nil {
		return Step{}, err
	}
	return Step{Initial: n, Left: n}, nil
}

type minScoreStage struct {
	alwaysOn
}

func (s *minScoreStage) Name() string { return minScoreStageName }

func (s *minScoreStage) Validate(Options) error { return nil }

func (s *minScoreStage) Apply(_ context.Context, _ Deps, b *batch) (Step, error) {
	initial := len(b.candidates)
	kept := b.candidates[:0]
	for _, c := range b.candidates {
		if c.match.Score >= b.opts.MinScore {
			kept = append(kept, c)
		}
	}
	b.candidates = kept
	return Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

type topKStage struct {
	alwaysOn
}

func (s *topKStage) Name() string { return topKStageName }

func (s *topKStage) Validate(Options) error { return nil }

func (s *topKStage) Apply(_ context.Context, _ Deps, b *batch) (Step, error) {
	initial := len(b.candidates)
	sortMatches(b.candidates)
	if b.opts.TopK > 0 && len(b.candidates) > b.opts.TopK {
		b.candidates = b.candidates[:b.opts.TopK]
	}
	return Step{Initial: initial, Dropped: initial - len(b.candidates), Left: len(b.candidates)}, nil
}

type explainStage struct {
	alwaysOn
	explainer *explain.Generator
}

func (s *explainStage) Name() string { return explainStageName }

func (s *explainStage) Validate(Options) error { return nil }

func (s *explainStage) Apply(_ context.Context, _ Deps, b *batch) (Step, error) {
	for _, c := range b.candidates {
		c.match.Explanation = s.explainer.Explain(explain.Match{
			Breakdown:    c.match.Breakdown,
			Completeness: b.completeness,
			Industry:     c.match.Industry,
		}, b.org, c.match.Program)
	}
	n := len(b.candidates)
	return Step{Initial: n, Left: n}, nil
}

// phrasingStage lets the AI collaborator reword explanations. Failures keep
// the template text and never drop a match.
type phrasingStage struct {
	toggle
}

func (s *phrasingStage) Name() string { return phrasingStageName }

func (s *phrasingStage) Validate(Options) error { return nil }

func (s *phrasingStage) Apply(ctx context.Context, deps Deps, b *batch) (Step, error) {
	n := len(b.candidates)
	if deps.Phraser == nil {
		return Step{}, fmt.Errorf("phraser is required when %s is enabled", phrasingStageName)
	}

	rephrased := 0
	for _, c := range b.candidates {
		if err := ctx.Err(); err != nil {
			return Step{}, err
		}

		phrasing, err := deps.Phraser.Phrase(ctx, phraseRequest(b.org, c.match))
		if err != nil {
			deps.Logger.Warn("AI phrasing failed, keeping template text",
				zap.String("program_id", c.match.Program.ID),
				zap.Error(err),
			)
			deps.Metrics.PhrasingFailed()
			continue
		}
		if applyPhrasing(&c.match.Explanation, phrasing) {
			rephrased++
		}
	}

	deps.Logger.Info("AI phrasing completed",
		zap.Int("matches", n),
		zap.Int("rephrased", rephrased),
	)
	return Step{Initial: n, Left: n}, nil
}

func (s *phrasingStage) Status() Status {
	return Status{Name: s.Name(), Enabled: s.IsEnabled(), Reason: s.reason}
}

func phraseRequest(org *funding.Organization, m MatchResult) ai.PhraseRequest {
	req := ai.PhraseRequest{
		OrganizationName: org.Name,
		ProgramID:        m.Program.ID,
		ProgramTitle:     m.Program.Title,
		Agency:           m.Program.Agency,
		Score:            m.Score,
		Tier:             string(m.Explanation.Recommendation.Tier),
		Summary:          m.Explanation.Summary,
		Reasons:          make([]string, 0, len(m.Explanation.Reasons)),
		Recommendation:   m.Explanation.Recommendation.Text,
	}
	for _, r := range m.Explanation.Reasons {
		req.Reasons = append(req.Reasons, r.Text)
	}
	for _, c := range m.Explanation.Cautions {
		req.Cautions = append(req.Cautions, c.Text)
	}
	return req
}

// applyPhrasing copies non-empty rewritten texts into exp. Codes and the
// selection of items stay untouched.
func applyPhrasing(exp *explain.Explanation, p *ai.Phrasing) bool {
	if p == nil {
		return false
	}
	changed := false
	if p.Summary != "" {
		exp.Summary = p.Summary
		changed = true
	}
	if p.Recommendation != "" {
		exp.Recommendation.Text = p.Recommendation
		changed = true
	}
	if len(p.Reasons) == len(exp.Reasons) {
		for i, text := range p.Reasons {
			if text != "" {
				exp.Reasons[i].Text = text
				changed = true
			}
		}
	}
	return changed
}
