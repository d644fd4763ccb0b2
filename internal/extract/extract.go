// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs matcher pipelines over a corpus and collects the
// resulting entity and relation candidates into a CandidateSet.
//
// Sentences are matched in parallel. Results are merged in corpus order,
// so a run produces the same candidates and ids for any worker count.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/candidate-engine/internal/matcher"
	"github.com/pdiddy/candidate-engine/pkg/types"
)

var (
	// ErrIncomplete is wrapped by IncompleteError.
	ErrIncomplete = errors.New("extraction incomplete")

	// ErrPairLimit is returned when a sentence yields more relation pairs
	// than the configured limit.
	ErrPairLimit = errors.New("relation pair limit exceeded")
)

// IncompleteError reports a run stopped by cancellation or a deadline.
// No partial candidate set is returned alongside it.
type IncompleteError struct {
	Kind      types.CandidateKind
	Processed int
	Total     int
	Cause     error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s extraction incomplete after %d of %d sentences: %v",
		e.Kind, e.Processed, e.Total, e.Cause)
}

func (e *IncompleteError) Unwrap() []error {
	return []error{ErrIncomplete, e.Cause}
}

type config struct {
	workers  int
	maxPairs int
	logger   *zap.Logger
}

// Option configures an extraction run.
type Option func(*config)

// WithWorkers sets the number of sentences matched concurrently. Values
// below one mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithMaxPairs caps the relation pairs a single sentence may produce. Zero
// means no limit.
func WithMaxPairs(n int) Option {
	return func(c *config) { c.maxPairs = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

func buildConfig(opts []Option) config {
	c := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.workers < 1 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// sentenceFunc returns the span tuples of one sentence, one per candidate.
type sentenceFunc func(ctx context.Context, s *types.Sentence) ([][]types.Span, error)

// Entities emits one candidate per span m produces, in corpus order and
// then matcher order.
func Entities(ctx context.Context, corpus []types.Sentence, m matcher.Matcher, opts ...Option) (*CandidateSet, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: entities needs a matcher", matcher.ErrPipeline)
	}
	cfg := buildConfig(opts)

	return run(ctx, types.KindEntities, corpus, cfg, func(_ context.Context, s *types.Sentence) ([][]types.Span, error) {
		spans, err := m.Apply(s)
		if err != nil {
			return nil, err
		}
		out := make([][]types.Span, len(spans))
		for i, sp := range spans {
			out[i] = []types.Span{sp}
		}
		return out, nil
	})
}

// Relations emits one candidate per pair in the Cartesian product of the
// spans m1 and m2 produce for each sentence: m1 spans outer, m2 spans
// inner. Pairs of identical or overlapping spans are kept.
func Relations(ctx context.Context, corpus []types.Sentence, m1, m2 matcher.Matcher, opts ...Option) (*CandidateSet, error) {
	if m1 == nil || m2 == nil {
		return nil, fmt.Errorf("%w: relations needs two matchers", matcher.ErrPipeline)
	}
	cfg := buildConfig(opts)

	return run(ctx, types.KindRelations, corpus, cfg, func(ctx context.Context, s *types.Sentence) ([][]types.Span, error) {
		s1, err := m1.Apply(s)
		if err != nil {
			return nil, err
		}
		s2, err := m2.Apply(s)
		if err != nil {
			return nil, err
		}
		if cfg.maxPairs > 0 && len(s1)*len(s2) > cfg.maxPairs {
			return nil, fmt.Errorf("%w: %d x %d pairs, limit %d", ErrPairLimit, len(s1), len(s2), cfg.maxPairs)
		}

		out := make([][]types.Span, 0, len(s1)*len(s2))
		for _, a := range s1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for _, b := range s2 {
				out = append(out, []types.Span{a, b})
			}
		}
		return out, nil
	})
}

// Run extracts the candidates a pipeline's extract section names.
func Run(ctx context.Context, corpus []types.Sentence, p *matcher.Pipeline, opts ...Option) (*CandidateSet, error) {
	if p == nil || len(p.Targets) != p.Kind.Arity() {
		return nil, fmt.Errorf("%w: pipeline has no extract section", matcher.ErrPipeline)
	}
	switch p.Kind {
	case types.KindRelations:
		return Relations(ctx, corpus, p.Targets[0], p.Targets[1], opts...)
	default:
		return Entities(ctx, corpus, p.Targets[0], opts...)
	}
}

func run(ctx context.Context, kind types.CandidateKind, corpus []types.Sentence, cfg config, fn sentenceFunc) (*CandidateSet, error) {
	start := time.Now()
	total := len(corpus)
	slots := make([][][]types.Span, total)
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	for i := range corpus {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s := &corpus[i]
			rows, err := fn(gctx, s)
			if err != nil {
				return fmt.Errorf("sentence %s: %w", s.Key(), err)
			}
			for _, spans := range rows {
				for _, sp := range spans {
					if !sp.Valid(s.Len()) {
						return fmt.Errorf("sentence %s: matcher emitted %s outside %d tokens", s.Key(), sp, s.Len())
					}
				}
			}
			slots[i] = rows
			processed.Add(1)
			sentencesProcessed.Inc()
			return nil
		})
	}

	err := g.Wait()
	done := int(processed.Load())
	if err == nil && done == total {
		set := merge(kind, corpus, slots)
		elapsed := time.Since(start)
		RecordRun(string(kind), set.Len(), elapsed.Seconds())
		cfg.logger.Info("Extraction finished",
			zap.String("kind", string(kind)),
			zap.Int("sentences", total),
			zap.Int("candidates", set.Len()),
			zap.Int("workers", cfg.workers),
			zap.Duration("duration", elapsed))
		return set, nil
	}

	if ctx.Err() != nil && (err == nil || isContextErr(err)) {
		RecordIncomplete(string(kind))
		cfg.logger.Warn("Extraction incomplete",
			zap.String("kind", string(kind)),
			zap.Int("processed", done),
			zap.Int("total", total),
			zap.Error(context.Cause(ctx)))
		return nil, &IncompleteError{Kind: kind, Processed: done, Total: total, Cause: context.Cause(ctx)}
	}
	if err == nil {
		err = fmt.Errorf("stopped after %d of %d sentences", done, total)
	}
	return nil, fmt.Errorf("%s extraction: %w", kind, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// merge concatenates the per-sentence slots in corpus order and assigns ids.
func merge(kind types.CandidateKind, corpus []types.Sentence, slots [][][]types.Span) *CandidateSet {
	n := 0
	for _, rows := range slots {
		n += len(rows)
	}

	set := newCandidateSet(kind)
	set.candidates = make([]Candidate, 0, n)
	for i, rows := range slots {
		if len(rows) == 0 {
			continue
		}
		s := &corpus[i]
		set.sentences = append(set.sentences, s)
		for _, spans := range rows {
			set.candidates = append(set.candidates, Candidate{
				ID:       len(set.candidates),
				Sentence: s,
				Spans:    spans,
			})
		}
	}
	return set
}
