// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/papertrail/chunker"
	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/embedding"
	"github.com/poiesic/papertrail/metrics"
	"github.com/poiesic/papertrail/storage"
)

// Pipeline drives documents through chunking, embedding and storage.
// Documents are processed independently on a bounded worker pool.
type Pipeline struct {
	chunkRepository storage.ChunkRepository
	stateRepository storage.StateRepository
	embedder        BatchEmbedder
	pool            *ants.Pool
	chunker         *chunker.Chunker
	batchSize       int
	processors      []processor
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of documents processed concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunker sets the chunker. Default splits at chunker.DefaultMaxWords.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithEmbedBatchSize sets how many chunks are embedded before their vectors
// are written. Default is embedding.DefaultMaxBatchSize.
func WithEmbedBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunkRepository storage.ChunkRepository,
	stateRepository storage.StateRepository,
	embedder BatchEmbedder,
	opts ...Option,
) (*Pipeline, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if stateRepository == nil {
		return nil, ErrStateRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunkRepository: chunkRepository,
		stateRepository: stateRepository,
		embedder:        embedder,
		pool:            pool,
		chunker:         chunker.New(),
		batchSize:       embedding.DefaultMaxBatchSize,
		logger:          slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processors after options are applied (so they get final config)
	p.logger = p.logger.With("component", "pipeline")
	p.processors = []processor{
		newChunkProcessor(chunkRepository, p.chunker, p.logger),
		newEmbeddingProcessor(chunkRepository, embedder, p.batchSize, p.logger),
	}
	return p, nil
}

// Run ingests every document src yields. Per-document failures are recorded
// in the report and do not stop the run. A StoreUnavailable failure cancels
// the run; Run then returns the report so far together with that error.
func (p *Pipeline) Run(ctx context.Context, src Source) (*Report, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	next := func(ctx context.Context) (*job, error) {
		doc, err := src.Next(ctx)
		if err != nil {
			return nil, err
		}
		return &job{key: doc.Key, doc: doc}, nil
	}
	return p.run(ctx, next)
}

// Resume embeds the chunks still missing vectors for every stored document,
// and retries documents whose last run ended FAILED. Documents that never got
// past chunking fail again with ErrDocumentUnavailable, since only the source
// holds their content.
func (p *Pipeline) Resume(ctx context.Context) (*Report, error) {
	keys, err := p.chunkRepository.ListDocumentsMissingEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents missing embeddings: %w", err)
	}
	failed, err := p.stateRepository.ListStates(ctx, core.StageFailed)
	if err != nil {
		return nil, fmt.Errorf("list failed documents: %w", err)
	}
	for _, state := range failed {
		keys = append(keys, state.DocumentKey)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	p.logger.Info("resuming documents", "documents", len(keys))

	i := 0
	next := func(ctx context.Context) (*job, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i >= len(keys) {
			return nil, io.EOF
		}
		key := keys[i]
		i++
		return &job{key: key}, nil
	}
	return p.run(ctx, next)
}

// run submits jobs to the pool until next is exhausted or ctx is done.
func (p *Pipeline) run(parent context.Context, next func(context.Context) (*job, error)) (*Report, error) {
	report := newReport(uuid.NewString())
	logger := p.logger.With("run", report.RunID)

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	var (
		wg       sync.WaitGroup
		feedErr  error
		fatalErr error
		fatalMu  sync.Mutex
	)

	for {
		j, err := next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				feedErr = fmt.Errorf("read source: %w", err)
			}
			break
		}

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.process(ctx, report.RunID, j, report, logger); err != nil {
				fatalMu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				fatalMu.Unlock()
				cancel(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			feedErr = fmt.Errorf("submit document %s: %w", j.key, submitErr)
			break
		}
	}

	wg.Wait()
	report.finish()
	logger.Info("ingestion run finished",
		"documents", report.Documents,
		"persisted", report.Persisted,
		"partial", report.Partial,
		"failed", report.Failed,
		"chunks_embedded", report.ChunksEmbedded,
		"elapsed", report.Duration())

	switch {
	case fatalErr != nil:
		return report, fatalErr
	case feedErr != nil:
		return report, feedErr
	case parent.Err() != nil:
		return report, parent.Err()
	}
	return report, nil
}

// process moves one document through the state machine. The returned error
// is non-nil only when it must stop the whole run.
func (p *Pipeline) process(ctx context.Context, runID string, j *job, report *Report, logger *slog.Logger) error {
	logger = logger.With("document", j.key)

	if j.doc != nil {
		if err := core.ValidateDocument(j.doc); err != nil {
			logger.Warn("skipping invalid document", "err", err)
			report.addFailure(j, Failure{
				DocumentKey: j.key,
				Stage:       core.StagePending,
				Kind:        core.KindOf(err),
				Err:         err,
			})
			p.countDocument(core.StageFailed, false)
			return nil
		}
	}

	state := &core.DocumentState{
		DocumentKey:   j.key,
		RunID:         runID,
		Stage:         core.StagePending,
		LastCompleted: core.StagePending,
		Attempts:      1,
	}
	if prev, err := p.stateRepository.GetState(ctx, j.key); err == nil {
		state.Attempts = prev.Attempts + 1
	} else if !errors.Is(err, storage.ErrNotFound) {
		return p.fail(ctx, j, state, err, report, logger)
	}
	if err := p.stateRepository.SaveState(ctx, state); err != nil {
		return p.fail(ctx, j, state, err, report, logger)
	}

	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return p.fail(ctx, j, state, err, report, logger)
		}
		state.Stage = proc.stage()
		if err := p.stateRepository.SaveState(ctx, state); err != nil {
			return p.fail(ctx, j, state, err, report, logger)
		}
		if err := proc.process(ctx, j); err != nil {
			return p.fail(ctx, j, state, err, report, logger)
		}
		state.LastCompleted = proc.stage()
	}

	state.Stage = core.StagePersisted
	state.Partial = len(j.rejected) > 0
	state.Rejected = slices.Sorted(slices.Values(j.rejected))
	state.Error = ""
	if err := p.stateRepository.SaveState(ctx, state); err != nil {
		return p.fail(ctx, j, state, err, report, logger)
	}

	logger.Debug("document persisted", "chunks", j.chunks, "embedded", j.embedded, "rejected", len(j.rejected))
	report.addPersisted(j)
	p.countDocument(core.StagePersisted, state.Partial)
	return nil
}

// fail records the document as FAILED. It returns err when the failure is
// fatal to the run.
func (p *Pipeline) fail(ctx context.Context, j *job, state *core.DocumentState, err error, report *Report, logger *slog.Logger) error {
	kind := core.KindOf(err)
	failedStage := state.Stage

	state.Stage = core.StageFailed
	state.Error = err.Error()
	state.Rejected = slices.Sorted(slices.Values(j.rejected))
	if kind != core.KindStoreUnavailable {
		// The document's state is written even when the run was canceled.
		if saveErr := p.stateRepository.SaveState(context.WithoutCancel(ctx), state); saveErr != nil {
			logger.Error("failed to record document failure", "err", saveErr)
			if core.KindOf(saveErr) == core.KindStoreUnavailable {
				err, kind = saveErr, core.KindStoreUnavailable
			}
		}
	}

	logger.Error("document failed", "stage", failedStage, "last_completed", state.LastCompleted, "kind", kind, "err", err)
	report.addFailure(j, Failure{
		DocumentKey:   j.key,
		Stage:         failedStage,
		LastCompleted: state.LastCompleted,
		Kind:          kind,
		Err:           err,
	})
	p.countDocument(core.StageFailed, false)

	if kind == core.KindStoreUnavailable {
		return err
	}
	return nil
}

func (p *Pipeline) countDocument(stage core.Stage, partial bool) {
	metrics.DocumentsTotal.WithLabelValues(stage.String(), strconv.FormatBool(partial)).Inc()
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
