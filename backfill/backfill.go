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

package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/papertrail/core"
	"github.com/poiesic/papertrail/storage"
)

// CheckpointType names the backfill's row in the checkpoint repository.
const CheckpointType = "backfill"

// Config holds configuration for the backfill.
type Config struct {
	// BatchSize is the number of chunks fetched and embedded together
	BatchSize int

	// Delay is the pause between batches; 0 disables it
	Delay time.Duration

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int
}

// DefaultConfig returns a Config with the defaults of the original job:
// 500 chunks per batch and a one second pause between batches.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		Delay:          time.Second,
		ReportInterval: DefaultBatchSize,
	}
}

// Summary describes a finished (or interrupted) backfill.
type Summary struct {
	Pending  int // Chunks missing embeddings when the run started
	Fetched  int
	Embedded int
	Rejected []core.ChunkRef
	Resumed  bool // Started from a saved checkpoint
	Elapsed  time.Duration
}

// Backfiller embeds every stored chunk that is still missing a vector.
// It checkpoints its cursor after each batch, so an interrupted run picks up
// where it stopped.
type Backfiller struct {
	chunks      storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	logger      *slog.Logger
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(
	chunks storage.ChunkRepository,
	checkpoints storage.CheckpointRepository,
	embedder BatchEmbedder,
	config *Config,
	progress io.Writer,
) (*Backfiller, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = config.BatchSize
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Backfiller{
		chunks:      chunks,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(chunks, embedder),
		logger:      slog.Default().With("component", "backfill"),
	}, nil
}

// Run processes pending chunks batch by batch until none remain after the
// cursor. The checkpoint is removed once a pass completes.
func (b *Backfiller) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	pending, err := b.chunks.CountChunksMissingEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending chunks: %w", err)
	}
	summary.Pending = pending
	if pending == 0 {
		fmt.Fprintf(b.progress, "No chunks missing embeddings\n")
		return summary, b.checkpoints.DeleteCheckpoint(ctx, CheckpointType)
	}

	checkpoint, err := b.checkpoints.LoadCheckpoint(ctx, CheckpointType)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cursor *core.ChunkRef
	processed := 0
	if checkpoint != nil {
		cursor = &checkpoint.Cursor
		processed = checkpoint.Processed
		summary.Resumed = true
		b.logger.Info("resuming from checkpoint", "document", cursor.DocumentKey, "chunk", cursor.Index, "processed", processed)
	}

	fmt.Fprintf(b.progress, "Starting backfill of %d chunks (batch size: %d)\n", pending, b.config.BatchSize)

	tracker := NewProgressTracker(b.progress, pending, b.config.ReportInterval)
	tracker.Start()
	defer func() { summary.Elapsed = tracker.Elapsed() }()

	iterator := NewIterator(b.chunks, b.config.BatchSize, cursor)
	first := true
	for batch, err := range iterator.Batches(ctx) {
		if err != nil {
			return summary, fmt.Errorf("failed to fetch pending chunks: %w", err)
		}

		if !first {
			if err := b.pause(ctx); err != nil {
				b.release(ctx, batch)
				return summary, err
			}
		}
		first = false

		result, err := b.processor.Process(ctx, batch)
		summary.Fetched += len(batch)
		summary.Embedded += result.Embedded
		summary.Rejected = append(summary.Rejected, result.Rejected...)
		if err != nil {
			b.logger.Error("batch failed", "chunks", len(batch), "embedded", result.Embedded, "err", err)
			return summary, fmt.Errorf("failed to process batch: %w", err)
		}
		for _, ref := range result.Rejected {
			b.logger.Warn("provider rejected chunk, skipping", "document", ref.DocumentKey, "chunk", ref.Index)
		}

		processed += len(batch)
		if err := b.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			ProcessorType: CheckpointType,
			Cursor:        batch[len(batch)-1].ChunkRef,
			Processed:     processed,
		}); err != nil {
			return summary, fmt.Errorf("failed to save checkpoint: %w", err)
		}
		tracker.Increment(result.Embedded)
	}

	tracker.Finish()
	if err := b.checkpoints.DeleteCheckpoint(ctx, CheckpointType); err != nil {
		return summary, fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(b.progress, "Backfill complete. Embedded %d chunks in %v (%.1f chunks/sec), %d rejected\n",
		summary.Embedded, elapsed.Round(time.Second), float64(summary.Embedded)/elapsed.Seconds(), len(summary.Rejected))
	return summary, nil
}

// Reset discards the saved cursor so the next Run starts from the beginning.
func (b *Backfiller) Reset(ctx context.Context) error {
	return b.checkpoints.DeleteCheckpoint(ctx, CheckpointType)
}

func (b *Backfiller) release(ctx context.Context, batch []core.PendingChunk) {
	refs := make([]core.ChunkRef, len(batch))
	for i := range batch {
		refs[i] = batch[i].ChunkRef
	}
	b.chunks.ReleaseClaims(context.WithoutCancel(ctx), refs...)
}

func (b *Backfiller) pause(ctx context.Context) error {
	if b.config.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(b.config.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
