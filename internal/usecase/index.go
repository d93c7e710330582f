package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"codeagent/internal/adapter/fs"
	"codeagent/internal/domain"
	"codeagent/internal/port"
)

const maxErrorSamples = 5

// Indexer drives the scan → chunk → embed → upsert pipeline.
type Indexer struct {
	scanner  port.Scanner
	chunker  port.Chunker
	embedder port.Embedder
	store    port.VectorStore
	opts     IndexOptions
}

// IndexOptions tune the pipeline. Zero values fall back to defaults.
type IndexOptions struct {
	BatchSize int
	Workers   int
	Logger    *slog.Logger

	// Progress, if set, is called after every embedded batch with the
	// number of fragments processed so far and the total.
	Progress func(done, total int)
}

// IndexResult summarizes one indexing pass.
type IndexResult struct {
	FilesScanned  int
	FilesSkipped  int
	Fragments     int
	Embedded      int
	Pruned        int
	BatchesFailed int
	Errors        []string
}

func NewIndexer(scanner port.Scanner, chunker port.Chunker, embedder port.Embedder, store port.VectorStore, opts IndexOptions) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Indexer{
		scanner:  scanner,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		opts:     opts,
	}
}

// Index walks root, embeds every new fragment and prunes entries whose
// source is gone. Unchanged files produce identical fragment IDs, so a
// second pass over an unchanged tree embeds nothing.
func (ix *Indexer) Index(ctx context.Context, root string) (*IndexResult, error) {
	result := &IndexResult{}

	files, err := ix.scanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	result.FilesScanned = len(files)

	existing, err := ix.store.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored entries: %w", err)
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, id := range existing {
		existingIDs[id] = true
	}

	// IDs produced by this pass, whether or not they need embedding.
	// Everything else in the store is stale afterwards.
	passIDs := make(map[string]bool)

	var pending []domain.Fragment
	for _, file := range files {
		fragments, err := ix.chunkFile(root, file)
		if err != nil {
			ix.recordError(result, fmt.Sprintf("%s: %v", file.Path, err))
			continue
		}

		fresh := 0
		for _, f := range fragments {
			passIDs[f.ID] = true
			if !existingIDs[f.ID] {
				pending = append(pending, f)
				fresh++
			}
		}
		result.Fragments += len(fragments)
		if len(fragments) > 0 && fresh == 0 {
			result.FilesSkipped++
		}
	}

	ix.embedAndStore(ctx, pending, result)

	// Prune only after a clean pass. A failed batch means some of this
	// pass's fragments never reached the store, and deleting their
	// predecessors would leave files unindexed.
	if ctx.Err() == nil && result.BatchesFailed == 0 {
		stale := make([]string, 0)
		for id := range existingIDs {
			if !passIDs[id] {
				stale = append(stale, id)
			}
		}
		if len(stale) > 0 {
			if err := ix.store.Delete(ctx, stale); err != nil {
				ix.recordError(result, fmt.Sprintf("prune: %v", err))
			} else {
				result.Pruned = len(stale)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (ix *Indexer) chunkFile(root string, file port.FileEntry) ([]domain.Fragment, error) {
	content, err := fs.ReadFile(filepath.Join(root, file.Path))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	doc := domain.Document{
		Path:    file.Path,
		Text:    content,
		Lang:    domain.DetectLanguage(file.Path),
		ModTime: file.ModTime,
	}

	fragments, err := ix.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk failed: %w", err)
	}
	return fragments, nil
}

// embedAndStore fans batches out to a bounded worker pool. Store writes
// are serialized; a failed batch is logged and skipped.
func (ix *Indexer) embedAndStore(ctx context.Context, fragments []domain.Fragment, result *IndexResult) {
	if len(fragments) == 0 {
		return
	}

	total := len(fragments)
	sem := make(chan struct{}, ix.opts.Workers)

	var wg sync.WaitGroup
	var mu sync.Mutex // guards store writes and result counters
	done := 0

	batchNum := 0
	for start := 0; start < total; start += ix.opts.BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := start + ix.opts.BatchSize
		if end > total {
			end = total
		}
		batch := fragments[start:end]
		batchNum++

		sem <- struct{}{}
		wg.Add(1)
		go func(num int, batch []domain.Fragment) {
			defer wg.Done()
			defer func() { <-sem }()

			err := ix.processBatch(ctx, num, batch, &mu)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.BatchesFailed++
				ix.recordError(result, err.Error())
				ix.opts.Logger.Warn("batch failed", "batch", num, "fragments", len(batch), "error", err)
			} else {
				result.Embedded += len(batch)
			}
			done += len(batch)
			if ix.opts.Progress != nil {
				ix.opts.Progress(done, total)
			}
		}(batchNum, batch)
	}

	wg.Wait()
}

func (ix *Indexer) processBatch(ctx context.Context, num int, batch []domain.Fragment, storeMu *sync.Mutex) error {
	texts := make([]string, len(batch))
	for i, f := range batch {
		texts[i] = f.Text
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return &domain.IndexingError{Batch: num, Err: err}
	}
	if len(vectors) != len(batch) {
		return &domain.IndexingError{
			Batch: num,
			Err:   fmt.Errorf("got %d vectors for %d fragments", len(vectors), len(batch)),
		}
	}

	entries := make([]port.IndexEntry, len(batch))
	for i, f := range batch {
		entries[i] = port.IndexEntry{Fragment: f, Vector: vectors[i]}
	}

	storeMu.Lock()
	defer storeMu.Unlock()
	if err := ix.store.Upsert(ctx, entries); err != nil {
		return &domain.IndexingError{Batch: num, Err: fmt.Errorf("upsert failed: %w", err)}
	}
	return nil
}

func (ix *Indexer) recordError(result *IndexResult, msg string) {
	if len(result.Errors) < maxErrorSamples {
		result.Errors = append(result.Errors, msg)
	}
}
