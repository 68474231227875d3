// Package ragindex maintains the answer similarity index: a flat vector index
// and a positionally aligned metadata store, kept consistent with answer
// lifecycle events and persisted as a pair of co-located artifacts.
package ragindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stacklet/kotae/internal/embedding"
	"github.com/stacklet/kotae/internal/metadata"
	"github.com/stacklet/kotae/internal/models"
	"github.com/stacklet/kotae/internal/vector"
)

// Hit is a search result joined with its metadata record.
type Hit struct {
	Record   models.IndexedRecord
	Distance float64
}

// Index owns the (vector index, metadata) pair. It is constructed once at
// process start, loads both artifacts, and is the process's only writer:
// every mutation runs under a single writer lock as a mutate-both,
// persist-both cycle, so two concurrent events cannot drop each other's
// effect. Searches take a read lock and may observe either the pre- or
// post-mutation state of a concurrent event.
type Index struct {
	embedder  embedding.Embedder
	vectors   *vector.Flat
	records   *metadata.Records
	indexPath string
	metaPath  string
	logger    *zap.Logger // optional; when set, logs maintenance events
	mu        sync.RWMutex
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for maintenance event logging.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// Open loads the persisted index/metadata pair. Missing artifacts yield an
// empty, consistent index; unreadable artifacts, a dimension mismatch, or a
// record count that disagrees between the two report models.ErrCorruptIndex.
func Open(embedder embedding.Embedder, indexPath, metaPath string, opts ...Option) (*Index, error) {
	vectors, err := vector.NewFlat(embedder.Dimensions())
	if err != nil {
		return nil, err
	}
	if err := vectors.Load(indexPath); err != nil {
		return nil, err
	}
	records := metadata.NewRecords()
	if err := records.Load(metaPath); err != nil {
		return nil, err
	}
	if vectors.Len() != records.Len() {
		return nil, fmt.Errorf("%w: %d vectors but %d metadata records", models.ErrCorruptIndex, vectors.Len(), records.Len())
	}
	idx := &Index{
		embedder:  embedder,
		vectors:   vectors,
		records:   records,
		indexPath: indexPath,
		metaPath:  metaPath,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Len returns the number of indexed answers.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.records.Len()
}

// HandleEvent applies one answer lifecycle event to the pair and persists
// both artifacts before returning. Events for source ids that are already in
// the target state are no-ops, so duplicate or out-of-order delivery is
// harmless. Embedding and persistence failures are returned; the index then
// lags the system of record until the next successful event or a rebuild.
func (idx *Index) HandleEvent(ctx context.Context, ev models.AnswerEvent) error {
	switch ev.Type {
	case models.AnswerCreated, models.AnswerReactivated:
		return idx.upsert(ctx, ev)
	case models.AnswerContentUpdated:
		return idx.update(ctx, ev)
	case models.AnswerDeactivated, models.AnswerDeleted:
		return idx.remove(ev)
	default:
		return fmt.Errorf("unknown answer event type %q", ev.Type)
	}
}

func (idx *Index) upsert(ctx context.Context, ev models.AnswerEvent) error {
	emb, err := idx.embedder.Embed(ctx, ev.Content)
	if err != nil {
		return err
	}
	rec := models.IndexedRecord{SourceID: ev.SourceID, Content: ev.Content, ParentTitle: ev.ParentTitle}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if pos, ok := idx.records.FindBySourceID(ev.SourceID); ok {
		// Duplicate create/reactivate for an indexed answer: treat as a
		// content update so source ids stay unique.
		if err := idx.vectors.ReplaceAt(pos, emb); err != nil {
			return err
		}
		if err := idx.records.UpdateAt(pos, rec); err != nil {
			return err
		}
		idx.debugLog("answer re-indexed in place", ev, pos)
		return idx.persistLocked()
	}
	pos, err := idx.vectors.Append(emb)
	if err != nil {
		return err
	}
	idx.records.Append(rec)
	idx.debugLog("answer indexed", ev, pos)
	return idx.persistLocked()
}

func (idx *Index) update(ctx context.Context, ev models.AnswerEvent) error {
	// Embed outside the lock; the position lookup below re-validates.
	emb, err := idx.embedder.Embed(ctx, ev.Content)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	pos, ok := idx.records.FindBySourceID(ev.SourceID)
	if !ok {
		idx.debugLog("update for unindexed answer ignored", ev, -1)
		return nil
	}
	if err := idx.vectors.ReplaceAt(pos, emb); err != nil {
		return err
	}
	rec := models.IndexedRecord{SourceID: ev.SourceID, Content: ev.Content, ParentTitle: ev.ParentTitle}
	if err := idx.records.UpdateAt(pos, rec); err != nil {
		return err
	}
	idx.debugLog("answer re-indexed", ev, pos)
	return idx.persistLocked()
}

func (idx *Index) remove(ev models.AnswerEvent) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	pos, ok := idx.records.FindBySourceID(ev.SourceID)
	if !ok {
		idx.debugLog("removal for unindexed answer ignored", ev, -1)
		return nil
	}
	if err := idx.vectors.RemoveAt(pos); err != nil {
		return err
	}
	if err := idx.records.RemoveAt(pos); err != nil {
		return err
	}
	idx.debugLog("answer removed from index", ev, pos)
	return idx.persistLocked()
}

// Rebuild discards the current pair and rebuilds it from every active answer,
// embedding contents in batch. It is idempotent: rebuilding from the same
// answer set yields the same size and source id set.
func (idx *Index) Rebuild(ctx context.Context, answers []models.IndexedRecord) error {
	jobID := uuid.New().String()
	if idx.logger != nil {
		idx.logger.Info("index rebuild started",
			zap.String("job_id", jobID),
			zap.Int("answers", len(answers)),
		)
	}
	texts := make([]string, len(answers))
	for i, a := range answers {
		texts[i] = a.Content
	}
	embs, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	fresh, err := vector.NewFlat(idx.embedder.Dimensions())
	if err != nil {
		return err
	}
	for _, emb := range embs {
		if _, err := fresh.Append(emb); err != nil {
			return err
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = fresh
	idx.records.ReplaceAll(answers)
	if err := idx.persistLocked(); err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Info("index rebuild finished",
			zap.String("job_id", jobID),
			zap.Int("indexed", idx.records.Len()),
		)
	}
	return nil
}

// Search returns up to k nearest indexed answers for the query vector, in
// ascending distance order, each joined with its metadata record.
func (idx *Index) Search(queryVec []float32, k int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	raw, err := idx.vectors.Search(queryVec, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(raw))
	for i, h := range raw {
		rec, err := idx.records.At(h.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: vector %d has no metadata record", models.ErrCorruptIndex, h.Position)
		}
		hits[i] = Hit{Record: rec, Distance: h.Distance}
	}
	return hits, nil
}

// persistLocked writes both artifacts. Callers hold the writer lock, so a
// concurrent event can never interleave between the two writes.
func (idx *Index) persistLocked() error {
	if err := idx.vectors.Save(idx.indexPath); err != nil {
		return fmt.Errorf("persist vector index: %w", err)
	}
	if err := idx.records.Save(idx.metaPath); err != nil {
		return fmt.Errorf("persist metadata: %w", err)
	}
	return nil
}

func (idx *Index) debugLog(msg string, ev models.AnswerEvent, position int) {
	if idx.logger == nil {
		return
	}
	idx.logger.Debug(msg,
		zap.String("event", string(ev.Type)),
		zap.Int64("source_id", ev.SourceID),
		zap.Int("position", position),
	)
}
