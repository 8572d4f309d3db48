/*
records.go - Retention-filtered persistence of the action store

PURPOSE:
  RecordStore loads and saves the whole date -> records map through a
  BlobStore and applies the retention rule on both paths. It also offers
  the mutations the engine needs: insert, positional removal, removal by
  id, full replacement and compaction.

WRITE PATH:
  Every mutation is load -> modify -> Save. Save applies the retention rule
  and then writes; a failed write is returned as *PersistenceError.

READ PATH:
  A missing key is an empty store. A blob that does not decode is logged,
  counted, and treated as an empty store: Load never fails on bad content.

RETENTION AT WRITE TIME:
  Mode decides what Upsert/Replace do with a record the rule refuses:
    RetentionReject: refuse with ErrNotRetained, nothing written
    RetentionDrop:   accept; the save drops it; UpsertResult.Retained=false

CONCURRENCY:
  Mutations inside one process are serialized by a mutex. Processes that
  share a blob are not coordinated: the last Save wins.

SEE ALSO:
  - retention.go: RetentionRule, RetentionMode
  - blob.go: BlobStore
*/
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/action-calendar/calendar"
)

// DefaultBlobKey is the key the store is persisted under.
const DefaultBlobKey = "scheduled_actions"

// RecordStore is the persistence boundary of the engine.
type RecordStore struct {
	Blob      BlobStore
	Key       string
	Retention RetentionRule
	Mode      RetentionMode
	Log       zerolog.Logger
	Metrics   *Metrics

	// NewID generates ids for inserted actions that have none.
	NewID func() string

	mu sync.Mutex
}

// NewRecordStore creates a store persisting under DefaultBlobKey.
func NewRecordStore(blob BlobStore, rule RetentionRule) *RecordStore {
	if rule == nil {
		rule = RetainAll
	}
	return &RecordStore{
		Blob:      blob,
		Key:       DefaultBlobKey,
		Retention: rule,
		Mode:      RetentionReject,
		NewID:     func() string { return uuid.NewString() },
	}
}

// SaveResult reports what a save persisted.
type SaveResult struct {
	Records int `json:"records"`
	Dropped int `json:"dropped"`
}

// UpsertResult reports where an inserted record went.
type UpsertResult struct {
	Date     calendar.DateKey
	Record   Record
	Retained bool
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the store and applies the retention rule to every bucket.
func (s *RecordStore) Load(ctx context.Context) (Buckets, error) {
	b, _, err := s.load(ctx)
	return b, err
}

func (s *RecordStore) load(ctx context.Context) (Buckets, int, error) {
	data, found, err := s.Blob.Get(ctx, s.Key)
	if err != nil {
		s.Metrics.observeReadFailure()
		s.Log.Error().Err(err).Str("key", s.Key).Msg("action store read failed")
		return nil, 0, &PersistenceError{Op: "get", Key: s.Key, Err: err}
	}
	if !found || len(data) == 0 {
		s.Metrics.observeLoad(0, 0)
		return Buckets{}, 0, nil
	}

	var raw Buckets
	if err := json.Unmarshal(data, &raw); err != nil {
		s.Metrics.observeParseFailure()
		s.Log.Warn().
			Err(fmt.Errorf("%w: %v", ErrParse, err)).
			Str("key", s.Key).
			Int("bytes", len(data)).
			Msg("action store blob unreadable, starting empty")
		return Buckets{}, 0, nil
	}

	kept, dropped := ApplyRetention(raw, s.rule())
	if dropped > 0 {
		s.Log.Debug().Int("dropped", dropped).Msg("retention dropped records on load")
	}
	s.Metrics.observeLoad(kept.Count(), dropped)
	return kept, dropped, nil
}

// Save applies the retention rule and writes b. Write failures are returned.
func (s *RecordStore) Save(ctx context.Context, b Buckets) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, b)
}

func (s *RecordStore) save(ctx context.Context, b Buckets) (SaveResult, error) {
	kept, dropped := ApplyRetention(b, s.rule())

	data, err := json.Marshal(kept)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode action store: %w", err)
	}
	if err := s.Blob.Put(ctx, s.Key, data); err != nil {
		s.Metrics.observeWriteFailure()
		s.Log.Error().Err(err).Str("key", s.Key).Msg("action store write failed")
		return SaveResult{}, &PersistenceError{Op: "put", Key: s.Key, Err: err}
	}

	res := SaveResult{Records: kept.Count(), Dropped: dropped}
	s.Metrics.observeSave(res.Records, res.Dropped)
	if dropped > 0 {
		s.Log.Info().Int("dropped", dropped).Int("records", res.Records).Msg("retention dropped records on save")
	}
	return res, nil
}

// Compact rewrites the blob with only retained records.
func (s *RecordStore) Compact(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, droppedOnLoad, err := s.load(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	res, err := s.save(ctx, b)
	if err != nil {
		return SaveResult{}, err
	}
	res.Dropped += droppedOnLoad
	return res, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Upsert appends record to the bucket for date and saves.
func (s *RecordStore) Upsert(ctx context.Context, date calendar.DateKey, record Record) (UpsertResult, error) {
	if _, err := calendar.ParseDateKey(string(date)); err != nil {
		return UpsertResult{}, err
	}

	if a, ok := record.Action(); ok && a.ID == "" && s.NewID != nil {
		a.ID = s.NewID()
		record = NewActionRecord(a)
	}
	record = record.withDate(date)

	retained := s.rule().Retain(record)
	if !retained && s.mode() == RetentionReject {
		return UpsertResult{}, &RetentionError{Date: date, Category: record.Category(), Rule: ruleName(s.rule())}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.load(ctx)
	if err != nil {
		return UpsertResult{}, err
	}
	if !record.IsLegacy() {
		if _, _, exists := b.Find(record.ID()); exists {
			return UpsertResult{}, fmt.Errorf("%w: %s", ErrDuplicateAction, record.ID())
		}
	}

	b[date] = append(b[date], record)
	if _, err := s.save(ctx, b); err != nil {
		return UpsertResult{}, err
	}

	if !retained {
		s.Log.Warn().
			Str("date", date.String()).
			Str("category", record.Category()).
			Str("rule", ruleName(s.rule())).
			Msg("record accepted but dropped by retention rule")
	}
	return UpsertResult{Date: date, Record: record, Retained: retained}, nil
}

// RemoveAt removes the record at position index of the bucket for date.
func (s *RecordStore) RemoveAt(ctx context.Context, date calendar.DateKey, index int) error {
	if _, err := calendar.ParseDateKey(string(date)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	records, ok := b[date]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, date)
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("%w: %d of %d on %s", ErrIndexOutOfRange, index, len(records), date)
	}

	b[date] = removeAt(records, index)
	_, err = s.save(ctx, b)
	return err
}

// RemoveByID removes the action carrying id and returns the date it was filed under.
func (s *RecordStore) RemoveByID(ctx context.Context, id string) (calendar.DateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	date, index, ok := b.Find(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}

	b[date] = removeAt(b[date], index)
	if _, err := s.save(ctx, b); err != nil {
		return "", err
	}
	return date, nil
}

// Replace swaps the stored action carrying a.ID for a. If a.Date differs
// from the current bucket the action moves to the end of the new bucket.
// An empty a.Date keeps the current date.
func (s *RecordStore) Replace(ctx context.Context, a Action) (UpsertResult, error) {
	if a.ID == "" {
		return UpsertResult{}, fmt.Errorf("%w: replacement needs an id", ErrInvalidRecord)
	}
	if a.Date != "" {
		if _, err := calendar.ParseDateKey(string(a.Date)); err != nil {
			return UpsertResult{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, err := s.load(ctx)
	if err != nil {
		return UpsertResult{}, err
	}
	current, index, ok := b.Find(a.ID)
	if !ok {
		return UpsertResult{}, fmt.Errorf("%w: %s", ErrActionNotFound, a.ID)
	}
	target := a.Date
	if target == "" {
		target = current
	}

	record := NewActionRecord(a).withDate(target)
	retained := s.rule().Retain(record)
	if !retained && s.mode() == RetentionReject {
		return UpsertResult{}, &RetentionError{Date: target, Category: a.Category, Rule: ruleName(s.rule())}
	}

	if target == current {
		b[current][index] = record
	} else {
		b[current] = removeAt(b[current], index)
		b[target] = append(b[target], record)
	}
	if _, err := s.save(ctx, b); err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Date: target, Record: record, Retained: retained}, nil
}

func (s *RecordStore) rule() RetentionRule {
	if s.Retention == nil {
		return RetainAll
	}
	return s.Retention
}

func (s *RecordStore) mode() RetentionMode {
	if s.Mode == "" {
		return RetentionReject
	}
	return s.Mode
}
