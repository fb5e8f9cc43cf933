package plugin

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	Mt "github.com/maroda/tempora/types"
)

const defaultBatchSize = 32

// BadgerOutput is a chronological collision log
type BadgerOutput struct {
	MU        sync.Mutex
	DB        *badger.DB
	BatchSize int
	Buffer    []*Mt.CollisionEvent
}

func NewBadgerOutput(path string, batchSize int) (*BadgerOutput, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		slog.Error("BadgerOutput failed to open database", slog.Any("Error", err))
		return nil, fmt.Errorf("database error: %w", err)
	}

	slog.Info("BadgerOutput opened",
		slog.String("path", path),
		slog.Int("batchSize", batchSize))

	return &BadgerOutput{
		DB:        db,
		BatchSize: batchSize,
		Buffer:    make([]*Mt.CollisionEvent, 0, batchSize),
	}, nil
}

// WriteCollision queues an event and writes the batch once it is full
func (bo *BadgerOutput) WriteCollision(ev *Mt.CollisionEvent) error {
	bo.MU.Lock()
	defer bo.MU.Unlock()

	bo.Buffer = append(bo.Buffer, ev)
	if len(bo.Buffer) >= bo.BatchSize {
		return bo.flushLocked()
	}
	return nil
}

// WriteBatch stores events straight away, bypassing the buffer
func (bo *BadgerOutput) WriteBatch(events []*Mt.CollisionEvent) error {
	wb := bo.DB.NewWriteBatch()
	defer wb.Cancel()

	for _, ev := range events {
		v, err := CollisionEncode(ev)
		if err != nil {
			return fmt.Errorf("encode collision %s: %w", ev.GlyphID, err)
		}
		if err := wb.Set(CollisionKey(ev), v); err != nil {
			slog.Error("BadgerOutput failed to set key in batch",
				slog.Any("Error", err),
				slog.Time("collisionTime", ev.Timestamp),
				slog.String("glyph", ev.GlyphID))
			return fmt.Errorf("write batch error: %w", err)
		}
	}

	if err := wb.Flush(); err != nil {
		slog.Error("BadgerOutput failed to flush batch", slog.Any("Error", err))
		return fmt.Errorf("batch flush error: %w", err)
	}
	return nil
}

func (bo *BadgerOutput) Flush() error {
	bo.MU.Lock()
	defer bo.MU.Unlock()
	return bo.flushLocked()
}

func (bo *BadgerOutput) flushLocked() error {
	if len(bo.Buffer) == 0 {
		return nil
	}
	err := bo.WriteBatch(bo.Buffer)
	bo.Buffer = bo.Buffer[:0]
	return err
}

// Close returns a Flush error but still attempts to close
func (bo *BadgerOutput) Close() error {
	slog.Info("BadgerOutput closing, flushing buffer",
		slog.Int("bufferSize", len(bo.Buffer)))
	flushErr := bo.Flush()
	closeErr := bo.DB.Close()

	if flushErr != nil {
		return fmt.Errorf("flush failed, close may have failed: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

func (bo *BadgerOutput) Type() string { return "BadgerDB" }

// CollisionKey is timestamp + slot + glyph id.
// The big endian timestamp keeps keys in chronological order.
func CollisionKey(ev *Mt.CollisionEvent) []byte {
	key := make([]byte, 9, 9+len(ev.GlyphID))
	binary.BigEndian.PutUint64(key[0:8], uint64(ev.Timestamp.UnixNano()))
	key[8] = byte(ev.Slot)
	return append(key, ev.GlyphID...)
}

func timePrefix(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

// CollisionEncode serializes an event for storage
func CollisionEncode(ev *Mt.CollisionEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func CollisionDecode(data []byte) (*Mt.CollisionEvent, error) {
	var ev Mt.CollisionEvent
	err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&ev)
	return &ev, err
}

// QueryRange returns stored collisions with start <= timestamp < end, oldest first.
// Buffered events are not visible until flushed.
func (bo *BadgerOutput) QueryRange(start, end time.Time) ([]*Mt.CollisionEvent, error) {
	var events []*Mt.CollisionEvent
	stop := timePrefix(end)

	err := bo.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(timePrefix(start)); it.Valid(); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key()[:8], stop) >= 0 {
				break
			}
			err := item.Value(func(val []byte) error {
				ev, err := CollisionDecode(val)
				if err != nil {
					return fmt.Errorf("collision decode error: %w", err)
				}
				events = append(events, ev)
				return nil
			})
			if err != nil {
				slog.Error("BadgerOutput callback failure", slog.Any("Error", err))
				return err
			}
		}
		return nil
	})

	slog.Debug("BadgerOutput QueryRange", slog.Int("count", len(events)))
	return events, err
}
