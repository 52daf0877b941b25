// Package eventlogdb is a bbolt-backed implementation of eventlog.Store and
// command.Executor: one nested bucket per contract id, holding its
// append-only event log keyed by monotonically increasing sequence number.
// Grounded on channeldb, which persists per-channel state the
// same way against the same coreos/bbolt store (see daemon/breacharbiter.go
// for the retribution store's use of the identical bucket-per-key idiom).
package eventlogdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/coreos/bbolt"
	"github.com/itchysats/cfdmonitor/command"
	"github.com/itchysats/cfdmonitor/eventlog"
	"github.com/itchysats/cfdmonitor/model"
)

var cfdsBucket = []byte("cfd-events")

// DB is a bbolt-backed event log store.
type DB struct {
	bolt *bbolt.DB
}

// Open creates or opens a bbolt database at dbPath and ensures the root
// bucket exists.
func Open(dbPath string) (*DB, error) {
	bolt, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("eventlogdb: failed to open %s: %w", dbPath, err)
	}

	err = bolt.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cfdsBucket)
		return err
	})
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("eventlogdb: failed to initialize buckets: %w", err)
	}

	return &DB{bolt: bolt}, nil
}

// Close releases the underlying bbolt database.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// LoadAllOpenCfds implements eventlog.Store. A contract is open unless its
// most recent event is one of the three terminal kinds: all
// further monitoring and rebroadcast guards are cleared once a contract
// reaches a terminal state, so there is no need to keep replaying it.
func (db *DB) LoadAllOpenCfds(ctx context.Context) (<-chan eventlog.OpenCfdResult, error) {
	out := make(chan eventlog.OpenCfdResult)

	go func() {
		defer close(out)

		err := db.bolt.View(func(tx *bbolt.Tx) error {
			root := tx.Bucket(cfdsBucket)
			return root.ForEach(func(name, v []byte) error {
				// Only nested buckets (one per contract id) are
				// expected here; v is nil for those.
				if v != nil {
					return nil
				}
				cfdBucket := root.Bucket(name)

				id, events, err := loadCfd(cfdBucket)
				if err != nil {
					select {
					case out <- eventlog.OpenCfdResult{Err: err}:
					case <-ctx.Done():
					}
					return nil
				}

				if isTerminal(events) {
					return nil
				}

				select {
				case out <- eventlog.OpenCfdResult{Cfd: eventlog.OpenCfd{Id: id, Events: events}}:
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			})
		})
		if err != nil {
			select {
			case out <- eventlog.OpenCfdResult{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// Execute implements command.Executor: it invokes handler with a nil
// aggregate (the contract's event log is not loaded or passed to it) and
// appends the resulting event (if any) under a single bbolt write
// transaction, which serializes concurrent Execute calls for the same or
// different contracts against this store. A contract's bucket is created
// only once a handler returns an event for it.
func (db *DB) Execute(ctx context.Context, orderId model.OrderId, handler command.Handler) error {
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(cfdsBucket)

		newEvent, err := handler(nil)
		if err != nil {
			return fmt.Errorf("eventlogdb: handler failed for %s: %w", orderId, err)
		}
		if newEvent == nil {
			return nil
		}
		newEvent.OrderId = orderId

		cfdBucket, err := root.CreateBucketIfNotExists([]byte(orderId.String()))
		if err != nil {
			return fmt.Errorf("eventlogdb: failed to open bucket for %s: %w", orderId, err)
		}

		return appendEvent(cfdBucket, *newEvent)
	})
}

func appendEvent(bucket *bbolt.Bucket, event model.CfdEvent) error {
	seq, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("eventlogdb: failed to allocate sequence: %w", err)
	}

	encoded, err := encodeEvent(event)
	if err != nil {
		return err
	}

	var key [8]byte
	binary.BigEndian.PutUint64(key[:], seq)

	return bucket.Put(key[:], encoded)
}

func loadCfd(bucket *bbolt.Bucket) (model.OrderId, []model.CfdEvent, error) {
	var events []model.CfdEvent

	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		event, err := decodeEvent(v)
		if err != nil {
			return model.OrderId{}, nil, err
		}
		events = append(events, event)
	}

	if len(events) == 0 {
		return model.OrderId{}, nil, fmt.Errorf("eventlogdb: empty event log")
	}

	return events[0].OrderId, events, nil
}

func isTerminal(events []model.CfdEvent) bool {
	if len(events) == 0 {
		return false
	}
	switch events[len(events)-1].Kind {
	case model.CetConfirmed, model.RefundConfirmed, model.CollaborativeSettlementConfirmed:
		return true
	default:
		return false
	}
}
