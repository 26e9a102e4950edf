// Package outbox drains the plan_outbox table and delivers plan events to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"

	"github.com/Atabia1/athlete-genesis-ai-sub005/internal/events"
)

// claimLease keeps a concurrently-running dispatcher from grabbing rows that
// are already in flight.
const claimLease = time.Minute

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// Entry is a row fetched from plan_outbox.
type Entry struct {
	EventID      int64
	EventType    string
	PartitionKey string
	Payload      json.RawMessage
	Attempts     int
}

// Dispatcher polls the outbox and publishes pending events. Delivery failures
// are retried with exponential backoff per row; rows that exhaust the attempt
// budget are abandoned and surfaced through metrics.
type Dispatcher struct {
	pool             *pgxpool.Pool
	producer         messageWriter
	pollInterval     time.Duration
	batchSize        int
	maxAttempts      int
	baseDelay        time.Duration
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, pollInterval time.Duration, batchSize, maxAttempts int, baseDelay time.Duration) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &Dispatcher{
		pool:             pool,
		producer:         producer,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		maxAttempts:      maxAttempts,
		baseDelay:        baseDelay,
		logger:           log.New(log.Writer(), "[outbox] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Printf("dispatch error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// ProcessBatch claims one batch of due rows and attempts delivery for each.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	start := time.Now()

	entries, err := d.fetchAndClaim(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	for _, entry := range entries {
		msg := kafka.Message{
			Key:   []byte(entry.PartitionKey),
			Value: entry.Payload,
			Time:  time.Now().UTC(),
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(entry.EventType)},
			},
		}

		if deliverErr := d.producer.WriteMessages(ctx, events.Topic, msg); deliverErr != nil {
			if recordErr := d.recordFailure(ctx, entry, deliverErr); recordErr != nil {
				err = errors.Join(err, recordErr)
			}
			continue
		}

		if markErr := d.markPublished(ctx, entry.EventID); markErr != nil {
			err = errors.Join(err, markErr)
			continue
		}
		deliveredCounter.Inc()
	}
	return err
}

// fetchAndClaim selects due rows and leases them so a concurrent dispatcher
// skips them while delivery is in flight.
func (d *Dispatcher) fetchAndClaim(ctx context.Context) ([]Entry, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const query = `SELECT event_id, event_type, partition_key, payload, attempts
        FROM plan_outbox
        WHERE published_at IS NULL
          AND abandoned_at IS NULL
          AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY event_id
        LIMIT $1
        FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, d.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		var entry Entry
		if err = rows.Scan(&entry.EventID, &entry.EventType, &entry.PartitionKey, &entry.Payload, &entry.Attempts); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		ids = append(ids, entry.EventID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		tx.Rollback(ctx)
		return nil, nil
	}

	if _, err = tx.Exec(ctx,
		`UPDATE plan_outbox SET next_retry_at = NOW() + $1::interval WHERE event_id = ANY($2)`,
		claimLease, ids,
	); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entries, nil
}

func (d *Dispatcher) markPublished(ctx context.Context, eventID int64) error {
	_, err := d.pool.Exec(ctx, `UPDATE plan_outbox SET published_at = NOW() WHERE event_id = $1`, eventID)
	return err
}

// recordFailure books the attempt and either schedules a retry or abandons
// the row once the budget is spent.
func (d *Dispatcher) recordFailure(ctx context.Context, entry Entry, cause error) error {
	attempts := entry.Attempts + 1
	d.logger.Printf("delivery of event %d (%s) attempt %d/%d failed: %v", entry.EventID, entry.EventType, attempts, d.maxAttempts, cause)
	failedCounter.Inc()

	if attempts >= d.maxAttempts {
		abandonedCounter.WithLabelValues(entry.EventType).Inc()
		_, err := d.pool.Exec(ctx,
			`UPDATE plan_outbox SET attempts = $1, last_error = $2, abandoned_at = NOW() WHERE event_id = $3`,
			attempts, cause.Error(), entry.EventID,
		)
		return err
	}

	_, err := d.pool.Exec(ctx,
		`UPDATE plan_outbox
            SET attempts = $1, last_error = $2, next_retry_at = NOW() + $3::interval
          WHERE event_id = $4`,
		attempts, cause.Error(), d.backoffDelay(attempts), entry.EventID,
	)
	return err
}

// backoffDelay calculates exponential backoff capped at one hour.
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * d.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}
