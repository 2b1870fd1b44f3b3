package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tms/internal/domain"
	"tms/internal/events"
	"tms/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SyncRequest asks for a full mirror of the ledger into Sheets.
type SyncRequest struct {
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// failedSync is pushed to the dead-letter list once retries are exhausted.
type failedSync struct {
	Reasons  []string  `json:"reasons"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// SheetsWorker mirrors the ledger into Google Sheets. Requests that pile up
// while a sync is running are coalesced into the next one, since every sync
// replaces both sheets in full.
type SheetsWorker struct {
	ledger        domain.LedgerReader
	sheets        domain.SheetsWriter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SyncRequest
	deadLetterKey string
	logger        *zerolog.Logger
	wait          func(ctx context.Context, d time.Duration) error
}

// NewSheetsWorker builds a worker with sane defaults. redisClient is optional
// and only used for the dead-letter list.
func NewSheetsWorker(ledger domain.LedgerReader, sheets domain.SheetsWriter, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		ledger:        ledger,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan SyncRequest, models.WorkerQueueSize),
		deadLetterKey: "tms:sheets:deadletter",
		logger:        logger,
		wait:          sleepContext,
	}
}

// EnqueueSync schedules a sync without blocking. A full queue already holds
// a pending sync, so the request is dropped.
func (w *SheetsWorker) EnqueueSync(ctx context.Context, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return errors.New("sync reason is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case w.queue <- SyncRequest{Reason: reason, CreatedAt: time.Now()}:
	default:
		w.logger.Debug().Str("reason", reason).Msg("sheets queue full, request coalesced")
	}
	return nil
}

// Subscriber turns ledger events into sync requests.
func (w *SheetsWorker) Subscriber(event *events.Event) error {
	return w.EnqueueSync(context.Background(), event.Type)
}

// Start runs the worker loop until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.queue:
			reasons := append([]string{req.Reason}, w.drain()...)
			w.process(ctx, reasons)
		}
	}
}

func (w *SheetsWorker) drain() []string {
	var reasons []string
	for {
		select {
		case req := <-w.queue:
			reasons = append(reasons, req.Reason)
		default:
			return reasons
		}
	}
}

// process syncs with retries and dead-letters the batch when they run out.
func (w *SheetsWorker) process(ctx context.Context, reasons []string) {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err = w.SyncNow(ctx); err == nil {
			w.logger.Debug().Strs("reasons", reasons).Int("attempt", attempt).Msg("sheets synced")
			return
		}
		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("sheets sync failed")
		if werr := w.wait(ctx, delay); werr != nil {
			return
		}
	}

	w.logger.Error().Err(err).Strs("reasons", reasons).Msg("sheets sync gave up")
	w.pushDeadLetter(ctx, failedSync{
		Reasons:  reasons,
		Attempts: w.retryPolicy.MaxRetries,
		Error:    err.Error(),
		FailedAt: time.Now(),
	})
}

// SyncNow replaces the Orders and Equipment sheets with the current ledger.
func (w *SheetsWorker) SyncNow(ctx context.Context) error {
	orders, err := w.ledger.Orders(ctx)
	if err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	equipment, err := w.ledger.Equipment(ctx)
	if err != nil {
		return fmt.Errorf("read equipment: %w", err)
	}

	if err := w.sheets.ReplaceOrdersSheet(ctx, orders); err != nil {
		return fmt.Errorf("orders sheet: %w", err)
	}
	if err := w.sheets.ReplaceEquipmentSheet(ctx, equipment); err != nil {
		return fmt.Errorf("equipment sheet: %w", err)
	}
	return nil
}

func (w *SheetsWorker) pushDeadLetter(ctx context.Context, f failedSync) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		w.logger.Error().Err(err).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("deadletter push failed")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
