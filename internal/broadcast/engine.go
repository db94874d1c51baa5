// Package broadcast fans a captured admin draft out to a recipient segment
// with pacing tuned for Telegram's flood limits.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_storefront_bot/internal/domain"
	"tg_storefront_bot/internal/logging"
)

// Sender copies the draft message to one chat. The concrete implementation
// is the telegram client; it is passed per run to keep the dependency
// one-directional.
type Sender interface {
	CopyTo(ctx context.Context, chatID int64, draft domain.DraftRef) error
}

// Blocklist marks a recipient as permanently unreachable.
type Blocklist interface {
	MarkDeliveryBlocked(ctx context.Context, userID int64) error
}

type auditCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// Policy holds the pacing knobs for one broadcast run.
type Policy struct {
	// PaceDelay is slept after every delivery attempt.
	PaceDelay time.Duration
	// BatchSize and BatchPause insert a longer breather every BatchSize
	// recipients.
	BatchSize  int
	BatchPause time.Duration
	// GentleDelay is slept after an unclassified failure.
	GentleDelay time.Duration
	// RateLimitFallback is slept when Telegram rate-limits without naming a
	// retry-after value. RateLimitPadding is added on top of a named one.
	// The pause is shared pacing for the whole run, not a per-recipient
	// retry window.
	RateLimitFallback time.Duration
	RateLimitPadding  time.Duration
}

// DefaultPolicy returns the pacing used in production.
func DefaultPolicy() Policy {
	return Policy{
		PaceDelay:         30 * time.Millisecond,
		BatchSize:         50,
		BatchPause:        500 * time.Millisecond,
		GentleDelay:       50 * time.Millisecond,
		RateLimitFallback: 2 * time.Second,
		RateLimitPadding:  time.Second,
	}
}

// Result is the per-run delivery tally.
type Result struct {
	SentOK   int
	SentFail int
}

// Engine runs broadcasts sequentially and records one audit row per run.
type Engine struct {
	audit     auditCollection
	blocklist Blocklist
	policy    Policy
	logger    *logrus.Entry

	// overridable in tests
	sleep func(time.Duration)
	now   func() time.Time
}

// NewEngine constructs a broadcast Engine with the given pacing policy.
func NewEngine(audit auditCollection, blocklist Blocklist, policy Policy, logger *logrus.Entry) *Engine {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Engine{
		audit:     audit,
		blocklist: blocklist,
		policy:    policy,
		logger:    logger,
		sleep:     time.Sleep,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Run copies the draft to every recipient in order. Per-recipient failures
// are tallied and never abort the run. Recipients who blocked the bot are
// flagged in the directory so later runs skip them. Exactly one audit record
// is written per run, including partial runs cut short by ctx.
func (e *Engine) Run(ctx context.Context, sender Sender, adminID int64, segment string, draft domain.DraftRef, recipients []int64) (Result, error) {
	if e == nil || e.audit == nil {
		return Result{}, errors.New("broadcast engine is not initialized")
	}
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}
	if sender == nil {
		return Result{}, errors.New("sender is required")
	}

	e.logger.WithFields(logging.Fields{
		"event":      "broadcast_started",
		"admin_id":   adminID,
		"segment":    segment,
		"recipients": len(recipients),
	}).Info("starting broadcast")

	var result Result
	var runErr error

	for i, chatID := range recipients {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if e.deliver(ctx, sender, chatID, draft) {
			result.SentOK++
		} else {
			result.SentFail++
		}

		e.sleep(e.policy.PaceDelay)
		if e.policy.BatchSize > 0 && (i+1)%e.policy.BatchSize == 0 {
			e.sleep(e.policy.BatchPause)
		}
	}

	record := domain.BroadcastRecord{
		AdminID:    adminID,
		FromChatID: draft.FromChatID,
		MessageID:  draft.MessageID,
		Segment:    segment,
		SentOK:     result.SentOK,
		SentFail:   result.SentFail,
		CreatedAt:  e.now(),
	}
	if _, err := e.audit.InsertOne(context.WithoutCancel(ctx), record); err != nil {
		e.logger.WithFields(logging.Fields{
			"event": "broadcast_audit_failed",
			"error": err.Error(),
		}).Error("failed to record broadcast run")
		if runErr == nil {
			runErr = fmt.Errorf("record broadcast run: %w", err)
		}
	}

	e.logger.WithFields(logging.Fields{
		"event":     "broadcast_finished",
		"admin_id":  adminID,
		"segment":   segment,
		"sent_ok":   result.SentOK,
		"sent_fail": result.SentFail,
	}).Info("broadcast finished")

	return result, runErr
}

// deliver attempts one recipient once. Failures are classified and paced but
// never retried; the run moves on to the next recipient.
func (e *Engine) deliver(ctx context.Context, sender Sender, chatID int64, draft domain.DraftRef) bool {
	err := sender.CopyTo(ctx, chatID, draft)
	if err == nil {
		return true
	}

	e.classifyFailure(ctx, chatID, err)
	return false
}

func (e *Engine) classifyFailure(ctx context.Context, chatID int64, err error) {
	if bot.IsTooManyRequestsError(err) {
		pause := e.policy.RateLimitFallback
		var tooMany *bot.TooManyRequestsError
		if errors.As(err, &tooMany) && tooMany.RetryAfter > 0 {
			pause = time.Duration(tooMany.RetryAfter)*time.Second + e.policy.RateLimitPadding
		}

		e.logger.WithFields(logging.Fields{
			"event":   "broadcast_rate_limited",
			"chat_id": chatID,
			"pause":   pause.String(),
		}).Warn("rate limited, pausing")

		e.sleep(pause)
		return
	}

	if errors.Is(err, bot.ErrorForbidden) {
		e.logger.WithFields(logging.Fields{
			"event":   "broadcast_recipient_blocked",
			"chat_id": chatID,
		}).Info("recipient blocked the bot")

		if e.blocklist != nil {
			if markErr := e.blocklist.MarkDeliveryBlocked(ctx, chatID); markErr != nil {
				e.logger.WithFields(logging.Fields{
					"event":   "broadcast_blocklist_failed",
					"chat_id": chatID,
					"error":   markErr.Error(),
				}).Warn("failed to flag blocked recipient")
			}
		}
		return
	}

	e.logger.WithFields(logging.Fields{
		"event":   "broadcast_send_failed",
		"chat_id": chatID,
		"error":   err.Error(),
	}).Warn("delivery failed")

	e.sleep(e.policy.GentleDelay)
}
