package worker

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sla/internal/clock"
	"github.com/spec-kit/support-sla/internal/config"
	"github.com/spec-kit/support-sla/internal/delivery"
	"github.com/spec-kit/support-sla/internal/domain"
	"github.com/spec-kit/support-sla/internal/observability"
	"github.com/spec-kit/support-sla/internal/repository"
	"github.com/spec-kit/support-sla/internal/service"
)

// DeliveryResult summarizes one delivery pass.
type DeliveryResult struct {
	Sent    int
	Dropped int
	Failed  int
	Purged  int64
}

// NotificationWorker claims due reminders and delivers them.
type NotificationWorker struct {
	pending       repository.PendingNotificationRepository
	conversations repository.ConversationRepository
	members       repository.MemberRepository
	sink          delivery.Sink
	clock         clock.Clock
	logger        *zap.Logger
	metrics       *observability.Metrics
	cfg           config.NotificationConfig
}

// NotificationWorkerDependencies bundles collaborators for the worker.
type NotificationWorkerDependencies struct {
	PendingRepo      repository.PendingNotificationRepository
	ConversationRepo repository.ConversationRepository
	MemberRepo       repository.MemberRepository
	Sink             delivery.Sink
	Clock            clock.Clock
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Config           config.NotificationConfig
}

// NewNotificationWorker builds the worker.
func NewNotificationWorker(deps NotificationWorkerDependencies) *NotificationWorker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	return &NotificationWorker{
		pending:       deps.PendingRepo,
		conversations: deps.ConversationRepo,
		members:       deps.MemberRepo,
		sink:          deps.Sink,
		clock:         c,
		logger:        logger,
		metrics:       deps.Metrics,
		cfg:           deps.Config,
	}
}

// StartAuditSubscriber registers the audit handlers on the dispatcher.
func StartAuditSubscriber(audit *service.AuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}

// Run polls for due reminders until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) {
	interval := w.cfg.PollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("notification worker started", zap.Duration("interval", interval))
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("notification pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("notification worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce purges stale claims, then claims one batch of due reminders and
// delivers each. Delivered rows are deleted; failed rows go back to the queue
// and become due again after the retry delay.
func (w *NotificationWorker) RunOnce(ctx context.Context) (DeliveryResult, error) {
	var result DeliveryResult
	now := w.clock.UTCNow()

	purged, err := w.pending.PurgeStaleClaims(ctx, now.Add(-w.cfg.StaleSendAfter()))
	if err != nil {
		return result, err
	}
	result.Purged = purged
	if purged > 0 {
		w.logger.Warn("purged stale reminder claims", zap.Int64("count", purged))
	}

	claimed, err := w.pending.ClaimDue(ctx, now, w.cfg.BatchSize)
	if err != nil {
		return result, err
	}
	for _, n := range claimed {
		outcome := w.deliver(ctx, n)
		w.metrics.RecordNotification(outcome)
		switch outcome {
		case "sent":
			result.Sent++
		case "dropped":
			result.Dropped++
		default:
			result.Failed++
		}
	}
	return result, nil
}

func (w *NotificationWorker) deliver(ctx context.Context, n domain.PendingMemberNotification) string {
	log := w.logger.With(
		zap.String("notification_id", n.ID),
		zap.String("member_id", n.MemberID),
		zap.String("conversation_id", n.ConversationID))

	conv, err := w.conversations.GetByID(ctx, n.ConversationID)
	if err != nil {
		return w.failOrDrop(ctx, log, n, err)
	}
	if !conv.State.IsWaitingForResponse() || conv.State == domain.ConversationStateSnoozed {
		w.remove(ctx, log, n)
		return "dropped"
	}
	member, err := w.members.GetByID(ctx, n.MemberID)
	if err != nil {
		return w.failOrDrop(ctx, log, n, err)
	}
	if !member.Active {
		w.remove(ctx, log, n)
		return "dropped"
	}

	if err := w.sink.Send(ctx, delivery.Reminder{Notification: n, Member: *member, Conversation: *conv}); err != nil {
		if errors.Is(err, delivery.ErrNoRecipient) {
			log.Warn("reminder has no recipient", zap.Error(err))
			w.remove(ctx, log, n)
			return "dropped"
		}
		return w.release(ctx, log, n, err)
	}
	w.remove(ctx, log, n)
	log.Info("reminder sent", zap.String("kind", string(n.Kind)))
	return "sent"
}

func (w *NotificationWorker) failOrDrop(ctx context.Context, log *zap.Logger, n domain.PendingMemberNotification, err error) string {
	if errors.Is(err, pgx.ErrNoRows) {
		w.remove(ctx, log, n)
		return "dropped"
	}
	return w.release(ctx, log, n, err)
}

func (w *NotificationWorker) release(ctx context.Context, log *zap.Logger, n domain.PendingMemberNotification, cause error) string {
	log.Warn("reminder delivery failed", zap.Error(cause))
	retryAt := w.clock.UTCNow().Add(w.cfg.RetryDelay())
	if err := w.pending.Release(ctx, n.ID, retryAt); err != nil {
		log.Error("release reminder failed", zap.Error(err))
	}
	return "failed"
}

func (w *NotificationWorker) remove(ctx context.Context, log *zap.Logger, n domain.PendingMemberNotification) {
	if err := w.pending.Delete(ctx, n.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Error("delete reminder failed", zap.Error(err))
	}
}
