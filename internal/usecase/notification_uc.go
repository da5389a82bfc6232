package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// CheckAndNotify scans subscriptions with a resource once and warns subscribers
	// whose expiry falls inside a threshold window. It returns how many warnings were sent.
	CheckAndNotify(ctx context.Context) (int, error)
}

type threshold struct {
	hours float64
	raw   int
	label string
}

type notificationUC struct {
	subs       repository.SubscriptionRepository
	notifier   adapter.Notifier
	tr         adapter.Translator
	cache      *NotificationCache
	enabled    bool
	tolerance  float64 // hours
	thresholds []threshold
	log        *zerolog.Logger
	now        func() time.Time
}

func NewNotificationUseCase(
	subs repository.SubscriptionRepository,
	notifier adapter.Notifier,
	tr adapter.Translator,
	cache *NotificationCache,
	cfg config.NotificationsConfig,
	logger *zerolog.Logger,
) *notificationUC {
	ths := make([]threshold, 0, len(cfg.Thresholds))
	for _, t := range cfg.Thresholds {
		ths = append(ths, threshold{hours: float64(t.Hours), raw: t.Hours, label: t.Label})
	}
	sort.SliceStable(ths, func(i, j int) bool { return ths[i].hours > ths[j].hours })

	return &notificationUC{
		subs:       subs,
		notifier:   notifier,
		tr:         tr,
		cache:      cache,
		enabled:    cfg.Enabled,
		tolerance:  float64(cfg.CheckIntervalMinutes) / 2 / 60,
		thresholds: ths,
		log:        logger,
		now:        time.Now,
	}
}

func (n *notificationUC) CheckAndNotify(ctx context.Context) (int, error) {
	if !n.enabled {
		n.log.Debug().Msg("expiry notifications are disabled")
		return 0, nil
	}

	log := n.log.With().Str("run_id", ulid.Make().String()).Logger()
	log.Info().Msg("expiry check started")

	recs, err := n.subs.ListWithResource(ctx, repository.NoTX)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	metrics.SetSubscriptionsScanned(len(recs))
	log.Info().Int("subscriptions", len(recs)).Msg("subscriptions with resource loaded")

	now := n.now()
	sent := 0
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if n.checkSubject(ctx, &log, rec.SubjectID, now) {
			sent++
		}
	}

	log.Info().Int("sent", sent).Msg("expiry check completed")
	return sent, nil
}

// checkSubject reports whether a warning was delivered to subjectID.
func (n *notificationUC) checkSubject(ctx context.Context, log *zerolog.Logger, subjectID int64, now time.Time) bool {
	expiry, err := n.subs.GetExpiry(ctx, repository.NoTX, subjectID)
	if err != nil {
		log.Warn().Err(err).Int64("tg_id", subjectID).Msg("could not get client data")
		return false
	}
	if expiry == nil {
		log.Debug().Int64("tg_id", subjectID).Msg("unlimited subscription")
		return false
	}
	if !expiry.After(now) {
		log.Debug().Int64("tg_id", subjectID).Msg("subscription already expired")
		return false
	}

	hours := expiry.Sub(now).Hours()
	for _, t := range n.thresholds {
		if hours < t.hours-n.tolerance || hours > t.hours+n.tolerance {
			continue
		}
		// The first matching window decides, whether or not it was already warned.
		key := NotificationKey{SubjectID: subjectID, ThresholdHours: t.raw, ExpiresUnix: expiry.Unix()}
		if n.cache.Contains(key) {
			metrics.IncExpiryNotification(t.raw, "duplicate")
			return false
		}
		text := n.tr.T("subscription_expiry:notification:warning", t.label, expiry.UTC().Format(expiryLayout))
		if err := n.notifier.Notify(ctx, subjectID, text); err != nil {
			metrics.IncExpiryNotification(t.raw, "failed")
			log.Error().Err(err).Int64("tg_id", subjectID).Int("threshold_hours", t.raw).Msg("failed to send expiry notification")
			return false
		}
		n.cache.Add(key)
		metrics.IncExpiryNotification(t.raw, "sent")
		log.Info().Int64("tg_id", subjectID).Str("time_left", t.label).Msg("sent expiry notification")
		return true
	}
	return false
}
