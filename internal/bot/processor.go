// Package bot implements the conversation flow: an image is analyzed and
// summarized, then size, weight and price messages refine the estimate
// until a profit can be reported.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/semaphore"

	"github.com/garyellow/sedori-linebot-go/internal/archive"
	"github.com/garyellow/sedori-linebot-go/internal/ctxutil"
	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
	"github.com/garyellow/sedori-linebot-go/internal/lineutil"
	"github.com/garyellow/sedori-linebot-go/internal/logger"
	"github.com/garyellow/sedori-linebot-go/internal/messenger"
	"github.com/garyellow/sedori-linebot-go/internal/metrics"
	"github.com/garyellow/sedori-linebot-go/internal/ratelimit"
	"github.com/garyellow/sedori-linebot-go/internal/sentry"
	"github.com/garyellow/sedori-linebot-go/internal/session"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

// Archiver receives every completed analysis.
type Archiver interface {
	Store(ctx context.Context, rec archive.Record) (string, error)
}

// Processor handles one LINE event at a time. It is safe for concurrent
// use; session updates are serialized per user.
type Processor struct {
	store     session.Store
	messenger messenger.Messenger
	analyzer  vision.Analyzer
	limiter   *ratelimit.KeyedLimiter
	archiver  Archiver
	logger    *logger.Logger
	metrics   *metrics.Metrics

	locker          *session.Locker
	analyses        *semaphore.Weighted
	analysisTimeout time.Duration
	feeRate         float64
	now             func() time.Time
	matchers        []textMatcher
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Store     session.Store
	Messenger messenger.Messenger
	Analyzer  vision.Analyzer
	Logger    *logger.Logger

	// Optional collaborators.
	Limiter  *ratelimit.KeyedLimiter
	Archiver Archiver
	Metrics  *metrics.Metrics

	FeeRate               float64 // defaults to triage.DefaultFeeRate
	MaxConcurrentAnalyses int     // defaults to 4
	AnalysisTimeout       time.Duration
	Clock                 func() time.Time
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.FeeRate == 0 {
		cfg.FeeRate = triage.DefaultFeeRate
	}
	if cfg.MaxConcurrentAnalyses < 1 {
		cfg.MaxConcurrentAnalyses = 4
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("info")
	}

	p := &Processor{
		store:           cfg.Store,
		messenger:       cfg.Messenger,
		analyzer:        cfg.Analyzer,
		limiter:         cfg.Limiter,
		archiver:        cfg.Archiver,
		logger:          cfg.Logger.WithModule("bot"),
		metrics:         cfg.Metrics,
		locker:          session.NewLocker(),
		analyses:        semaphore.NewWeighted(int64(cfg.MaxConcurrentAnalyses)),
		analysisTimeout: cfg.AnalysisTimeout,
		feeRate:         cfg.FeeRate,
		now:             cfg.Clock,
	}
	p.matchers = p.textMatchers()
	return p
}

// turn is the per-event reply state. The reply token is single use, so
// once it is spent every later message goes through push.
type turn struct {
	replyToken string
	chatID     string
	userID     string
	replied    bool
}

// limitKey is the analysis quota bucket. Group members who have not shared
// their user id are limited per chat.
func (t *turn) limitKey() string {
	if t.userID != "" {
		return t.userID
	}
	return t.chatID
}

// BeginBatch runs once per webhook delivery before its events. It drops
// expired sessions.
func (p *Processor) BeginBatch(ctx context.Context) {
	removed, err := p.store.Sweep(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Session sweep failed")
		return
	}
	p.metrics.RecordSweep(removed)
	if removed > 0 {
		p.logger.WithField("removed", removed).Debug("Expired sessions swept")
	}
}

// ProcessEvent handles a single webhook event. Failures never escape: they
// are logged, reported and answered with a short error tag. The returned
// error is for the caller's bookkeeping only.
func (p *Processor) ProcessEvent(ctx context.Context, event webhook.EventInterface) (err error) {
	start := time.Now()

	replyToken, source, eventID := replyTarget(event)
	if replyToken == "" {
		p.metrics.RecordWebhook(event.GetType(), "skipped", time.Since(start))
		return nil
	}

	t := &turn{
		replyToken: replyToken,
		chatID:     GetChatID(source),
		userID:     GetUserID(source),
	}
	ctx = ctxutil.WithChatID(ctx, t.chatID)
	ctx = ctxutil.WithUserID(ctx, t.userID)
	if eventID != "" {
		ctx = ctxutil.WithEventID(ctx, eventID)
	}

	kind := eventKind(event)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.logger.WithField("panic", r).
				WithField("stack", string(debug.Stack())).
				ErrorContext(ctx, "Panic while processing event")
		}
		status := "success"
		if text, ok := rejectionReply(err); ok {
			status = "rejected"
			p.logger.WithField("reason", err.Error()).InfoContext(ctx, "Event rejected")
			p.reply(ctx, t, text)
			err = nil
		} else if err != nil {
			status = "error"
			p.fail(ctx, t, kind, err)
		}
		p.metrics.RecordWebhook(kind, status, time.Since(start))
	}()

	msgEvent, ok := event.(webhook.MessageEvent)
	if !ok {
		p.reply(ctx, t, otherTypeReply(event.GetType()))
		return nil
	}
	if msgEvent.Message != nil {
		ctx = ctxutil.WithMessageID(ctx, messageID(msgEvent.Message))
	}

	switch msg := msgEvent.Message.(type) {
	case webhook.ImageMessageContent:
		return p.handleImage(ctx, t, msg)
	case webhook.TextMessageContent:
		return p.handleText(ctx, t, msg.Text)
	default:
		p.reply(ctx, t, otherTypeReply(messageType(msgEvent.Message)))
		return nil
	}
}

// fail reports err and tells the user which collaborator failed.
func (p *Processor) fail(ctx context.Context, t *turn, kind string, err error) {
	tag := apperrors.Tag(err)
	p.logger.WithError(err).
		WithField("event_type", kind).
		WithField("tag", tag).
		ErrorContext(ctx, "Failed to handle event")
	sentry.CaptureExceptionWithContext(ctx, err, map[string]string{"tag": tag, "event_type": kind})

	text := apperrors.UserMessage(err)
	if !t.replied {
		p.reply(ctx, t, text)
		return
	}
	if t.chatID == "" {
		return
	}
	if pushErr := p.messenger.Push(ctx, t.chatID, lineutil.NewTextMessage(text)); pushErr != nil {
		p.logger.WithError(pushErr).WarnContext(ctx, "Failed to push error tag")
	}
}

// reply spends the reply token. Delivery failures are logged, not retried.
func (p *Processor) reply(ctx context.Context, t *turn, text string, quick ...lineutil.QuickReplyItem) {
	t.replied = true
	if err := p.messenger.Reply(ctx, t.replyToken, lineutil.NewTextMessageWithQuickReply(text, quick...)); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to send reply")
	}
}

// loadSession returns the user's session, or nil when there is none.
func (p *Processor) loadSession(ctx context.Context, userID string) (*session.Session, error) {
	sess, err := p.store.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.NewWrapper("bot", "load_session", apperrors.KindInternal).Wrap(err)
	}
	return sess, nil
}

func (p *Processor) saveSession(ctx context.Context, sess *session.Session) error {
	if err := p.store.Save(ctx, sess); err != nil {
		return apperrors.NewWrapper("bot", "save_session", apperrors.KindInternal).Wrap(err)
	}
	return nil
}

// updateSession applies fn to the user's session, creating it if absent,
// under the user's lock.
func (p *Processor) updateSession(ctx context.Context, userID string, fn func(*session.Session, time.Time)) (*session.Session, error) {
	unlock := p.locker.Lock(userID)
	defer unlock()

	now := p.now()
	sess, err := p.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = session.New(userID, now)
	}
	fn(sess, now)
	if err := p.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func eventKind(event webhook.EventInterface) string {
	if e, ok := event.(webhook.MessageEvent); ok && e.Message != nil {
		switch e.Message.(type) {
		case webhook.TextMessageContent:
			return "text"
		case webhook.ImageMessageContent:
			return "image"
		}
		return "other"
	}
	return event.GetType()
}

func messageType(m webhook.MessageContentInterface) string {
	if m == nil {
		return "unknown"
	}
	return m.GetType()
}

func messageID(m webhook.MessageContentInterface) string {
	switch c := m.(type) {
	case webhook.TextMessageContent:
		return c.Id
	case webhook.ImageMessageContent:
		return c.Id
	}
	return ""
}

var errNoDestination = errors.New("event has no chat to push to")
