package bot

import (
	"context"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/sedori-linebot-go/internal/archive"
	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
	"github.com/garyellow/sedori-linebot-go/internal/lineutil"
	"github.com/garyellow/sedori-linebot-go/internal/session"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

// handleImage acknowledges the photo through the reply token, then pushes
// the analysis once it is ready. The session is only touched after the
// fetch and the analysis both succeed.
func (p *Processor) handleImage(ctx context.Context, t *turn, msg webhook.ImageMessageContent) error {
	if msg.Id == "" {
		return apperrors.ErrMissingImageID
	}
	if t.chatID == "" {
		return errNoDestination
	}
	if p.limiter != nil && !p.limiter.Allow(t.limitKey()) {
		return apperrors.ErrRateLimitExceeded
	}

	p.reply(ctx, t, msgAnalyzing)

	image, mimeType, err := p.messenger.FetchContent(ctx, msg.Id)
	if err != nil {
		return err
	}

	analysis, err := p.analyze(ctx, image, mimeType)
	if err != nil {
		return err
	}

	name := analysis.Name
	if name == "" {
		name = session.UnknownName
	}

	var ship int
	var size triage.Size
	if t.userID != "" {
		sess, err := p.updateSession(ctx, t.userID, func(s *session.Session, now time.Time) {
			s.ReplaceItem(itemFromAnalysis(name, analysis), now)
		})
		if err != nil {
			return err
		}
		ship = sess.EstimateShipping()
		size = sess.ShippingSize
	} else {
		ship = triage.EstimateShipping("", nil, name)
	}

	p.logger.WithField("provider", analysis.Provider).
		WithField("shipping_yen", ship).
		InfoContext(ctx, "Image analyzed")

	result := formatResult(name, analysis.Keywords, ship, analysis.PriceRange)
	if err := p.messenger.Push(ctx, t.chatID, lineutil.NewTextMessageWithQuickReply(result, lineutil.QuickReplySizeActions()...)); err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to push analysis result")
	}

	p.archive(ctx, t, image, mimeType, ship, size, analysis)
	return nil
}

// analyze bounds both the number of in-flight vision calls and their
// duration.
func (p *Processor) analyze(ctx context.Context, image []byte, mimeType string) (*vision.Analysis, error) {
	if err := p.analyses.Acquire(ctx, 1); err != nil {
		return nil, apperrors.NewWrapper("bot", "analyze", apperrors.KindVision).Wrap(err)
	}
	defer p.analyses.Release(1)

	if p.analysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.analysisTimeout)
		defer cancel()
	}
	return p.analyzer.Analyze(ctx, image, mimeType)
}

// archive stores the analysis for later review. Failures are only logged.
func (p *Processor) archive(ctx context.Context, t *turn, image []byte, mimeType string, ship int, size triage.Size, analysis *vision.Analysis) {
	if p.archiver == nil {
		return
	}
	key, err := p.archiver.Store(ctx, archive.Record{
		CreatedAt:    p.now(),
		UserHash:     archive.HashUserID(t.userID),
		MIMEType:     mimeType,
		ImageBytes:   len(image),
		ShippingYen:  ship,
		ShippingSize: string(size),
		Analysis:     analysis,
	})
	if err != nil {
		p.logger.WithError(err).WarnContext(ctx, "Failed to archive analysis")
		return
	}
	p.logger.WithField("key", key).DebugContext(ctx, "Analysis archived")
}

func itemFromAnalysis(name string, a *vision.Analysis) *session.Item {
	item := &session.Item{
		Name:     name,
		Keywords: a.Keywords,
	}
	if a.Category != "" {
		category := a.Category
		item.Category = &category
	}
	if a.PriceRange != nil {
		low, high := a.PriceRange.Low, a.PriceRange.High
		item.PriceLow = &low
		item.PriceHigh = &high
	}
	return item
}
