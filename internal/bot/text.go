package bot

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
	"github.com/garyellow/sedori-linebot-go/internal/session"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
)

// textMatcher is one step of the text decision list. handle reports
// whether the message was consumed.
type textMatcher struct {
	intent string
	handle func(ctx context.Context, t *turn, text string) (bool, error)
}

// textMatchers returns the decision list in priority order: shipping size,
// weight, then prices. Anything left over gets the usage guidance.
func (p *Processor) textMatchers() []textMatcher {
	return []textMatcher{
		{intent: "size", handle: p.matchSize},
		{intent: "weight", handle: p.matchWeight},
		{intent: "price", handle: p.matchPrice},
	}
}

func (p *Processor) handleText(ctx context.Context, t *turn, raw string) error {
	text := strings.TrimSpace(triage.FoldWidth(raw))

	for _, m := range p.matchers {
		handled, err := m.handle(ctx, t, text)
		if handled {
			p.metrics.RecordTextIntent(m.intent)
		}
		if handled || err != nil {
			return err
		}
	}

	p.metrics.RecordTextIntent("guidance")
	p.reply(ctx, t, msgGuidance)
	return nil
}

func (p *Processor) matchSize(ctx context.Context, t *turn, text string) (bool, error) {
	if t.userID == "" {
		return false, nil
	}
	size, ok := triage.ParseSize(text)
	if !ok {
		return false, nil
	}
	if _, err := p.updateSession(ctx, t.userID, func(s *session.Session, now time.Time) {
		s.SetSize(size, now)
	}); err != nil {
		return true, err
	}
	p.reply(ctx, t, sizeAck(size))
	return true, nil
}

func (p *Processor) matchWeight(ctx context.Context, t *turn, text string) (bool, error) {
	if t.userID == "" || !looksLikeWeight(text) {
		return false, nil
	}
	kg, ok := triage.NormalizeWeight(text)
	if !ok {
		return false, nil
	}
	if _, err := p.updateSession(ctx, t.userID, func(s *session.Session, now time.Time) {
		s.SetWeight(kg, now)
	}); err != nil {
		return true, err
	}
	p.reply(ctx, t, weightAck(kg))
	return true, nil
}

// looksLikeWeight keeps the number in "仕入れ 980" from being read as 980g:
// a unit letter or a bare number is required.
func looksLikeWeight(text string) bool {
	upper := strings.ToUpper(text)
	return strings.Contains(upper, "KG") || strings.Contains(upper, "G") || triage.IsDigits(text)
}

func (p *Processor) matchPrice(ctx context.Context, t *turn, text string) (bool, error) {
	cost, hasCost := parseCost(text)
	sell, hasSell := parseSell(text)

	switch {
	case hasCost:
		return true, p.replyProfit(ctx, t, cost, sell, hasSell)
	case hasSell:
		p.reply(ctx, t, msgNeedCost)
		return true, nil
	default:
		return false, nil
	}
}

// replyProfit reads the session without modifying it.
func (p *Processor) replyProfit(ctx context.Context, t *turn, cost, sell int, hasSell bool) error {
	var sess *session.Session
	if t.userID != "" {
		var err error
		if sess, err = p.loadSession(ctx, t.userID); err != nil {
			return err
		}
	}
	if sess == nil {
		return apperrors.ErrNoSession
	}

	ship := sess.EstimateShipping()
	if !hasSell {
		low, high, ok := sess.Item.PriceRange()
		if !ok {
			p.reply(ctx, t, msgNeedSellPrice)
			return nil
		}
		sell = triage.MidpointPrice(low, high)
	}

	profit := triage.ComputeProfit(sell, cost, ship, p.feeRate)
	p.metrics.RecordProfit(profit)
	p.logger.WithField("profit_yen", profit).
		WithField("sell_yen", sell).
		WithField("shipping_yen", ship).
		DebugContext(ctx, "Profit computed")
	p.reply(ctx, t, profitReply(profit, sell, ship, p.feeRate))
	return nil
}

// parseCost reads the purchase price when the cost marker is present.
func parseCost(text string) (int, bool) {
	if !strings.Contains(text, costMarker) {
		return 0, false
	}
	return triage.ExtractYenAmount(text)
}

// parseSell reads the sale price when any sale marker is present. The
// markers are tried most specific first; the amount always comes from the
// whole text.
func parseSell(text string) (int, bool) {
	for _, marker := range saleMarkers {
		if strings.Contains(text, marker) {
			return triage.ExtractYenAmount(text)
		}
	}
	return 0, false
}
