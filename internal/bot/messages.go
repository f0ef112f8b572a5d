package bot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
	"github.com/garyellow/sedori-linebot-go/internal/triage"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
)

const (
	msgMissingImageID = "画像IDが取れませんでした。もう一度送ってください。"
	msgAnalyzing      = "画像を受け取りました。解析中です…（数秒〜20秒）"
	msgRateLimited    = "解析回数の上限に達しました。しばらく時間をおいてから画像を送ってください。"
	msgNoSession      = "直前の画像が見つかりません。先に商品画像を送ってください。"
	msgNeedSellPrice  = "仕入れOK。次に「売れた 2800」または「売値 2800」を送ってください。"
	msgNeedCost       = "OK！次に「仕入れ 980」も送ってください（利益を確定します）。"

	msgGuidance = "画像を送ってください。\n" +
		"送料を正確にするなら「S/M/L/XL」や「850g / 1.2kg」も送れます。\n" +
		"価格は「仕入れ 980」「売れた 2800」「売値 2800」でOKです。"

	resultFooter = "※iPhone：リンク→右下︙→Safariで開く（アプリ起動しやすい）\n\n" +
		"送料を正確にする場合（任意）：\n" +
		"・サイズ S/M/L/XL（S=薄物, M=ゆうパケットプラス箱, L=ゆうパック60-80, XL=ゆうパック100-120）\n" +
		"・重さ 850g または 1.2kg\n\n" +
		"次に価格を送ってください：\n" +
		"・仕入れ 980\n" +
		"・売れた 2800（実相場）\n" +
		"・売値 2800（希望売値）"
)

// Keyword markers in price messages. Sale markers are checked in order.
const costMarker = "仕入"

var saleMarkers = []string{"売れた", "売値", "売"}

func sizeAck(size triage.Size) string {
	return fmt.Sprintf("OK！サイズ%sで送料計算します。次に重さ（例: 850g / 1.2kg）か価格を送ってください。", size)
}

func weightAck(kg float64) string {
	return fmt.Sprintf("OK！重さ%.2fkgで送料計算します。次にサイズ（S/M/L/XL）か価格を送ってください。", kg)
}

func profitReply(profit, sell, ship int, feeRate float64) string {
	return fmt.Sprintf("利益目安：%d円（売値%d円・送料%d円・手数料%s%%）", profit, sell, ship, formatPercent(feeRate))
}

func otherTypeReply(kind string) string {
	return kind + " を受け取りました（画像かテキストでお願いします）"
}

// formatPercent renders 0.1 as "10" and 0.085 as "8.5".
func formatPercent(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*1000)/10, 'f', -1, 64)
}

// formatResult builds the analysis summary pushed after an image.
func formatResult(name string, keywords []string, ship int, pr *vision.PriceRange) string {
	kwText := "（不明）"
	if len(keywords) > 0 {
		kwText = strings.Join(keywords[:min(3, len(keywords))], " / ")
	}
	prText := "不明"
	if pr != nil {
		prText = fmt.Sprintf("%d〜%d円", pr.Low, pr.High)
	}
	searchTerm := name
	if len(keywords) > 0 {
		searchTerm = keywords[0]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "【商品推定】%s\n", name)
	fmt.Fprintf(&b, "【検索】%s\n", kwText)
	fmt.Fprintf(&b, "【送料目安（ゆうゆう想定）】%d円\n", ship)
	fmt.Fprintf(&b, "【売価目安(推定)】%s\n\n", prText)
	fmt.Fprintf(&b, "▼メルカリ検索（相場確認）\n%s\n", triage.MercariSearchURL(searchTerm))
	b.WriteString(resultFooter)
	return b.String()
}

// rejectionReply maps an expected user-side condition to its corrective
// text. Any other error is a failure and gets an error tag instead.
func rejectionReply(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, apperrors.ErrMissingImageID):
		return msgMissingImageID, true
	case apperrors.IsRateLimitExceeded(err):
		return msgRateLimited, true
	case apperrors.IsNoSession(err):
		return msgNoSession, true
	}
	return "", false
}
