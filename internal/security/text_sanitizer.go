// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のプレーンテキストからHTMLを取り除く。
// Todo本文とプロフィール名の保存前に使用する。
type TextSanitizer interface {
	// Clean はタグをすべて除去し、前後の空白を落とした文字列を返す。
	Clean(s string) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicy（全タグ除去）のTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxCleanPasses は実体参照の多重エンコードを解く回数の上限。
const maxCleanPasses = 8

// Clean はタグをすべて除去する。
// 保存値はHTMLではなくテキストのため実体参照は元の文字に戻すが、
// 戻した結果が再びタグにならないよう、値が変わらなくなるまで除去と復元を繰り返す。
func (s *textSanitizer) Clean(in string) string {
	cur := strings.TrimSpace(in)
	for i := 0; i < maxCleanPasses; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(cur)))
		if next == cur {
			return cur
		}
		cur = next
	}
	// 上限まで収束しない入力はエスケープしたまま返す
	return strings.TrimSpace(s.policy.Sanitize(cur))
}
