/*
 * @module service/corpus/normalize
 * @description 文本归一化与特征提取工具，为重复检测提供统一的文本、词元和模式签名表示
 * @architecture 分层架构 - 语料库服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 原始文本 -> Unicode归一化 -> 小写折叠 -> 空白压缩 -> 词元/签名
 * @rules 归一化必须是确定性的，相同输入永远产生相同输出
 * @dependencies golang.org/x/text/unicode/norm, golang.org/x/text/cases
 * @refs service/corpus/index.go, service/evaluation/duplicate_detector.go
 */

package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	tokenPattern      = regexp.MustCompile(`[a-z0-9_\p{Han}]+`)
	quotedLiteral     = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	numberLiteral     = regexp.MustCompile(`\b\d+(\.\d+)?\b`)

	lowerCaser = cases.Lower(language.Und)

	// 词元化时忽略的常见停用词
	stopwords = map[string]struct{}{
		"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "be": {},
		"of": {}, "in": {}, "on": {}, "for": {}, "to": {}, "and": {}, "or": {},
		"with": {}, "by": {}, "when": {}, "that": {}, "this": {}, "it": {},
		"should": {}, "must": {}, "not": {}, "do": {}, "does": {},
	}
)

// NormalizeText 文本归一化：NFKC归一化、小写折叠、空白压缩
func NormalizeText(text string) string {
	normalized := norm.NFKC.String(text)
	normalized = lowerCaser.String(normalized)
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// Tokenize 归一化后切分词元并剔除停用词，返回词元集合
func Tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenPattern.FindAllString(NormalizeText(text), -1) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		if len(tok) < 2 {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

// PatternSignature 提取SQL模式形状签名：剔除字面量后归一化
// 仅保留模式结构，使字面量不同但形状相同的模式得到相同签名
func PatternSignature(pattern string) string {
	sig := quotedLiteral.ReplaceAllString(pattern, "?")
	sig = numberLiteral.ReplaceAllString(sig, "?")
	return NormalizeText(sig)
}

// Bigrams 提取归一化文本的字符二元组集合，用于近似相等比较
func Bigrams(text string) map[string]struct{} {
	normalized := NormalizeText(text)
	grams := make(map[string]struct{})
	runes := []rune(normalized)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])] = struct{}{}
	}
	return grams
}

// DiceCoefficient 两个集合的Dice系数，空集之间视为完全相似
func DiceCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	overlap := 0
	for item := range a {
		if _, ok := b[item]; ok {
			overlap++
		}
	}
	return 2.0 * float64(overlap) / float64(len(a)+len(b))
}

// JaccardSimilarity 两个集合的Jaccard相似度，双空集视为0
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	overlap := 0
	for item := range a {
		if _, ok := b[item]; ok {
			overlap++
		}
	}
	union := len(a) + len(b) - overlap
	if union == 0 {
		return 0.0
	}
	return float64(overlap) / float64(union)
}
