/*
 * @module service/evaluation/semantic
 * @description 语义相似度能力抽象，支持注入外部高保真提供方，缺省回退到词元重合度计算
 * @architecture 适配器模式 - 可选外部能力注入
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 提供方可用 -> 外部语义相似度；提供方缺失/失败 -> 词法回退并降低置信度
 * @rules 提供方失败绝不中断流水线，只降级信号质量
 * @dependencies 无
 * @refs service/evaluation/duplicate_detector.go
 */

package evaluation

import (
	"context"
)

// 重复检测置信度：外部语义提供方可用时为高置信度，词法回退时降低
const (
	confidenceWithProvider = 0.90
	confidenceLexicalOnly  = 0.65
)

// SemanticProvider 语义相似度提供方，由外部协作方注入（如向量检索服务）
type SemanticProvider interface {
	// Name 提供方标识，用于日志和健康上报
	Name() string
	// Similarity 计算两段文本的语义相似度，取值 [0,1]
	Similarity(ctx context.Context, a, b string) (float64, error)
}
