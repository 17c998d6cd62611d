/*
 * @module service/evaluation/quality_assessor
 * @description 规则质量评估器，沿五个独立维度打分并按配置权重合成总分
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 维度启发式打分 -> 加权合成 -> 等级判定 -> 问题与建议生成
 * @rules Score是纯函数：相同规则与配置必须产生相同结果，非法输入返回零分而非抛出异常
 * @dependencies rulehub-service/service/models, rulehub-service/service/corpus, github.com/spf13/cast
 * @refs service/evaluation/batch_coordinator.go
 */

package evaluation

import (
	"fmt"
	"strings"

	"rulehub-service/service/corpus"
	"rulehub-service/service/models"

	"github.com/spf13/cast"
)

// 维度得分低于该值时生成对应问题项
const dimensionIssueThreshold = 60.0

// 各维度的改进建议，低分时附加到评估结果
var dimensionSuggestions = map[string]string{
	"completeness": "补全规则标题、描述、SQL模式和正反示例",
	"practicality": "补充具体可执行的示例和修复建议元数据",
	"generality":   "声明规则适用的方言/变体范围，补充标签",
	"consistency":  "检查类别与严重程度设置是否匹配，标题与描述应当呼应",
	"accuracy":     "收窄SQL模式的匹配范围，避免过度宽泛的匹配器",
}

// QualityAssessor 质量评估器，无内部状态
type QualityAssessor struct{}

// NewQualityAssessor 创建质量评估器实例
func NewQualityAssessor() *QualityAssessor {
	return &QualityAssessor{}
}

// Score 对规则进行多维度质量评估
// 纯函数：结果仅由rule与cfg决定，非法输入返回零分结果
func (a *QualityAssessor) Score(rule *models.RuleRecord, cfg *models.EvaluationConfig) *models.QualityEvaluation {
	if rule == nil {
		return zeroEvaluation("规则为空")
	}
	if strings.TrimSpace(rule.ID) == "" {
		return zeroEvaluation("规则缺少ID")
	}

	dimensions := models.DimensionScores{
		Completeness: scoreCompleteness(rule),
		Practicality: scorePracticality(rule),
		Generality:   scoreGenerality(rule),
		Consistency:  scoreConsistency(rule),
		Accuracy:     scoreAccuracy(rule),
	}

	weights := cfg.QualityAssessment.DimensionWeights
	total := dimensions.Accuracy*weights.Accuracy +
		dimensions.Practicality*weights.Practicality +
		dimensions.Completeness*weights.Completeness +
		dimensions.Generality*weights.Generality +
		dimensions.Consistency*weights.Consistency
	total = clampScore(total)

	evaluation := &models.QualityEvaluation{
		QualityScore:    total,
		QualityLevel:    resolveLevel(total, cfg.QualityAssessment.Thresholds),
		DimensionScores: dimensions,
		ShouldKeep:      total >= cfg.QualityAssessment.MinKeepScore,
	}

	collectIssues(evaluation, dimensions)
	return evaluation
}

// zeroEvaluation 非法输入的零分结果
func zeroEvaluation(reason string) *models.QualityEvaluation {
	return &models.QualityEvaluation{
		QualityScore: 0,
		QualityLevel: models.QualityLevelPoor,
		ShouldKeep:   false,
		Issues:       []string{reason},
		Suggestions:  []string{"请提供完整的规则数据后重新提交"},
	}
}

// resolveLevel 按阈值从高到低判定质量等级，首个命中生效
func resolveLevel(score float64, thresholds models.QualityThresholds) models.QualityLevel {
	switch {
	case score >= thresholds.Excellent:
		return models.QualityLevelExcellent
	case score >= thresholds.Good:
		return models.QualityLevelGood
	case score >= thresholds.Fair:
		return models.QualityLevelFair
	default:
		return models.QualityLevelPoor
	}
}

// collectIssues 为低分维度生成问题项和改进建议
func collectIssues(evaluation *models.QualityEvaluation, dimensions models.DimensionScores) {
	checks := []struct {
		name  string
		score float64
	}{
		{"completeness", dimensions.Completeness},
		{"practicality", dimensions.Practicality},
		{"generality", dimensions.Generality},
		{"consistency", dimensions.Consistency},
		{"accuracy", dimensions.Accuracy},
	}

	for _, check := range checks {
		if check.score < dimensionIssueThreshold {
			evaluation.Issues = append(evaluation.Issues,
				fmt.Sprintf("维度 %s 得分 %.1f 低于 %.0f", check.name, check.score, dimensionIssueThreshold))
			evaluation.Suggestions = append(evaluation.Suggestions, dimensionSuggestions[check.name])
		}
	}
}

// scoreCompleteness 完整性：必要字段与示例的齐备程度
func scoreCompleteness(rule *models.RuleRecord) float64 {
	var score float64

	if strings.TrimSpace(rule.Title) != "" {
		score += 20
		if wordCount(rule.Title) >= 5 {
			score += 5
		}
	}
	if strings.TrimSpace(rule.Description) != "" {
		score += 20
		if wordCount(rule.Description) >= 20 {
			score += 10
		}
	}
	if strings.TrimSpace(rule.SQLPattern) != "" {
		score += 15
	}
	if len(rule.Examples.Bad) > 0 {
		score += 10
	}
	if len(rule.Examples.Good) > 0 {
		score += 10
	}
	if len(rule.Tags) > 0 {
		score += 5
	}
	if len(rule.Metadata) > 0 {
		score += 5
	}
	if models.IsValidCategory(rule.Category) && models.IsValidSeverity(rule.Severity) {
		score += 5
	}

	return clampScore(score)
}

// scorePracticality 实用性：示例的具体程度与可执行的修复信息
func scorePracticality(rule *models.RuleRecord) float64 {
	var score float64

	if len(rule.Examples.Bad) > 0 {
		score += 25
		if len(rule.Examples.Bad) >= 2 {
			score += 10
		}
	}
	if len(rule.Examples.Good) > 0 {
		score += 25
		if len(rule.Examples.Good) >= 2 {
			score += 10
		}
	}
	if strings.TrimSpace(rule.SQLPattern) != "" {
		score += 10
	}
	if hasActionableMetadata(rule.Metadata) {
		score += 20
	} else if len(rule.Metadata) > 0 {
		score += 10
	}

	return clampScore(score)
}

// hasActionableMetadata 元数据中是否包含可执行的修复信息
func hasActionableMetadata(metadata models.JSONB) bool {
	for _, key := range []string{"suggestion", "fix", "recommendation", "reference"} {
		if raw, ok := metadata[key]; ok && strings.TrimSpace(cast.ToString(raw)) != "" {
			return true
		}
	}
	return false
}

// scoreGenerality 通用性：声明的适用范围广度
func scoreGenerality(rule *models.RuleRecord) float64 {
	var score float64

	if strings.TrimSpace(rule.SQLPattern) != "" {
		score += 30
	} else {
		score += 10
	}

	variants := declaredVariants(rule.Metadata)
	switch {
	case len(variants) >= 3:
		score += 35
	case len(variants) >= 1:
		score += 20
	}

	switch {
	case len(rule.Tags) >= 3:
		score += 20
	case len(rule.Tags) >= 1:
		score += 10
	}

	if len(rule.Examples.Good) >= 2 {
		score += 15
	}

	return clampScore(score)
}

// declaredVariants 从元数据提取声明的适用方言/变体列表
func declaredVariants(metadata models.JSONB) []string {
	for _, key := range []string{"dialects", "variants", "applies_to"} {
		if raw, ok := metadata[key]; ok {
			if values := cast.ToStringSlice(raw); len(values) > 0 {
				return values
			}
		}
	}
	return nil
}

// scoreConsistency 一致性：跨字段的相互印证程度
func scoreConsistency(rule *models.RuleRecord) float64 {
	score := 100.0

	titleEmpty := strings.TrimSpace(rule.Title) == ""
	descEmpty := strings.TrimSpace(rule.Description) == ""
	if titleEmpty {
		score -= 35
	}
	if descEmpty {
		score -= 25
	}

	if !models.IsValidCategory(rule.Category) {
		score -= 30
	}
	if !models.IsValidSeverity(rule.Severity) {
		score -= 20
	}

	// 类别与严重程度的惯例匹配：安全类规则不应标记为低危
	if rule.Category == models.RuleCategorySecurity && rule.Severity == models.RuleSeverityLow {
		score -= 15
	}
	if rule.Category == models.RuleCategoryStandards && rule.Severity == models.RuleSeverityCritical {
		score -= 10
	}

	// 标题与描述应当有词元呼应
	if !titleEmpty && !descEmpty {
		titleTokens := corpus.Tokenize(rule.Title)
		descTokens := corpus.Tokenize(rule.Description)
		if len(titleTokens) > 0 && overlapCount(titleTokens, descTokens) == 0 {
			score -= 20
		}
	}

	// 标签重复视为不一致
	if hasDuplicateTags(rule.Tags) {
		score -= 10
	}

	return clampScore(score)
}

// scoreAccuracy 准确性：SQL模式的特异度，惩罚过度宽泛的匹配器
func scoreAccuracy(rule *models.RuleRecord) float64 {
	pattern := strings.TrimSpace(rule.SQLPattern)
	if pattern == "" {
		return 20
	}

	// 纯通配模式几乎不携带信息
	bare := strings.Trim(pattern, " .*%^$")
	if bare == "" {
		return 5
	}

	score := 50.0
	tokens := corpus.Tokenize(pattern)
	switch {
	case len(tokens) >= 8:
		score += 30
	case len(tokens) >= 4:
		score += 20
	case len(tokens) >= 2:
		score += 10
	}

	lowered := strings.ToLower(pattern)
	if strings.Contains(lowered, "where") || strings.Contains(lowered, "join") ||
		strings.Contains(lowered, "group by") {
		score += 10
	}
	if len(pattern) >= 40 {
		score += 10
	}

	return clampScore(score)
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func overlapCount(a, b map[string]struct{}) int {
	count := 0
	for token := range a {
		if _, ok := b[token]; ok {
			count++
		}
	}
	return count
}

func hasDuplicateTags(tags []string) bool {
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		key := strings.ToLower(strings.TrimSpace(tag))
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
