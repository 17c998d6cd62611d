/*
 * @module service/evaluation/duplicate_detector
 * @description 重复检测器，对候选规则与语料库索引执行四路相似度信号比较并合成重复判定
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 类别粗筛 -> 四路信号计算 -> 权重合成 -> 最优匹配保留 -> 阈值判定
 * @rules 只保留合成分数超过最低生效阈值的最优候选，外部语义提供方失败时降级而非报错
 * @dependencies rulehub-service/service/models, rulehub-service/service/corpus
 * @refs service/evaluation/semantic.go, service/corpus/index.go
 */

package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"rulehub-service/service/corpus"
	"rulehub-service/service/models"
)

// 结果中最多保留的命中规则数
const maxMatchedRules = 5

// DuplicateDetector 重复检测器
type DuplicateDetector struct {
	semantic SemanticProvider // 可选，缺失时使用词法回退
}

// NewDuplicateDetector 创建重复检测器，semantic可为nil
func NewDuplicateDetector(semantic SemanticProvider) *DuplicateDetector {
	return &DuplicateDetector{semantic: semantic}
}

// candidateScore 单个候选的信号计算结果
type candidateScore struct {
	candidate *corpus.IndexedRule
	combined  float64
	degraded  bool
}

// Check 对规则执行重复检测
func (d *DuplicateDetector) Check(ctx context.Context, rule *models.RuleRecord, idx *corpus.Index, cfg *models.EvaluationConfig) (*models.DuplicateCheck, error) {
	if rule == nil {
		return nil, &ValidationError{Field: "rule", Reason: "不能为空"}
	}
	if idx == nil {
		return nil, fmt.Errorf("语料库索引未初始化")
	}

	probe := corpus.IndexRule(rule)
	thresholds := cfg.DuplicateDetection.Thresholds
	weights := cfg.DuplicateDetection.Weights

	// 类别粗筛，将全量四路比较限定在同类候选内
	candidates := idx.Candidates(rule)

	var scored []candidateScore
	anyDegraded := false
	for _, candidate := range candidates {
		if candidate.Rule.ID == rule.ID && candidate.Rule.ID != "" {
			// 与语料库中的自身比较没有意义
			continue
		}

		select {
		case <-ctx.Done():
			return nil, &ComputationError{Phase: models.PhaseDuplicate, Err: ctx.Err()}
		default:
		}

		exact := exactSimilarity(probe, candidate)
		semantic, degraded := d.semanticSimilarity(ctx, probe, candidate)
		structural := structuralSimilarity(rule, candidate.Rule, probe, candidate)
		content := contentSimilarity(probe, candidate)

		combined := exact*weights.Exact +
			semantic*weights.Semantic +
			structural*weights.Structural +
			content*weights.Content

		anyDegraded = anyDegraded || degraded

		// 低于最低生效阈值的候选直接丢弃
		if combined < thresholds.Warning {
			continue
		}
		scored = append(scored, candidateScore{candidate: candidate, combined: combined, degraded: degraded})
	}

	return d.buildCheck(scored, anyDegraded, thresholds), nil
}

// buildCheck 从候选得分构建检测结果，仅保留最优命中
func (d *DuplicateDetector) buildCheck(scored []candidateScore, degraded bool, thresholds models.DuplicateThresholds) *models.DuplicateCheck {
	check := &models.DuplicateCheck{
		DuplicateType: models.DuplicateTypeNone,
		Confidence:    d.baseConfidence(degraded),
	}

	if len(scored) == 0 {
		check.Explanation = "语料库中未发现相似规则"
		return check
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].combined > scored[j].combined
	})
	if len(scored) > maxMatchedRules {
		scored = scored[:maxMatchedRules]
	}

	for _, item := range scored {
		check.MatchedRules = append(check.MatchedRules, models.MatchedRule{
			RuleID:     item.candidate.Rule.ID,
			Title:      item.candidate.Rule.Title,
			Similarity: round4(item.combined),
		})
	}

	best := scored[0]
	check.Similarity = round4(best.combined)
	check.DuplicateType = resolveDuplicateType(best.combined, thresholds)
	check.IsDuplicate = best.combined >= thresholds.Structural
	check.Explanation = fmt.Sprintf("与规则 %s 的合成相似度为 %.2f (%s)",
		best.candidate.Rule.ID, best.combined, check.DuplicateType)

	return check
}

// baseConfidence 检测置信度：词法回退时降低
func (d *DuplicateDetector) baseConfidence(degraded bool) float64 {
	if d.semantic == nil || degraded {
		return confidenceLexicalOnly
	}
	return confidenceWithProvider
}

// resolveDuplicateType 合成分数清除的最高严重程度阈值
func resolveDuplicateType(combined float64, thresholds models.DuplicateThresholds) models.DuplicateType {
	switch {
	case combined >= thresholds.Exact:
		return models.DuplicateTypeExact
	case combined >= thresholds.Semantic:
		return models.DuplicateTypeSemantic
	case combined >= thresholds.Structural:
		return models.DuplicateTypeStructural
	case combined >= thresholds.Warning:
		return models.DuplicateTypeWarning
	default:
		return models.DuplicateTypeNone
	}
}

// exactSimilarity 标题+描述归一化文本的相等/近似相等程度
func exactSimilarity(probe, candidate *corpus.IndexedRule) float64 {
	// 双方文本皆空视为不可比较，而非相同
	if probe.NormTitle == "" && probe.NormDescription == "" {
		return 0.0
	}
	if probe.NormTitle == candidate.NormTitle && probe.NormDescription == candidate.NormDescription {
		return 1.0
	}
	if len(probe.TextBigrams) == 0 || len(candidate.TextBigrams) == 0 {
		return 0.0
	}
	return corpus.DiceCoefficient(probe.TextBigrams, candidate.TextBigrams)
}

// semanticSimilarity 语义相似度，提供方失败时回退词法并标记降级
func (d *DuplicateDetector) semanticSimilarity(ctx context.Context, probe, candidate *corpus.IndexedRule) (float64, bool) {
	probeText := probe.NormTitle + " " + probe.NormDescription
	candidateText := candidate.NormTitle + " " + candidate.NormDescription

	if d.semantic != nil {
		similarity, err := d.semantic.Similarity(ctx, probeText, candidateText)
		if err == nil {
			return clampUnit(similarity), false
		}
		slog.Warn("语义相似度提供方调用失败，回退词法比较",
			"provider", d.semantic.Name(), "error", err)
	}

	return corpus.JaccardSimilarity(probe.TextTokens, candidate.TextTokens), d.semantic != nil
}

// structuralSimilarity 类别、严重程度与模式形状的吻合程度
func structuralSimilarity(rule, candidateRule *models.RuleRecord, probe, candidate *corpus.IndexedRule) float64 {
	var score float64

	if rule.Category != "" && rule.Category == candidateRule.Category {
		score += 0.45
	}
	if rule.Severity != "" && rule.Severity == candidateRule.Severity {
		score += 0.30
	}

	if probe.PatternSignature != "" && probe.PatternSignature == candidate.PatternSignature {
		score += 0.25
	} else if probe.PatternSignature != "" && candidate.PatternSignature != "" {
		score += 0.25 * corpus.JaccardSimilarity(
			tokenSet(probe.PatternSignature), tokenSet(candidate.PatternSignature))
	}

	return clampUnit(score)
}

// contentSimilarity 标签与元数据键的重合程度
// 双方都未声明标签/元数据时视为吻合，避免完全相同但无标签的副本被漏判
func contentSimilarity(probe, candidate *corpus.IndexedRule) float64 {
	tagScore := setAgreement(probe.TagSet, candidate.TagSet)
	metaScore := setAgreement(probe.MetadataKeys, candidate.MetadataKeys)
	return clampUnit(0.7*tagScore + 0.3*metaScore)
}

func setAgreement(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	return corpus.JaccardSimilarity(a, b)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.Fields(text) {
		set[field] = struct{}{}
	}
	return set
}

func clampUnit(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func round4(value float64) float64 {
	return float64(int(value*10000+0.5)) / 10000
}
