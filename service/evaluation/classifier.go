/*
 * @module service/evaluation/classifier
 * @description 分类决策器，将质量评估与重复检测信号映射为唯一的处置类别
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 精确重复 -> 低质量 -> 人工复核触发 -> 自动通过 -> 兜底人工复核
 * @rules Classify是纯函数，决策顺序固定且首个命中生效；任何输入组合恰好映射到一个类别
 * @dependencies rulehub-service/service/models
 * @refs service/evaluation/batch_coordinator.go
 */

package evaluation

import (
	"fmt"

	"rulehub-service/service/models"
)

// 各处置类别对应的逻辑归档桶，文件落盘布局由外部协作方决定
var categoryBuckets = map[models.ClassificationCategory]string{
	models.CategoryApproved:     "rules/approved",
	models.CategoryManualReview: "review/pending",
	models.CategoryLowQuality:   "rejected/low_quality",
	models.CategoryDuplicate:    "rejected/duplicate",
	models.CategoryRejected:     "rejected/failed",
}

// Classifier 分类决策器，无内部状态
type Classifier struct{}

// NewClassifier 创建分类决策器实例
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify 分类决策，按固定顺序测试条件，首个命中生效
//
// 决策顺序：精确重复优先于低质量淘汰——两者同时成立时按重复处理，
// 避免同一规则以"低质量"名义反复重新提交绕过语料库去重
func (c *Classifier) Classify(quality *models.QualityEvaluation, duplicate *models.DuplicateCheck, cfg *models.EvaluationConfig) *models.Classification {
	if quality == nil || duplicate == nil {
		return newClassification(models.CategoryRejected, "评估信号缺失，无法决策")
	}

	thresholds := cfg.Classification

	// 1. 精确重复直接淘汰，防止语料库无界增长
	if duplicate.IsDuplicate && duplicate.DuplicateType == models.DuplicateTypeExact {
		return newClassification(models.CategoryDuplicate,
			fmt.Sprintf("与已入库规则精确重复(相似度 %.2f)", duplicate.Similarity))
	}

	// 2. 低于质量底线直接淘汰
	if quality.QualityScore < thresholds.MinQualityScore {
		return newClassification(models.CategoryLowQuality,
			fmt.Sprintf("质量得分 %.1f 低于底线 %.1f", quality.QualityScore, thresholds.MinQualityScore))
	}

	// 3. 语义/结构重复、临界质量带或低检测置信度转人工复核
	if duplicate.IsDuplicate {
		return newClassification(models.CategoryManualReview,
			fmt.Sprintf("检测到%s级别重复(相似度 %.2f)，需人工确认", duplicate.DuplicateType, duplicate.Similarity))
	}
	borderlineFloor := thresholds.ApprovalScore - thresholds.ManualReviewTriggers.BorderlineBand
	if quality.QualityScore < thresholds.ApprovalScore && quality.QualityScore >= borderlineFloor {
		return newClassification(models.CategoryManualReview,
			fmt.Sprintf("质量得分 %.1f 位于临界带 [%.1f, %.1f)，需人工确认",
				quality.QualityScore, borderlineFloor, thresholds.ApprovalScore))
	}
	if duplicate.Confidence < thresholds.ManualReviewTriggers.MinDetectorConfidence {
		return newClassification(models.CategoryManualReview,
			fmt.Sprintf("重复检测置信度 %.2f 过低，需人工确认", duplicate.Confidence))
	}

	// 4. 高质量且无重复信号自动通过
	if quality.QualityScore >= thresholds.ApprovalScore {
		return newClassification(models.CategoryApproved,
			fmt.Sprintf("质量得分 %.1f 达到通过线且无重复信号", quality.QualityScore))
	}

	// 5. 兜底：宁可人工复核，不自动通过或自动丢弃
	return newClassification(models.CategoryManualReview, "信号不足以自动决策，转人工复核")
}

func newClassification(category models.ClassificationCategory, reason string) *models.Classification {
	return &models.Classification{
		Category:     category,
		Reason:       reason,
		TargetBucket: categoryBuckets[category],
	}
}
