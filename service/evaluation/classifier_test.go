/*
 * @module service/evaluation/classifier_test
 * @description 分类决策器单元测试，覆盖五类归属、判定优先级和边界分数
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 构造评估与检测结果 -> 分类 -> 断言类别与归档桶
 * @rules 分类是全函数：任何输入组合都必须得到确定类别
 * @dependencies github.com/stretchr/testify
 * @refs service/evaluation/classifier.go
 */

package evaluation

import (
	"testing"

	"rulehub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qualityWithScore(score float64) *models.QualityEvaluation {
	return &models.QualityEvaluation{
		QualityScore: score,
		ShouldKeep:   score >= 40,
	}
}

func noDuplicate() *models.DuplicateCheck {
	return &models.DuplicateCheck{
		DuplicateType: models.DuplicateTypeNone,
		Confidence:    confidenceLexicalOnly,
	}
}

func exactDuplicate() *models.DuplicateCheck {
	return &models.DuplicateCheck{
		IsDuplicate:   true,
		Similarity:    0.98,
		DuplicateType: models.DuplicateTypeExact,
		Confidence:    confidenceWithProvider,
		MatchedRules:  []models.MatchedRule{{RuleID: "corpus-001", Similarity: 0.98}},
	}
}

func TestClassifierCategories(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()

	tests := []struct {
		name      string
		quality   *models.QualityEvaluation
		duplicate *models.DuplicateCheck
		expected  models.ClassificationCategory
	}{
		{"高分非重复进入approved", qualityWithScore(92), noDuplicate(), models.CategoryApproved},
		{"低于最低质量线进入low_quality", qualityWithScore(25), noDuplicate(), models.CategoryLowQuality},
		{"精确重复进入duplicate", qualityWithScore(92), exactDuplicate(), models.CategoryDuplicate},
		{"中间分数进入manual_review", qualityWithScore(55), noDuplicate(), models.CategoryManualReview},
		{"边界带内的高分进入manual_review", qualityWithScore(75), noDuplicate(), models.CategoryManualReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classification := classifier.Classify(tt.quality, tt.duplicate, cfg)
			require.NotNil(t, classification)
			assert.Equal(t, tt.expected, classification.Category)
			assert.NotEmpty(t, classification.Reason)
			assert.Equal(t, categoryBuckets[tt.expected], classification.TargetBucket)
		})
	}
}

func TestClassifierExactDuplicatePrecedesLowQuality(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()

	// 既是精确重复又低于质量线：重复判定优先，语料库指向更有价值
	classification := classifier.Classify(qualityWithScore(20), exactDuplicate(), cfg)
	assert.Equal(t, models.CategoryDuplicate, classification.Category)
}

func TestClassifierNonExactDuplicateGoesToReview(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()

	structural := &models.DuplicateCheck{
		IsDuplicate:   true,
		Similarity:    0.78,
		DuplicateType: models.DuplicateTypeStructural,
		Confidence:    confidenceWithProvider,
	}

	// 非精确的重复命中交人工确认，不自动拒绝
	classification := classifier.Classify(qualityWithScore(92), structural, cfg)
	assert.Equal(t, models.CategoryManualReview, classification.Category)
}

func TestClassifierLowConfidenceGoesToReview(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()

	lowConfidence := noDuplicate()
	lowConfidence.Confidence = 0.3

	classification := classifier.Classify(qualityWithScore(92), lowConfidence, cfg)
	assert.Equal(t, models.CategoryManualReview, classification.Category)
}

func TestClassifierBorderlineBandBoundaries(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()
	approval := cfg.Classification.ApprovalScore
	band := cfg.Classification.ManualReviewTriggers.BorderlineBand

	// 边界带下沿进入人工复核
	atFloor := classifier.Classify(qualityWithScore(approval-band), noDuplicate(), cfg)
	assert.Equal(t, models.CategoryManualReview, atFloor.Category)

	// 达到批准线直接批准
	atApproval := classifier.Classify(qualityWithScore(approval), noDuplicate(), cfg)
	assert.Equal(t, models.CategoryApproved, atApproval.Category)

	// 边界带下方回到普通人工复核
	belowBand := classifier.Classify(qualityWithScore(approval-band-1), noDuplicate(), cfg)
	assert.Equal(t, models.CategoryManualReview, belowBand.Category)
}

func TestClassifierNilInputsRejected(t *testing.T) {
	classifier := NewClassifier()
	cfg := models.DefaultEvaluationConfig()

	for _, tc := range []struct {
		quality   *models.QualityEvaluation
		duplicate *models.DuplicateCheck
	}{
		{nil, noDuplicate()},
		{qualityWithScore(92), nil},
		{nil, nil},
	} {
		classification := classifier.Classify(tc.quality, tc.duplicate, cfg)
		require.NotNil(t, classification)
		assert.Equal(t, models.CategoryRejected, classification.Category)
	}
}

func TestClassifierBucketMapping(t *testing.T) {
	// 每个类别都有非空归档桶
	for _, category := range []models.ClassificationCategory{
		models.CategoryApproved,
		models.CategoryManualReview,
		models.CategoryLowQuality,
		models.CategoryDuplicate,
		models.CategoryRejected,
	} {
		assert.NotEmpty(t, categoryBuckets[category])
	}
}
