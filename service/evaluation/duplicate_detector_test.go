/*
 * @module service/evaluation/duplicate_detector_test
 * @description 重复检测器单元测试，覆盖精确重复、改写重复、非重复、类别粗筛和语义提供方降级
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 构建语料库索引 -> 提交探测规则 -> 断言判定与置信度
 * @rules 测试不依赖外部资源，语义提供方使用内存桩
 * @dependencies github.com/stretchr/testify
 * @refs service/evaluation/duplicate_detector.go
 */

package evaluation

import (
	"context"
	"errors"
	"testing"

	"rulehub-service/service/corpus"
	"rulehub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSemanticProvider 测试用语义提供方桩
type stubSemanticProvider struct {
	similarity float64
	err        error
}

func (p *stubSemanticProvider) Name() string { return "stub" }

func (p *stubSemanticProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	return p.similarity, p.err
}

func corpusRuleFixture() *models.RuleRecord {
	return &models.RuleRecord{
		ID:          "corpus-001",
		Title:       "Avoid select star in order queries",
		Description: "Select star retrieves unnecessary columns and prevents covering index usage in order queries",
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityMedium,
		SQLPattern:  "select * from orders where status = 'paid'",
	}
}

func TestDuplicateDetectorExactCopy(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	// 与语料库规则完全一致但ID不同的副本
	probe := corpusRuleFixture()
	probe.ID = "candidate-001"

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)

	assert.True(t, check.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeExact, check.DuplicateType)
	assert.GreaterOrEqual(t, check.Similarity, cfg.DuplicateDetection.Thresholds.Exact)
	require.NotEmpty(t, check.MatchedRules)
	assert.Equal(t, "corpus-001", check.MatchedRules[0].RuleID)
}

func TestDuplicateDetectorLiteralOnlyVariation(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	// 仅SQL字面量不同的改写副本：模式签名剔除字面量后一致
	probe := corpusRuleFixture()
	probe.ID = "candidate-002"
	probe.SQLPattern = "select * from orders where status = 'shipped'"

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)

	assert.True(t, check.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeExact, check.DuplicateType)
}

func TestDuplicateDetectorUnrelatedRule(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	probe := &models.RuleRecord{
		ID:          "candidate-003",
		Title:       "Limit transaction scope around batch updates",
		Description: "Long running transactions around batch updates hold locks and block concurrent writers",
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityHigh,
		SQLPattern:  "update big_table set flag = ? -- batched",
	}

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)

	assert.False(t, check.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeNone, check.DuplicateType)
	assert.Empty(t, check.MatchedRules)
}

func TestDuplicateDetectorCategoryCoarseFilter(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	// 文本完全一致但类别不同：粗筛后没有候选，不判为重复
	probe := corpusRuleFixture()
	probe.ID = "candidate-004"
	probe.Category = models.RuleCategorySecurity

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)

	assert.False(t, check.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeNone, check.DuplicateType)
}

func TestDuplicateDetectorSelfComparisonSkipped(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	// 语料库中已有的同ID规则不与自身比较
	check, err := detector.Check(context.Background(), corpusRuleFixture(), idx, cfg)
	require.NoError(t, err)

	assert.False(t, check.IsDuplicate)
	assert.Empty(t, check.MatchedRules)
}

func TestDuplicateDetectorConfidenceLexicalFallback(t *testing.T) {
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})
	probe := corpusRuleFixture()
	probe.ID = "candidate-005"

	// 无语义提供方：词法置信度
	lexical := NewDuplicateDetector(nil)
	check, err := lexical.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)
	assert.InDelta(t, confidenceLexicalOnly, check.Confidence, 1e-9)

	// 提供方正常工作：高置信度
	withProvider := NewDuplicateDetector(&stubSemanticProvider{similarity: 0.97})
	check, err = withProvider.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)
	assert.InDelta(t, confidenceWithProvider, check.Confidence, 1e-9)

	// 提供方失败：降级回词法置信度，检测本身不报错
	failing := NewDuplicateDetector(&stubSemanticProvider{err: errors.New("provider unavailable")})
	check, err = failing.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)
	assert.InDelta(t, confidenceLexicalOnly, check.Confidence, 1e-9)
	assert.True(t, check.IsDuplicate)
}

func TestDuplicateDetectorEmptyTextNotExact(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()

	emptyCorpus := &models.RuleRecord{
		ID:       "corpus-empty",
		Category: models.RuleCategoryStandards,
		Severity: models.RuleSeverityLow,
	}
	idx := corpus.BuildIndex([]*models.RuleRecord{emptyCorpus})

	// 双方文本皆空不能误判为精确重复
	probe := &models.RuleRecord{
		ID:       "candidate-empty",
		Category: models.RuleCategoryStandards,
		Severity: models.RuleSeverityLow,
	}

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, models.DuplicateTypeExact, check.DuplicateType)
}

func TestDuplicateDetectorContextCancellation(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()
	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := corpusRuleFixture()
	probe.ID = "candidate-cancel"

	_, err := detector.Check(ctx, probe, idx, cfg)
	require.Error(t, err)

	var compErr *ComputationError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, models.PhaseDuplicate, compErr.Phase)
}

func TestDuplicateDetectorMatchedRulesCapped(t *testing.T) {
	detector := NewDuplicateDetector(nil)
	cfg := models.DefaultEvaluationConfig()

	// 8条几乎一致的语料库规则，命中列表最多保留5条
	var rules []*models.RuleRecord
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"} {
		rule := corpusRuleFixture()
		rule.ID = id
		rules = append(rules, rule)
	}
	idx := corpus.BuildIndex(rules)

	probe := corpusRuleFixture()
	probe.ID = "candidate-capped"

	check, err := detector.Check(context.Background(), probe, idx, cfg)
	require.NoError(t, err)
	assert.True(t, check.IsDuplicate)
	assert.Len(t, check.MatchedRules, maxMatchedRules)
}
