/*
 * @module service/evaluation/quality_assessor_test
 * @description 质量评估器单元测试，覆盖纯函数性质、维度边界和典型高低分规则
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 构造规则 -> 评估 -> 断言分数与等级
 * @rules 测试不依赖外部资源，全部在内存中完成
 * @dependencies github.com/stretchr/testify
 * @refs service/evaluation/quality_assessor.go
 */

package evaluation

import (
	"testing"

	"rulehub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wellFormedRule 字段齐备的高质量规则样本
func wellFormedRule() *models.RuleRecord {
	return &models.RuleRecord{
		ID:          "rule-well-formed",
		Title:       "Avoid select star in production order queries",
		Description: "Using select star in order queries pulls every column across the wire, breaks covering index usage and makes schema changes risky. List the columns the query actually needs so the optimizer can use a covering index.",
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityMedium,
		SQLPattern:  "select \\* from orders where created_at > ? and status = ? order by created_at",
		Examples: models.RuleExamples{
			Bad:  []string{"SELECT * FROM orders WHERE status = 'paid'", "SELECT * FROM orders o JOIN users u ON o.user_id = u.id"},
			Good: []string{"SELECT id, total FROM orders WHERE status = 'paid'", "SELECT o.id, u.name FROM orders o JOIN users u ON o.user_id = u.id"},
		},
		Tags: []string{"performance", "select", "index"},
		Metadata: models.JSONB{
			"suggestion": "列出查询真正需要的列",
			"dialects":   []string{"mysql", "postgresql", "oceanbase"},
		},
	}
}

// skeletonRule 仅有ID和简单模式的低质量规则样本
func skeletonRule() *models.RuleRecord {
	return &models.RuleRecord{
		ID:         "rule-skeleton",
		SQLPattern: "select *",
	}
}

func TestQualityAssessorWellFormedRule(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	evaluation := assessor.Score(wellFormedRule(), cfg)
	require.NotNil(t, evaluation)

	// 字段齐备的规则应当获得高分并建议入库
	assert.Greater(t, evaluation.QualityScore, 80.0)
	assert.True(t, evaluation.ShouldKeep)
	assert.Contains(t, []models.QualityLevel{models.QualityLevelExcellent, models.QualityLevelGood}, evaluation.QualityLevel)
	assert.Empty(t, evaluation.Issues)
}

func TestQualityAssessorSkeletonRule(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	evaluation := assessor.Score(skeletonRule(), cfg)
	require.NotNil(t, evaluation)

	// 缺少标题描述的骨架规则应当低于保留线
	assert.Less(t, evaluation.QualityScore, 40.0)
	assert.False(t, evaluation.ShouldKeep)
	assert.Equal(t, models.QualityLevelPoor, evaluation.QualityLevel)
	assert.NotEmpty(t, evaluation.Issues)
	assert.NotEmpty(t, evaluation.Suggestions)
}

func TestQualityAssessorDeterministic(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()
	rule := wellFormedRule()

	first := assessor.Score(rule, cfg)
	for i := 0; i < 10; i++ {
		again := assessor.Score(rule, cfg)
		assert.Equal(t, first.QualityScore, again.QualityScore)
		assert.Equal(t, first.DimensionScores, again.DimensionScores)
		assert.Equal(t, first.QualityLevel, again.QualityLevel)
	}
}

func TestQualityAssessorInvalidInput(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	// nil和缺ID的规则返回零分结果而非panic
	for _, rule := range []*models.RuleRecord{nil, {Title: "no id"}, {ID: "   "}} {
		evaluation := assessor.Score(rule, cfg)
		require.NotNil(t, evaluation)
		assert.Zero(t, evaluation.QualityScore)
		assert.Equal(t, models.QualityLevelPoor, evaluation.QualityLevel)
		assert.False(t, evaluation.ShouldKeep)
		assert.NotEmpty(t, evaluation.Issues)
	}
}

func TestQualityAssessorExamplesImproveScore(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	base := &models.RuleRecord{
		ID:          "rule-monotonic",
		Title:       "Index missing on filter column",
		Description: "Queries filtering on an unindexed column trigger full table scans under load, add an index covering the filter column",
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityHigh,
		SQLPattern:  "select ... from ... where unindexed_col = ?",
	}
	withExamples := *base
	withExamples.Examples = models.RuleExamples{
		Bad:  []string{"SELECT id FROM logs WHERE trace_id = 'abc'"},
		Good: []string{"CREATE INDEX idx_logs_trace ON logs(trace_id)"},
	}

	plain := assessor.Score(base, cfg)
	enriched := assessor.Score(&withExamples, cfg)

	// 补充示例只会提高分数，不会降低
	assert.GreaterOrEqual(t, enriched.QualityScore, plain.QualityScore)
	assert.Greater(t, enriched.DimensionScores.Practicality, plain.DimensionScores.Practicality)
	assert.Greater(t, enriched.DimensionScores.Completeness, plain.DimensionScores.Completeness)
}

func TestQualityAssessorDimensionBounds(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	rules := []*models.RuleRecord{
		wellFormedRule(),
		skeletonRule(),
		{ID: "r-cat", Category: "nonsense", Severity: "whatever", Title: "x", Description: "y"},
		{ID: "r-sec-low", Category: models.RuleCategorySecurity, Severity: models.RuleSeverityLow, Title: "SQL injection via concatenation", Description: "Concatenated SQL input enables injection"},
	}

	for _, rule := range rules {
		evaluation := assessor.Score(rule, cfg)
		dims := evaluation.DimensionScores
		for name, score := range map[string]float64{
			"accuracy":     dims.Accuracy,
			"practicality": dims.Practicality,
			"completeness": dims.Completeness,
			"generality":   dims.Generality,
			"consistency":  dims.Consistency,
		} {
			assert.GreaterOrEqual(t, score, 0.0, "维度 %s 越下界", name)
			assert.LessOrEqual(t, score, 100.0, "维度 %s 越上界", name)
		}
		assert.GreaterOrEqual(t, evaluation.QualityScore, 0.0)
		assert.LessOrEqual(t, evaluation.QualityScore, 100.0)
	}
}

func TestQualityAssessorConsistencyPenalties(t *testing.T) {
	assessor := NewQualityAssessor()
	cfg := models.DefaultEvaluationConfig()

	matched := &models.RuleRecord{
		ID:          "r-matched",
		Title:       "Implicit type conversion on join keys",
		Description: "Joining columns of different types forces implicit conversion and disables index usage on the join keys",
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityHigh,
	}
	mismatched := *matched
	mismatched.ID = "r-mismatched"
	mismatched.Category = models.RuleCategorySecurity
	mismatched.Severity = models.RuleSeverityLow

	base := assessor.Score(matched, cfg)
	penalized := assessor.Score(&mismatched, cfg)

	// 安全类低危组合触发一致性扣分
	assert.Less(t, penalized.DimensionScores.Consistency, base.DimensionScores.Consistency)
}

func TestQualityAssessorWeightsShiftTotal(t *testing.T) {
	assessor := NewQualityAssessor()
	rule := skeletonRule()

	balanced := models.DefaultEvaluationConfig()

	// 权重全部压到accuracy，骨架规则总分随之贴近accuracy维度分
	accuracyHeavy := models.DefaultEvaluationConfig()
	accuracyHeavy.QualityAssessment.DimensionWeights = models.DimensionWeights{
		Accuracy: 1.0,
	}

	balancedEval := assessor.Score(rule, balanced)
	heavyEval := assessor.Score(rule, accuracyHeavy)

	assert.Equal(t, heavyEval.DimensionScores.Accuracy, heavyEval.QualityScore)
	assert.NotEqual(t, balancedEval.QualityScore, heavyEval.QualityScore)
}
