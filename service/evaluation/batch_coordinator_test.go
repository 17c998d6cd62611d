/*
 * @module service/evaluation/batch_coordinator_test
 * @description 批量评估协调器测试，覆盖顺序保持、批内去重、失败隔离、容量上限、缓存与进度回调
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 构造批次 -> 并发评估 -> 按槽位断言结果
 * @rules 并发相关断言只依赖输出顺序与计数，不依赖调度时序
 * @dependencies github.com/stretchr/testify
 * @refs service/evaluation/batch_coordinator.go
 */

package evaluation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rulehub-service/service/corpus"
	"rulehub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(cache ResultCache) *BatchCoordinator {
	return NewBatchCoordinator(NewQualityAssessor(), NewDuplicateDetector(nil), NewClassifier(), cache)
}

func emptyIndex() *corpus.Index {
	return corpus.BuildIndex(nil)
}

// batchRule 生成批次中第i条可评估规则
func batchRule(i int) *models.RuleRecord {
	return &models.RuleRecord{
		ID:          fmt.Sprintf("batch-rule-%03d", i),
		Title:       fmt.Sprintf("Avoid unbounded scan variant %d on archive tables", i),
		Description: fmt.Sprintf("Scanning archive tables without a bound on partition %d reads historical data the query never returns", i),
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityMedium,
		SQLPattern:  fmt.Sprintf("select id from archive_%d where ts < ?", i),
	}
}

func TestBatchPreservesInputOrder(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()

	// 50条规则、并发3：输出必须与输入逐槽对应
	var rules []*models.RuleRecord
	for i := 0; i < 50; i++ {
		rules = append(rules, batchRule(i))
	}

	results, summary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg,
		BatchOptions{Concurrency: 3})
	require.NoError(t, err)
	require.Len(t, results, 50)

	for i, result := range results {
		require.NotNil(t, result, "槽位 %d 缺少结果", i)
		assert.Equal(t, rules[i].ID, result.Rule.ID, "槽位 %d 顺序错位", i)
		require.NotNil(t, result.Classification)
		require.NotNil(t, result.Quality)
	}
	assert.Equal(t, 50, summary.TotalRules)
	assert.Equal(t, 50, summary.ProcessedRules)
	assert.Zero(t, summary.FailedRules)
}

func TestBatchInternalDuplicates(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()

	first := batchRule(1)
	copied := batchRule(1)
	copied.ID = "batch-rule-copy"

	rules := []*models.RuleRecord{first, batchRule(2), copied}

	results, summary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 首个出现者不是重复，后出现的同内容副本判为批内精确重复
	assert.False(t, results[0].Duplicate.IsDuplicate)
	assert.False(t, results[1].Duplicate.IsDuplicate)

	dup := results[2].Duplicate
	require.NotNil(t, dup)
	assert.True(t, dup.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeExact, dup.DuplicateType)
	require.NotEmpty(t, dup.MatchedRules)
	assert.Equal(t, first.ID, dup.MatchedRules[0].RuleID)
	assert.Equal(t, models.CategoryDuplicate, results[2].Classification.Category)
	assert.Equal(t, 1, summary.DuplicatesFound)
}

func TestBatchInternalDuplicateSameID(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()

	// 同ID不同内容也视为批内重复
	first := batchRule(1)
	sameID := batchRule(7)
	sameID.ID = first.ID

	results, _, err := coordinator.EvaluateBatch(context.Background(),
		[]*models.RuleRecord{first, sameID}, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)

	assert.False(t, results[0].Duplicate.IsDuplicate)
	assert.True(t, results[1].Duplicate.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeExact, results[1].Duplicate.DuplicateType)
}

func TestBatchInternalDuplicateWithCacheEnabled(t *testing.T) {
	cache := NewMemoryCache()
	coordinator := newTestCoordinator(cache)
	cfg := models.DefaultEvaluationConfig()

	// 同一条规则（同ID同内容）提交两次，开启缓存且单worker顺序处理：
	// 第二次出现必须判为批内精确重复，不能被首次出现的缓存结果覆盖
	first := batchRule(1)
	again := batchRule(1)

	results, summary, err := coordinator.EvaluateBatch(context.Background(),
		[]*models.RuleRecord{first, again}, emptyIndex(), cfg, BatchOptions{Concurrency: 1})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Duplicate.IsDuplicate)

	dup := results[1].Duplicate
	require.NotNil(t, dup)
	assert.True(t, dup.IsDuplicate)
	assert.Equal(t, models.DuplicateTypeExact, dup.DuplicateType)
	assert.Equal(t, models.CategoryDuplicate, results[1].Classification.Category)
	assert.False(t, results[1].FromCache)
	assert.Equal(t, 1, summary.DuplicatesFound)

	// 批内重复结果不得写入缓存：同规则单独再评估时命中首次出现的干净结果
	followUp, _, err := coordinator.EvaluateBatch(context.Background(),
		[]*models.RuleRecord{batchRule(1)}, emptyIndex(), cfg, BatchOptions{Concurrency: 1})
	require.NoError(t, err)
	assert.True(t, followUp[0].FromCache)
	assert.False(t, followUp[0].Duplicate.IsDuplicate)
	assert.NotEqual(t, models.CategoryDuplicate, followUp[0].Classification.Category)
}

func TestBatchFailureIsolation(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()

	rules := []*models.RuleRecord{
		batchRule(1),
		{ID: ""}, // 非法条目
		batchRule(2),
		nil, // 非法条目
		batchRule(3),
	}

	results, summary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 5)

	// 非法条目降级为rejected，合法条目不受影响
	for _, i := range []int{0, 2, 4} {
		assert.False(t, results[i].Failed(), "槽位 %d 不应失败", i)
		assert.NotEqual(t, models.CategoryRejected, results[i].Classification.Category)
	}
	for _, i := range []int{1, 3} {
		assert.True(t, results[i].Failed(), "槽位 %d 应当失败", i)
		assert.Equal(t, models.CategoryRejected, results[i].Classification.Category)
	}
	assert.Equal(t, 3, summary.ProcessedRules)
	assert.Equal(t, 2, summary.FailedRules)
}

func TestBatchCapacityExceeded(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()
	cfg.Performance.MaxBatchSize = 3

	var rules []*models.RuleRecord
	for i := 0; i < 4; i++ {
		rules = append(rules, batchRule(i))
	}

	_, _, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.Error(t, err)

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 4, capErr.BatchSize)
	assert.Equal(t, 3, capErr.MaxBatchSize)
}

func TestBatchCacheReuse(t *testing.T) {
	cache := NewMemoryCache()
	coordinator := newTestCoordinator(cache)
	cfg := models.DefaultEvaluationConfig()

	rules := []*models.RuleRecord{batchRule(1), batchRule(2)}

	first, firstSummary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)
	assert.Zero(t, firstSummary.CacheHits)

	second, secondSummary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)

	// 第二轮全部命中缓存，分类结果与首轮一致
	assert.Equal(t, 2, secondSummary.CacheHits)
	for i := range second {
		assert.True(t, second[i].FromCache)
		assert.Equal(t, first[i].Classification.Category, second[i].Classification.Category)
		assert.Equal(t, first[i].Quality.QualityScore, second[i].Quality.QualityScore)
	}
}

func TestBatchCacheKeyedByConfigVersion(t *testing.T) {
	cache := NewMemoryCache()
	coordinator := newTestCoordinator(cache)

	rules := []*models.RuleRecord{batchRule(1)}

	cfgA := models.DefaultEvaluationConfig()
	_, _, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfgA, BatchOptions{})
	require.NoError(t, err)

	// 配置版本变化后缓存键不同，不复用旧结果
	cfgB := models.DefaultEvaluationConfig()
	cfgB.Version = "v2"
	_, summary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfgB, BatchOptions{})
	require.NoError(t, err)
	assert.Zero(t, summary.CacheHits)
}

func TestBatchCacheDisabledPerRequest(t *testing.T) {
	cache := NewMemoryCache()
	coordinator := newTestCoordinator(cache)
	cfg := models.DefaultEvaluationConfig()

	rules := []*models.RuleRecord{batchRule(1)}

	_, _, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{})
	require.NoError(t, err)

	_, summary, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg,
		BatchOptions{DisableCache: true})
	require.NoError(t, err)
	assert.Zero(t, summary.CacheHits)
}

func TestBatchProgressCallback(t *testing.T) {
	coordinator := newTestCoordinator(nil)
	cfg := models.DefaultEvaluationConfig()

	var rules []*models.RuleRecord
	for i := 0; i < 10; i++ {
		rules = append(rules, batchRule(i))
	}

	var mu sync.Mutex
	var events []models.BatchProgress
	_, _, err := coordinator.EvaluateBatch(context.Background(), rules, emptyIndex(), cfg, BatchOptions{
		Concurrency: 4,
		OnProgress: func(progress models.BatchProgress) {
			mu.Lock()
			events = append(events, progress)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	// 每条规则恰好上报一次，完成数单调且最终到达总数
	require.Len(t, events, 10)
	seen := make(map[int]bool)
	for _, event := range events {
		assert.Equal(t, 10, event.Total)
		assert.False(t, seen[event.Completed], "完成数 %d 重复上报", event.Completed)
		seen[event.Completed] = true
	}
	assert.True(t, seen[10])
}

func TestBatchTimeoutMarksUnprocessed(t *testing.T) {
	// 慢速语义提供方拖住每条规则的检测
	slow := &slowSemanticProvider{delay: 50 * time.Millisecond}
	coordinator := NewBatchCoordinator(NewQualityAssessor(), NewDuplicateDetector(slow), NewClassifier(), nil)
	cfg := models.DefaultEvaluationConfig()

	idx := corpus.BuildIndex([]*models.RuleRecord{corpusRuleFixture()})

	var rules []*models.RuleRecord
	for i := 0; i < 20; i++ {
		rules = append(rules, batchRule(i))
	}

	results, summary, err := coordinator.EvaluateBatch(context.Background(), rules, idx, cfg, BatchOptions{
		Concurrency: 1,
		Timeout:     120 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, results, 20)

	// 每个槽位都有结果：已完成的保留，未完成的标记超时失败
	timedOut := 0
	for i, result := range results {
		require.NotNil(t, result, "槽位 %d 缺少结果", i)
		if result.Failed() {
			timedOut++
			assert.Equal(t, models.CategoryRejected, result.Classification.Category)
		}
	}
	assert.Greater(t, timedOut, 0)
	assert.Equal(t, timedOut, summary.FailedRules)
}

// slowSemanticProvider 人为延迟的语义提供方，用于超时测试
type slowSemanticProvider struct {
	delay time.Duration
}

func (p *slowSemanticProvider) Name() string { return "slow" }

func (p *slowSemanticProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	select {
	case <-time.After(p.delay):
		return 0.5, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
