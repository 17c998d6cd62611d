/*
 * @module service/evaluation/batch_coordinator
 * @description 批量评估协调器，负责有界并发调度、输入序保持、单条失败隔离、批内去重和结果缓存
 * @architecture 分层架构 - 任务调度层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 容量校验 -> 批内去重预扫描 -> worker池分发 -> 按槽位写回 -> 汇总聚合
 * @rules 输出顺序与输入顺序严格一致；单条失败降级进该条结果；容量超限在worker启动前返回
 * @dependencies rulehub-service/service/models, rulehub-service/service/corpus
 * @refs service/evaluation/evaluation_service.go
 */

package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rulehub-service/service/corpus"
	"rulehub-service/service/models"
)

// BatchOptions 批量评估选项，零值字段回退到配置默认值
type BatchOptions struct {
	Concurrency  int
	Timeout      time.Duration
	DisableCache bool
	OnProgress   models.ProgressFunc
}

// BatchCoordinator 批量评估协调器
type BatchCoordinator struct {
	assessor   *QualityAssessor
	detector   *DuplicateDetector
	classifier *Classifier
	cache      ResultCache // 可为nil，表示不启用缓存
}

// NewBatchCoordinator 创建批量评估协调器
func NewBatchCoordinator(assessor *QualityAssessor, detector *DuplicateDetector, classifier *Classifier, cache ResultCache) *BatchCoordinator {
	return &BatchCoordinator{
		assessor:   assessor,
		detector:   detector,
		classifier: classifier,
		cache:      cache,
	}
}

// EvaluateBatch 批量评估规则集合
// 返回的结果列表与输入等长且顺序一致：results[i] 对应 rules[i]
func (b *BatchCoordinator) EvaluateBatch(ctx context.Context, rules []*models.RuleRecord, idx *corpus.Index, cfg *models.EvaluationConfig, opts BatchOptions) ([]*models.EvaluationResult, *models.BatchSummary, error) {
	startTime := time.Now()

	// 容量超限快速失败，任何worker都不会启动
	if max := cfg.Performance.MaxBatchSize; len(rules) > max {
		return nil, nil, &CapacityError{BatchSize: len(rules), MaxBatchSize: max}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Performance.Concurrency
	}
	if concurrency > len(rules) && len(rules) > 0 {
		concurrency = len(rules)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.Performance.BatchTimeout.Std()
	}
	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 批内去重预扫描：同ID或同内容的后出现者标记为批内精确重复
	batchDupOf := prescanBatchDuplicates(rules)

	results := make([]*models.EvaluationResult, len(rules))
	useCache := cfg.Performance.CacheEnabled && !opts.DisableCache

	jobs := make(chan int, len(rules))
	for i := range rules {
		jobs <- i
	}
	close(jobs)

	var completed atomic.Int64
	var progressMutex sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				select {
				case <-batchCtx.Done():
					// 超时后未开始的条目留空，统一标记为失败
					return
				default:
				}

				result := b.evaluateOne(batchCtx, rules[i], idx, cfg, batchDupOf[i], useCache)
				results[i] = result

				done := completed.Add(1)
				if opts.OnProgress != nil {
					progressMutex.Lock()
					opts.OnProgress(models.BatchProgress{
						Completed: int(done),
						Total:     len(rules),
						RuleID:    ruleID(rules[i]),
						Category:  result.Classification.Category,
					})
					progressMutex.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// 超时未处理的槽位补齐失败结果，已完成的结果保留
	timedOut := batchCtx.Err() != nil
	for i, result := range results {
		if result == nil {
			results[i] = timeoutResult(rules[i])
		}
	}
	if timedOut {
		slog.Warn("批量评估超时，未完成条目已标记失败",
			"total", len(rules), "completed", completed.Load())
	}

	summary := buildSummary(rules, results, time.Since(startTime))
	metricBatchDuration.Observe(time.Since(startTime).Seconds())

	return results, summary, nil
}

// EvaluateOne 评估单条规则，复用批量路径的失败隔离与缓存逻辑
func (b *BatchCoordinator) EvaluateOne(ctx context.Context, rule *models.RuleRecord, idx *corpus.Index, cfg *models.EvaluationConfig, useCache bool) *models.EvaluationResult {
	return b.evaluateOne(ctx, rule, idx, cfg, nil, useCache && cfg.Performance.CacheEnabled)
}

// evaluateOne 单条规则的完整评估：质量打分 -> 重复检测 -> 分类决策
// 任何阶段的panic或错误都在此处捕获并降级进结果，绝不向上传播
func (b *BatchCoordinator) evaluateOne(ctx context.Context, rule *models.RuleRecord, idx *corpus.Index, cfg *models.EvaluationConfig, batchDupOf *models.RuleRecord, useCache bool) *models.EvaluationResult {
	startTime := time.Now()
	result := &models.EvaluationResult{
		Rule:        rule,
		EvaluatedAt: startTime,
	}

	finish := func() *models.EvaluationResult {
		result.DurationMs = time.Since(startTime).Milliseconds()
		metricRuleDuration.Observe(time.Since(startTime).Seconds())
		if result.Classification != nil {
			metricRulesEvaluated.WithLabelValues(string(result.Classification.Category)).Inc()
		}
		if result.Duplicate != nil && result.Duplicate.IsDuplicate {
			metricDuplicatesFound.Inc()
		}
		return result
	}

	// 空规则直接判定为rejected，不抛出异常
	if rule == nil || strings.TrimSpace(rule.ID) == "" {
		result.Quality = zeroEvaluation("规则为空或缺少ID")
		result.Duplicate = &models.DuplicateCheck{DuplicateType: models.DuplicateTypeNone}
		result.Classification = &models.Classification{
			Category:     models.CategoryRejected,
			Reason:       "规则为空或缺少ID",
			TargetBucket: categoryBuckets[models.CategoryRejected],
		}
		result.Errors = append(result.Errors, models.EvaluationError{
			Phase:   models.PhaseQuality,
			Message: "规则为空或缺少ID",
		})
		return finish()
	}

	// 缓存命中直接复用，跳过重新计算
	// 批内重复条目不走缓存：读取会用首个出现者的干净结果覆盖批内判定，
	// 写入会把批内相对结果泄漏给后续按内容键命中的评估
	cacheKey := ""
	if b.cache != nil && useCache && batchDupOf == nil {
		cacheKey = ContentHash(rule, cfg.Version)
		if cached, ok := b.cache.Get(ctx, cacheKey); ok {
			metricCacheHits.Inc()
			reused := *cached
			reused.Rule = rule
			reused.FromCache = true
			reused.EvaluatedAt = startTime
			reused.DurationMs = time.Since(startTime).Milliseconds()
			return &reused
		}
		metricCacheMisses.Inc()
	}

	// 质量评估阶段
	result.Quality = b.safeScore(rule, cfg, result)

	// 重复检测阶段：批内精确重复直接合成结果，否则与语料库索引比较
	if batchDupOf != nil {
		result.Duplicate = &models.DuplicateCheck{
			IsDuplicate:   true,
			Similarity:    1.0,
			DuplicateType: models.DuplicateTypeExact,
			Confidence:    1.0,
			MatchedRules: []models.MatchedRule{
				{RuleID: batchDupOf.ID, Title: batchDupOf.Title, Similarity: 1.0},
			},
			Explanation: fmt.Sprintf("与同批次规则 %s 精确重复", batchDupOf.ID),
		}
	} else {
		result.Duplicate = b.safeCheck(ctx, rule, idx, cfg, result)
	}

	// 分类决策阶段：任何前置阶段失败则按rejected处理
	if len(result.Errors) > 0 {
		result.Classification = &models.Classification{
			Category:     models.CategoryRejected,
			Reason:       fmt.Sprintf("评估阶段失败: %s", result.Errors[0].Message),
			TargetBucket: categoryBuckets[models.CategoryRejected],
		}
	} else {
		result.Classification = b.classifier.Classify(result.Quality, result.Duplicate, cfg)
	}

	if b.cache != nil && useCache && cacheKey != "" && !result.Failed() {
		b.cache.Set(ctx, cacheKey, result, cfg.Performance.CacheTTL.Std())
	}

	return finish()
}

// safeScore 质量打分，panic降级为phase-tagged错误
func (b *BatchCoordinator) safeScore(rule *models.RuleRecord, cfg *models.EvaluationConfig, result *models.EvaluationResult) (quality *models.QualityEvaluation) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, models.EvaluationError{
				Phase:   models.PhaseQuality,
				Message: fmt.Sprintf("质量评估异常: %v", r),
			})
			quality = zeroEvaluation("质量评估异常")
		}
	}()
	return b.assessor.Score(rule, cfg)
}

// safeCheck 重复检测，错误与panic降级为phase-tagged错误
func (b *BatchCoordinator) safeCheck(ctx context.Context, rule *models.RuleRecord, idx *corpus.Index, cfg *models.EvaluationConfig, result *models.EvaluationResult) (check *models.DuplicateCheck) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, models.EvaluationError{
				Phase:   models.PhaseDuplicate,
				Message: fmt.Sprintf("重复检测异常: %v", r),
			})
			check = &models.DuplicateCheck{DuplicateType: models.DuplicateTypeNone}
		}
	}()

	ruleCtx := ctx
	if ruleTimeout := cfg.Performance.RuleTimeout.Std(); ruleTimeout > 0 {
		var cancel context.CancelFunc
		ruleCtx, cancel = context.WithTimeout(ctx, ruleTimeout)
		defer cancel()
	}

	checked, err := b.detector.Check(ruleCtx, rule, idx, cfg)
	if err != nil {
		result.Errors = append(result.Errors, models.EvaluationError{
			Phase:   models.PhaseDuplicate,
			Message: err.Error(),
		})
		return &models.DuplicateCheck{DuplicateType: models.DuplicateTypeNone}
	}
	return checked
}

// prescanBatchDuplicates 批内去重预扫描
// 同ID或同归一化内容的后出现者指向首个出现的规则，保证批内判定与输入顺序无关
func prescanBatchDuplicates(rules []*models.RuleRecord) []*models.RuleRecord {
	dupOf := make([]*models.RuleRecord, len(rules))
	seenByID := make(map[string]*models.RuleRecord)
	seenByContent := make(map[string]*models.RuleRecord)

	for i, rule := range rules {
		if rule == nil || strings.TrimSpace(rule.ID) == "" {
			continue
		}

		contentKey := corpus.NormalizeText(rule.Title) + "\x00" +
			corpus.NormalizeText(rule.Description) + "\x00" +
			corpus.PatternSignature(rule.SQLPattern)

		if first, ok := seenByID[rule.ID]; ok {
			dupOf[i] = first
			continue
		}
		if first, ok := seenByContent[contentKey]; ok {
			dupOf[i] = first
			continue
		}

		seenByID[rule.ID] = rule
		seenByContent[contentKey] = rule
	}
	return dupOf
}

// timeoutResult 批量超时后未处理条目的失败结果
func timeoutResult(rule *models.RuleRecord) *models.EvaluationResult {
	return &models.EvaluationResult{
		Rule:    rule,
		Quality: zeroEvaluation("批量评估超时"),
		Duplicate: &models.DuplicateCheck{
			DuplicateType: models.DuplicateTypeNone,
		},
		Classification: &models.Classification{
			Category:     models.CategoryRejected,
			Reason:       "批量评估超时，该条目未完成处理",
			TargetBucket: categoryBuckets[models.CategoryRejected],
		},
		Errors: []models.EvaluationError{
			{Phase: models.PhaseBatch, Message: "批量评估超时"},
		},
		EvaluatedAt: time.Now(),
	}
}

// buildSummary 聚合批量评估汇总
func buildSummary(rules []*models.RuleRecord, results []*models.EvaluationResult, elapsed time.Duration) *models.BatchSummary {
	summary := &models.BatchSummary{
		TotalRules:       len(rules),
		CategoryCounts:   make(map[models.ClassificationCategory]int),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}

	var scoreSum float64
	scoredCount := 0
	var ruleTimeSum int64

	for _, result := range results {
		if result.Failed() {
			summary.FailedRules++
		} else {
			summary.ProcessedRules++
		}
		if result.FromCache {
			summary.CacheHits++
		}
		if result.Classification != nil {
			summary.CategoryCounts[result.Classification.Category]++
		}
		if result.Duplicate != nil && result.Duplicate.IsDuplicate {
			summary.DuplicatesFound++
		}
		ruleTimeSum += result.DurationMs

		if result.Quality != nil && !result.Failed() {
			score := result.Quality.QualityScore
			scoreSum += score
			if scoredCount == 0 || score < summary.MinQualityScore {
				summary.MinQualityScore = score
			}
			if scoredCount == 0 || score > summary.MaxQualityScore {
				summary.MaxQualityScore = score
			}
			scoredCount++
		}
	}

	if scoredCount > 0 {
		summary.AverageQualityScore = scoreSum / float64(scoredCount)
	}
	if len(results) > 0 {
		summary.AverageRuleTimeMs = float64(ruleTimeSum) / float64(len(results))
	}
	return summary
}

func ruleID(rule *models.RuleRecord) string {
	if rule == nil {
		return ""
	}
	return rule.ID
}
