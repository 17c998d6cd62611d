/*
 * @module service/evaluation/evaluation_service
 * @description 规则评估服务门面，聚合质量评估、重复检测、分类决策、批量调度与语料库管理
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow API请求 -> 入参校验 -> 读取当前配置与索引快照 -> 评估流水线 -> 结果发布
 * @rules 单次评估全程使用同一配置与索引快照，配置热更新不影响进行中的评估
 * @dependencies rulehub-service/service/config, rulehub-service/service/corpus
 * @refs api/controllers/evaluation_controller.go
 */

package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rulehub-service/service/config"
	"rulehub-service/service/corpus"
	"rulehub-service/service/models"
)

// ResultPublisher 评估结果外发接口，由消息连接器实现
type ResultPublisher interface {
	PublishResult(ctx context.Context, result *models.EvaluationResult) error
	PublishBatchSummary(ctx context.Context, batchID string, summary *models.BatchSummary) error
}

// HealthStatus 服务健康快照
type HealthStatus struct {
	Status          string     `json:"status"`
	CorpusSize      int        `json:"corpus_size"`
	IndexBuiltAt    time.Time  `json:"index_built_at"`
	ConfigVersion   string     `json:"config_version"`
	ConfigUpdatedAt time.Time  `json:"config_updated_at"`
	Cache           CacheStats `json:"cache"`
}

// EvaluationService 规则评估服务门面
type EvaluationService struct {
	configStore *config.ConfigStore
	corpusStore *corpus.Store
	coordinator *BatchCoordinator
	cache       ResultCache
	publisher   ResultPublisher // 可为nil，表示不外发结果
}

// NewEvaluationService 创建规则评估服务
// semantic 和 publisher 均为可选依赖，传nil时分别回退到词法相似度和不外发
func NewEvaluationService(configStore *config.ConfigStore, corpusStore *corpus.Store, cache ResultCache, semantic SemanticProvider, publisher ResultPublisher) *EvaluationService {
	assessor := NewQualityAssessor()
	detector := NewDuplicateDetector(semantic)
	classifier := NewClassifier()

	return &EvaluationService{
		configStore: configStore,
		corpusStore: corpusStore,
		coordinator: NewBatchCoordinator(assessor, detector, classifier, cache),
		cache:       cache,
		publisher:   publisher,
	}
}

// EvaluateRule 评估单条规则
func (s *EvaluationService) EvaluateRule(ctx context.Context, rule *models.RuleRecord) (*models.EvaluationResult, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	cfg := s.configStore.Get()
	idx := s.corpusStore.Index()

	result := s.coordinator.EvaluateOne(ctx, rule, idx, cfg, true)
	s.publishResult(ctx, result)
	return result, nil
}

// EvaluateBatch 批量评估规则集合
// 返回结果与输入顺序一致，单条失败不影响其余条目
func (s *EvaluationService) EvaluateBatch(ctx context.Context, batchID string, rules []*models.RuleRecord, opts BatchOptions) ([]*models.EvaluationResult, *models.BatchSummary, error) {
	if len(rules) == 0 {
		return nil, nil, &ValidationError{Field: "rules", Reason: "规则列表不能为空"}
	}

	cfg := s.configStore.Get()
	idx := s.corpusStore.Index()

	results, summary, err := s.coordinator.EvaluateBatch(ctx, rules, idx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("批量评估完成",
		"batch_id", batchID,
		"total", summary.TotalRules,
		"processed", summary.ProcessedRules,
		"failed", summary.FailedRules,
		"duplicates", summary.DuplicatesFound,
		"cache_hits", summary.CacheHits,
		"elapsed_ms", summary.ProcessingTimeMs)

	for _, result := range results {
		s.publishResult(ctx, result)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishBatchSummary(ctx, batchID, summary); err != nil {
			slog.Warn("批量汇总外发失败", "batch_id", batchID, "error", err)
		}
	}
	return results, summary, nil
}

// CheckDuplicate 仅执行重复检测，不做质量评估和分类
func (s *EvaluationService) CheckDuplicate(ctx context.Context, rule *models.RuleRecord) (*models.DuplicateCheck, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	cfg := s.configStore.Get()
	idx := s.corpusStore.Index()

	check, err := s.coordinator.detector.Check(ctx, rule, idx, cfg)
	if err != nil {
		return nil, &ComputationError{Phase: models.PhaseDuplicate, Err: err}
	}
	return check, nil
}

// GetConfig 获取当前生效配置
func (s *EvaluationService) GetConfig() *models.EvaluationConfig {
	return s.configStore.Get()
}

// UpdateConfig 按分组更新配置，校验失败时保留当前配置
func (s *EvaluationService) UpdateConfig(update *config.ConfigUpdate) (*models.EvaluationConfig, error) {
	if err := s.configStore.Update(update); err != nil {
		return nil, err
	}
	return s.configStore.Get(), nil
}

// AddToCorpus 将规则写入语料库并重建索引
func (s *EvaluationService) AddToCorpus(ctx context.Context, rule *models.RuleRecord) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if err := s.corpusStore.Insert(ctx, rule); err != nil {
		return fmt.Errorf("语料库写入失败: %w", err)
	}
	return s.corpusStore.Reload(ctx)
}

// ReloadIndex 从数据库重建语料库索引
func (s *EvaluationService) ReloadIndex(ctx context.Context) (int, error) {
	if err := s.corpusStore.Reload(ctx); err != nil {
		return 0, fmt.Errorf("语料库索引重建失败: %w", err)
	}
	return s.corpusStore.Index().Size(), nil
}

// SweepCache 清理过期缓存条目，由定时任务调用
func (s *EvaluationService) SweepCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Sweep(ctx)
}

// GetHealth 获取服务健康快照
func (s *EvaluationService) GetHealth(ctx context.Context) *HealthStatus {
	idx := s.corpusStore.Index()
	cfg := s.configStore.Get()

	status := &HealthStatus{
		Status:          "healthy",
		CorpusSize:      idx.Size(),
		IndexBuiltAt:    idx.BuiltAt(),
		ConfigVersion:   cfg.Version,
		ConfigUpdatedAt: s.configStore.UpdatedAt(),
	}
	if s.cache != nil {
		status.Cache = s.cache.Stats(ctx)
	}
	return status
}

// publishResult 外发单条评估结果，失败只记录告警不影响调用方
func (s *EvaluationService) publishResult(ctx context.Context, result *models.EvaluationResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishResult(ctx, result); err != nil {
		slog.Warn("评估结果外发失败", "rule_id", ruleID(result.Rule), "error", err)
	}
}

// validateRule 入口层规则校验，缺少ID视为非法请求
func validateRule(rule *models.RuleRecord) error {
	if rule == nil {
		return &ValidationError{Field: "rule", Reason: "规则不能为空"}
	}
	if strings.TrimSpace(rule.ID) == "" {
		return &ValidationError{Field: "id", Reason: "规则ID不能为空"}
	}
	return nil
}
