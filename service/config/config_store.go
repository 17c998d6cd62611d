/*
 * @module service/config/config_store
 * @description 评估配置存储，负责配置文件加载、整体校验、环境变量覆盖和swap-on-write热更新
 * @architecture 分层架构 - 配置服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 配置加载 -> 整体校验 -> 原子发布 -> 读取方无锁访问
 * @rules 校验失败时保留当前生效配置不变，错误信息包含全部违反项而非首个
 * @dependencies rulehub-service/service/models, gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/evaluation, api/controllers/config_controller.go
 */

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"rulehub-service/service/models"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// 权重组求和允许的误差
const weightSumTolerance = 0.01

// ConfigError 配置校验错误，携带全部违反项
type ConfigError struct {
	Violations []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置校验失败: %s", strings.Join(e.Violations, "; "))
}

// ConfigUpdate 配置更新请求，按分组整体替换，未提供的分组保持当前值
type ConfigUpdate struct {
	DuplicateDetection *models.DuplicateDetectionConfig `json:"duplicate_detection,omitempty"`
	QualityAssessment  *models.QualityAssessmentConfig  `json:"quality_assessment,omitempty"`
	Classification     *models.ClassificationConfig     `json:"classification,omitempty"`
	Performance        *models.PerformanceConfig        `json:"performance,omitempty"`
}

// ConfigStore 配置存储，读多写少，通过原子指针发布不可变配置版本
type ConfigStore struct {
	current   atomic.Pointer[models.EvaluationConfig]
	updatedAt atomic.Pointer[time.Time]
}

// NewConfigStore 创建配置存储并以内置默认配置初始化
func NewConfigStore() *ConfigStore {
	store := &ConfigStore{}
	store.publish(models.DefaultEvaluationConfig())
	return store
}

// Get 获取当前生效配置，返回的配置不可修改
func (s *ConfigStore) Get() *models.EvaluationConfig {
	return s.current.Load()
}

// UpdatedAt 获取最近一次配置发布时间
func (s *ConfigStore) UpdatedAt() time.Time {
	if t := s.updatedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Update 按分组合并并整体校验后发布新配置
// 校验失败时当前配置保持不变，返回包含全部违反项的ConfigError
func (s *ConfigStore) Update(update *ConfigUpdate) error {
	merged := s.Get().Clone()

	if update.DuplicateDetection != nil {
		merged.DuplicateDetection = *update.DuplicateDetection
	}
	if update.QualityAssessment != nil {
		merged.QualityAssessment = *update.QualityAssessment
	}
	if update.Classification != nil {
		merged.Classification = *update.Classification
	}
	if update.Performance != nil {
		merged.Performance = *update.Performance
	}

	if violations := Validate(merged); len(violations) > 0 {
		return &ConfigError{Violations: violations}
	}

	merged.Version = fmt.Sprintf("update-%d", time.Now().Unix())
	s.publish(merged)

	slog.Info("评估配置已更新", "version", merged.Version)
	return nil
}

// Replace 整体替换配置，用于配置文件加载
func (s *ConfigStore) Replace(cfg *models.EvaluationConfig) error {
	if violations := Validate(cfg); len(violations) > 0 {
		return &ConfigError{Violations: violations}
	}
	s.publish(cfg.Clone())
	return nil
}

// publish 原子发布新配置版本
func (s *ConfigStore) publish(cfg *models.EvaluationConfig) {
	now := time.Now()
	s.current.Store(cfg)
	s.updatedAt.Store(&now)
}

// LoadFromFile 从配置文件加载配置（按扩展名识别JSON/YAML）
// 文件不存在或内容非法时保留当前生效配置并输出告警，绝不中断服务
func (s *ConfigStore) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("配置文件读取失败，沿用当前生效配置", "path", path, "error", err)
		return err
	}

	loaded := s.Get().Clone()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, loaded)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, loaded)
	default:
		err = fmt.Errorf("不支持的配置文件格式: %s", filepath.Ext(path))
	}
	if err != nil {
		slog.Warn("配置文件解析失败，沿用当前生效配置", "path", path, "error", err)
		return err
	}

	applyEnvOverrides(loaded)

	if violations := Validate(loaded); len(violations) > 0 {
		cfgErr := &ConfigError{Violations: violations}
		slog.Warn("配置文件校验失败，沿用当前生效配置", "path", path, "violations", violations)
		return cfgErr
	}

	if loaded.Version == "" {
		loaded.Version = fmt.Sprintf("file-%s", filepath.Base(path))
	}
	s.publish(loaded)

	slog.Info("配置文件加载成功", "path", path, "version", loaded.Version)
	return nil
}

// applyEnvOverrides 应用性能相关的环境变量覆盖
func applyEnvOverrides(cfg *models.EvaluationConfig) {
	if val := os.Getenv("EVAL_CONCURRENCY"); val != "" {
		cfg.Performance.Concurrency = cast.ToInt(val)
	}
	if val := os.Getenv("EVAL_BATCH_SIZE"); val != "" {
		cfg.Performance.BatchSize = cast.ToInt(val)
	}
	if val := os.Getenv("EVAL_MAX_BATCH_SIZE"); val != "" {
		cfg.Performance.MaxBatchSize = cast.ToInt(val)
	}
	if val := os.Getenv("EVAL_CACHE_TTL"); val != "" {
		cfg.Performance.CacheTTL = models.Duration(cast.ToDuration(val))
	}
	if val := os.Getenv("EVAL_CACHE_ENABLED"); val != "" {
		cfg.Performance.CacheEnabled = cast.ToBool(val)
	}
}

// namedValue 按固定顺序逐字段校验，保证违反项列表的顺序稳定
type namedValue struct {
	name  string
	value float64
}

// Validate 对配置整体校验，返回全部违反项
func Validate(cfg *models.EvaluationConfig) []string {
	var violations []string

	// 重复检测权重组
	dw := cfg.DuplicateDetection.Weights
	if sum := dw.Exact + dw.Semantic + dw.Structural + dw.Content; math.Abs(sum-1.0) > weightSumTolerance {
		violations = append(violations,
			fmt.Sprintf("duplicate_detection.weights 求和为 %.4f，必须为 1.0(±%.2f)", sum, weightSumTolerance))
	}
	for _, field := range []namedValue{
		{"exact", dw.Exact}, {"semantic", dw.Semantic}, {"structural", dw.Structural}, {"content", dw.Content},
	} {
		if field.value < 0 || field.value > 1 {
			violations = append(violations,
				fmt.Sprintf("duplicate_detection.weights.%s 取值 %.4f 超出 [0,1]", field.name, field.value))
		}
	}

	// 重复检测阈值组：按严重程度递减
	dt := cfg.DuplicateDetection.Thresholds
	for _, field := range []namedValue{
		{"exact", dt.Exact}, {"semantic", dt.Semantic}, {"structural", dt.Structural}, {"warning", dt.Warning},
	} {
		if field.value < 0 || field.value > 1 {
			violations = append(violations,
				fmt.Sprintf("duplicate_detection.thresholds.%s 取值 %.4f 超出 [0,1]", field.name, field.value))
		}
	}
	if !(dt.Exact >= dt.Semantic && dt.Semantic >= dt.Structural && dt.Structural >= dt.Warning) {
		violations = append(violations,
			"duplicate_detection.thresholds 必须满足 exact >= semantic >= structural >= warning")
	}

	// 质量维度权重组
	qw := cfg.QualityAssessment.DimensionWeights
	if sum := qw.Accuracy + qw.Practicality + qw.Completeness + qw.Generality + qw.Consistency; math.Abs(sum-1.0) > weightSumTolerance {
		violations = append(violations,
			fmt.Sprintf("quality_assessment.dimension_weights 求和为 %.4f，必须为 1.0(±%.2f)", sum, weightSumTolerance))
	}
	for _, field := range []namedValue{
		{"accuracy", qw.Accuracy}, {"practicality", qw.Practicality}, {"completeness", qw.Completeness},
		{"generality", qw.Generality}, {"consistency", qw.Consistency},
	} {
		if field.value < 0 || field.value > 1 {
			violations = append(violations,
				fmt.Sprintf("quality_assessment.dimension_weights.%s 取值 %.4f 超出 [0,1]", field.name, field.value))
		}
	}

	// 质量等级阈值：严格递减
	qt := cfg.QualityAssessment.Thresholds
	for _, field := range []namedValue{{"excellent", qt.Excellent}, {"good", qt.Good}, {"fair", qt.Fair}} {
		if field.value < 0 || field.value > 100 {
			violations = append(violations,
				fmt.Sprintf("quality_assessment.thresholds.%s 取值 %.2f 超出 [0,100]", field.name, field.value))
		}
	}
	if !(qt.Excellent > qt.Good && qt.Good > qt.Fair) {
		violations = append(violations,
			"quality_assessment.thresholds 必须满足 excellent > good > fair")
	}
	if cfg.QualityAssessment.MinKeepScore < 0 || cfg.QualityAssessment.MinKeepScore > 100 {
		violations = append(violations,
			fmt.Sprintf("quality_assessment.min_keep_score 取值 %.2f 超出 [0,100]", cfg.QualityAssessment.MinKeepScore))
	}

	// 分类决策阈值
	cc := cfg.Classification
	if cc.MinQualityScore < 0 || cc.MinQualityScore > 100 {
		violations = append(violations,
			fmt.Sprintf("classification.min_quality_score 取值 %.2f 超出 [0,100]", cc.MinQualityScore))
	}
	if cc.ApprovalScore < 0 || cc.ApprovalScore > 100 {
		violations = append(violations,
			fmt.Sprintf("classification.approval_score 取值 %.2f 超出 [0,100]", cc.ApprovalScore))
	}
	if cc.ApprovalScore < cc.MinQualityScore {
		violations = append(violations,
			"classification.approval_score 不能低于 classification.min_quality_score")
	}
	if cc.ManualReviewTriggers.BorderlineBand < 0 || cc.ManualReviewTriggers.BorderlineBand > 100 {
		violations = append(violations,
			fmt.Sprintf("classification.manual_review_triggers.borderline_band 取值 %.2f 超出 [0,100]",
				cc.ManualReviewTriggers.BorderlineBand))
	}
	if cc.ManualReviewTriggers.MinDetectorConfidence < 0 || cc.ManualReviewTriggers.MinDetectorConfidence > 1 {
		violations = append(violations,
			fmt.Sprintf("classification.manual_review_triggers.min_detector_confidence 取值 %.4f 超出 [0,1]",
				cc.ManualReviewTriggers.MinDetectorConfidence))
	}

	// 性能配置
	pc := cfg.Performance
	if pc.Concurrency <= 0 {
		violations = append(violations, "performance.concurrency 必须为正数")
	}
	if pc.BatchSize <= 0 {
		violations = append(violations, "performance.batch_size 必须为正数")
	}
	if pc.MaxBatchSize <= 0 {
		violations = append(violations, "performance.max_batch_size 必须为正数")
	}
	if pc.MaxBatchSize < pc.BatchSize {
		violations = append(violations, "performance.max_batch_size 不能小于 performance.batch_size")
	}
	if pc.CacheEnabled && pc.CacheTTL <= 0 {
		violations = append(violations, "performance.cache_ttl 启用缓存时必须为正数")
	}
	if pc.BatchTimeout <= 0 {
		violations = append(violations, "performance.batch_timeout 必须为正数")
	}
	if pc.RuleTimeout <= 0 {
		violations = append(violations, "performance.rule_timeout 必须为正数")
	}

	return violations
}
