/*
 * @module service/models/config
 * @description 评估配置模型定义，包括重复检测、质量评估、分类决策和性能四个配置分组
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 配置加载 -> 整体校验 -> 原子发布(swap-on-write)
 * @rules 权重组求和必须为1.0(±0.01)，阈值组按严重程度严格递减
 * @dependencies time
 * @refs service/config, service/evaluation
 */

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "30s"/"5m" 文本格式的时长类型，兼容JSON数值(纳秒)
type Duration time.Duration

// Std 转换为标准库时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON 序列化为文本格式
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON 同时接受文本格式和纳秒数值
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("时长格式非法: %w", err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("时长格式非法: %v", raw)
	}
	return nil
}

// MarshalYAML 序列化为文本格式
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML 解析文本格式时长
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("时长格式非法: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

// DuplicateThresholds 重复判定阈值，要求 Exact >= Semantic >= Structural >= Warning
type DuplicateThresholds struct {
	Exact      float64 `json:"exact" yaml:"exact"`
	Semantic   float64 `json:"semantic" yaml:"semantic"`
	Structural float64 `json:"structural" yaml:"structural"`
	Warning    float64 `json:"warning" yaml:"warning"`
}

// DuplicateWeights 四路相似度信号的合成权重，求和必须为1.0
type DuplicateWeights struct {
	Exact      float64 `json:"exact" yaml:"exact"`
	Semantic   float64 `json:"semantic" yaml:"semantic"`
	Structural float64 `json:"structural" yaml:"structural"`
	Content    float64 `json:"content" yaml:"content"`
}

// DuplicateDetectionConfig 重复检测配置分组
type DuplicateDetectionConfig struct {
	Thresholds DuplicateThresholds `json:"thresholds" yaml:"thresholds"`
	Weights    DuplicateWeights    `json:"weights" yaml:"weights"`
}

// DimensionWeights 质量维度权重，求和必须为1.0
type DimensionWeights struct {
	Accuracy     float64 `json:"accuracy" yaml:"accuracy"`
	Practicality float64 `json:"practicality" yaml:"practicality"`
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Generality   float64 `json:"generality" yaml:"generality"`
	Consistency  float64 `json:"consistency" yaml:"consistency"`
}

// QualityThresholds 质量等级阈值，要求 Excellent > Good > Fair
type QualityThresholds struct {
	Excellent float64 `json:"excellent" yaml:"excellent"`
	Good      float64 `json:"good" yaml:"good"`
	Fair      float64 `json:"fair" yaml:"fair"`
}

// QualityAssessmentConfig 质量评估配置分组
type QualityAssessmentConfig struct {
	DimensionWeights DimensionWeights  `json:"dimension_weights" yaml:"dimension_weights"`
	Thresholds       QualityThresholds `json:"thresholds" yaml:"thresholds"`
	MinKeepScore     float64           `json:"min_keep_score" yaml:"min_keep_score"`
}

// ManualReviewTriggers 人工复核触发条件
type ManualReviewTriggers struct {
	// BorderlineBand 审批阈值下方的临界带宽度，落入该区间的规则转人工复核
	BorderlineBand float64 `json:"borderline_band" yaml:"borderline_band"`
	// MinDetectorConfidence 重复检测置信度低于该值时转人工复核
	MinDetectorConfidence float64 `json:"min_detector_confidence" yaml:"min_detector_confidence"`
}

// ClassificationConfig 分类决策配置分组
type ClassificationConfig struct {
	MinQualityScore      float64              `json:"min_quality_score" yaml:"min_quality_score"`
	ApprovalScore        float64              `json:"approval_score" yaml:"approval_score"`
	ManualReviewTriggers ManualReviewTriggers `json:"manual_review_triggers" yaml:"manual_review_triggers"`
}

// PerformanceConfig 性能配置分组
type PerformanceConfig struct {
	BatchSize    int      `json:"batch_size" yaml:"batch_size"`
	Concurrency  int      `json:"concurrency" yaml:"concurrency"`
	MaxBatchSize int      `json:"max_batch_size" yaml:"max_batch_size"`
	CacheEnabled bool     `json:"cache_enabled" yaml:"cache_enabled"`
	CacheTTL     Duration `json:"cache_ttl" yaml:"cache_ttl"`
	BatchTimeout Duration `json:"batch_timeout" yaml:"batch_timeout"`
	RuleTimeout  Duration `json:"rule_timeout" yaml:"rule_timeout"`
}

// EvaluationConfig 评估流水线完整配置，整体校验后原子发布
type EvaluationConfig struct {
	Version            string                   `json:"version" yaml:"version"`
	DuplicateDetection DuplicateDetectionConfig `json:"duplicate_detection" yaml:"duplicate_detection"`
	QualityAssessment  QualityAssessmentConfig  `json:"quality_assessment" yaml:"quality_assessment"`
	Classification     ClassificationConfig     `json:"classification" yaml:"classification"`
	Performance        PerformanceConfig        `json:"performance" yaml:"performance"`
}

// DefaultEvaluationConfig 内置默认配置
func DefaultEvaluationConfig() *EvaluationConfig {
	return &EvaluationConfig{
		Version: "builtin-default",
		DuplicateDetection: DuplicateDetectionConfig{
			Thresholds: DuplicateThresholds{
				Exact:      0.95,
				Semantic:   0.85,
				Structural: 0.75,
				Warning:    0.60,
			},
			Weights: DuplicateWeights{
				Exact:      0.30,
				Semantic:   0.30,
				Structural: 0.25,
				Content:    0.15,
			},
		},
		QualityAssessment: QualityAssessmentConfig{
			DimensionWeights: DimensionWeights{
				Accuracy:     0.25,
				Practicality: 0.20,
				Completeness: 0.25,
				Generality:   0.15,
				Consistency:  0.15,
			},
			Thresholds: QualityThresholds{
				Excellent: 90,
				Good:      75,
				Fair:      60,
			},
			MinKeepScore: 40,
		},
		Classification: ClassificationConfig{
			MinQualityScore: 40,
			ApprovalScore:   80,
			ManualReviewTriggers: ManualReviewTriggers{
				BorderlineBand:        10,
				MinDetectorConfidence: 0.5,
			},
		},
		Performance: PerformanceConfig{
			BatchSize:    20,
			Concurrency:  3,
			MaxBatchSize: 500,
			CacheEnabled: true,
			CacheTTL:     Duration(10 * time.Minute),
			BatchTimeout: Duration(5 * time.Minute),
			RuleTimeout:  Duration(30 * time.Second),
		},
	}
}

// Clone 深拷贝配置，用于swap-on-write更新
func (c *EvaluationConfig) Clone() *EvaluationConfig {
	cloned := *c
	return &cloned
}
