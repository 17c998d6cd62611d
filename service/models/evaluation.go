/*
 * @module service/models/evaluation
 * @description 评估结果模型定义，包括质量评估、重复检测、分类决策和批量汇总结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 质量打分 -> 重复检测 -> 分类决策 -> 结果聚合
 * @rules 评估结果构建后不可变，每次评估完整重新计算
 * @dependencies time
 * @refs service/evaluation
 */

package models

import "time"

// QualityLevel 质量等级
type QualityLevel string

const (
	QualityLevelExcellent QualityLevel = "excellent"
	QualityLevelGood      QualityLevel = "good"
	QualityLevelFair      QualityLevel = "fair"
	QualityLevelPoor      QualityLevel = "poor"
)

// DimensionScores 五个独立维度的评分，取值范围 0-100
type DimensionScores struct {
	Accuracy     float64 `json:"accuracy"`
	Practicality float64 `json:"practicality"`
	Completeness float64 `json:"completeness"`
	Generality   float64 `json:"generality"`
	Consistency  float64 `json:"consistency"`
}

// QualityEvaluation 质量评估结果
type QualityEvaluation struct {
	QualityScore    float64         `json:"quality_score"`
	QualityLevel    QualityLevel    `json:"quality_level"`
	DimensionScores DimensionScores `json:"dimension_scores"`
	ShouldKeep      bool            `json:"should_keep"`
	Issues          []string        `json:"issues,omitempty"`
	Suggestions     []string        `json:"suggestions,omitempty"`
}

// DuplicateType 重复类型，按严重程度降序: exact > semantic > structural > warning > none
type DuplicateType string

const (
	DuplicateTypeExact      DuplicateType = "exact"
	DuplicateTypeSemantic   DuplicateType = "semantic"
	DuplicateTypeStructural DuplicateType = "structural"
	DuplicateTypeWarning    DuplicateType = "warning"
	DuplicateTypeNone       DuplicateType = "none"
)

// MatchedRule 重复检测命中的语料库规则
type MatchedRule struct {
	RuleID     string  `json:"rule_id"`
	Title      string  `json:"title,omitempty"`
	Similarity float64 `json:"similarity"`
}

// DuplicateCheck 重复检测结果
type DuplicateCheck struct {
	IsDuplicate   bool          `json:"is_duplicate"`
	Similarity    float64       `json:"similarity"`
	DuplicateType DuplicateType `json:"duplicate_type"`
	MatchedRules  []MatchedRule `json:"matched_rules,omitempty"`
	Confidence    float64       `json:"confidence"`
	Explanation   string        `json:"explanation,omitempty"`
}

// ClassificationCategory 分类决策类别
type ClassificationCategory string

const (
	CategoryApproved     ClassificationCategory = "approved"
	CategoryManualReview ClassificationCategory = "manual_review"
	CategoryLowQuality   ClassificationCategory = "low_quality"
	CategoryDuplicate    ClassificationCategory = "duplicate"
	CategoryRejected     ClassificationCategory = "rejected"
)

// Classification 分类决策结果
// TargetBucket 是逻辑归档桶标识，文件落盘布局由外部协作方决定
type Classification struct {
	Category     ClassificationCategory `json:"category"`
	Reason       string                 `json:"reason"`
	TargetBucket string                 `json:"target_path"`
}

// EvaluationPhase 评估阶段标识，用于错误归属
type EvaluationPhase string

const (
	PhaseQuality        EvaluationPhase = "quality"
	PhaseDuplicate      EvaluationPhase = "duplicate"
	PhaseClassification EvaluationPhase = "classification"
	PhaseBatch          EvaluationPhase = "batch"
)

// EvaluationError 带阶段标识的评估错误
type EvaluationError struct {
	Phase   EvaluationPhase `json:"phase"`
	Message string          `json:"message"`
}

// EvaluationResult 单条规则的完整评估结果，构建后不可变
type EvaluationResult struct {
	Rule           *RuleRecord        `json:"rule"`
	Quality        *QualityEvaluation `json:"quality"`
	Duplicate      *DuplicateCheck    `json:"duplicate"`
	Classification *Classification    `json:"classification"`
	Errors         []EvaluationError  `json:"errors,omitempty"`
	FromCache      bool               `json:"from_cache,omitempty"`
	DurationMs     int64              `json:"duration_ms"`
	EvaluatedAt    time.Time          `json:"evaluated_at"`
}

// Failed 判断该条结果是否携带评估错误
func (r *EvaluationResult) Failed() bool {
	return len(r.Errors) > 0
}

// BatchSummary 批量评估汇总
type BatchSummary struct {
	TotalRules          int                            `json:"total_rules"`
	ProcessedRules      int                            `json:"processed_rules"`
	FailedRules         int                            `json:"failed_rules"`
	AverageQualityScore float64                        `json:"average_quality_score"`
	MinQualityScore     float64                        `json:"min_quality_score"`
	MaxQualityScore     float64                        `json:"max_quality_score"`
	DuplicatesFound     int                            `json:"duplicates_found"`
	CategoryCounts      map[ClassificationCategory]int `json:"category_counts"`
	CacheHits           int                            `json:"cache_hits"`
	ProcessingTimeMs    int64                          `json:"processing_time_ms"`
	AverageRuleTimeMs   float64                        `json:"average_rule_time_ms"`
}

// BatchProgress 批量评估进度事件，通过回调参数上报
type BatchProgress struct {
	Completed int                    `json:"completed"`
	Total     int                    `json:"total"`
	RuleID    string                 `json:"rule_id"`
	Category  ClassificationCategory `json:"category"`
}

// ProgressFunc 批量评估进度回调
type ProgressFunc func(progress BatchProgress)
