/*
 * @module service/models/rule
 * @description 检测规则模型定义，包括候选规则、规则语料库存储模型和相关枚举
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 候选规则提交 -> 评估流水线处理 -> 入库/人工复核/丢弃
 * @rules 规则ID在单个批次内和语料库范围内全局唯一
 * @dependencies gorm.io/gorm, github.com/google/uuid, github.com/lib/pq
 * @refs service/evaluation, service/corpus
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// RuleCategory 规则类别
type RuleCategory string

const (
	RuleCategoryPerformance     RuleCategory = "performance"
	RuleCategorySecurity        RuleCategory = "security"
	RuleCategoryStandards       RuleCategory = "standards"
	RuleCategoryMaintainability RuleCategory = "maintainability"
	RuleCategoryCompatibility   RuleCategory = "compatibility"
)

// RuleSeverity 规则严重程度
type RuleSeverity string

const (
	RuleSeverityCritical RuleSeverity = "critical"
	RuleSeverityHigh     RuleSeverity = "high"
	RuleSeverityMedium   RuleSeverity = "medium"
	RuleSeverityLow      RuleSeverity = "low"
)

// RuleStatus 规则状态
type RuleStatus string

const (
	RuleStatusPending  RuleStatus = "pending"
	RuleStatusAccepted RuleStatus = "accepted"
	RuleStatusRejected RuleStatus = "rejected"
)

// ValidRuleCategories 所有合法的规则类别
var ValidRuleCategories = []RuleCategory{
	RuleCategoryPerformance,
	RuleCategorySecurity,
	RuleCategoryStandards,
	RuleCategoryMaintainability,
	RuleCategoryCompatibility,
}

// ValidRuleSeverities 所有合法的严重程度，按严重程度降序
var ValidRuleSeverities = []RuleSeverity{
	RuleSeverityCritical,
	RuleSeverityHigh,
	RuleSeverityMedium,
	RuleSeverityLow,
}

// RuleExamples 规则正反示例
type RuleExamples struct {
	Bad  []string `json:"bad"`
	Good []string `json:"good"`
}

// RuleRecord 候选检测规则，评估流水线的输入数据结构
type RuleRecord struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    RuleCategory `json:"category"`
	Severity    RuleSeverity `json:"severity"`
	SQLPattern  string       `json:"sql_pattern"`
	Examples    RuleExamples `json:"examples"`
	Tags        []string     `json:"tags"`
	Metadata    JSONB        `json:"metadata"`
	Status      RuleStatus   `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsValidCategory 判断类别是否合法
func IsValidCategory(c RuleCategory) bool {
	for _, valid := range ValidRuleCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// IsValidSeverity 判断严重程度是否合法
func IsValidSeverity(s RuleSeverity) bool {
	for _, valid := range ValidRuleSeverities {
		if s == valid {
			return true
		}
	}
	return false
}

// CorpusRule 语料库规则存储模型，保存已入库的规则用于重复检测
type CorpusRule struct {
	ID           string         `gorm:"type:uuid;primary_key" json:"id"`
	Title        string         `gorm:"not null;size:500" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Category     string         `gorm:"not null;size:50;index:idx_corpus_rules_cat_sev" json:"category"`
	Severity     string         `gorm:"not null;size:20;index:idx_corpus_rules_cat_sev" json:"severity"`
	SQLPattern   string         `gorm:"type:text" json:"sql_pattern"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	BadExamples  JSONBStringArray  `gorm:"type:jsonb" json:"bad_examples"`
	GoodExamples JSONBStringArray  `gorm:"type:jsonb" json:"good_examples"`
	Metadata     JSONB          `gorm:"type:jsonb" json:"metadata"`
	Status       string         `gorm:"not null;default:'accepted';size:20" json:"status"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (CorpusRule) TableName() string {
	return "corpus_rules"
}

// BeforeCreate 创建前钩子
func (r *CorpusRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = string(RuleStatusAccepted)
	}
	return nil
}

// ToRecord 转换为流水线使用的规则结构
func (r *CorpusRule) ToRecord() *RuleRecord {
	return &RuleRecord{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Category:    RuleCategory(r.Category),
		Severity:    RuleSeverity(r.Severity),
		SQLPattern:  r.SQLPattern,
		Examples: RuleExamples{
			Bad:  []string(r.BadExamples),
			Good: []string(r.GoodExamples),
		},
		Tags:      []string(r.Tags),
		Metadata:  r.Metadata,
		Status:    RuleStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// NewCorpusRule 从流水线规则构建存储模型
func NewCorpusRule(rule *RuleRecord) *CorpusRule {
	return &CorpusRule{
		ID:           rule.ID,
		Title:        rule.Title,
		Description:  rule.Description,
		Category:     string(rule.Category),
		Severity:     string(rule.Severity),
		SQLPattern:   rule.SQLPattern,
		Tags:         pq.StringArray(rule.Tags),
		BadExamples:  JSONBStringArray(rule.Examples.Bad),
		GoodExamples: JSONBStringArray(rule.Examples.Good),
		Metadata:     rule.Metadata,
		Status:       string(RuleStatusAccepted),
	}
}
