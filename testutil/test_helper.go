/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"rulehub-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	if err := db.AutoMigrate(&models.CorpusRule{}); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tdb.DB.Exec("DELETE FROM corpus_rules")
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// RuleOption 规则选项函数类型
type RuleOption func(*models.RuleRecord)

// WithCategory 设置规则类别
func WithCategory(category models.RuleCategory) RuleOption {
	return func(r *models.RuleRecord) { r.Category = category }
}

// WithSeverity 设置规则严重程度
func WithSeverity(severity models.RuleSeverity) RuleOption {
	return func(r *models.RuleRecord) { r.Severity = severity }
}

// WithPattern 设置SQL模式
func WithPattern(pattern string) RuleOption {
	return func(r *models.RuleRecord) { r.SQLPattern = pattern }
}

// NewRule 创建测试规则
func NewRule(id string, opts ...RuleOption) *models.RuleRecord {
	rule := &models.RuleRecord{
		ID:          id,
		Title:       "Avoid select star in wide table queries " + id,
		Description: "Select star on wide tables pulls unused columns and disables covering index plans for the query " + id,
		Category:    models.RuleCategoryPerformance,
		Severity:    models.RuleSeverityMedium,
		SQLPattern:  "select * from wide_table where created_at > ?",
		Examples: models.RuleExamples{
			Bad:  []string{"SELECT * FROM wide_table"},
			Good: []string{"SELECT id, name FROM wide_table"},
		},
		Tags:      []string{"performance", "select"},
		Metadata:  models.JSONB{"suggestion": "只查询需要的列"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(rule)
	}
	return rule
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// CreateCorpusRule 写入一条语料库规则
func (f *TestDataFactory) CreateCorpusRule(id string, opts ...RuleOption) *models.RuleRecord {
	rule := NewRule(id, opts...)
	if err := f.DB.Create(models.NewCorpusRule(rule)).Error; err != nil {
		panic(fmt.Sprintf("failed to create test corpus rule: %v", err))
	}
	return rule
}

