/*
 * @module service/corpus/store
 * @description 语料库持久化存储，负责已入库规则的读写和内存索引重建
 * @architecture 分层架构 - 语料库服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 规则入库 -> 全量加载 -> 索引重建 -> 原子发布
 * @rules 索引重建是唯一的索引写入路径，读取方永远访问完整版本
 * @dependencies rulehub-service/service/models, gorm.io/gorm
 * @refs service/corpus/index.go, service/evaluation/evaluation_service.go
 */

package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rulehub-service/service/models"

	"gorm.io/gorm"
)

// Store 语料库存储
type Store struct {
	db     *gorm.DB
	holder *IndexHolder
}

// NewStore 创建语料库存储实例，索引初始为空，需调用Reload加载
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		holder: NewIndexHolder(nil),
	}
}

// AutoMigrate 迁移语料库表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.CorpusRule{})
}

// Index 获取当前索引快照
func (s *Store) Index() *Index {
	return s.holder.Current()
}

// ListAccepted 加载全部已入库规则
func (s *Store) ListAccepted(ctx context.Context) ([]*models.RuleRecord, error) {
	var dbRules []models.CorpusRule
	if err := s.db.WithContext(ctx).
		Where("status = ?", string(models.RuleStatusAccepted)).
		Find(&dbRules).Error; err != nil {
		return nil, fmt.Errorf("加载语料库规则失败: %w", err)
	}

	rules := make([]*models.RuleRecord, len(dbRules))
	for i := range dbRules {
		rules[i] = dbRules[i].ToRecord()
	}
	return rules, nil
}

// Insert 规则入库
func (s *Store) Insert(ctx context.Context, rule *models.RuleRecord) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("入库规则缺少ID")
	}
	corpusRule := models.NewCorpusRule(rule)
	if err := s.db.WithContext(ctx).Create(corpusRule).Error; err != nil {
		return fmt.Errorf("规则入库失败: %w", err)
	}
	return nil
}

// Count 已入库规则数量
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CorpusRule{}).
		Where("status = ?", string(models.RuleStatusAccepted)).
		Count(&count).Error
	return count, err
}

// Reload 从存储全量重建索引并原子发布
func (s *Store) Reload(ctx context.Context) error {
	startTime := time.Now()

	rules, err := s.ListAccepted(ctx)
	if err != nil {
		return fmt.Errorf("索引重建失败: %w", err)
	}

	idx := BuildIndex(rules)
	s.holder.Publish(idx)

	slog.Info("语料库索引重建完成",
		"rules", idx.Size(),
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}
