/*
 * @module service/corpus/index
 * @description 语料库内存索引，预计算重复检测所需的文本特征，支持按类别粗筛和swap-on-write重建
 * @architecture 分层架构 - 语料库服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 规则加载 -> 特征预计算 -> 不可变索引构建 -> 原子发布
 * @rules 索引一经构建不可变更，重建通过原子指针交换发布，热读路径无锁
 * @dependencies rulehub-service/service/models
 * @refs service/corpus/store.go, service/evaluation/duplicate_detector.go
 */

package corpus

import (
	"sync/atomic"
	"time"

	"rulehub-service/service/models"
)

// IndexedRule 带预计算特征的语料库规则
type IndexedRule struct {
	Rule             *models.RuleRecord
	NormTitle        string
	NormDescription  string
	TextBigrams      map[string]struct{}
	TextTokens       map[string]struct{}
	PatternSignature string
	TagSet           map[string]struct{}
	MetadataKeys     map[string]struct{}
}

// Index 不可变语料库索引
type Index struct {
	rules      []*IndexedRule
	byID       map[string]*IndexedRule
	byCategory map[models.RuleCategory][]*IndexedRule
	builtAt    time.Time
}

// IndexRule 预计算单条规则的比较特征
func IndexRule(rule *models.RuleRecord) *IndexedRule {
	combined := rule.Title + " " + rule.Description

	metaKeys := make(map[string]struct{}, len(rule.Metadata))
	for key := range rule.Metadata {
		metaKeys[NormalizeText(key)] = struct{}{}
	}

	tagSet := make(map[string]struct{}, len(rule.Tags))
	for _, tag := range rule.Tags {
		tagSet[NormalizeText(tag)] = struct{}{}
	}

	return &IndexedRule{
		Rule:             rule,
		NormTitle:        NormalizeText(rule.Title),
		NormDescription:  NormalizeText(rule.Description),
		TextBigrams:      Bigrams(combined),
		TextTokens:       Tokenize(combined),
		PatternSignature: PatternSignature(rule.SQLPattern),
		TagSet:           tagSet,
		MetadataKeys:     metaKeys,
	}
}

// BuildIndex 从规则集合构建不可变索引
func BuildIndex(rules []*models.RuleRecord) *Index {
	idx := &Index{
		rules:      make([]*IndexedRule, 0, len(rules)),
		byID:       make(map[string]*IndexedRule, len(rules)),
		byCategory: make(map[models.RuleCategory][]*IndexedRule),
		builtAt:    time.Now(),
	}

	for _, rule := range rules {
		if rule == nil || rule.ID == "" {
			continue
		}
		// 同ID后出现者忽略，保证索引内ID唯一
		if _, exists := idx.byID[rule.ID]; exists {
			continue
		}
		indexed := IndexRule(rule)
		idx.rules = append(idx.rules, indexed)
		idx.byID[rule.ID] = indexed
		idx.byCategory[rule.Category] = append(idx.byCategory[rule.Category], indexed)
	}

	return idx
}

// Size 索引内规则数量
func (idx *Index) Size() int {
	return len(idx.rules)
}

// BuiltAt 索引构建时间
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// Get 按ID查找索引规则
func (idx *Index) Get(id string) (*IndexedRule, bool) {
	indexed, ok := idx.byID[id]
	return indexed, ok
}

// All 返回全部索引规则
func (idx *Index) All() []*IndexedRule {
	return idx.rules
}

// Candidates 按类别粗筛候选规则，将全量四路比较的开销限定在同类规则内
// 类别缺失的规则退化为全量比较
func (idx *Index) Candidates(rule *models.RuleRecord) []*IndexedRule {
	if rule.Category == "" {
		return idx.rules
	}
	return idx.byCategory[rule.Category]
}

// IndexHolder 语料库索引持有者，通过原子指针发布不可变索引版本
type IndexHolder struct {
	current atomic.Pointer[Index]
}

// NewIndexHolder 创建索引持有者并发布初始索引
func NewIndexHolder(initial *Index) *IndexHolder {
	holder := &IndexHolder{}
	if initial == nil {
		initial = BuildIndex(nil)
	}
	holder.current.Store(initial)
	return holder
}

// Current 获取当前索引快照
func (h *IndexHolder) Current() *Index {
	return h.current.Load()
}

// Publish 原子发布新索引版本
func (h *IndexHolder) Publish(idx *Index) {
	h.current.Store(idx)
}
