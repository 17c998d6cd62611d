/*
 * @module service/evaluation/metrics
 * @description 评估流水线Prometheus指标定义
 * @architecture 工具层 - 可观测性
 * @stateFlow 指标注册 -> 评估过程打点 -> /metrics端点暴露
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go, service/evaluation/batch_coordinator.go
 */

package evaluation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRulesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rulehub_rules_evaluated_total",
		Help: "按处置类别统计的已评估规则数",
	}, []string{"category"})

	metricRuleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rulehub_rule_evaluation_seconds",
		Help:    "单条规则评估耗时",
		Buckets: prometheus.DefBuckets,
	})

	metricBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rulehub_batch_evaluation_seconds",
		Help:    "批量评估耗时",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	metricDuplicatesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulehub_duplicates_found_total",
		Help: "检测到的重复规则数",
	})

	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulehub_cache_hits_total",
		Help: "评估结果缓存命中数",
	})

	metricCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rulehub_cache_misses_total",
		Help: "评估结果缓存未命中数",
	})
)
