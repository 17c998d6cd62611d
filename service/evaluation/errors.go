/*
 * @module service/evaluation/errors
 * @description 评估流水线错误分类定义，区分校验错误、计算错误和容量错误
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 错误产生 -> 阶段归属 -> 按传播策略处理(单条降级/整批快速失败)
 * @rules 单条规则的计算错误降级进结果，容量与配置错误在任何worker启动前直接返回
 * @dependencies rulehub-service/service/models
 * @refs service/evaluation/batch_coordinator.go, service/config
 */

package evaluation

import (
	"fmt"

	"rulehub-service/service/models"
)

// ValidationError 规则数据校验错误
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("规则校验失败: %s %s", e.Field, e.Reason)
}

// ComputationError 带阶段标识的计算错误，在worker边界捕获并降级进单条结果
type ComputationError struct {
	Phase models.EvaluationPhase
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("评估阶段 %s 执行失败: %v", e.Phase, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// CapacityError 批量规模超限错误，在任何worker启动前返回
type CapacityError struct {
	BatchSize    int
	MaxBatchSize int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("批量规模 %d 超过配置上限 %d", e.BatchSize, e.MaxBatchSize)
}
