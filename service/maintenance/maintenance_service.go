/*
 * @module service/maintenance/maintenance_service
 * @description 后台维护服务，定期清理过期的评估结果缓存并重建语料库索引
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 定时触发 -> 缓存清理/索引重建 -> 记录结果
 * @rules 维护任务失败只记录日志，不影响评估链路的正常运行
 * @dependencies rulehub-service/service/evaluation, github.com/robfig/cron/v3
 * @refs service/evaluation/evaluation_service.go, service/corpus/store.go
 */

package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"rulehub-service/service/distributed_lock"
	"rulehub-service/service/evaluation"

	"github.com/robfig/cron/v3"
)

const (
	// 缓存清理默认每5分钟一次
	defaultSweepSpec = "0 */5 * * * *"
	// 索引重建默认每小时一次，捕获其他实例的语料库写入
	defaultReloadSpec = "0 0 * * * *"
	// 维护任务锁的持有时长
	jobLockTTL = 2 * time.Minute
)

// MaintenanceService 后台维护服务
type MaintenanceService struct {
	evalService *evaluation.EvaluationService
	cron        *cron.Cron
	executor    *distributed_lock.LockExecutor // 可选，多实例部署时防止任务重复执行
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
}

// NewMaintenanceService 创建维护服务实例
// EVAL_MAINTENANCE_LOCK=true 时启用Redis分布式锁，多实例部署下同一任务只由一个实例执行
func NewMaintenanceService(evalService *evaluation.EvaluationService) *MaintenanceService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &MaintenanceService{
		evalService: evalService,
		cron:        cron.New(cron.WithSeconds()),
		ctx:         ctx,
		cancel:      cancel,
	}

	if getEnvWithDefault("EVAL_MAINTENANCE_LOCK", "false") == "true" {
		lock, err := distributed_lock.NewRedisLock()
		if err != nil {
			slog.Warn("维护任务分布式锁初始化失败，退回单实例模式", "error", err)
		} else {
			service.executor = distributed_lock.NewLockExecutor(lock)
		}
	}

	return service
}

// SweepCache 清理过期的评估结果缓存
func (s *MaintenanceService) SweepCache() {
	startTime := time.Now()
	if err := s.runExclusive("cache-sweep", func() error {
		s.evalService.SweepCache(s.ctx)
		return nil
	}); err != nil {
		slog.Error("评估缓存清理失败", "error", err)
		return
	}
	slog.Debug("评估缓存清理完成", "duration_ms", time.Since(startTime).Milliseconds())
}

// ReloadIndex 从存储重建语料库索引
func (s *MaintenanceService) ReloadIndex() error {
	return s.runExclusive("index-reload", func() error {
		size, err := s.evalService.ReloadIndex(s.ctx)
		if err != nil {
			return err
		}
		slog.Info("定时索引重建完成", "rules", size)
		return nil
	})
}

// runExclusive 在分布式锁保护下执行任务，未启用锁时直接执行
func (s *MaintenanceService) runExclusive(key string, fn func() error) error {
	if s.executor == nil {
		return fn()
	}
	return s.executor.ExecuteWithLock(s.ctx, key, jobLockTTL, fn)
}

// Start 注册并启动全部定时维护任务
// Cron表达式支持秒级字段：秒 分 时 日 月 周
func (s *MaintenanceService) Start() error {
	if s.started {
		return fmt.Errorf("维护调度器已经启动")
	}

	sweepSpec := getEnvWithDefault("EVAL_CACHE_SWEEP_CRON", defaultSweepSpec)
	if _, err := s.cron.AddFunc(sweepSpec, s.SweepCache); err != nil {
		return fmt.Errorf("注册缓存清理任务失败: %w", err)
	}

	reloadSpec := getEnvWithDefault("EVAL_INDEX_RELOAD_CRON", defaultReloadSpec)
	if _, err := s.cron.AddFunc(reloadSpec, func() {
		if err := s.ReloadIndex(); err != nil {
			slog.Error("定时索引重建失败", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("注册索引重建任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("维护调度器启动成功",
		"cache_sweep", sweepSpec,
		"index_reload", reloadSpec)
	return nil
}

// Stop 停止全部定时维护任务
func (s *MaintenanceService) Stop() {
	if !s.started {
		return
	}

	s.cancel()
	s.cron.Stop()
	s.started = false

	slog.Info("维护调度器已停止")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
