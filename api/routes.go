/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs service/evaluation/evaluation_service.go
 */

package api

import (
	"rulehub-service/api/controllers"
	custmiddleware "rulehub-service/api/middleware"
	"rulehub-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API Key鉴权（未配置密钥哈希时自动关闭）
	r.Use(custmiddleware.NewAPIKeyAuthMiddleware().Middleware)

	// 健康检查
	healthController := controllers.NewHealthController(service.GlobalEvaluationService)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 规则评估
	r.Route("/evaluation", func(r chi.Router) {
		// 接口限流（EVAL_RATE_LIMIT_ENABLED=true时启用）
		r.Use(custmiddleware.NewRateLimitMiddleware().Middleware)

		evaluationController := controllers.NewEvaluationController(service.GlobalEvaluationService)
		configController := controllers.NewConfigController(service.GlobalEvaluationService, service.GlobalConfigStore)

		// 单条评估
		r.Post("/rules", evaluationController.EvaluateRule)

		// 批量评估
		r.Post("/batches", evaluationController.EvaluateBatch)

		// 独立查重
		r.Post("/duplicate-check", evaluationController.CheckDuplicate)

		// 语料库管理
		r.Post("/corpus/rules", evaluationController.AddCorpusRule)
		r.Post("/index/reload", evaluationController.ReloadIndex)

		// 评估配置
		r.Get("/config", configController.GetConfig)
		r.Put("/config", configController.UpdateConfig)
	})
}
