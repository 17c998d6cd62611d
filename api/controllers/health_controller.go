/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态、语料库与缓存运行快照
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 提供健康检查接口，用于容器健康检查和负载均衡；就绪检查要求语料库索引已构建
 * @dependencies net/http, rulehub-service/service/evaluation
 * @refs service/evaluation/evaluation_service.go
 */

package controllers

import (
	"net/http"
	"time"

	"rulehub-service/service/evaluation"

	"github.com/go-chi/render"
)

// HealthController 健康检查控制器
type HealthController struct {
	evalService *evaluation.EvaluationService
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(evalService *evaluation.EvaluationService) *HealthController {
	return &HealthController{evalService: evalService}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string                   `json:"status" example:"ok"`
	Timestamp time.Time                `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string                   `json:"version" example:"1.0.0"`
	Service   string                   `json:"service" example:"rulehub-service"`
	Detail    *evaluation.HealthStatus `json:"detail,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态，返回语料库与缓存运行快照
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "rulehub-service",
	}
	if c.evalService != nil {
		response.Detail = c.evalService.GetHealth(r.Context())
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪，语料库索引尚未构建时返回503
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "rulehub-service",
	}

	if c.evalService == nil {
		response.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response)
		return
	}

	detail := c.evalService.GetHealth(r.Context())
	response.Detail = detail
	if detail.IndexBuiltAt.IsZero() {
		response.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response)
		return
	}

	render.JSON(w, r, response)
}
