/*
 * @module api/controllers/evaluation_controller
 * @description 规则评估控制器，提供单条评估、批量评估、独立查重和语料库管理API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式，错误类型映射到对应状态码
 * @dependencies rulehub-service/service, github.com/go-chi/render
 * @refs service/evaluation/evaluation_service.go
 */

package controllers

import (
	"errors"
	"net/http"

	"rulehub-service/service/config"
	"rulehub-service/service/evaluation"
	"rulehub-service/service/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// EvaluationController 规则评估控制器
type EvaluationController struct {
	evalService *evaluation.EvaluationService
}

// NewEvaluationController 创建规则评估控制器实例
func NewEvaluationController(evalService *evaluation.EvaluationService) *EvaluationController {
	return &EvaluationController{
		evalService: evalService,
	}
}

// BatchEvaluationRequest 批量评估请求
type BatchEvaluationRequest struct {
	BatchID      string               `json:"batch_id"`
	Rules        []*models.RuleRecord `json:"rules"`
	Concurrency  int                  `json:"concurrency,omitempty"`
	DisableCache bool                 `json:"disable_cache,omitempty"`
}

// BatchEvaluationResponse 批量评估响应
type BatchEvaluationResponse struct {
	BatchID string                     `json:"batch_id"`
	Results []*models.EvaluationResult `json:"results"`
	Summary *models.BatchSummary       `json:"summary"`
}

// EvaluateRule 评估单条规则
// @Summary 评估单条规则
// @Description 对单条候选规则执行质量评估、重复检测和分类决策
// @Tags 规则评估
// @Accept json
// @Produce json
// @Param rule body models.RuleRecord true "候选规则"
// @Success 200 {object} APIResponse{data=models.EvaluationResult} "评估成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /evaluation/rules [post]
func (c *EvaluationController) EvaluateRule(w http.ResponseWriter, r *http.Request) {
	var rule models.RuleRecord
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	result, err := c.evalService.EvaluateRule(r.Context(), &rule)
	if err != nil {
		c.renderError(w, r, err, "规则评估失败")
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "规则评估成功",
		Data:   result,
	})
}

// EvaluateBatch 批量评估规则
// @Summary 批量评估规则
// @Description 对一批候选规则并发执行评估，结果顺序与提交顺序一致
// @Tags 规则评估
// @Accept json
// @Produce json
// @Param request body BatchEvaluationRequest true "批量评估请求"
// @Success 200 {object} APIResponse{data=BatchEvaluationResponse} "评估成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 413 {object} APIResponse "批量规模超过上限"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /evaluation/batches [post]
func (c *EvaluationController) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchEvaluationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if req.BatchID == "" {
		req.BatchID = uuid.New().String()
	}

	results, summary, err := c.evalService.EvaluateBatch(r.Context(), req.BatchID, req.Rules, evaluation.BatchOptions{
		Concurrency:  req.Concurrency,
		DisableCache: req.DisableCache,
	})
	if err != nil {
		c.renderError(w, r, err, "批量评估失败")
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "批量评估成功",
		Data: BatchEvaluationResponse{
			BatchID: req.BatchID,
			Results: results,
			Summary: summary,
		},
	})
}

// CheckDuplicate 独立查重
// @Summary 规则查重
// @Description 仅对规则执行重复检测，不做质量评估和分类
// @Tags 规则评估
// @Accept json
// @Produce json
// @Param rule body models.RuleRecord true "候选规则"
// @Success 200 {object} APIResponse{data=models.DuplicateCheck} "查重成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /evaluation/duplicate-check [post]
func (c *EvaluationController) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	var rule models.RuleRecord
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	check, err := c.evalService.CheckDuplicate(r.Context(), &rule)
	if err != nil {
		c.renderError(w, r, err, "规则查重失败")
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "规则查重成功",
		Data:   check,
	})
}

// AddCorpusRule 规则入库
// @Summary 规则入语料库
// @Description 将已通过的规则写入语料库并立即重建索引
// @Tags 语料库
// @Accept json
// @Produce json
// @Param rule body models.RuleRecord true "入库规则"
// @Success 201 {object} APIResponse "入库成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /evaluation/corpus/rules [post]
func (c *EvaluationController) AddCorpusRule(w http.ResponseWriter, r *http.Request) {
	var rule models.RuleRecord
	if err := render.DecodeJSON(r.Body, &rule); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	if err := c.evalService.AddToCorpus(r.Context(), &rule); err != nil {
		c.renderError(w, r, err, "规则入库失败")
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "规则入库成功",
	})
}

// ReloadIndex 重建语料库索引
// @Summary 重建语料库索引
// @Description 从存储全量重建语料库内存索引
// @Tags 语料库
// @Produce json
// @Success 200 {object} APIResponse "重建成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /evaluation/index/reload [post]
func (c *EvaluationController) ReloadIndex(w http.ResponseWriter, r *http.Request) {
	size, err := c.evalService.ReloadIndex(r.Context())
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "语料库索引重建失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "语料库索引重建成功",
		Data:   map[string]int{"corpus_size": size},
	})
}

// renderError 按错误类型映射响应状态
func (c *EvaluationController) renderError(w http.ResponseWriter, r *http.Request, err error, fallbackMsg string) {
	var valErr *evaluation.ValidationError
	var capErr *evaluation.CapacityError
	var cfgErr *config.ConfigError

	switch {
	case errors.As(err, &valErr):
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    valErr.Error(),
		})
	case errors.As(err, &capErr):
		render.JSON(w, r, APIResponse{
			Status: http.StatusRequestEntityTooLarge,
			Msg:    capErr.Error(),
		})
	case errors.As(err, &cfgErr):
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    cfgErr.Error(),
			Data:   map[string][]string{"violations": cfgErr.Violations},
		})
	default:
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    fallbackMsg,
		})
	}
}
