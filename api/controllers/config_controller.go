/*
 * @module api/controllers/config_controller
 * @description 评估配置控制器，提供配置查询和分组热更新API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 配置更新整体校验，失败时返回全部违反项且当前配置保持不变
 * @dependencies rulehub-service/service/config, github.com/go-chi/render
 * @refs service/config/config_store.go
 */

package controllers

import (
	"net/http"
	"time"

	"rulehub-service/service/config"
	"rulehub-service/service/evaluation"
	"rulehub-service/service/models"

	"github.com/go-chi/render"
)

// ConfigController 评估配置控制器
type ConfigController struct {
	evalService *evaluation.EvaluationService
	configStore *config.ConfigStore
}

// NewConfigController 创建评估配置控制器实例
func NewConfigController(evalService *evaluation.EvaluationService, configStore *config.ConfigStore) *ConfigController {
	return &ConfigController{
		evalService: evalService,
		configStore: configStore,
	}
}

// ConfigResponse 配置查询响应
type ConfigResponse struct {
	Config    *models.EvaluationConfig `json:"config"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// GetConfig 获取当前生效配置
// @Summary 获取评估配置
// @Description 获取当前生效的评估配置及最近更新时间
// @Tags 评估配置
// @Produce json
// @Success 200 {object} APIResponse{data=ConfigResponse} "获取成功"
// @Router /evaluation/config [get]
func (c *ConfigController) GetConfig(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取评估配置成功",
		Data: ConfigResponse{
			Config:    c.configStore.Get(),
			UpdatedAt: c.configStore.UpdatedAt(),
		},
	})
}

// UpdateConfig 更新评估配置
// @Summary 更新评估配置
// @Description 按分组更新评估配置，未提供的分组保持当前值；校验失败返回全部违反项
// @Tags 评估配置
// @Accept json
// @Produce json
// @Param update body config.ConfigUpdate true "配置更新请求"
// @Success 200 {object} APIResponse{data=models.EvaluationConfig} "更新成功"
// @Failure 400 {object} APIResponse "配置校验失败"
// @Router /evaluation/config [put]
func (c *ConfigController) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update config.ConfigUpdate
	if err := render.DecodeJSON(r.Body, &update); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	updated, err := c.evalService.UpdateConfig(&update)
	if err != nil {
		if cfgErr, ok := err.(*config.ConfigError); ok {
			render.JSON(w, r, APIResponse{
				Status: http.StatusBadRequest,
				Msg:    "配置校验失败",
				Data:   map[string][]string{"violations": cfgErr.Violations},
			})
			return
		}
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "配置更新失败",
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "配置更新成功",
		Data:   updated,
	})
}
