/*
 * @module api/controllers/config_controller_test
 * @description 评估配置控制器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 确保配置查询与热更新API的正确性
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"rulehub-service/service/config"
	"rulehub-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConfigTestController 构建配置控制器测试环境
func newConfigTestController(t *testing.T) (*ConfigController, *evalTestEnv) {
	env := newEvalTestEnv(t)
	return NewConfigController(env.evalService, env.configStore), env
}

// TestGetEvaluationConfig 测试获取当前生效配置
func TestGetEvaluationConfig(t *testing.T) {
	controller, _ := newConfigTestController(t)

	req := httptest.NewRequest(http.MethodGet, "/evaluation/config", nil)
	w := httptest.NewRecorder()

	controller.GetConfig(w, req)

	response := decodeResponse(t, w)
	assert.Equal(t, http.StatusOK, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	cfg, ok := data["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "builtin-default", cfg["version"])
	assert.Contains(t, cfg, "duplicate_detection")
	assert.Contains(t, cfg, "quality_assessment")
	assert.Contains(t, cfg, "classification")
	assert.Contains(t, cfg, "performance")
}

// TestUpdateEvaluationConfig 测试分组热更新
func TestUpdateEvaluationConfig(t *testing.T) {
	controller, env := newConfigTestController(t)

	update := config.ConfigUpdate{
		Classification: &models.ClassificationConfig{
			MinQualityScore: 50,
			ApprovalScore:   85,
			ManualReviewTriggers: models.ManualReviewTriggers{
				BorderlineBand:        5,
				MinDetectorConfidence: 0.6,
			},
		},
	}
	req := postJSON(t, "/evaluation/config", update)
	w := httptest.NewRecorder()

	controller.UpdateConfig(w, req)

	response := decodeResponse(t, w)
	assert.Equal(t, http.StatusOK, response.Status)

	// 更新立即生效，未提供的分组保持默认值
	current := env.configStore.Get()
	assert.Equal(t, 85.0, current.Classification.ApprovalScore)
	assert.Equal(t, 0.30, current.DuplicateDetection.Weights.Exact)
}

// TestUpdateEvaluationConfig_Invalid 测试校验失败时返回全部违反项
func TestUpdateEvaluationConfig_Invalid(t *testing.T) {
	controller, env := newConfigTestController(t)
	before := env.configStore.Get()

	update := config.ConfigUpdate{
		DuplicateDetection: &models.DuplicateDetectionConfig{
			Thresholds: models.DuplicateThresholds{
				Exact:      0.60,
				Semantic:   0.85,
				Structural: 0.75,
				Warning:    0.90,
			},
			Weights: models.DuplicateWeights{
				Exact:      0.9,
				Semantic:   0.9,
				Structural: 0.9,
				Content:    0.9,
			},
		},
	}
	req := postJSON(t, "/evaluation/config", update)
	w := httptest.NewRecorder()

	controller.UpdateConfig(w, req)

	response := decodeResponse(t, w)
	assert.Equal(t, http.StatusBadRequest, response.Status)

	data, ok := response.Data.(map[string]interface{})
	require.True(t, ok)
	violations, ok := data["violations"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, violations)

	// 校验失败时当前配置保持不变
	assert.Same(t, before, env.configStore.Get())
}

// TestUpdateEvaluationConfig_InvalidJSON 测试无效JSON请求体
func TestUpdateEvaluationConfig_InvalidJSON(t *testing.T) {
	controller, _ := newConfigTestController(t)

	req := httptest.NewRequest(http.MethodPut, "/evaluation/config",
		bytes.NewBufferString("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	controller.UpdateConfig(w, req)

	response := decodeResponse(t, w)
	assert.Equal(t, http.StatusBadRequest, response.Status)
}
