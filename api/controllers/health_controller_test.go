/*
 * @module api/controllers/health_controller_test
 * @description 健康检查控制器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 测试准备 -> 请求构建 -> 响应验证
 * @rules 确保健康检查与就绪检查行为正确
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealth 测试健康检查返回运行快照
func TestHealth(t *testing.T) {
	env := newEvalTestEnv(t)
	controller := NewHealthController(env.evalService)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	controller.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "rulehub-service", response.Service)
	require.NotNil(t, response.Detail)
	assert.Equal(t, "builtin-default", response.Detail.ConfigVersion)
}

// TestHealth_WithoutService 测试服务未初始化时的健康检查
func TestHealth_WithoutService(t *testing.T) {
	controller := NewHealthController(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	controller.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Nil(t, response.Detail)
}

// TestReady 测试索引已构建时就绪
func TestReady(t *testing.T) {
	env := newEvalTestEnv(t)
	controller := NewHealthController(env.evalService)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	controller.Ready(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ready", response.Status)
}

// TestReady_WithoutService 测试服务未初始化时返回503
func TestReady_WithoutService(t *testing.T) {
	controller := NewHealthController(nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	controller.Ready(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "not_ready", response.Status)
}
