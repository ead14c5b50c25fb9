package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/OnellHernandez/studio/internal/api/middleware"
	"github.com/OnellHernandez/studio/internal/compat"
	"github.com/OnellHernandez/studio/internal/computer"
	"github.com/OnellHernandez/studio/internal/events"
	"github.com/OnellHernandez/studio/internal/logs"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultHeartbeat SSE 心跳间隔
const DefaultHeartbeat = 25 * time.Second

// ComputerHandler 计算机记录 HTTP 处理器
type ComputerHandler struct {
	service   *computer.Service
	broker    *events.Broker
	heartbeat time.Duration
}

// NewComputerHandler 创建 ComputerHandler 实例
func NewComputerHandler(service *computer.Service, broker *events.Broker) *ComputerHandler {
	return &ComputerHandler{
		service:   service,
		broker:    broker,
		heartbeat: DefaultHeartbeat,
	}
}

// CreateComputer 创建记录
// @Summary 创建计算机记录
// @Tags computers
// @Accept json
// @Produce json
// @Param computer body computer.CreateComputerRequest true "记录信息"
// @Success 201 {object} computer.ComputerResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/computers [post]
func (h *ComputerHandler) CreateComputer(c *gin.Context) {
	var req computer.CreateComputerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request parameters", err.Error())
		return
	}

	rec, err := h.service.CreateComputer(middleware.UserID(c), req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create computer")
		return
	}

	c.JSON(http.StatusCreated, computer.ToComputerResponse(rec))
}

// GetComputer 获取单条记录
// @Summary 获取计算机记录
// @Tags computers
// @Produce json
// @Param id path string true "记录 ID"
// @Success 200 {object} computer.ComputerResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/computers/{id} [get]
func (h *ComputerHandler) GetComputer(c *gin.Context) {
	rec, err := h.service.GetComputer(middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get computer")
		return
	}

	c.JSON(http.StatusOK, computer.ToComputerResponse(rec))
}

// ListComputers 获取记录列表
// @Summary 获取计算机记录列表
// @Tags computers
// @Produce json
// @Param search query string false "按资产标签或名称搜索"
// @Param status query string false "all|compatible|incompatible"
// @Param page query int false "页码（默认 1）"
// @Param page_size query int false "每页数量（默认 20，最大 100）"
// @Success 200 {object} computer.ComputerListResponse
// @Router /api/computers [get]
func (h *ComputerHandler) ListComputers(c *gin.Context) {
	var req computer.ListComputersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	result, err := h.service.ListComputers(middleware.UserID(c), req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to list computers")
		return
	}

	c.JSON(http.StatusOK, computer.ToListResponse(result))
}

// UpdateComputer 更新记录
// @Summary 更新计算机记录
// @Tags computers
// @Accept json
// @Produce json
// @Param id path string true "记录 ID"
// @Param computer body computer.UpdateComputerRequest true "更新字段"
// @Success 200 {object} computer.ComputerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/computers/{id} [put]
func (h *ComputerHandler) UpdateComputer(c *gin.Context) {
	var req computer.UpdateComputerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request parameters", err.Error())
		return
	}

	rec, err := h.service.UpdateComputer(middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update computer")
		return
	}

	c.JSON(http.StatusOK, computer.ToComputerResponse(rec))
}

// DeleteComputer 删除记录
// @Summary 删除计算机记录
// @Tags computers
// @Param id path string true "记录 ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/computers/{id} [delete]
func (h *ComputerHandler) DeleteComputer(c *gin.Context) {
	if err := h.service.DeleteComputer(middleware.UserID(c), c.Param("id")); err != nil {
		h.handleServiceError(c, err, "Failed to delete computer")
		return
	}

	c.Status(http.StatusNoContent)
}

// GetSummary 获取统计
// @Summary 仪表盘统计
// @Tags computers
// @Produce json
// @Success 200 {object} computer.SummaryResponse
// @Router /api/computers/summary [get]
func (h *ComputerHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summary(middleware.UserID(c))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get summary")
		return
	}

	c.JSON(http.StatusOK, computer.ToSummaryResponse(summary))
}

// Evaluate 对未保存的表单值进行实时评估
// @Summary 兼容性评估
// @Tags compatibility
// @Accept json
// @Produce json
// @Param input body compat.Input true "表单值"
// @Success 200 {object} computer.EvaluateResponse
// @Router /api/compatibility/evaluate [post]
func (h *ComputerHandler) Evaluate(c *gin.Context) {
	var in compat.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid request parameters", err.Error())
		return
	}

	c.JSON(http.StatusOK, computer.ToEvaluateResponse(in))
}

// StreamComputers 以 SSE 推送列表快照
// 连接建立时推送一次，之后每次变更推送一次
// @Summary 列表实时订阅
// @Tags computers
// @Produce text/event-stream
// @Router /api/computers/stream [get]
func (h *ComputerHandler) StreamComputers(c *gin.Context) {
	var req computer.ListComputersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "Invalid query parameters", err.Error())
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		respondError(c, http.StatusInternalServerError, CodeInternal, "Streaming unsupported", nil)
		return
	}

	owner := middleware.UserID(c)
	changes, cancel := h.broker.Subscribe(owner)
	defer cancel()

	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := logs.Logger.WithFields(logrus.Fields{
		"owner_id":   owner,
		"request_id": c.GetString(middleware.ContextRequestID),
	})
	log.Debug("列表订阅已建立")

	if err := h.writeSnapshot(c, owner, req); err != nil {
		log.WithError(err).Warn("推送列表快照失败")
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("列表订阅已断开")
			return
		case _, open := <-changes:
			if !open {
				return
			}
			if err := h.writeSnapshot(c, owner, req); err != nil {
				log.WithError(err).Warn("推送列表快照失败")
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *ComputerHandler) writeSnapshot(c *gin.Context, owner string, req computer.ListComputersRequest) error {
	result, err := h.service.ListComputers(owner, req)
	if err != nil {
		return err
	}

	event, err := formatSSEEvent("snapshot", computer.ToListResponse(result))
	if err != nil {
		return err
	}

	_, err = c.Writer.WriteString(event)
	return err
}

// handleServiceError 将业务错误映射为 HTTP 响应
func (h *ComputerHandler) handleServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, computer.ErrComputerNotFound):
		respondError(c, http.StatusNotFound, CodeNotFound, "Computer not found", nil)
	case errors.Is(err, computer.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error(), nil)
	default:
		logs.Logger.WithError(err).WithField("path", c.Request.URL.Path).Error(message)
		respondError(c, http.StatusInternalServerError, CodeInternal, message, nil)
	}
}
