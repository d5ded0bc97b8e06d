package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/grocer-next/internal/logger"
	"github.com/grocer-next/internal/provider"
	"github.com/grocer-next/internal/queue"
	"github.com/grocer-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionProcess, c.handleCommissionProcess)
	mux.HandleFunc(queue.TaskCommissionBulkSync, c.handleCommissionBulkSync)
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
}

func (c *Consumer) handleCommissionProcess(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_process_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_process_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_process_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_commission_process_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.CommissionService.ProcessOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_commission_process_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderStatusInvalid):
			logger.Debugw("worker_commission_process_skip_invalid_status", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_commission_process_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleCommissionBulkSync(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_commission_bulk_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CommissionBulkSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_bulk_sync_unmarshal_failed", "error", err)
		return err
	}
	if c.SyncService == nil {
		logger.Warnw("worker_commission_bulk_sync_skip_service_nil", "reason", payload.Reason)
		return nil
	}
	report, err := c.SyncService.BulkSync()
	if err != nil {
		logger.Warnw("worker_commission_bulk_sync_failed", "reason", payload.Reason, "error", err)
		return err
	}
	logger.Infow("worker_commission_bulk_sync_done",
		"reason", payload.Reason,
		"synced", report.Synced,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return nil
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.CancelExpiredOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}
