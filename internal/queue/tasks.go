package queue

import (
	"encoding/json"

	"github.com/grocer-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionProcess 订单佣金处理任务
	TaskCommissionProcess = constants.TaskCommissionProcess
	// TaskCommissionBulkSync 佣金批量同步任务
	TaskCommissionBulkSync = constants.TaskCommissionBulkSync
	// TaskOrderTimeoutCancel 超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
)

// CommissionProcessPayload 订单佣金处理任务载荷
type CommissionProcessPayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionBulkSyncPayload 佣金批量同步任务载荷
type CommissionBulkSyncPayload struct {
	Reason string `json:"reason,omitempty"`
}

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// NewCommissionProcessTask 创建订单佣金处理任务
func NewCommissionProcessTask(payload CommissionProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionProcess, body), nil
}

// NewCommissionBulkSyncTask 创建佣金批量同步任务
func NewCommissionBulkSyncTask(payload CommissionBulkSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionBulkSync, body), nil
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}
