package worker

import (
	"context"
	"testing"

	"github.com/grocer-next/internal/provider"
	"github.com/grocer-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleCommissionProcessRejectsBadPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskCommissionProcess, []byte("not-json"))

	if err := consumer.handleCommissionProcess(context.Background(), task); err == nil {
		t.Fatal("expected unmarshal error for malformed payload")
	}
}

func TestHandleCommissionProcessSkipsZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskCommissionProcess, []byte(`{"order_id":0}`))

	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped silently, got %v", err)
	}
}

func TestHandleCommissionProcessSkipsWhenServiceMissing(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskCommissionProcess, []byte(`{"order_id":42}`))

	// 服务未装配时任务不应重试
	if err := consumer.handleCommissionProcess(context.Background(), task); err != nil {
		t.Fatalf("missing commission service should no-op, got %v", err)
	}
}

func TestHandleCommissionProcessNilConsumerAndTask(t *testing.T) {
	var consumer *Consumer
	if err := consumer.handleCommissionProcess(context.Background(), nil); err != nil {
		t.Fatalf("nil consumer should no-op, got %v", err)
	}
}

func TestHandleOrderTimeoutCancelSkipsZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskOrderTimeoutCancel, []byte(`{"order_id":0}`))

	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("zero order id should be skipped silently, got %v", err)
	}
}
