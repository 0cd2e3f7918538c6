package services

import (
	"context"
	"testing"
	"time"
)

func TestTaskTypeAnalysis_Constant(t *testing.T) {
	if TaskTypeAnalysis != "analysis:daily" {
		t.Errorf("TaskTypeAnalysis = %q, expected %q", TaskTypeAnalysis, "analysis:daily")
	}
}

func TestSyncQueue_New(t *testing.T) {
	queue := NewSyncQueue()
	if queue == nil {
		t.Error("NewSyncQueue should not return nil")
	}
}

func TestSyncQueue_IsAsync(t *testing.T) {
	queue := NewSyncQueue()
	if queue.IsAsync() {
		t.Error("SyncQueue.IsAsync() should return false")
	}
}

func TestSyncQueue_Close(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Close(); err != nil {
		t.Errorf("SyncQueue.Close() should return nil, got %v", err)
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	task := &AnalysisTask{UserID: 1, Date: "2026-03-02"}

	if err := queue.Enqueue(task); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_ProcessorReceivesTask(t *testing.T) {
	queue := NewSyncQueue()
	done := make(chan *AnalysisTask, 1)

	queue.SetProcessor(func(ctx context.Context, task *AnalysisTask) error {
		done <- task
		return nil
	})

	want := &AnalysisTask{UserID: 7, Date: "2026-03-02", Force: true}
	if err := queue.Enqueue(want); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case got := <-done:
		if got.UserID != 7 || got.Date != "2026-03-02" || !got.Force {
			t.Errorf("processor received %+v, expected %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("processor was not invoked")
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}
