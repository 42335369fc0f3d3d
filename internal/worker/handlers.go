// Package worker binds the reconciliation pipeline to the task queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"followerwatch/internal/reconcile"
	"followerwatch/pkg/tasks"
)

type TaskHandler struct {
	reconciler   *reconcile.Reconciler
	orchestrator *reconcile.Orchestrator
}

func NewTaskHandler(reconciler *reconcile.Reconciler, orchestrator *reconcile.Orchestrator) *TaskHandler {
	return &TaskHandler{reconciler: reconciler, orchestrator: orchestrator}
}

// HandleReconcilePairTask reconciles a single (chat, account) pair. A
// returned error lets asynq retry with its backoff schedule.
func (h *TaskHandler) HandleReconcilePairTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ReconcilePairTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Reconciling followers of %s for chat %d", p.Account, p.ChatID)
	if err := h.reconciler.UpdateFollowers(ctx, p.ChatID, p.Account); err != nil {
		return fmt.Errorf("failed to reconcile %s for chat %d: %w", p.Account, p.ChatID, err)
	}
	return nil
}

// HandleReconcileAllTask runs one full batch over every subscriber. Batch
// failures are handled inside the orchestrator; only enumeration of the
// data directory itself can fail the task.
func (h *TaskHandler) HandleReconcileAllTask(ctx context.Context, t *asynq.Task) error {
	log.Println("Reconciling all subscribers...")
	if err := h.orchestrator.ProcessAllUsers(ctx); err != nil {
		return fmt.Errorf("failed to process all users: %w", err)
	}
	log.Println("Finished reconciling all subscribers.")
	return nil
}
