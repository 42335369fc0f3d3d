package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeReconcilePair = "followers:reconcile"
	TypeReconcileAll  = "followers:reconcile_all"
)

type ReconcilePairTaskPayload struct {
	ChatID  int64
	Account string
}

func NewReconcilePairTask(chatID int64, account string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePairTaskPayload{ChatID: chatID, Account: account})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReconcilePair, payload), nil
}

func NewReconcileAllTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeReconcileAll, nil), nil
}
