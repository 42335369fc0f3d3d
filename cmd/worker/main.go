package main

import (
	"log"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"followerwatch/internal/db"
	"followerwatch/internal/notify"
	"followerwatch/internal/reconcile"
	"followerwatch/internal/snapshot"
	"followerwatch/internal/worker"
	"followerwatch/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	db.InitDB()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "userdata"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	store := snapshot.NewStore(dataDir)
	reconciler := reconcile.NewReconciler(store, notify.New(bot))
	orchestrator := reconcile.NewOrchestrator(store, reconciler)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Custom retry delay function for exponential backoff
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 1 * time.Minute
				maxDelay := 1 * time.Hour

				// Exponential backoff: 1min, 2min, 4min, 8min, etc.
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				log.Printf("Task %s failed %d times, retrying in %v", task.Type(), n+1, delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(reconciler, orchestrator)

	mux.HandleFunc(tasks.TypeReconcilePair, taskHandler.HandleReconcilePairTask)
	mux.HandleFunc(tasks.TypeReconcileAll, taskHandler.HandleReconcileAllTask)

	log.Printf("Worker starting (commit: %s)", CommitSHA)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}
