package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/logging"
)

type TaskQueue struct {
	client *asynq.Client
}

func NewQueue(cfg *config.RedisConfig) (*TaskQueue, error) {
	client := asynq.NewClient(redisOpt(cfg))

	// Activate and test the connection
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis queue: %w", err)
	}

	logging.Info("Connected to Redis task queue")

	return &TaskQueue{client: client}, nil
}

func (q *TaskQueue) Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	task := asynq.NewTask(taskType, payload, optionsFor(taskType)...)

	return q.client.Enqueue(task)
}

func (q *TaskQueue) Ping() error {
	return q.client.Ping()
}

func (q *TaskQueue) Close() error {
	return q.client.Close()
}

const (
	TypeEmailDelivery = "email:delivery"
)

func optionsFor(taskType string) []asynq.Option {
	switch taskType {
	case TypeEmailDelivery:
		return []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	default:
		return nil
	}
}

type EmailDeliveryPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template,omitempty"`
}

// EmailSender is implemented by aws.EmailService.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Worker struct {
	server *asynq.Server
	email  EmailSender
}

func NewWorker(cfg *config.RedisConfig, email EmailSender) *Worker {
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logging.Error("process task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	return &Worker{
		server: server,
		email:  email,
	}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, w.HandleEmailDelivery)
	return mux
}

// Run blocks until the process receives SIGTERM or SIGINT.
func (w *Worker) Run() error {
	return w.server.Run(w.Mux())
}

func (w *Worker) Start() error {
	return w.server.Start(w.Mux())
}

func (w *Worker) Close() {
	if w.server != nil {
		w.server.Shutdown()
	}
}

func (w *Worker) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var p EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	logging.Info("Sending email", "to", p.To, "subject", p.Subject, "template", p.Template)
	if err := w.email.SendEmail(ctx, p.To, p.Subject, p.Body); err != nil {
		return fmt.Errorf("emailService.SendEmail failed: %w", err)
	}

	return nil
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
