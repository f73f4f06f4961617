package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
)

const (
	TaskTypeEmail = "email:send"
	TaskTypeAlert = "alert:im"
)

// EmailTask is a single outbound email
type EmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"` // HTML
}

// AlertTask fans an ops alert out to the IM bots
type AlertTask struct {
	Kind    string       `json:"kind"` // error, daily_report
	Message AlertMessage `json:"message"`
}

// TaskHandler processes the raw JSON payload of one task
type TaskHandler func(ctx context.Context, payload []byte) error

var (
	taskHandlers   = map[string]TaskHandler{}
	taskHandlersMu sync.RWMutex
)

// RegisterTaskHandler binds a handler to a task type for both queue modes
func RegisterTaskHandler(taskType string, handler TaskHandler) {
	taskHandlersMu.Lock()
	defer taskHandlersMu.Unlock()
	taskHandlers[taskType] = handler
}

func lookupTaskHandler(taskType string) (TaskHandler, bool) {
	taskHandlersMu.RLock()
	defer taskHandlersMu.RUnlock()
	h, ok := taskHandlers[taskType]
	return h, ok
}

func registeredTaskTypes() []string {
	taskHandlersMu.RLock()
	defer taskHandlersMu.RUnlock()
	types := make([]string, 0, len(taskHandlers))
	for t := range taskHandlers {
		types = append(types, t)
	}
	return types
}

// TaskQueue defines the interface for background task processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(taskType string, payload interface{}) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global task queue instance
var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance, or a sync queue before init
func GetTaskQueue() TaskQueue {
	if globalTaskQueue == nil {
		return defaultSyncQueue
	}
	return globalTaskQueue
}

var defaultSyncQueue = NewSyncQueue()

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Try to get queue info to verify connection
	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a task to the async queue
func (q *AsyncQueue) Enqueue(taskType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s task: %w", taskType, err)
	}

	info, err := q.client.Enqueue(asynq.NewTask(taskType, data),
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Debug().Str("task_id", info.ID).Str("type", taskType).Msg("[AsyncQueue] task enqueued")
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with in-process processing (no Redis)
type SyncQueue struct {
	wg sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// Enqueue runs the registered handler in a goroutine so callers never block
func (q *SyncQueue) Enqueue(taskType string, payload interface{}) error {
	handler, ok := lookupTaskHandler(taskType)
	if !ok {
		logger.Warnf("[SyncQueue] no handler for %s, task dropped", taskType)
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s task: %w", taskType, err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := handler(context.Background(), data); err != nil {
			logger.Errorf("[SyncQueue] %s failed: %v", taskType, err)
		}
	}()
	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
