package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmaxwell0637/safetrack-fe/internal/service"
)

var (
	// ErrQueueFull is returned when the relay buffer has no room left.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned after Stop has been called.
	ErrStopped = errors.New("notification worker stopped")
)

type message struct {
	key     string
	payload any
}

// NotificationWorker relays events to a broker publisher in the background
// so request handlers never wait on the broker.
type NotificationWorker struct {
	publisher service.EventPublisher
	logger    *zap.Logger
	timeout   time.Duration

	mu      sync.RWMutex
	stopped bool
	queue   chan message
	done    chan struct{}
	start   sync.Once
}

// NewNotificationWorker creates a worker with a bounded queue.
func NewNotificationWorker(publisher service.EventPublisher, buffer int, timeout time.Duration, logger *zap.Logger) *NotificationWorker {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
		queue:     make(chan message, buffer),
		done:      make(chan struct{}),
	}
}

// PublishJSON enqueues the payload. It satisfies service.EventPublisher.
func (w *NotificationWorker) PublishJSON(_ context.Context, key string, v any) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- message{key: key, payload: v}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the relay loop. Calling it more than once has no effect.
func (w *NotificationWorker) Start() {
	w.start.Do(func() {
		go w.run()
	})
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for msg := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.publisher.PublishJSON(ctx, msg.key, msg.payload); err != nil {
			w.logger.Warn("event relay failed", zap.String("routing_key", msg.key), zap.Error(err))
		}
		cancel()
	}
}

// Stop refuses new events and waits for the queue to drain or ctx to end.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.Start()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartNotificationWorker registers notification handlers and starts the
// relay when one is given.
func StartNotificationWorker(notificationService *service.NotificationService, relay *NotificationWorker) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if relay != nil {
		relay.Start()
	}
}
