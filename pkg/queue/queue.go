package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/getsentry/sentry-go"
)

var ErrQueueFull = errors.New("queue is full")

// Message carries the logs of one committed operation.
type Message struct {
	ID         string
	CreatedAt  time.Time
	RetryCount int
	Logs       []types.Log
}

func NewMessage(logs []types.Log) *Message {
	id := "empty"
	if len(logs) > 0 {
		id = fmt.Sprintf("%d-%d", logs[0].BlockNumber, logs[0].Index)
	}

	return &Message{
		ID:        id,
		CreatedAt: time.Now(),
		Logs:      append([]types.Log{}, logs...),
	}
}

type Processor interface {
	Process(Message) error
}

type WebhookMessager interface {
	Notify(ctx context.Context, message string) error
	NotifyWarning(ctx context.Context, errorMessage error) error
	NotifyError(ctx context.Context, errorMessage error) error
}

// Service delivers messages to processors in enqueue order. A failing
// processor is retried with a growing pause before the next message is
// taken, so a later message never overtakes an earlier one.
type Service struct {
	name       string
	queue      chan Message
	quit       chan bool
	maxRetries int
	backoff    time.Duration

	ctx context.Context
	wm  WebhookMessager
}

func NewService(name string, maxRetries, bufferSize int, ctx context.Context, wm WebhookMessager) *Service {
	if ctx == nil {
		ctx = context.Background()
	}

	return &Service{
		name:       name,
		queue:      make(chan Message, bufferSize),
		quit:       make(chan bool),
		maxRetries: maxRetries,
		backoff:    time.Second,
		ctx:        ctx,
		wm:         wm,
	}
}

// SetBackoff changes the pause unit between retries.
func (s *Service) SetBackoff(d time.Duration) {
	s.backoff = d
}

// Emit enqueues the logs of one operation as a single message.
func (s *Service) Emit(logs ...types.Log) {
	if len(logs) == 0 {
		return
	}

	s.Enqueue(*NewMessage(logs))
}

func (s *Service) Enqueue(message Message) {
	select {
	case s.queue <- message:
		return
	default:
	}

	if s.wm != nil {
		s.wm.NotifyWarning(s.ctx, fmt.Errorf("%s: %w", s.name, ErrQueueFull))
	}

	s.queue <- message
}

func (s *Service) Close() {
	s.quit <- true
}

func (s *Service) Start(processors ...Processor) error {
	for {
		select {
		case message := <-s.queue:
			for _, p := range processors {
				if !s.process(p, message) {
					return nil
				}
			}
		case <-s.quit:
			// quit the service
			return nil
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

// process delivers message to p, retrying up to maxRetries. It reports
// false when the service was asked to stop while waiting.
func (s *Service) process(p Processor, message Message) bool {
	for {
		err := p.Process(message)
		if err == nil {
			return true
		}

		if message.RetryCount >= s.maxRetries {
			log.Default().Printf("%s: dropping message %s after %d retries: %v\n", s.name, message.ID, message.RetryCount, err)

			sentry.CaptureException(err)

			if s.wm != nil {
				s.wm.NotifyError(s.ctx, err)
			}

			return true
		}

		message.RetryCount++

		select {
		case <-time.After(time.Duration(message.RetryCount) * s.backoff):
		case <-s.quit:
			return false
		case <-s.ctx.Done():
			return false
		}
	}
}
