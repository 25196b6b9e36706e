package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Handler processes one decoded update. Implementations must not panic
// past their own boundary; the dispatcher recovers on their behalf.
type Handler func(ctx context.Context, update *Update)

// Poller implements long-polling for receiving Telegram updates. Updates are
// handled one at a time in arrival order.
type Poller struct {
	client   *Client
	handler  Handler
	logger   *slog.Logger
	config   Config
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	pause    time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(client *Client, handler Handler, logger *slog.Logger, config Config) *Poller {
	return &Poller{
		client:  client,
		handler: handler,
		logger:  logger,
		config:  config,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		pause:   errorPauseDuration,
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop signals the polling loop to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	var offset int
	var consecutiveErrors int

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		updates, err := p.client.GetUpdates(p.ctx(), GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.config.PollingTimeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", p.pause,
				)
				select {
				case <-p.stopCh:
					return
				case <-time.After(p.pause):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for i := range updates {
			offset = updates[i].UpdateID + 1
			p.handler(p.ctx(), &updates[i])
		}
	}
}

// ctx returns a context that is cancelled when the poller stops.
func (p *Poller) ctx() contextWrapper {
	return contextWrapper{stopCh: p.stopCh}
}

// contextWrapper adapts a stop channel to a context.Context for the HTTP client.
type contextWrapper struct {
	stopCh <-chan struct{}
}

func (c contextWrapper) Deadline() (time.Time, bool) { return time.Time{}, false }
func (c contextWrapper) Done() <-chan struct{}       { return c.stopCh }

func (c contextWrapper) Err() error {
	select {
	case <-c.stopCh:
		return errPollerStopped
	default:
		return nil
	}
}

func (c contextWrapper) Value(any) any { return nil }

var errPollerStopped = pollerStoppedError{}

type pollerStoppedError struct{}

func (pollerStoppedError) Error() string { return "poller stopped" }
