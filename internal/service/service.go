// Package service provides business-logic for the app: the trash-review workflow
// and the purge history.
package service

import (
	"context"
	"image"
	"time"

	"github.com/junker098/universe-app/internal/model"
	"github.com/junker098/universe-app/internal/repository"
	"github.com/wb-go/wbf/retry"
)

// PhotoSource - контракт для работы с библиотекой фотографий
type PhotoSource interface {
	RequestAuthorization(ctx context.Context) (model.AuthStatus, error)
	FetchAllPhotos(ctx context.Context) ([]model.Photo, error) // новые сверху
	FetchImage(ctx context.Context, id string) (image.Image, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// Стратегия ретрая отправки аудита в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

const (
	defaultSourceTimeout = 30 * time.Second
	defaultEventBuffer   = 64
)

// Options tunes a ReviewService. Zero values fall back to defaults.
type Options struct {
	SourceTimeout time.Duration
	SourceName    string
	EventBuffer   int
}

type command func() error

// ReviewService owns the review state. All state lives inside the goroutine
// started by Run; public methods hand commands to it and wait for the reply.
type ReviewService struct {
	source    PhotoSource
	flags     repository.FlagRepository
	publisher TaskPublisher
	bus       *EventBus
	timeout   time.Duration
	srcName   string

	cmds    chan command
	stopped chan struct{}

	// состояние ниже трогается только из Run
	phase     model.Phase
	showing   string
	photos    []model.Photo
	index     map[string]int
	current   string
	gen       uint64
	reloading bool
	loaded    bool
}

func NewReviewService(src PhotoSource, flags repository.FlagRepository, pub TaskPublisher, opts Options) *ReviewService {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = defaultSourceTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.SourceName == "" {
		opts.SourceName = "library"
	}

	return &ReviewService{
		source:    src,
		flags:     flags,
		publisher: pub,
		bus:       NewEventBus(opts.EventBuffer),
		timeout:   opts.SourceTimeout,
		srcName:   opts.SourceName,
		cmds:      make(chan command),
		stopped:   make(chan struct{}),
		phase:     model.PhaseIdle,
		index:     map[string]int{},
	}
}

// Run processes commands until ctx is done. It must be started exactly once.
func (s *ReviewService) Run(ctx context.Context) {
	defer func() {
		close(s.stopped)
		s.bus.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			_ = cmd()
		}
	}
}

// Subscribe returns the event stream and a cancel func releasing it.
func (s *ReviewService) Subscribe() (<-chan model.Event, func()) {
	return s.bus.Subscribe()
}

// exec runs fn inside the owner loop and returns its error.
func (s *ReviewService) exec(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	cmd := func() error {
		err := fn()
		reply <- err
		return err
	}

	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return model.ErrWorkflowStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post re-delivers an async completion into the owner loop. Dropped when the
// loop is gone.
func (s *ReviewService) post(fn func()) {
	select {
	case s.cmds <- func() error { fn(); return nil }:
	case <-s.stopped:
	}
}

// detached keeps ctx values (request logger) but not its cancellation: the
// completion of a source call must land even after the HTTP request is gone.
func (s *ReviewService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}
