package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caffeineduck/runpad/console"
)

// Run tracks one accepted request.
type Run struct {
	ID       string
	Language string

	done     chan struct{}
	err      error
	duration time.Duration
}

func newRun(language string) *Run {
	return &Run{
		ID:       uuid.NewString(),
		Language: language,
		done:     make(chan struct{}),
	}
}

func (r *Run) finish(err error, d time.Duration) {
	r.err = err
	r.duration = d
	close(r.done)
}

// Done is closed once every entry of the run has been appended.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Pending reports whether the run has not completed yet.
func (r *Run) Pending() bool {
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the run completes or ctx is done. It returns the
// failure already recorded in the log, or ctx.Err().
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the recorded failure. Only meaningful after Done is closed.
func (r *Run) Err() error {
	if r.Pending() {
		return nil
	}
	return r.err
}

// Duration returns how long the run took. Zero while pending.
func (r *Run) Duration() time.Duration {
	if r.Pending() {
		return 0
	}
	return r.duration
}

// Dispatcher routes requests to registered runners for one session. At most
// one run is in progress at a time.
type Dispatcher struct {
	registry *Registry
	sink     Sink
	cfg      dispatcherConfig

	mu     sync.Mutex
	active *Run
}

// NewDispatcher returns a dispatcher that runs languages from registry and
// appends every entry to sink.
func NewDispatcher(registry *Registry, sink Sink, opts ...Option) *Dispatcher {
	cfg := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		registry: registry,
		sink:     sink,
		cfg:      cfg,
	}
}

// Run executes source with the runner registered for language. It returns
// ErrBusy without side effects while another run is pending. An unknown
// language appends one error entry and returns a completed Run.
func (d *Dispatcher) Run(ctx context.Context, language, source string) (*Run, error) {
	d.mu.Lock()
	if d.active != nil {
		activeID := d.active.ID
		d.mu.Unlock()
		if d.cfg.observer != nil {
			d.cfg.observer.ObserveRejected(d.label(language))
		}
		d.cfg.logger.Debug("run rejected", zap.String("language", language), zap.String("active", activeID))
		return nil, ErrBusy
	}

	run := newRun(language)
	rn, ok := d.registry.Get(language)
	if !ok {
		d.mu.Unlock()
		err := &DispatchError{Language: language}
		d.sink.Append(console.Error, err.Error())
		d.observe(UnsupportedLabel, err, 0)
		run.finish(err, 0)
		d.cfg.logger.Warn("unsupported language", zap.String("language", language))
		return run, nil
	}
	d.active = run
	d.mu.Unlock()

	d.cfg.logger.Debug("run started",
		zap.String("run_id", run.ID),
		zap.String("language", language),
		zap.Stringer("mode", rn.Mode()),
		zap.Int("source_bytes", len(source)),
	)

	if rn.Mode() == Async {
		go d.execute(ctx, rn, run, source)
	} else {
		d.execute(ctx, rn, run, source)
	}
	return run, nil
}

// Do is Run for a Request value.
func (d *Dispatcher) Do(ctx context.Context, req Request) (*Run, error) {
	return d.Run(ctx, req.Language, req.Source)
}

// Busy reports whether a run is in progress.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

func (d *Dispatcher) execute(ctx context.Context, rn Runner, run *Run, source string) {
	start := time.Now()

	if d.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.timeout)
		defer cancel()
	}

	err := Execute(ctx, rn, source, d.sink)
	elapsed := time.Since(start)

	d.mu.Lock()
	d.active = nil
	d.mu.Unlock()

	d.observe(run.Language, err, elapsed)

	fields := []zap.Field{
		zap.String("run_id", run.ID),
		zap.String("language", run.Language),
		zap.Duration("duration", elapsed),
		zap.String("status", status(err)),
	}
	if err != nil {
		d.cfg.logger.Info("run failed", append(fields, zap.Error(err))...)
	} else {
		d.cfg.logger.Info("run finished", fields...)
	}

	run.finish(err, elapsed)
}

// UnsupportedLabel is the language reported to the Observer for tags with
// no registered runner, so caller-supplied tags cannot grow label sets.
const UnsupportedLabel = "unsupported"

func (d *Dispatcher) label(language string) string {
	if _, ok := d.registry.Get(language); ok {
		return language
	}
	return UnsupportedLabel
}

func (d *Dispatcher) observe(language string, err error, elapsed time.Duration) {
	if d.cfg.observer != nil {
		d.cfg.observer.ObserveRun(language, status(err), elapsed)
	}
}
