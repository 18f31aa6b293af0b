// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/cohort/internal/adapters/mq/queue"
	workerpool "github.com/okian/cohort/internal/adapters/mq/worker"
	"github.com/okian/cohort/internal/adapters/repository"
	"github.com/okian/cohort/internal/adapters/solver"
	"github.com/okian/cohort/internal/domain/assign"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/plan"
	"github.com/okian/cohort/internal/solve"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultMaxParticipants = 5000
	defaultMaxTimeSeconds  = 60
	defaultProgressBuffer  = 256
	defaultRunHistory      = 100
)

// Service implements the API dependencies for the team formation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	history repository.Store
	pool    *workerpool.Pool

	// Configuration
	solveWorkers    int
	progressBuffer  int
	runHistory      int
	maxParticipants int
	maxTimeSeconds  int
	engineRestarts  int
	engineSteps     int

	// newEngine builds the engine for one run; replaceable in tests.
	newEngine func() solve.Engine

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSolveWorkers sets how many solves may run concurrently.
func WithSolveWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.solveWorkers = count
		}
	}
}

// WithProgressBuffer sets the per-run progress queue capacity.
func WithProgressBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.progressBuffer = size
		}
	}
}

// WithRunHistory sets how many finished runs are retained for stats.
func WithRunHistory(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.runHistory = size
		}
	}
}

// WithMaxParticipants caps the roster size a request may carry.
func WithMaxParticipants(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxParticipants = n
		}
	}
}

// WithDefaultMaxTime sets the time budget applied when a request has none.
func WithDefaultMaxTime(seconds int) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.maxTimeSeconds = seconds
		}
	}
}

// WithEngineParams sets the search effort per solve run.
func WithEngineParams(restarts, steps int) Option {
	return func(s *Service) {
		if restarts > 0 {
			s.engineRestarts = restarts
		}
		if steps > 1 {
			s.engineSteps = steps
		}
	}
}

// WithEngine replaces the engine factory, mainly for tests.
func WithEngine(factory func() solve.Engine) Option {
	return func(s *Service) {
		if factory != nil {
			s.newEngine = factory
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		solveWorkers:    runtime.NumCPU(),
		progressBuffer:  defaultProgressBuffer,
		runHistory:      defaultRunHistory,
		maxParticipants: defaultMaxParticipants,
		maxTimeSeconds:  defaultMaxTimeSeconds,
	}
	s.newEngine = func() solve.Engine {
		opts := []solver.Option{}
		if s.engineRestarts > 0 {
			opts = append(opts, solver.WithRestarts(s.engineRestarts))
		}
		if s.engineSteps > 1 {
			opts = append(opts, solver.WithSteps(s.engineSteps))
		}
		return solver.New(opts...)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.history = repository.NewRingStore(repository.WithCapacity(s.runHistory))
	s.pool = workerpool.NewPool(s.solveWorkers)

	s.started = true
	s.logger.Info(ctx, "team formation service started",
		logger.Int("solve_workers", s.solveWorkers),
		logger.Int("progress_buffer", s.progressBuffer),
		logger.Int("run_history", s.runHistory),
	)
	return nil
}

// Stop gracefully shuts down the service, waiting for running solves.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "pool shutdown", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "team formation service stopped")
}

// Stats is the summary block of a completed assignment.
type Stats struct {
	SolutionCount   int     `json:"solution_count"`
	WallTime        float64 `json:"wall_time"`
	NumTeams        int     `json:"num_teams"`
	NumParticipants int     `json:"num_participants"`
}

// Outcome is the terminal payload of a successful run: the roster with
// team numbers attached, summary stats, and the evaluation report.
type Outcome struct {
	Participants []map[string]any   `json:"participants"`
	Stats        Stats              `json:"stats"`
	Evaluation   []assign.ReportRow `json:"evaluation"`
}

// Run is a handle on one in-flight assignment.
type Run struct {
	ID string

	eventsReady chan struct{}
	events      <-chan solve.ProgressEvent

	done    chan struct{}
	outcome Outcome
	err     error
}

// Events returns the progress event channel. It is closed once the run
// ends; Wait returns the outcome afterwards.
func (r *Run) Events() <-chan solve.ProgressEvent {
	<-r.eventsReady
	return r.events
}

// Wait blocks until the run ends.
func (r *Run) Wait() (Outcome, error) {
	<-r.done
	return r.outcome, r.err
}

// Assign validates the request, builds the model, and dispatches the solve
// to a pool worker. Validation and planning failures surface here,
// synchronously; solve failures surface through Run.Wait.
func (s *Service) Assign(ctx context.Context, req model.Request) (*Run, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, fmt.Errorf("service not started")
	}

	if req.MaxTimeSeconds <= 0 {
		req.MaxTimeSeconds = s.maxTimeSeconds
	}
	if len(req.Participants) > s.maxParticipants {
		return nil, fmt.Errorf("%w: %d participants exceeds the maximum of %d",
			model.ErrValidation, len(req.Participants), s.maxParticipants)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sizes, err := plan.TeamSizes(len(req.Participants), req.TargetTeamSize, req.LessThanTarget)
	if err != nil {
		return nil, err
	}

	buildStart := time.Now()
	prob, err := assign.Build(assign.Input{
		Participants: req.Participants,
		Constraints:  req.Constraints,
		TeamSizes:    sizes,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordModelBuildDuration(time.Since(buildStart).Seconds())

	run := &Run{
		ID:          uuid.NewString(),
		eventsReady: make(chan struct{}),
		done:        make(chan struct{}),
	}

	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.progressBuffer))
	rep := solve.NewReporter(s.newEngine(), q,
		solve.WithBudget(time.Duration(req.MaxTimeSeconds)*time.Second),
		solve.WithLogger(s.logger.Named("reporter")),
	)

	log := s.logger.Named(run.ID)
	log.Info(ctx, "assignment accepted",
		logger.Int("participants", len(req.Participants)),
		logger.Int("teams", len(sizes)),
		logger.Int("constraints", len(req.Constraints)),
		logger.Int("max_time_seconds", req.MaxTimeSeconds),
	)

	submitErr := s.pool.Submit(ctx, run.ID, func(jobCtx context.Context) {
		startedAt := time.Now()

		events, err := rep.Solve(jobCtx, prob.Model)
		if err != nil {
			// Single-use reporter created above; this cannot happen.
			run.events = closedEvents()
			close(run.eventsReady)
			run.err = err
			close(run.done)
			return
		}
		run.events = events
		close(run.eventsReady)

		result, solveErr := rep.Wait()
		s.finishRun(jobCtx, log, run, rep, prob, req, sizes, result, solveErr, startedAt)
		close(run.done)
	})
	if submitErr != nil {
		return nil, submitErr
	}

	return run, nil
}

func closedEvents() <-chan solve.ProgressEvent {
	ch := make(chan solve.ProgressEvent)
	close(ch)
	return ch
}

// finishRun turns the solve result into the run outcome and records it in
// the history store.
func (s *Service) finishRun(ctx context.Context, log logger.Logger, run *Run, rep *solve.Reporter,
	prob *assign.Problem, req model.Request, sizes []int,
	result solve.Result, solveErr error, startedAt time.Time,
) {
	record := repository.RunRecord{
		ID:              run.ID,
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
		State:           string(rep.State()),
		Objective:       result.Objective,
		Solutions:       rep.SolutionCount(),
		NumParticipants: len(req.Participants),
		NumTeams:        len(sizes),
		WallTimeSeconds: result.WallTime.Seconds(),
	}
	defer func() {
		if err := s.history.Record(ctx, record); err != nil {
			log.Warn(ctx, "recording run history", logger.Error(err))
		}
	}()

	if solveErr != nil {
		log.Warn(ctx, "solve ended without a solution", logger.Error(solveErr))
		run.err = solveErr
		return
	}

	teams := prob.Assignment(result.Values)
	report, err := assign.Evaluate(req.Participants, req.Constraints, sizes, teams)
	if err != nil {
		log.Error(ctx, "evaluating assignment", logger.Error(err))
		run.err = fmt.Errorf("evaluating assignment: %w", err)
		return
	}

	out := make([]map[string]any, len(req.Participants))
	for i, p := range req.Participants {
		row := make(map[string]any, len(p.Raw)+1)
		for k, v := range p.Raw {
			row[k] = v
		}
		row["team_number"] = teams[i]
		out[i] = row
	}

	run.outcome = Outcome{
		Participants: out,
		Stats: Stats{
			SolutionCount:   rep.SolutionCount(),
			WallTime:        result.WallTime.Seconds(),
			NumTeams:        len(sizes),
			NumParticipants: len(req.Participants),
		},
		Evaluation: report,
	}

	missed := 0
	for _, r := range report {
		missed += r.Missed
	}
	log.Info(ctx, "assignment complete",
		logger.String("state", string(rep.State())),
		logger.Float64("objective", result.Objective),
		logger.Int("solutions", rep.SolutionCount()),
		logger.Int("constraintMisses", missed),
	)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"solve_workers": s.solveWorkers,
	}
	if !s.started {
		return stats
	}

	stats["in_flight"] = s.pool.InFlight()
	stats["runs_recorded"] = s.history.Count(ctx)

	recent, err := s.history.Recent(ctx, s.runHistory)
	if err == nil {
		stats["recent_runs"] = recent
	}
	return stats
}
