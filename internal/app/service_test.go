package service_test

import (
	"context"
	"testing"

	workerpool "github.com/okian/cohort/internal/adapters/mq/worker"
	service "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/cpmodel"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/plan"
	"github.com/okian/cohort/internal/solve"
	"github.com/okian/cohort/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func participants(t *testing.T) []model.Participant {
	t.Helper()
	raws := []map[string]any{
		{"id": "8", "gender": "Male", "job_function": "Manager"},
		{"id": "9", "gender": "Male", "job_function": "Executive"},
		{"id": "10", "gender": "Female", "job_function": "Executive"},
		{"id": "16", "gender": "Male", "job_function": "Manager"},
		{"id": "18", "gender": "Female", "job_function": "Contributor"},
		{"id": "20", "gender": "Female", "job_function": "Manager"},
		{"id": "21", "gender": "Male", "job_function": "Executive"},
		{"id": "29", "gender": "Male", "job_function": "Contributor"},
		{"id": "31", "gender": "Female", "job_function": "Contributor"},
	}
	people := make([]model.Participant, 0, len(raws))
	for i, r := range raws {
		p, err := model.ParseParticipant(r, "")
		if err != nil {
			t.Fatalf("participant %d: %v", i, err)
		}
		people = append(people, p)
	}
	return people
}

func startedService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	s := service.New(opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func TestAssignHappyPath(t *testing.T) {
	Convey("Given a started service and a clusterable roster", t, func() {
		s := startedService(t, service.WithEngineParams(3, 1500))
		req := model.Request{
			Participants:   participants(t),
			Constraints:    []model.Constraint{{Attribute: "job_function", Type: model.Cluster, Weight: 1}},
			TargetTeamSize: 3,
			MaxTimeSeconds: 5,
		}

		run, err := s.Assign(context.Background(), req)
		So(err, ShouldBeNil)
		So(run.ID, ShouldNotBeEmpty)

		events := 0
		for range run.Events() {
			events++
		}
		So(events, ShouldBeGreaterThan, 0)

		outcome, err := run.Wait()
		So(err, ShouldBeNil)

		Convey("Every participant carries a team number", func() {
			So(len(outcome.Participants), ShouldEqual, 9)
			for _, row := range outcome.Participants {
				n, ok := row["team_number"].(int)
				So(ok, ShouldBeTrue)
				So(n, ShouldBeBetweenOrEqual, 0, 2)
			}
		})

		Convey("Stats and evaluation describe the run", func() {
			So(outcome.Stats.NumTeams, ShouldEqual, 3)
			So(outcome.Stats.NumParticipants, ShouldEqual, 9)
			So(outcome.Stats.SolutionCount, ShouldBeGreaterThan, 0)
			So(len(outcome.Evaluation), ShouldEqual, 3)
		})

		Convey("The run lands in the history", func() {
			stats := s.GetStats(context.Background())
			So(stats["runs_recorded"], ShouldEqual, 1)
		})
	})
}

func TestAssignSynchronousRejections(t *testing.T) {
	Convey("Given a started service", t, func() {
		s := startedService(t, service.WithMaxParticipants(20))
		people := participants(t)

		Convey("A too-small target team size fails validation", func() {
			_, err := s.Assign(context.Background(), model.Request{
				Participants:   people,
				TargetTeamSize: 2,
			})
			So(err, ShouldWrap, model.ErrValidation)
		})

		Convey("A constraint on a missing attribute fails validation", func() {
			_, err := s.Assign(context.Background(), model.Request{
				Participants:   people,
				Constraints:    []model.Constraint{{Attribute: "height", Type: model.Cluster, Weight: 1}},
				TargetTeamSize: 3,
			})
			So(err, ShouldWrap, model.ErrValidation)
		})

		Convey("An oversized roster is rejected before validation", func() {
			tiny := startedService(t, service.WithMaxParticipants(3))
			_, err := tiny.Assign(context.Background(), model.Request{
				Participants:   people,
				TargetTeamSize: 3,
			})
			So(err, ShouldWrap, model.ErrValidation)
		})

		Convey("An impossible team plan is rejected", func() {
			_, err := s.Assign(context.Background(), model.Request{
				Participants:   people,
				TargetTeamSize: 12,
			})
			So(err, ShouldWrap, plan.ErrNoTeams)
		})

		Convey("A stopped service rejects requests", func() {
			cold := service.New()
			_, err := cold.Assign(context.Background(), model.Request{
				Participants:   people,
				TargetTeamSize: 3,
			})
			So(err, ShouldNotBeNil)
		})
	})
}

// stubEngine returns a canned result without searching.
type stubEngine struct {
	result solve.Result
	block  chan struct{}
}

func (e *stubEngine) Solve(ctx context.Context, m *cpmodel.Model, onSolution solve.ProgressFunc) (solve.Result, error) {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
		}
	}
	return e.result, nil
}

func TestAssignNoSolution(t *testing.T) {
	Convey("Given an engine that proves infeasibility", t, func() {
		s := startedService(t, service.WithEngine(func() solve.Engine {
			return &stubEngine{result: solve.Result{Status: solve.StatusInfeasible}}
		}))

		run, err := s.Assign(context.Background(), model.Request{
			Participants:   participants(t),
			TargetTeamSize: 3,
		})
		So(err, ShouldBeNil)

		for range run.Events() {
		}
		_, err = run.Wait()
		So(err, ShouldWrap, solve.ErrNoSolution)

		Convey("The failed run still lands in the history", func() {
			stats := s.GetStats(context.Background())
			So(stats["runs_recorded"], ShouldEqual, 1)
		})
	})
}

func TestAssignBackpressure(t *testing.T) {
	Convey("Given a single solve slot already occupied", t, func() {
		block := make(chan struct{})
		s := startedService(t,
			service.WithSolveWorkers(1),
			service.WithEngine(func() solve.Engine {
				return &stubEngine{
					result: solve.Result{Status: solve.StatusUnknown},
					block:  block,
				}
			}))

		req := model.Request{
			Participants:   participants(t),
			TargetTeamSize: 3,
		}

		first, err := s.Assign(context.Background(), req)
		So(err, ShouldBeNil)

		_, err = s.Assign(context.Background(), req)
		So(err, ShouldWrap, workerpool.ErrBusy)

		close(block)
		for range first.Events() {
		}
		_, _ = first.Wait()
	})
}
