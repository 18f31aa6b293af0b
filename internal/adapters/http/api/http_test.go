package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/cohort/internal/adapters/http/api"
	service "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/cpmodel"
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

// rosterJSON is a nine-person roster that clusters cleanly by job function.
const rosterJSON = `[
	{"id": "8", "gender": "Male", "job_function": "Manager"},
	{"id": "9", "gender": "Male", "job_function": "Executive"},
	{"id": "10", "gender": "Female", "job_function": "Executive"},
	{"id": "16", "gender": "Male", "job_function": "Manager"},
	{"id": "18", "gender": "Female", "job_function": "Contributor"},
	{"id": "20", "gender": "Female", "job_function": "Manager"},
	{"id": "21", "gender": "Male", "job_function": "Executive"},
	{"id": "29", "gender": "Male", "job_function": "Contributor"},
	{"id": "31", "gender": "Female", "job_function": "Contributor"}
]`

func newAPIServer(t *testing.T, opts ...service.Option) *http.ServeMux {
	t.Helper()
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { svc.Stop(context.Background()) })

	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return mux
}

type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var out []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event: "); ok {
				ev.name = v
			}
			if v, ok := strings.CutPrefix(line, "data: "); ok {
				ev.data = v
			}
		}
		if ev.name != "" {
			out = append(out, ev)
		}
	}
	return out
}

func TestAssignTeamsEndpoint(t *testing.T) {
	Convey("Given the JSON assignment endpoint", t, func() {
		mux := newAPIServer(t, service.WithEngineParams(3, 1500))
		body := fmt.Sprintf(`{
			"participants": %s,
			"constraints": [{"attribute": "job_function", "type": "cluster", "weight": 1}],
			"target_team_size": 3,
			"max_time": 5
		}`, rosterJSON)

		req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		Convey("It streams progress events and a final result", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldEqual, "text/event-stream")

			events := parseSSE(t, rec.Body.String())
			So(len(events), ShouldBeGreaterThanOrEqualTo, 2)
			So(events[0].name, ShouldEqual, "progress")
			So(events[len(events)-1].name, ShouldEqual, "complete")

			var progress struct {
				SolutionCount int     `json:"solution_count"`
				Objective     float64 `json:"objective_value"`
			}
			So(json.Unmarshal([]byte(events[0].data), &progress), ShouldBeNil)
			So(progress.SolutionCount, ShouldEqual, 1)

			var complete struct {
				Participants []map[string]any `json:"participants"`
				Stats        struct {
					SolutionCount   int `json:"solution_count"`
					NumTeams        int `json:"num_teams"`
					NumParticipants int `json:"num_participants"`
				} `json:"stats"`
				Evaluation []any `json:"evaluation"`
			}
			So(json.Unmarshal([]byte(events[len(events)-1].data), &complete), ShouldBeNil)
			So(complete.Stats.NumTeams, ShouldEqual, 3)
			So(complete.Stats.NumParticipants, ShouldEqual, 9)
			So(complete.Participants, ShouldHaveLength, 9)
			So(complete.Evaluation, ShouldNotBeEmpty)
			for _, p := range complete.Participants {
				team, ok := p["team_number"].(float64)
				So(ok, ShouldBeTrue)
				So(team, ShouldBeBetweenOrEqual, 0, 2)
			}
		})
	})
}

func TestAssignTeamsRejections(t *testing.T) {
	Convey("Given the JSON assignment endpoint", t, func() {
		mux := newAPIServer(t)

		Convey("A malformed body is rejected with 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader("{not json"))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Header().Get("Content-Type"), ShouldStartWith, "application/json")
		})

		Convey("An undersized target team size is rejected before any event", func() {
			body := fmt.Sprintf(`{
				"participants": %s,
				"constraints": [{"attribute": "gender", "type": "diversify", "weight": 1}],
				"target_team_size": 2
			}`, rosterJSON)
			req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(rec.Body.String(), ShouldNotContainSubstring, "event:")

			var resp struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, "validation")
		})

		Convey("A null value for a constrained attribute is rejected as user error", func() {
			body := `{
				"participants": [
					{"id": "1", "gender": "Male"},
					{"id": "2", "gender": "Female"},
					{"id": "3", "gender": null}
				],
				"constraints": [{"attribute": "gender", "type": "cluster", "weight": 1}],
				"target_team_size": 3
			}`
			req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)

			var resp struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, "validation")
			So(resp.Message, ShouldContainSubstring, "gender")
		})

		Convey("An unknown constraint type is rejected", func() {
			body := fmt.Sprintf(`{
				"participants": %s,
				"constraints": [{"attribute": "gender", "type": "spread", "weight": 1}],
				"target_team_size": 3
			}`, rosterJSON)
			req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is not routed", func() {
			req := httptest.NewRequest(http.MethodGet, "/assign_teams", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAssignTeamsBackpressure(t *testing.T) {
	Convey("Given a service whose solve pool is saturated", t, func() {
		release := make(chan struct{})
		defer close(release)
		started := make(chan struct{}, 1)
		mux := newAPIServer(t,
			service.WithSolveWorkers(1),
			service.WithEngine(func() solve.Engine {
				return &stallEngine{release: release, started: started}
			}),
		)

		body := fmt.Sprintf(`{
			"participants": %s,
			"constraints": [{"attribute": "gender", "type": "diversify", "weight": 1}],
			"target_team_size": 3
		}`, rosterJSON)

		go func() {
			req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			mux.ServeHTTP(httptest.NewRecorder(), req)
		}()
		<-started

		req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		So(rec.Code, ShouldEqual, http.StatusTooManyRequests)

		var resp struct {
			Code string `json:"code"`
		}
		So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
		So(resp.Code, ShouldEqual, "backpressure")
	})
}

func TestAssignTeamsNoSolution(t *testing.T) {
	Convey("Given an engine that proves the request infeasible", t, func() {
		mux := newAPIServer(t, service.WithEngine(func() solve.Engine {
			return &cannedEngine{result: solve.Result{Status: solve.StatusInfeasible}}
		}))

		body := fmt.Sprintf(`{
			"participants": %s,
			"constraints": [{"attribute": "gender", "type": "diversify", "weight": 1}],
			"target_team_size": 3
		}`, rosterJSON)
		req := httptest.NewRequest(http.MethodPost, "/assign_teams", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		Convey("The stream ends with an error event", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			events := parseSSE(t, rec.Body.String())
			So(events, ShouldNotBeEmpty)
			last := events[len(events)-1]
			So(last.name, ShouldEqual, "error")
			So(last.data, ShouldContainSubstring, "relaxing constraints")
		})
	})
}

func TestUploadEndpoint(t *testing.T) {
	Convey("Given the multipart upload endpoint", t, func() {
		mux := newAPIServer(t, service.WithEngineParams(3, 1500))

		rosterCSV := "id,gender,job_function\n" +
			"8,Male,Manager\n9,Male,Executive\n10,Female,Executive\n" +
			"16,Male,Manager\n18,Female,Contributor\n20,Female,Manager\n" +
			"21,Male,Executive\n29,Male,Contributor\n31,Female,Contributor\n"
		constraintsCSV := "attribute,type,weight\njob_function,cluster,1\n"

		Convey("A CSV roster with scalar fields streams a full run", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			part, err := mw.CreateFormFile("roster", "roster.csv")
			So(err, ShouldBeNil)
			_, err = part.Write([]byte(rosterCSV))
			So(err, ShouldBeNil)
			part, err = mw.CreateFormFile("constraints", "constraints.csv")
			So(err, ShouldBeNil)
			_, err = part.Write([]byte(constraintsCSV))
			So(err, ShouldBeNil)
			So(mw.WriteField("target_team_size", "3"), ShouldBeNil)
			So(mw.WriteField("max_time", "5"), ShouldBeNil)
			So(mw.Close(), ShouldBeNil)

			req := httptest.NewRequest(http.MethodPost, "/assign_teams/upload", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusOK)
			events := parseSSE(t, rec.Body.String())
			So(events, ShouldNotBeEmpty)
			So(events[len(events)-1].name, ShouldEqual, "complete")
		})

		Convey("A missing roster file is rejected with 400", func() {
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			So(mw.WriteField("target_team_size", "3"), ShouldBeNil)
			So(mw.Close(), ShouldBeNil)

			req := httptest.NewRequest(http.MethodPost, "/assign_teams/upload", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		mux := newAPIServer(t)

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		So(rec.Code, ShouldEqual, http.StatusOK)

		var stats map[string]any
		So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)
		So(stats["started"], ShouldEqual, true)
		So(stats, ShouldContainKey, "solve_workers")
	})
}

// cannedEngine returns a fixed result without searching.
type cannedEngine struct {
	result solve.Result
}

func (e *cannedEngine) Solve(ctx context.Context, m *cpmodel.Model, onSolution solve.ProgressFunc) (solve.Result, error) {
	return e.result, nil
}

// stallEngine parks until release is closed, holding its pool slot.
type stallEngine struct {
	release <-chan struct{}
	started chan<- struct{}
}

func (e *stallEngine) Solve(ctx context.Context, m *cpmodel.Model, onSolution solve.ProgressFunc) (solve.Result, error) {
	if e.started != nil {
		e.started <- struct{}{}
	}
	select {
	case <-e.release:
	case <-ctx.Done():
	}
	return solve.Result{Status: solve.StatusUnknown}, nil
}
