package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/okian/cohort/internal/adapters/http/api"
	service "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/config"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("COHORT_ADDR", ":8080")
			_ = os.Setenv("COHORT_SOLVE_WORKERS", "4")
			defer func() {
				_ = os.Unsetenv("COHORT_ADDR")
				_ = os.Unsetenv("COHORT_SOLVE_WORKERS")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SolveWorkers, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := service.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := service.New(
					service.WithSolveWorkers(8),
					service.WithRunHistory(200),
					service.WithMaxParticipants(1000),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := service.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When wiring the service and routes together", func() {
			svc := service.New(service.WithSolveWorkers(1))
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			err := svc.Start(ctx)
			convey.So(err, convey.ShouldBeNil)
			defer svc.Stop(context.Background())

			mux := http.NewServeMux()
			api.NewServer(svc).Register(ctx, mux)

			convey.Convey("Then the service should report stats", func() {
				stats := svc.GetStats(ctx)
				convey.So(stats, convey.ShouldNotBeNil)
				convey.So(stats["started"], convey.ShouldEqual, true)
			})
		})
	})
}
