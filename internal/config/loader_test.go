package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/cohort/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file and no env overrides", t, func() {
		os.Unsetenv("COHORT_CONFIG")
		os.Unsetenv("COHORT_ADDR")
		os.Unsetenv("COHORT_SOLVE_WORKERS")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Defaults are applied", func() {
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.DefaultMaxTimeSec, ShouldEqual, 60)
			So(cfg.MaxParticipants, ShouldEqual, 5000)
			So(cfg.SolveWorkers, ShouldBeGreaterThan, 0)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given env overrides with the COHORT_ prefix", t, func() {
		t.Setenv("COHORT_ADDR", ":7070")
		t.Setenv("COHORT_LOG_LEVEL", "debug")
		t.Setenv("COHORT_DEFAULT_MAX_TIME_SEC", "5")

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("Env values win over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.DefaultMaxTimeSec, ShouldEqual, 5)
		})
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML config file referenced by COHORT_CONFIG", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "cohort.yaml")
		body := []byte("addr: \":6060\"\nsolve_workers: 2\nrun_history: 7\n")
		So(os.WriteFile(path, body, 0o600), ShouldBeNil)
		t.Setenv("COHORT_CONFIG", path)

		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)

		Convey("File values layer over defaults", func() {
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.SolveWorkers, ShouldEqual, 2)
			So(cfg.RunHistory, ShouldEqual, 7)
			So(cfg.ProgressBuffer, ShouldEqual, 256)
		})

		Convey("Env still wins over the file", func() {
			t.Setenv("COHORT_ADDR", ":5050")
			cfg2, err2 := config.Load(context.Background())
			So(err2, ShouldBeNil)
			So(cfg2.Addr, ShouldEqual, ":5050")
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid overrides", t, func() {
		t.Setenv("COHORT_DEFAULT_MAX_TIME_SEC", "0")

		_, err := config.Load(context.Background())

		Convey("Load fails with the invalid-config kind", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
