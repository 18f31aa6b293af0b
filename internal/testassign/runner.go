package testassign

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/cohort/pkg/logger"
)

// File permission constants.
const (
	directoryPermission  = 0750
	rosterFilePermission = 0600
)

// Run executes the complete assignment test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting cohort assignment test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("participants", config.NumParticipants),
		logger.Int("teamSize", config.TeamSize),
		logger.Int("maxTime", config.MaxTime),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate a synthetic roster
	roster := generateRoster(ctx, config, stats)

	req := &AssignRequest{
		Participants:   roster,
		Constraints:    defaultConstraints(),
		TargetTeamSize: config.TeamSize,
		LessThanTarget: config.LessThanTarget,
		MaxTime:        config.MaxTime,
	}

	// Step 3: Submit and stream the solve
	result, err := streamAssignment(ctx, config, req, stats)
	if err != nil {
		return fmt.Errorf("assignment failed: %w", err)
	}

	// Step 4: Verify results
	if err := verifyResults(config, result, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 5: Save roster and assignment to file
	if err := saveResultToFile(ctx, config, req, result); err != nil {
		logger.Get().Warn(ctx, "failed to save result to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveResultToFile writes the request and final assignment to a JSON file.
func saveResultToFile(ctx context.Context, config *Config, req *AssignRequest, result *CompleteEvent) error {
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "assignment_result_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	payload := map[string]any{
		"request": req,
		"result":  result,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(filename, data, rosterFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "result saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("participantsGenerated", stats.ParticipantsGenerated),
		logger.Int("progressEvents", stats.ProgressEvents),
		logger.Int("finalSolutionCount", stats.FinalSolutionCount),
		logger.Float64("finalObjective", stats.FinalObjective),
		logger.Int("teamsFormed", stats.TeamsFormed),
		logger.Int("constraintsMissed", stats.ConstraintsMissed),
		logger.String("duration", stats.Duration.String()))
}
