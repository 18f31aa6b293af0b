package testassign

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/cohort/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the assignment test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Cohort Assignment Test Tool
===========================

A tool for exercising the team assignment service end to end: it generates
a synthetic roster, submits it, follows the progress stream, and verifies
the returned assignment.

Usage:
  go run cmd/test-assign/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -participants int
        Number of participants to generate (default 60)
  -team-size int
        Target team size (default 5)
  -less-than-target
        Allow the final team to run short of the target
  -max-time int
        Solve budget in seconds (default 30)
  -timeout duration
        HTTP request timeout for non-streaming calls (default 30s)
  -output string
        Output file for the roster and result (default: assignment_result_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-assign/main.go

  # Larger roster, shorter budget
  go run cmd/test-assign/main.go -participants 200 -team-size 6 -max-time 10

  # Test with verbose output
  go run cmd/test-assign/main.go -verbose -participants 30
`)
}
