package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/cohort/internal/testassign"
)

// Default configuration constants.
const (
	defaultParticipants = 60
	defaultTeamSize     = 5
	defaultMaxTime      = 30
	defaultTimeout      = 30 * time.Second
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL        = flag.String("url", "http://localhost:9080", "Base URL of the service")
		participants   = flag.Int("participants", defaultParticipants, "Number of participants to generate")
		teamSize       = flag.Int("team-size", defaultTeamSize, "Target team size")
		lessThanTarget = flag.Bool("less-than-target", false, "Allow the final team to run short of the target")
		maxTime        = flag.Int("max-time", defaultMaxTime, "Solve budget in seconds")
		timeout        = flag.Duration("timeout", defaultTimeout, "HTTP request timeout for non-streaming calls")
		outputFile     = flag.String("output", "", "Output file for the roster and result (default: assignment_result_TIMESTAMP.json)")
		logFile        = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose        = flag.Bool("verbose", false, "Enable verbose logging")
		help           = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testassign.ShowHelp()
		return
	}

	// Setup logging
	if err := testassign.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testassign.Config{
		BaseURL:         *baseURL,
		NumParticipants: *participants,
		TeamSize:        *teamSize,
		LessThanTarget:  *lessThanTarget,
		MaxTime:         *maxTime,
		Timeout:         *timeout,
		OutputFile:      *outputFile,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	// Run the test
	if err := testassign.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
