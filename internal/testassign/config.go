package testassign

import "time"

// Config holds configuration for the assignment test
type Config struct {
	BaseURL         string        // Base URL of the service
	NumParticipants int           // Number of participants to generate
	TeamSize        int           // Target team size to request
	LessThanTarget  bool          // Allow the final team to run short
	MaxTime         int           // Solve budget in seconds
	Timeout         time.Duration // HTTP request timeout
	OutputFile      string        // Output file for the generated roster
	LogFile         string        // Log file for test output
	Verbose         bool          // Enable verbose logging
}

// Constraint mirrors the request constraint schema.
type Constraint struct {
	Attribute string  `json:"attribute"`
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
}

// AssignRequest mirrors the POST /assign_teams body.
type AssignRequest struct {
	Participants   []map[string]any `json:"participants"`
	Constraints    []Constraint     `json:"constraints"`
	TargetTeamSize int              `json:"target_team_size"`
	LessThanTarget bool             `json:"less_than_target"`
	MaxTime        int              `json:"max_time"`
}

// ProgressEvent mirrors the progress event payload.
type ProgressEvent struct {
	SolutionCount int     `json:"solution_count"`
	Objective     float64 `json:"objective_value"`
	WallTime      float64 `json:"wall_time"`
	Conflicts     int64   `json:"num_conflicts"`
	Message       string  `json:"message,omitempty"`
}

// CompleteEvent mirrors the final result payload.
type CompleteEvent struct {
	Participants []map[string]any `json:"participants"`
	Stats        struct {
		SolutionCount   int     `json:"solution_count"`
		WallTime        float64 `json:"wall_time"`
		NumTeams        int     `json:"num_teams"`
		NumParticipants int     `json:"num_participants"`
	} `json:"stats"`
	Evaluation []EvaluationRow `json:"evaluation"`
}

// EvaluationRow mirrors one per-team constraint report entry.
type EvaluationRow struct {
	TeamNum   int    `json:"team_num"`
	TeamSize  int    `json:"team_size"`
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
	Missed    int    `json:"missed"`
}

// Stats holds test statistics
type Stats struct {
	ParticipantsGenerated int
	ProgressEvents        int
	FinalObjective        float64
	FinalSolutionCount    int
	TeamsFormed           int
	ConstraintsMissed     int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
