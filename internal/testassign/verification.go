package testassign

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks the structural invariants of the returned assignment
// and reports constraint satisfaction per team.
func verifyResults(config *Config, result *CompleteEvent, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if result.Stats.NumParticipants != config.NumParticipants {
		return fmt.Errorf("result covers %d participants, expected %d",
			result.Stats.NumParticipants, config.NumParticipants)
	}
	if len(result.Participants) != config.NumParticipants {
		return fmt.Errorf("result lists %d participants, expected %d",
			len(result.Participants), config.NumParticipants)
	}

	// Every participant must carry a team number inside the reported range.
	teamCounts := make(map[int]int)
	for i, p := range result.Participants {
		raw, ok := p["team_number"]
		if !ok {
			return fmt.Errorf("participant %d has no team number", i)
		}
		team, ok := raw.(float64)
		if !ok {
			return fmt.Errorf("participant %d has a non-numeric team number %v", i, raw)
		}
		if team < 0 || int(team) >= result.Stats.NumTeams {
			return fmt.Errorf("participant %d assigned to team %d outside 0..%d",
				i, int(team), result.Stats.NumTeams-1)
		}
		teamCounts[int(team)]++
	}

	// Team sizes must never exceed the requested target.
	for team, count := range teamCounts {
		if count > config.TeamSize {
			return fmt.Errorf("team %d has %d members, target is %d", team, count, config.TeamSize)
		}
	}
	if len(teamCounts) != result.Stats.NumTeams {
		return fmt.Errorf("assignment uses %d teams, stats report %d",
			len(teamCounts), result.Stats.NumTeams)
	}

	stats.TeamsFormed = result.Stats.NumTeams
	displayEvaluation(result.Evaluation, stats, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// displayEvaluation summarizes the per-team constraint report.
func displayEvaluation(rows []EvaluationRow, stats *Stats, verbose bool) {
	if len(rows) == 0 {
		log.Println("⚠️  No evaluation rows returned")
		return
	}

	missedByConstraint := make(map[string]int)
	total := 0
	for _, row := range rows {
		key := row.Type + "(" + row.Attribute + ")"
		missedByConstraint[key] += row.Missed
		total += row.Missed
	}
	stats.ConstraintsMissed = total

	keys := make([]string, 0, len(missedByConstraint))
	for k := range missedByConstraint {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	log.Printf("🏆 Constraint satisfaction (%d total misses):", total)
	for _, k := range keys {
		log.Printf("   %s: %d missed", k, missedByConstraint[k])
	}

	if verbose {
		for _, row := range rows {
			log.Printf("   team %d (%d members) %s %s: %d missed",
				row.TeamNum, row.TeamSize, row.Type, row.Attribute, row.Missed)
		}
	}
}
