package main

// extractionAttempt is one entry in the ordered retry plan. Later attempts
// progressively relax format and player-client selection.
type extractionAttempt struct {
	Format        string
	PlayerClients []string
}

// attemptPlan maps an attempt index to its extraction parameters. Indexes
// beyond the plan reuse the most relaxed configuration.
func attemptPlan(attempt int) extractionAttempt {
	switch attempt {
	case 0:
		return extractionAttempt{Format: "bestaudio/best", PlayerClients: []string{"android", "web"}}
	case 1:
		return extractionAttempt{Format: "bestaudio/best", PlayerClients: []string{"web"}}
	default:
		return extractionAttempt{Format: "bestaudio", PlayerClients: []string{"android"}}
	}
}
