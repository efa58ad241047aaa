package projects

import "github.com/google/uuid"

// Reputation points granted when a winner is declared.
const (
	WinnerReputationBonus        = 10
	ParticipationReputationBonus = 2
)

// Award is one reputation credit produced by settlement.
type Award struct {
	DeveloperID uuid.UUID `json:"developer_id"`
	Points      int       `json:"points"`
	Reason      string    `json:"reason"`
}

// Settlement is the outcome of declaring a winner.
type Settlement struct {
	Project *Project    `json:"project"`
	Winner  *Submission `json:"winner"`
	Awards  []Award     `json:"awards"`
	Skipped []uuid.UUID `json:"skipped,omitempty"`
}

// ComputeAwards returns the winner's award followed by one participation award
// per participant. The winner never receives a participation award and nobody
// is credited twice.
func ComputeAwards(winnerID uuid.UUID, participants []uuid.UUID) []Award {
	awards := []Award{{DeveloperID: winnerID, Points: WinnerReputationBonus, Reason: "winner"}}
	seen := map[uuid.UUID]bool{winnerID: true}
	for _, id := range participants {
		if seen[id] {
			continue
		}
		seen[id] = true
		awards = append(awards, Award{DeveloperID: id, Points: ParticipationReputationBonus, Reason: "participation"})
	}
	return awards
}
