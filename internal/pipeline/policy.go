package pipeline

import "github.com/spigell/applyflow/internal/database"

// DefaultShortlistThreshold is the score from which applications start shortlisted.
const DefaultShortlistThreshold = 75

// Policy assigns the initial status of a scored application.
type Policy struct {
	Threshold int
}

// StatusFor returns shortlisted when score reaches the threshold, in-review otherwise.
func (p Policy) StatusFor(score int) database.ApplicationStatus {
	if score >= p.Threshold {
		return database.StatusShortlisted
	}
	return database.StatusInReview
}
