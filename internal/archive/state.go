package archive

import "github.com/noah-isme/community-archive/internal/models"

// State is a point-in-time copy of everything the client keeps in memory.
type State struct {
	Materials     []models.Material
	ActiveFilter  string
	Challenge     Challenge
	ReporterToken string
	// Submission is nil when no submission is running.
	Submission *SubmissionState
}
