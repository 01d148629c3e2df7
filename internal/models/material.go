package models

import (
	"slices"
	"strings"
	"time"

	"github.com/lib/pq"
)

// FlagThreshold is the flag count at which a material is shown as flagged.
const FlagThreshold = 3

// Collection names understood by the record store.
const (
	CollectionMaterials = "materials"
	CollectionReports   = "reports"
)

// MediaKind selects how a material is rendered.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
	MediaKindPDF   MediaKind = "pdf"
	MediaKindText  MediaKind = "text"
)

// Material is one archived item. Only FlagCount and FlaggedBy change after creation.
type Material struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Author       string         `db:"author" json:"author"`
	Description  string         `db:"description" json:"description"`
	Section      string         `db:"section" json:"section"`
	Subsection   string         `db:"subsection" json:"subsection"`
	Type         string         `db:"type" json:"type"`
	FileURL      string         `db:"file_url" json:"fileUrl"`
	FileName     string         `db:"file_name" json:"fileName"`
	DateArchived time.Time      `db:"date_archived" json:"dateArchived"`
	FlagCount    int            `db:"flag_count" json:"flagCount"`
	FlaggedBy    pq.StringArray `db:"flagged_by" json:"flaggedBy"`
}

// Flagged reports whether the material reached the flag threshold.
func (m Material) Flagged() bool {
	return m.FlagCount >= FlagThreshold
}

// HasReporter reports whether token already flagged the material.
func (m Material) HasReporter(token string) bool {
	return slices.Contains(m.FlaggedBy, token)
}

// MediaKind maps the MIME type onto a renderer. Unknown types render as text.
func (m Material) MediaKind() MediaKind {
	switch {
	case strings.HasPrefix(m.Type, "image/"):
		return MediaKindImage
	case strings.HasPrefix(m.Type, "video/"):
		return MediaKindVideo
	case strings.HasPrefix(m.Type, "audio/"):
		return MediaKindAudio
	case m.Type == "application/pdf":
		return MediaKindPDF
	default:
		return MediaKindText
	}
}

// Clone returns a deep copy. FlaggedBy is never nil on the copy.
func (m Material) Clone() Material {
	out := m
	out.FlaggedBy = make(pq.StringArray, len(m.FlaggedBy))
	copy(out.FlaggedBy, m.FlaggedBy)
	return out
}

// CloneMaterials deep copies a slice of materials.
func CloneMaterials(in []Material) []Material {
	out := make([]Material, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
