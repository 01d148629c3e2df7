package dto

import "time"

// BlobResponse describes a stored blob and where to fetch it.
type BlobResponse struct {
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
