package model

import "time"

// ImageCleanupJob asks the cleanup worker to remove stored images that no
// record points at anymore.
type ImageCleanupJob struct {
	Paths       []string  `json:"paths"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requestedAt"`
}
