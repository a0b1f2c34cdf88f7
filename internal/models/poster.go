package models

import "time"

// PosterInfo describes the single current poster image held in the blob store.
type PosterInfo struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
