package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind classifies the stored object behind a post.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaRaw   MediaKind = "raw" // PDFs and other documents
)

// Post is a media post published by a club. MediaURL/MediaKey reference an
// object in external storage; the row is only written after the upload
// succeeded.
type Post struct {
	ID        uuid.UUID `json:"id"`
	ClubID    uuid.UUID `json:"club_id"`
	Caption   string    `json:"caption,omitempty"`
	MediaURL  string    `json:"media_url"`
	MediaKey  string    `json:"-"`
	MediaKind MediaKind `json:"media_type"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedPost is a post joined with its club's display fields for public feeds.
type FeedPost struct {
	Post
	ClubName string `json:"club_name"`
	ClubLogo string `json:"club_logo,omitempty"`
}
