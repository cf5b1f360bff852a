package storage

import "strings"

// KeyFromURL extracts the object key from a media URL produced by ObjectURL.
// Returns "" for URLs that do not point at an S3 object.
func KeyFromURL(rawURL string) string {
	const marker = ".amazonaws.com/"
	i := strings.Index(rawURL, marker)
	if i < 0 {
		return ""
	}
	return rawURL[i+len(marker):]
}
