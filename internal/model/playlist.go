package model

// PlaylistEntry is one item of an expanded playlist
type PlaylistEntry struct {
	ID     string // provider video ID
	Source string // URL submitted as its own task
	Title  string // initial display name until metadata resolves
}
