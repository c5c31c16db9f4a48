// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RemoteNote is the synchronization target: one note in the remote
// service per book. The body mixes a managed annotation block owned by
// the merge engine with free regions of user prose that are never touched.
type RemoteNote struct {
	// ID is the remote-assigned note identifier.
	ID string `json:"id" yaml:"id"`

	// Title is the note title, which is the book title.
	Title string `json:"title" yaml:"title"`

	// Body is the full note body in Markdown.
	Body string `json:"body" yaml:"body"`
}
