// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package joplin

import "errors"

// Remote failures are never absorbed silently: each maps to one of these
// sentinels so the CLI can tell the user what to do about it.
var (
	// ErrAuth means the API token was rejected. Not retried; the user
	// must reconfigure credentials.
	ErrAuth = errors.New("joplin: authentication rejected")

	// ErrUnavailable means the service could not be reached or kept
	// failing after bounded retries. The sync is abandoned; retry later.
	ErrUnavailable = errors.New("joplin: service unavailable")

	// ErrNotFound means a note id known to this client no longer exists
	// remotely.
	ErrNotFound = errors.New("joplin: note not found")

	// ErrDuplicateNote means more than one note carries the book's
	// title. Never auto-merged; requires manual resolution.
	ErrDuplicateNote = errors.New("joplin: duplicate notes for title")
)
