// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Book is one catalog entry. The sync engine treats it as an opaque key:
// title and author locate the remote note, the DDC code and file path are
// embedded as note metadata.
type Book struct {
	// ID is the catalog identifier (e.g. "CS001").
	ID string `json:"id" yaml:"id"`

	// Title is the book title as cataloged.
	Title string `json:"title" yaml:"title"`

	// Author is the primary author, "LastName, FirstName" where known.
	Author string `json:"author" yaml:"author"`

	// Subjects lists subject headings assigned when the book was filed.
	Subjects []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`

	// DDC is the Dewey Decimal classification code.
	DDC string `json:"ddc" yaml:"ddc"`

	// Category is the library folder the book is filed under,
	// relative to the library root.
	Category string `json:"category" yaml:"category"`

	// FilePath is the book file, relative to the library root.
	FilePath string `json:"file_path" yaml:"file_path"`

	// FileType is the file extension (".pdf", ".epub").
	FileType string `json:"file_type" yaml:"file_type"`
}

// Progress records where the reader last left off in one book, keyed by
// catalog ID in the progress file.
type Progress struct {
	// Page is the last page read (zero when unknown).
	Page int `json:"page" yaml:"page"`

	// LastOpened is the date the book was last opened (YYYY-MM-DD).
	LastOpened string `json:"last_opened" yaml:"last_opened"`
}
