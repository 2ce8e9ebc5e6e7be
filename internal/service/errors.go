package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrDocumentNotFound is returned when an estimate document is not found
	ErrDocumentNotFound = errors.New("document not found")

	// ErrSectionNotFound is returned when a section is not found
	ErrSectionNotFound = errors.New("section not found")

	// ErrItemNotFound is returned when a line item is not found
	ErrItemNotFound = errors.New("item not found")

	// ErrSnapshotNotFound is returned when a version snapshot is not found
	ErrSnapshotNotFound = errors.New("version snapshot not found")

	// ErrInvalidPolicy is returned when an unknown numbering policy is provided
	ErrInvalidPolicy = errors.New("invalid numbering policy")

	// ErrDocumentApproved is returned when a mutation targets an approved document
	ErrDocumentApproved = errors.New("document is approved and read-only")

	// ErrSectionWrongDocument is returned when a referenced section belongs to
	// another document
	ErrSectionWrongDocument = errors.New("section belongs to a different document")

	// ErrDifferentDocuments is returned when a diff is requested across
	// snapshots of two different documents
	ErrDifferentDocuments = errors.New("snapshots belong to different documents")

	// ErrReorderIncomplete is returned when a reorder request does not list
	// every sibling item exactly once
	ErrReorderIncomplete = errors.New("reorder must include every item of the section exactly once")

	// ErrEmptyImport is returned when an imported file yields no rows
	ErrEmptyImport = errors.New("import produced no rows")
)
