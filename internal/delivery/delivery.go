package delivery

import (
	"context"
	"fmt"
	"io"
)

// Document is one file handed to a delivery backend.
type Document struct {
	OwnerID     uint64
	Name        string
	Size        int64
	ContentType string
	Caption     string
	Body        io.Reader
}

// Resolved is where a delivered file can be downloaded from.
type Resolved struct {
	Path string
	URL  string
}

// Client delivers files to an external host and resolves them to download URLs.
type Client interface {
	// Name identifies the backend on stored records.
	Name() string
	// Send uploads the document and returns the backend's opaque file id.
	Send(ctx context.Context, doc Document) (string, error)
	Resolve(ctx context.Context, fileID string) (*Resolved, error)
}

// HTTPStatusError is returned for non-2xx HTTP responses without an API error body.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("bad status: %s", e.Status)
}

// APIError is an error reported by the delivery API itself.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Method, e.Code, e.Description)
}
