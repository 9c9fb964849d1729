package types

import (
	"context"
	"errors"
	"fmt"
)

// Post is one entry of the feed as returned by the server.
// Title and Author are raw and may still carry HTML entities or markup.
type Post struct {
	Title  string
	Author string
	URL    string
}

// Document is a parsed feed response. Posts keep the server order.
type Document struct {
	Posts []Post
}

// Kind tags the outcome of a fetch
type Kind int

const (
	KindOK Kind = iota
	KindNetworkUnreachable
	KindTransport
	KindProtocol
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindTransport:
		return "transport_failure"
	case KindProtocol:
		return "protocol_failure"
	case KindParse:
		return "parse_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError carries the failure kind next to the underlying cause.
// StatusCode is only set for KindProtocol.
type FetchError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindProtocol && e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Failure builds a FetchError of the given kind
func Failure(kind Kind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// KindOf reports the failure kind wrapped in err.
// Errors that are not a FetchError count as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransport
}

// Result is what a fetch produces: either a document or an error, never both.
type Result struct {
	Document *Document
	Err      error
}

// Kind returns KindOK for a document and the failure kind otherwise
func (r Result) Kind() Kind {
	if r.Err != nil {
		return KindOf(r.Err)
	}
	if r.Document == nil {
		return KindParse
	}
	return KindOK
}

// OK reports whether the result holds a document
func (r Result) OK() bool {
	return r.Kind() == KindOK
}

// StatusCode returns the HTTP status of a protocol failure, or 0
func (r Result) StatusCode() int {
	var fe *FetchError
	if errors.As(r.Err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// Succeeded wraps a document into a Result
func Succeeded(doc *Document) Result {
	return Result{Document: doc}
}

// Failed wraps an error into a Result
func Failed(err error) Result {
	return Result{Err: err}
}

// FeedFetcher retrieves a batch of at most count posts
type FeedFetcher interface {
	Fetch(ctx context.Context, count int) Result
}
