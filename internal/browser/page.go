// Package browser drives the remote admin site through a capability
// interface over raw browser primitives. All control location goes through
// ordered selector-candidate fallback with bounded per-candidate timeouts.
package browser

import (
	"context"
	"errors"
)

// Typed failures returned across the component boundary.
var (
	ErrNotConnected      = errors.New("session not connected")
	ErrAlreadyConnected  = errors.New("session already connected")
	ErrNotAuthenticated  = errors.New("session not authenticated")
	ErrLoginFailed       = errors.New("login failed")
	ErrSelectorExhausted = errors.New("all selector candidates exhausted")
	ErrVerifyFailed      = errors.New("no success indicator appeared")
)

// Page is the raw browser-control surface the session drives: navigate,
// fill, click, probe. Implementations must honor ctx deadlines on every
// call; no operation may block past its bound.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	SetFiles(ctx context.Context, selector string, paths []string) error
	WaitVisible(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	Evaluate(ctx context.Context, expression string, out interface{}) error
	Location(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Browser opens pages. The chromedp implementation owns the underlying
// Chrome process; tests substitute a fake.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}
