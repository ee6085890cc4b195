package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage resolves only the selectors listed in resolves and records
// every attempted selector in order.
type fakePage struct {
	resolves       map[string]bool
	attempted      []string
	filled         map[string]string
	location       string
	submitRedirect string
	navErr         error
	closed         bool
}

func newFakePage() *fakePage {
	return &fakePage{
		resolves: make(map[string]bool),
		filled:   make(map[string]string),
	}
}

func (f *fakePage) try(selector string) error {
	f.attempted = append(f.attempted, selector)
	if f.resolves[selector] {
		return nil
	}
	return errors.New("selector did not resolve")
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	if f.navErr != nil {
		return f.navErr
	}
	f.location = url
	return nil
}
func (f *fakePage) WaitReady(context.Context) error { return nil }
func (f *fakePage) Fill(_ context.Context, selector, value string) error {
	if err := f.try(selector); err != nil {
		return err
	}
	f.filled[selector] = value
	return nil
}
func (f *fakePage) Click(_ context.Context, selector string) error {
	if err := f.try(selector); err != nil {
		return err
	}
	if f.submitRedirect != "" {
		f.location = f.submitRedirect
	}
	return nil
}
func (f *fakePage) SetFiles(_ context.Context, selector string, _ []string) error {
	return f.try(selector)
}
func (f *fakePage) WaitVisible(_ context.Context, selector string) error { return f.try(selector) }
func (f *fakePage) Text(_ context.Context, selector string) (string, error) {
	return "", f.try(selector)
}
func (f *fakePage) Evaluate(_ context.Context, _ string, _ interface{}) error { return nil }
func (f *fakePage) Location(context.Context) (string, error)                  { return f.location, nil }
func (f *fakePage) Screenshot(context.Context, string) error                  { return nil }
func (f *fakePage) Close() error                                              { f.closed = true; return nil }

type fakeBrowser struct {
	page    *fakePage
	connErr error
}

func (f *fakeBrowser) NewPage(context.Context) (Page, error) {
	if f.connErr != nil {
		return nil, f.connErr
	}
	return f.page, nil
}
func (f *fakeBrowser) Close() error { return nil }

func testTimeouts() Timeouts {
	return Timeouts{
		Settle:       time.Second,
		PerCandidate: 50 * time.Millisecond,
		Verify:       time.Second,
	}
}

func connectedSession(t *testing.T, page *fakePage) *Session {
	t.Helper()
	s := NewSession(&fakeBrowser{page: page}, DefaultSelectors(), testTimeouts())
	require.NoError(t, s.Connect(context.Background()))
	return s
}

func TestLocateAndActStopsAtFirstResolvingCandidate(t *testing.T) {
	page := newFakePage()
	page.resolves["#third"] = true
	s := connectedSession(t, page)

	matched, err := s.locateAndAct(context.Background(),
		[]string{"#first", "#second", "#third", "#fourth"},
		func(ctx context.Context, sel string) error { return page.try(sel) })

	require.NoError(t, err)
	assert.Equal(t, "#third", matched)
	assert.Equal(t, []string{"#first", "#second", "#third"}, page.attempted,
		"candidates after the match must not be attempted")
}

func TestLocateAndActExhaustionIsTyped(t *testing.T) {
	page := newFakePage()
	s := connectedSession(t, page)

	_, err := s.locateAndAct(context.Background(),
		[]string{"#a", "#b"},
		func(ctx context.Context, sel string) error { return page.try(sel) })

	assert.ErrorIs(t, err, ErrSelectorExhausted)
}

func TestConnectOnlyFromDisconnected(t *testing.T) {
	page := newFakePage()
	s := connectedSession(t, page)
	assert.Equal(t, StateConnected, s.State())

	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyConnected)
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	s := NewSession(&fakeBrowser{connErr: errors.New("no browser")}, DefaultSelectors(), testTimeouts())

	err := s.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestCloseIsIdempotentFromAnyState(t *testing.T) {
	page := newFakePage()
	s := connectedSession(t, page)

	require.NoError(t, s.Close())
	assert.Equal(t, StateDisconnected, s.State())
	assert.True(t, page.closed)

	// Safe to call again, and safe on a never-connected session.
	require.NoError(t, s.Close())
	fresh := NewSession(&fakeBrowser{page: newFakePage()}, DefaultSelectors(), testTimeouts())
	require.NoError(t, fresh.Close())
}

func TestAuthenticateRequiresConnected(t *testing.T) {
	s := NewSession(&fakeBrowser{page: newFakePage()}, DefaultSelectors(), testTimeouts())

	err := s.Authenticate(context.Background(), Credentials{}, "https://shop.test/admin/login")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestAuthenticateSuccess(t *testing.T) {
	page := newFakePage()
	page.resolves[`input[name="username"]`] = true
	page.resolves[`input[name="password"]`] = true
	page.resolves[`button[type="submit"]`] = true
	page.submitRedirect = "https://shop.test/admin/dashboard"
	s := connectedSession(t, page)

	err := s.Authenticate(context.Background(),
		Credentials{Username: "admin", Password: "secret"},
		"https://shop.test/admin/login")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "admin", page.filled[`input[name="username"]`])
	assert.Equal(t, "secret", page.filled[`input[name="password"]`])
}

func TestAuthenticateSelectorExhaustionStaysConnected(t *testing.T) {
	page := newFakePage()
	page.resolves[`input[name="username"]`] = true
	// No password candidate resolves.
	s := connectedSession(t, page)

	err := s.Authenticate(context.Background(), Credentials{}, "https://shop.test/admin/login")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, StateConnected, s.State())
}

func TestAuthenticateStillOnLoginPageFails(t *testing.T) {
	page := newFakePage()
	page.resolves[`input[name="username"]`] = true
	page.resolves[`input[name="password"]`] = true
	page.resolves[`button[type="submit"]`] = true
	s := connectedSession(t, page)

	err := s.Authenticate(context.Background(), Credentials{}, "https://shop.test/admin/login")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, StateConnected, s.State())
}

func TestVerifySubmissionFailureIsTyped(t *testing.T) {
	page := newFakePage()
	page.resolves[`input[name="username"]`] = true
	page.resolves[`input[name="password"]`] = true
	page.resolves[`button[type="submit"]`] = true
	s := connectedSession(t, page)
	require.NoError(t, s.Authenticate(context.Background(), Credentials{}, "https://shop.test/admin/home"))

	err := s.VerifySubmission(context.Background())
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestAuthenticatedOnlyOperationsRejectConnected(t *testing.T) {
	page := newFakePage()
	s := connectedSession(t, page)

	assert.ErrorIs(t, s.OpenProductForm(context.Background(), "https://shop.test/new"), ErrNotAuthenticated)
	assert.ErrorIs(t, s.SubmitProductForm(context.Background()), ErrNotAuthenticated)
	_, err := s.FetchListings(context.Background(), "https://shop.test/products")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
