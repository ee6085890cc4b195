package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"shopsync/internal/models"
	"shopsync/internal/util"

	"go.uber.org/zap"
)

// State is the session lifecycle position.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// Credentials for the remote admin login.
type Credentials struct {
	Username string
	Password string
}

// Timeouts bound every remote wait. Exceeding a bound is a normal failure
// outcome, never a hang.
type Timeouts struct {
	Settle       time.Duration
	PerCandidate time.Duration
	Verify       time.Duration
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	State      string `json:"state"`
	CurrentURL string `json:"current_url,omitempty"`
}

// Session owns one browser connection and walks it through
// Disconnected -> Connected -> Authenticated. A mutex serializes callers:
// one session, one batch at a time.
type Session struct {
	mu        sync.Mutex
	browser   Browser
	page      Page
	state     State
	selectors Selectors
	timeouts  Timeouts
	logger    *zap.Logger
}

// NewSession creates a session over the given browser. The session starts
// Disconnected; call Connect before anything else.
func NewSession(b Browser, selectors Selectors, timeouts Timeouts) *Session {
	return &Session{
		browser:   b,
		selectors: selectors,
		timeouts:  timeouts,
		logger:    util.GetLogger(),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens a page. Valid only from Disconnected; any failure tears
// down and leaves the session Disconnected, never half-open.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return ErrAlreadyConnected
	}

	page, err := s.browser.NewPage(ctx)
	if err != nil {
		s.teardownLocked()
		return fmt.Errorf("failed to connect: %w", err)
	}

	s.page = page
	s.state = StateConnected
	s.logger.Info("Browser session connected")
	return nil
}

// Close tears the session down. Idempotent and safe from any state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
	return nil
}

func (s *Session) teardownLocked() {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	s.state = StateDisconnected
}

// Authenticate logs in to the admin panel. Valid only from Connected.
// Selector exhaustion or a post-submit location that still looks like the
// login page is an authentication failure; the session stays Connected.
func (s *Session) Authenticate(ctx context.Context, creds Credentials, loginURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return ErrNotConnected
	}
	if s.state == StateAuthenticated {
		return nil
	}

	if err := s.gotoAndSettle(ctx, loginURL); err != nil {
		return fmt.Errorf("failed to reach login page: %w", err)
	}

	if _, err := s.locateAndAct(ctx, s.selectors.Username, func(ctx context.Context, sel string) error {
		return s.page.Fill(ctx, sel, creds.Username)
	}); err != nil {
		return fmt.Errorf("%w: username field: %v", ErrLoginFailed, err)
	}

	if _, err := s.locateAndAct(ctx, s.selectors.Password, func(ctx context.Context, sel string) error {
		return s.page.Fill(ctx, sel, creds.Password)
	}); err != nil {
		return fmt.Errorf("%w: password field: %v", ErrLoginFailed, err)
	}

	if _, err := s.locateAndAct(ctx, s.selectors.LoginSubmit, func(ctx context.Context, sel string) error {
		return s.page.Click(ctx, sel)
	}); err != nil {
		return fmt.Errorf("%w: submit control: %v", ErrLoginFailed, err)
	}

	if err := s.settle(ctx); err != nil {
		return fmt.Errorf("%w: page did not settle after submit: %v", ErrLoginFailed, err)
	}

	loc, err := s.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not read location: %v", ErrLoginFailed, err)
	}
	if strings.Contains(strings.ToLower(loc), "login") {
		return fmt.Errorf("%w: still on login page: %s", ErrLoginFailed, loc)
	}

	s.state = StateAuthenticated
	s.logger.Info("Session authenticated", zap.String("location", loc))
	return nil
}

// action is one attempt against a single selector candidate.
type action func(ctx context.Context, selector string) error

// locateAndAct tries each candidate in order, each under its own bounded
// timeout, and short-circuits on the first success. Exhaustion is a typed
// failure, not a panic. This is the one fallback primitive shared by
// authentication, form fill and verification.
func (s *Session) locateAndAct(ctx context.Context, candidates []string, act action) (string, error) {
	for _, sel := range candidates {
		cctx, cancel := context.WithTimeout(ctx, s.timeouts.PerCandidate)
		err := act(cctx, sel)
		cancel()
		if err == nil {
			return sel, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%w: tried %d candidates", ErrSelectorExhausted, len(candidates))
}

func (s *Session) gotoAndSettle(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, s.timeouts.Settle)
	defer cancel()
	if err := s.page.Navigate(nctx, url); err != nil {
		return err
	}
	return s.page.WaitReady(nctx)
}

func (s *Session) settle(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, s.timeouts.Settle)
	defer cancel()
	return s.page.WaitReady(sctx)
}

func (s *Session) requireAuthenticated() error {
	switch s.state {
	case StateAuthenticated:
		return nil
	case StateConnected:
		return ErrNotAuthenticated
	default:
		return ErrNotConnected
	}
}

// OpenProductForm navigates to the create-product page.
func (s *Session) OpenProductForm(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAuthenticated(); err != nil {
		return err
	}
	return s.gotoAndSettle(ctx, url)
}

// FillProductForm maps the record onto the form. Required fields (name,
// SKU) must resolve; optional fields are filled only when the record
// carries them. The image-upload step runs only when has_image is set.
func (s *Session) FillProductForm(ctx context.Context, p *models.Product, assetsRoot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	fill := func(value string) action {
		return func(ctx context.Context, sel string) error {
			return s.page.Fill(ctx, sel, value)
		}
	}

	if _, err := s.locateAndAct(ctx, s.selectors.FormName, fill(p.Name)); err != nil {
		return fmt.Errorf("name field: %w", err)
	}
	if _, err := s.locateAndAct(ctx, s.selectors.FormSKU, fill(p.SKU)); err != nil {
		return fmt.Errorf("sku field: %w", err)
	}

	if p.Price > 0 {
		price := strconv.FormatFloat(p.Price, 'f', -1, 64)
		if _, err := s.locateAndAct(ctx, s.selectors.FormPrice, fill(price)); err != nil {
			return fmt.Errorf("price field: %w", err)
		}
	}

	if p.HasDescription && p.DescriptionFilename != "" {
		description, err := loadDescription(assetsRoot, p.SKU, p.DescriptionFilename)
		if err != nil {
			s.logger.Warn("Could not load description file",
				zap.String("sku", p.SKU), zap.Error(err))
		} else if _, err := s.locateAndAct(ctx, s.selectors.FormDescription, fill(description)); err != nil {
			return fmt.Errorf("description field: %w", err)
		}
	}

	if p.CategoryPath != "" {
		if _, err := s.locateAndAct(ctx, s.selectors.FormCategory, fill(p.CategoryPath)); err != nil {
			return fmt.Errorf("category field: %w", err)
		}
	}

	if p.HasImage {
		if err := s.uploadImages(ctx, p, assetsRoot); err != nil {
			return fmt.Errorf("image upload: %w", err)
		}
	}

	return nil
}

func (s *Session) uploadImages(ctx context.Context, p *models.Product, assetsRoot string) error {
	folder := filepath.Join(assetsRoot, p.SKU)

	if p.MainImageFilename != "" {
		main := filepath.Join(folder, p.MainImageFilename)
		if _, err := s.locateAndAct(ctx, s.selectors.FormMainImage, func(ctx context.Context, sel string) error {
			return s.page.SetFiles(ctx, sel, []string{main})
		}); err != nil {
			return err
		}
	}

	if len(p.ExtraImageFilenames) > 0 && len(s.selectors.FormExtraImages) > 0 {
		extras := make([]string, 0, len(p.ExtraImageFilenames))
		for _, name := range p.ExtraImageFilenames {
			extras = append(extras, filepath.Join(folder, name))
		}
		if _, err := s.locateAndAct(ctx, s.selectors.FormExtraImages, func(ctx context.Context, sel string) error {
			return s.page.SetFiles(ctx, sel, extras)
		}); err != nil {
			// Extra images are best-effort; the main image already went up.
			s.logger.Warn("Could not upload extra images",
				zap.String("sku", p.SKU), zap.Error(err))
		}
	}

	return nil
}

// SubmitProductForm submits the filled form and waits for the page to
// settle.
func (s *Session) SubmitProductForm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	if _, err := s.locateAndAct(ctx, s.selectors.FormSubmit, func(ctx context.Context, sel string) error {
		return s.page.Click(ctx, sel)
	}); err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	return s.settle(ctx)
}

// VerifySubmission probes the known success indicators under a bounded
// wait. Absence of every indicator within the bound is a failure, not
// "still pending".
func (s *Session) VerifySubmission(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAuthenticated(); err != nil {
		return err
	}

	vctx, cancel := context.WithTimeout(ctx, s.timeouts.Verify)
	defer cancel()

	if _, err := s.locateAndAct(vctx, s.selectors.Success, func(ctx context.Context, sel string) error {
		return s.page.WaitVisible(ctx, sel)
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	return nil
}

// FetchListings pulls the remote listing snapshots from the "my products"
// page. An empty page yields an empty slice; an unreachable page is a
// typed failure.
func (s *Session) FetchListings(ctx context.Context, listingURL string) ([]models.RemoteListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAuthenticated(); err != nil {
		return nil, err
	}

	if err := s.gotoAndSettle(ctx, listingURL); err != nil {
		return nil, fmt.Errorf("failed to reach listing page: %w", err)
	}

	listings := []models.RemoteListing{}
	ectx, cancel := context.WithTimeout(ctx, s.timeouts.Settle)
	defer cancel()
	if err := s.page.Evaluate(ectx, s.selectors.ListingExtract, &listings); err != nil {
		return nil, fmt.Errorf("failed to extract listings: %w", err)
	}
	return listings, nil
}

// Screenshot captures the current page to path. Available once connected.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return ErrNotConnected
	}
	return s.page.Screenshot(ctx, path)
}

// Status reports the session state and, when connected, the current URL.
func (s *Session) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{State: s.state.String()}
	if s.page != nil {
		if loc, err := s.page.Location(ctx); err == nil {
			status.CurrentURL = loc
		}
	}
	return status
}

func loadDescription(root, sku, filename string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, sku, filename))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
