package location

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/polaris/internal/models"
)

// Accuracy is the resolution requested from the fix source.
type Accuracy int

const (
	AccuracyLowest Accuracy = iota
	AccuracyBalanced
	AccuracyBestForNavigation
)

func (a Accuracy) String() string {
	switch a {
	case AccuracyLowest:
		return "lowest"
	case AccuracyBalanced:
		return "balanced"
	case AccuracyBestForNavigation:
		return "best_for_navigation"
	}
	return "unknown"
}

// AccuracyFor maps a consent granularity onto a fix accuracy. GranularityNone
// still yields fixes, at the lowest accuracy; only Consent.Enabled gates
// collection. Unknown values map to the lowest accuracy.
func AccuracyFor(g models.Granularity) Accuracy {
	switch g {
	case models.GranularityPrecise:
		return AccuracyBestForNavigation
	case models.GranularityApproximate:
		return AccuracyBalanced
	default:
		return AccuracyLowest
	}
}

// Watch defaults applied to every subscription.
const (
	DefaultInterval       = 5 * time.Minute
	DefaultDistanceMeters = 100.0
)

type WatchOptions struct {
	Accuracy       Accuracy
	Interval       time.Duration
	DistanceMeters float64
	Background     bool
}

// Fix is one raw position reading pushed by the platform.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time
}

// FixHandler receives fixes in arrival order. Background deliveries may carry
// several fixes at once.
type FixHandler func(ctx context.Context, fixes []Fix)

type Subscription interface {
	Cancel() error
}

// FixSource is the platform position stream.
type FixSource interface {
	Subscribe(ctx context.Context, opts WatchOptions, h FixHandler) (Subscription, error)
}

// Permissions is the boolean permission contract of the platform. Request*
// may prompt the user and returns whether access was granted.
type Permissions interface {
	ForegroundGranted(ctx context.Context) (bool, error)
	RequestForeground(ctx context.Context) (bool, error)
	BackgroundGranted(ctx context.Context) (bool, error)
	RequestBackground(ctx context.Context) (bool, error)
}

// StaticPermissions answers every request from fixed flags. It stands in for
// OS dialogs in terminals and tests.
type StaticPermissions struct {
	mu         sync.Mutex
	foreground bool
	background bool
}

func NewStaticPermissions(foreground, background bool) *StaticPermissions {
	return &StaticPermissions{foreground: foreground, background: background}
}

// Set changes the answers for subsequent checks and requests.
func (p *StaticPermissions) Set(foreground, background bool) {
	p.mu.Lock()
	p.foreground, p.background = foreground, background
	p.mu.Unlock()
}

func (p *StaticPermissions) ForegroundGranted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.foreground, nil
}

func (p *StaticPermissions) RequestForeground(ctx context.Context) (bool, error) {
	return p.ForegroundGranted(ctx)
}

func (p *StaticPermissions) BackgroundGranted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background, nil
}

func (p *StaticPermissions) RequestBackground(ctx context.Context) (bool, error) {
	return p.BackgroundGranted(ctx)
}

var ErrNotSubscribed = errors.New("no active location subscription")

// ManualSource is a FixSource fed by explicit Push calls, used by the CLI
// and tests. It supports one subscription at a time.
type ManualSource struct {
	mu      sync.Mutex
	handler FixHandler
	opts    WatchOptions
	ctx     context.Context
	gen     int
}

func NewManualSource() *ManualSource {
	return &ManualSource{}
}

func (m *ManualSource) Subscribe(ctx context.Context, opts WatchOptions, h FixHandler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.handler, m.opts = h, opts
	m.ctx = context.WithoutCancel(ctx)
	return &manualSubscription{src: m, gen: m.gen}, nil
}

// Options returns the options of the active subscription.
func (m *ManualSource) Options() (WatchOptions, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts, m.handler != nil
}

// Push delivers fixes to the active subscriber synchronously.
func (m *ManualSource) Push(fixes ...Fix) error {
	m.mu.Lock()
	h, ctx := m.handler, m.ctx
	m.mu.Unlock()

	if h == nil {
		return ErrNotSubscribed
	}
	h(ctx, fixes)
	return nil
}

type manualSubscription struct {
	src *ManualSource
	gen int
}

func (s *manualSubscription) Cancel() error {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	if s.src.gen != s.gen || s.src.handler == nil {
		return ErrNotSubscribed
	}
	s.src.handler = nil
	s.src.opts = WatchOptions{}
	return nil
}
