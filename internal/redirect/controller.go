package redirect

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"deeplink-engine/internal/deeplink"
)

type State int

const (
	Idle State = iota
	AttemptingApp
	FallbackTimerElapsed
	Resolved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AttemptingApp:
		return "attempting_app"
	case FallbackTimerElapsed:
		return "fallback_timer_elapsed"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Navigator sends the client to a URL.
type Navigator interface {
	Navigate(target string) error
}

type NavigatorFunc func(target string) error

func (f NavigatorFunc) Navigate(target string) error { return f(target) }

// Clock schedules one-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func())
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Step is one navigation issued by a run.
type Step struct {
	State  State
	Target string
	Err    error
}

// Controller drives attempt-app-then-fallback navigations. It keeps no
// state between Open calls.
type Controller struct {
	nav   Navigator
	clock Clock
}

// NewController returns a controller; a nil clock uses wall time.
func NewController(nav Navigator, clock Clock) *Controller {
	if clock == nil {
		clock = systemClock{}
	}
	return &Controller{nav: nav, clock: clock}
}

// Open starts a run for the given platform. The fallback timer cannot see
// whether the app opened, so once armed it always fires; there is no way
// to cancel it.
func (c *Controller) Open(b deeplink.ProductLinkBundle, stores deeplink.StoreLinks, p deeplink.Platform) *Run {
	plan := PlanFor(b, stores, p)
	r := &Run{plan: plan, state: Idle, done: make(chan struct{})}

	if !plan.AttemptsApp() {
		r.navigate(c.nav, Resolved, plan.Fallback)
		r.resolve()
		return r
	}

	r.navigate(c.nav, AttemptingApp, plan.AppLink)
	c.clock.AfterFunc(plan.Delay, func() {
		r.navigate(c.nav, FallbackTimerElapsed, plan.Fallback)
		r.resolve()
	})
	return r
}

// Run is a single invocation of Open.
type Run struct {
	plan Plan

	mu    sync.Mutex
	state State
	steps []Step

	once sync.Once
	done chan struct{}
}

func (r *Run) Plan() Plan { return r.plan }

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Run) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}

// Done is closed when the run reaches Resolved.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) navigate(nav Navigator, s State, target string) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	err := nav.Navigate(target)
	if err != nil {
		log.Warn().Err(err).Str("target", target).Str("state", s.String()).Msg("navigation failed")
	}

	r.mu.Lock()
	r.steps = append(r.steps, Step{State: s, Target: target, Err: err})
	r.mu.Unlock()
}

func (r *Run) resolve() {
	r.once.Do(func() {
		r.mu.Lock()
		r.state = Resolved
		r.mu.Unlock()
		close(r.done)
	})
}
