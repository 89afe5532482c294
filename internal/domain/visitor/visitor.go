// Package visitor records storefront page views.
package visitor

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Visit is one recorded page view.
type Visit struct {
	ID          int64
	IP          string
	UserAgent   string
	Path        string
	Referer     string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	// FirstVisit marks the first view from this IP on the current day.
	FirstVisit bool
	Created    time.Time
}

// Repository stores visits.
type Repository interface {
	Record(ctx context.Context, v *Visit) error
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}

var ignoredFragments = []string{
	"/admin/",
	"/static/",
	"/media/",
	"favicon.ico",
	"/admin-tools/",
}

var ignoredPaths = map[string]struct{}{
	"/livez":  {},
	"/readyz": {},
}

// ShouldTrack reports whether a request path counts as a page view.
func ShouldTrack(path string) bool {
	if _, ok := ignoredPaths[path]; ok {
		return false
	}
	for _, f := range ignoredFragments {
		if strings.Contains(path, f) {
			return false
		}
	}
	return true
}

// ClientIP returns the first X-Forwarded-For entry, else the remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FromRequest builds a visit from request metadata.
func FromRequest(r *http.Request) *Visit {
	q := r.URL.Query()
	param := func(name string) *string {
		if !q.Has(name) {
			return nil
		}
		v := q.Get(name)
		return &v
	}
	return &Visit{
		IP:          ClientIP(r),
		UserAgent:   r.UserAgent(),
		Path:        r.URL.Path,
		Referer:     r.Referer(),
		UTMSource:   param("utm_source"),
		UTMMedium:   param("utm_medium"),
		UTMCampaign: param("utm_campaign"),
	}
}

const (
	expectedDailyIPs = 100_000
	falsePositive    = 0.001
)

// Tracker records visits and flags the first one per IP per day.
type Tracker struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location

	mu   sync.Mutex
	day  string
	seen *bloom.BloomFilter
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone that decides where a day starts.
func WithLocation(loc *time.Location) TrackerOption {
	return func(t *Tracker) { t.loc = loc }
}

// NewTracker creates a Tracker.
func NewTracker(repo Repository, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		repo: repo,
		now:  time.Now,
		loc:  time.UTC,
		seen: bloom.NewWithEstimates(expectedDailyIPs, falsePositive),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// firstToday reports whether ip has not been seen today. The filter is
// process-local and resets when the day changes.
func (t *Tracker) firstToday(ip string) bool {
	day := t.now().In(t.loc).Format(time.DateOnly)

	t.mu.Lock()
	defer t.mu.Unlock()
	if day != t.day {
		t.seen.ClearAll()
		t.day = day
	}
	return !t.seen.TestAndAddString(ip)
}

// Track stores the visit.
func (t *Tracker) Track(ctx context.Context, v *Visit) error {
	v.FirstVisit = t.firstToday(v.IP)
	if v.Created.IsZero() {
		v.Created = t.now()
	}
	if err := t.repo.Record(ctx, v); err != nil {
		return errors.Wrap(err, "record visit")
	}
	return nil
}

// Middleware records a visit for every tracked GET request. Tracking
// failures are logged and never affect the response.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && ShouldTrack(r.URL.Path) {
			ctx := r.Context()
			if err := t.Track(ctx, FromRequest(r)); err != nil {
				zctx.From(ctx).Warn("Track visit", zap.Error(err))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Purge deletes visits older than retention.
func (t *Tracker) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := t.repo.PurgeBefore(ctx, t.now().Add(-retention))
	if err != nil {
		return 0, errors.Wrap(err, "purge visits")
	}
	return n, nil
}
