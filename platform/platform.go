// Package platform defines the contracts GrowMesh consumes for third-party
// marketing platforms: analytics backends, social networks and email
// delivery services. Concrete wrappers live in the applications that embed
// the mesh; this package ships the interfaces, the shared error type and
// in-memory fakes for tests and examples.
//
// Handlers treat every platform client identically to the LLM provider: any
// failure is caught at the handler boundary and re-wrapped by the runtime,
// so a *PlatformError never crosses an agent boundary raw.
package platform

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PlatformError wraps a failure from a platform client, identifying the
// platform and operation with the original cause preserved.
type PlatformError struct {
	Platform string
	Op       string
	Cause    error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %s failed: %v", e.Platform, e.Op, e.Cause)
}

// Unwrap exposes the original cause.
func (e *PlatformError) Unwrap() error { return e.Cause }

// NewPlatformError constructs a PlatformError.
func NewPlatformError(platform, op string, cause error) *PlatformError {
	return &PlatformError{Platform: platform, Op: op, Cause: cause}
}

// Metrics is a plain result mapping of metric name to value for a channel
// and period.
type Metrics map[string]float64

// AnalyticsClient fetches performance data from an analytics backend. These
// calls are quota-bound upstream; callers route them through the cache
// layer.
type AnalyticsClient interface {
	FetchMetrics(ctx context.Context, channel string, since time.Time) (Metrics, error)
	TopKeywords(ctx context.Context, domain string, limit int) ([]string, error)
}

// SocialClient publishes and inspects posts on one social network.
type SocialClient interface {
	PublishPost(ctx context.Context, content string, scheduleAt time.Time) (postID string, err error)
	ScheduledPosts(ctx context.Context) ([]string, error)
}

// EmailClient delivers campaigns through an email service provider.
type EmailClient interface {
	SendCampaign(ctx context.Context, subject, body string, segment string) (campaignID string, err error)
	ListStats(ctx context.Context, campaignID string) (Metrics, error)
}

// FakeAnalytics is an in-memory AnalyticsClient for tests and examples.
// A non-nil Err makes every call fail wrapped in *PlatformError.
type FakeAnalytics struct {
	mu       sync.Mutex
	metrics  map[string]Metrics
	keywords []string
	err      error
	calls    int
}

// NewFakeAnalytics constructs a fake with empty data.
func NewFakeAnalytics() *FakeAnalytics {
	return &FakeAnalytics{metrics: map[string]Metrics{}}
}

// SetMetrics seeds the metrics returned for a channel.
func (f *FakeAnalytics) SetMetrics(channel string, m Metrics) *FakeAnalytics {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[channel] = m
	return f
}

// SetKeywords seeds the keyword list.
func (f *FakeAnalytics) SetKeywords(kw ...string) *FakeAnalytics {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords = kw
	return f
}

// FailWith makes subsequent calls fail with err.
func (f *FakeAnalytics) FailWith(err error) *FakeAnalytics {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// Calls returns the number of client calls made.
func (f *FakeAnalytics) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FetchMetrics implements AnalyticsClient.
func (f *FakeAnalytics) FetchMetrics(_ context.Context, channel string, _ time.Time) (Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, NewPlatformError("fake-analytics", "fetch_metrics", f.err)
	}
	if m, ok := f.metrics[channel]; ok {
		return m, nil
	}
	return Metrics{}, nil
}

// TopKeywords implements AnalyticsClient.
func (f *FakeAnalytics) TopKeywords(_ context.Context, _ string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, NewPlatformError("fake-analytics", "top_keywords", f.err)
	}
	if limit > len(f.keywords) {
		limit = len(f.keywords)
	}
	return append([]string(nil), f.keywords[:limit]...), nil
}

// FakeSocial is an in-memory SocialClient for tests and examples.
type FakeSocial struct {
	mu    sync.Mutex
	posts []string
	err   error
}

// NewFakeSocial constructs an empty fake.
func NewFakeSocial() *FakeSocial { return &FakeSocial{} }

// FailWith makes subsequent calls fail with err.
func (f *FakeSocial) FailWith(err error) *FakeSocial {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// PublishPost implements SocialClient.
func (f *FakeSocial) PublishPost(_ context.Context, content string, _ time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", NewPlatformError("fake-social", "publish_post", f.err)
	}
	id := fmt.Sprintf("post-%d", len(f.posts)+1)
	f.posts = append(f.posts, content)
	return id, nil
}

// ScheduledPosts implements SocialClient.
func (f *FakeSocial) ScheduledPosts(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, NewPlatformError("fake-social", "scheduled_posts", f.err)
	}
	return append([]string(nil), f.posts...), nil
}

// FakeEmail is an in-memory EmailClient for tests and examples.
type FakeEmail struct {
	mu        sync.Mutex
	campaigns map[string]Metrics
	err       error
}

// NewFakeEmail constructs an empty fake.
func NewFakeEmail() *FakeEmail { return &FakeEmail{campaigns: map[string]Metrics{}} }

// FailWith makes subsequent calls fail with err.
func (f *FakeEmail) FailWith(err error) *FakeEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// SendCampaign implements EmailClient.
func (f *FakeEmail) SendCampaign(_ context.Context, subject, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", NewPlatformError("fake-email", "send_campaign", f.err)
	}
	id := fmt.Sprintf("campaign-%d", len(f.campaigns)+1)
	f.campaigns[id] = Metrics{"sent": 1, "subject_len": float64(len(subject))}
	return id, nil
}

// ListStats implements EmailClient.
func (f *FakeEmail) ListStats(_ context.Context, campaignID string) (Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, NewPlatformError("fake-email", "list_stats", f.err)
	}
	if m, ok := f.campaigns[campaignID]; ok {
		return m, nil
	}
	return nil, NewPlatformError("fake-email", "list_stats", fmt.Errorf("unknown campaign %s", campaignID))
}
