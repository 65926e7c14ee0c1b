package graphql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	gonanoid "github.com/matoous/go-nanoid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

const tracerName = "github.com/alexanderramin/coursetrack/internal/graphql"

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrUnauthorized
	}
	return string(t), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Option configures a Client.
type Option func(*Client)

// WithTracer sets the tracer used for per-call spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// wrapped so that HTTP status codes map to sentinel errors.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client talks to the LMS GraphQL API.
type Client struct {
	cfg      Config
	gql      *graphql.Client
	http     *http.Client
	tokens   TokenSource
	observer Observer
	tracer   trace.Tracer
}

// NewClient creates a Client for cfg.Endpoint. tokens may be nil when only
// Login is used.
func NewClient(cfg Config, tokens TokenSource, observer Observer, opts ...Option) *Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if cfg.RequestIDLength <= 0 {
		cfg.RequestIDLength = DefaultConfig().RequestIDLength
	}
	c := &Client{
		cfg:      cfg,
		tokens:   tokens,
		observer: observer,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.http
	hc.Transport = &statusTransport{base: base}
	c.gql = graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(&hc))
	return c
}

// UpdateProgress sends the aggregate course percentage for the signed-in
// learner's enrollment.
func (c *Client) UpdateProgress(ctx context.Context, courseID string, input domain.ProgressInput) error {
	req := graphql.NewRequest(updateCourseEnrollmentMutation)
	req.Var("courseId", courseID)
	req.Var("updateCourseEnrollmentInput", input)

	var resp struct {
		UpdateCourseEnrollment *wireEnrollment `json:"updateCourseEnrollment"`
	}
	return c.run(ctx, opUpdateProgress, req, &resp, true)
}

// GetCourseModules fetches the module/lesson structure of a course.
func (c *Client) GetCourseModules(ctx context.Context, courseID string) (*domain.Catalog, error) {
	req := graphql.NewRequest(getModulesForCourseQuery)
	req.Var("courseId", courseID)

	var resp struct {
		GetModulesForCourse []*wireModule `json:"getModulesForCourse"`
	}
	if err := c.run(ctx, opCourseModules, req, &resp, true); err != nil {
		return nil, err
	}

	cat := &domain.Catalog{CourseID: courseID}
	for _, m := range resp.GetModulesForCourse {
		if m == nil {
			continue
		}
		cat.Modules = append(cat.Modules, m.toDomain())
	}
	cat.Normalize()
	return cat, nil
}

// GetEnrollment fetches the learner's enrollment for a course.
func (c *Client) GetEnrollment(ctx context.Context, courseID string) (*domain.Enrollment, error) {
	req := graphql.NewRequest(getCourseByIDQuery)
	req.Var("courseId", courseID)

	var resp struct {
		GetCourseByID *wireEnrollment `json:"getCourseById"`
	}
	if err := c.run(ctx, opEnrollment, req, &resp, true); err != nil {
		return nil, err
	}
	e := resp.GetCourseByID
	if e == nil {
		return nil, fmt.Errorf("%w: enrollment for course %s", ErrNotFound, courseID)
	}
	return &domain.Enrollment{
		ID:        e.ID,
		CourseID:  courseID,
		Title:     e.Course.Title,
		Progress:  e.Progress,
		Completed: e.Completed,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	req := graphql.NewRequest(loginMutation)
	req.Var("input", map[string]string{"email": email, "password": password})

	var resp struct {
		Login *struct {
			AccessToken string `json:"accessToken"`
		} `json:"login"`
	}
	if err := c.run(ctx, opLogin, req, &resp, false); err != nil {
		return "", err
	}
	if resp.Login == nil || resp.Login.AccessToken == "" {
		return "", fmt.Errorf("%w: login returned no token", ErrUnauthorized)
	}
	return resp.Login.AccessToken, nil
}

func (c *Client) run(ctx context.Context, op string, req *graphql.Request, resp any, authed bool) error {
	start := time.Now()

	requestID, err := gonanoid.Nanoid(c.cfg.RequestIDLength)
	if err != nil {
		return fmt.Errorf("generating request id: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "graphql."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("graphql.operation.name", op),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req.Header.Set("X-Request-ID", requestID)
	if authed {
		if c.tokens == nil {
			err = ErrUnauthorized
		} else {
			var token string
			token, err = c.tokens.Token(ctx)
			if err == nil {
				req.Header.Set("Authorization", "Bearer "+token)
			} else if !errors.Is(err, ErrUnauthorized) {
				err = fmt.Errorf("%w: %v", ErrUnauthorized, err)
			}
		}
	}
	if err == nil {
		err = c.gql.Run(ctx, req, resp)
	}

	event := CallEvent{
		Operation: op,
		RequestID: requestID,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		err = classify(ctx, err)
		event.ErrorCode = errorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, event.ErrorCode)
	}
	c.observer.OnCallComplete(event)
	return err
}

// classify maps transport and GraphQL failures onto the package sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrUnavailable):
		var se *statusError
		if errors.As(err, &se) {
			return se
		}
		return err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := strings.TrimPrefix(err.Error(), "graphql: ")
	return fmt.Errorf("%w: %s", ErrRemote, msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRemote):
		return "remote"
	default:
		return "unknown"
	}
}

// statusError reports an HTTP status the API answered with.
type statusError struct {
	sentinel error
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%v: status %d", e.sentinel, e.code)
}

func (e *statusError) Unwrap() error { return e.sentinel }

// statusTransport turns auth and server failures into errors before the
// GraphQL layer tries to decode their bodies.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		sentinel = ErrUnauthorized
	case resp.StatusCode >= http.StatusInternalServerError:
		sentinel = ErrUnavailable
	default:
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil, &statusError{sentinel: sentinel, code: resp.StatusCode}
}
