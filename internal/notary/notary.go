package notary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"socket/internal/errs"
	"socket/internal/execx"
	"socket/internal/logging"
	"socket/internal/settings"
)

const (
	// PollInterval is the fixed sleep between status queries.
	PollInterval = 6144 * time.Millisecond
	// MaxAttempts bounds the poll loop; the service gives no push
	// notification, so this caps the total wait at roughly 1.75 hours.
	MaxAttempts = 1024
)

// Credentials are the Apple ID used for submission and status queries.
type Credentials struct {
	Username string
	Password string
}

// Recorder persists session transitions. Recording is best-effort and never
// fails the run.
type Recorder interface {
	Record(ctx context.Context, session Session) error
}

// Option configures the notarizer.
type Option func(*Notarizer)

// WithSleeper injects the inter-poll delay function (primarily for tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(n *Notarizer) {
		if sleep != nil {
			n.sleep = sleep
		}
	}
}

// WithRecorder attaches a session journal.
func WithRecorder(recorder Recorder) Option {
	return func(n *Notarizer) {
		n.recorder = recorder
	}
}

// WithCommandTimeout bounds each individual service invocation.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(n *Notarizer) {
		n.timeout = timeout
	}
}

// Notarizer submits an archive to the notarization service and drives the
// bounded polling state machine to a terminal verdict.
type Notarizer struct {
	runner   execx.Runner
	logger   *slog.Logger
	recorder Recorder
	sleep    func(time.Duration)
	interval time.Duration
	maxPolls int
	timeout  time.Duration
}

// New constructs a notarizer.
func New(runner execx.Runner, logger *slog.Logger, opts ...Option) *Notarizer {
	n := &Notarizer{
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "notarize"),
		sleep:    time.Sleep,
		interval: PollInterval,
		maxPolls: MaxAttempts,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notarize submits the archive and polls until a terminal state. The returned
// session carries the final status and attempt count even when the error is
// non-nil.
func (n *Notarizer) Notarize(ctx context.Context, archive string, set *settings.Settings, creds Credentials) (*Session, error) {
	session := &Session{
		BundleID: set.Get("bundle_identifier"),
		Archive:  archive,
		Status:   StatusNotSubmitted,
	}

	if err := n.submit(ctx, session, creds); err != nil {
		return session, err
	}
	return session, n.poll(ctx, session, creds)
}

func (n *Notarizer) submit(ctx context.Context, session *Session, creds Credentials) error {
	line := fmt.Sprintf("xcrun altool --notarize-app --username %q --password %q --primary-bundle-id %q --file %q",
		creds.Username, creds.Password, session.BundleID, session.Archive)

	res, err := n.runner.Run(ctx, execx.Command{Line: line, Timeout: n.timeout})
	if err != nil {
		return errs.Wrap(errs.ErrExternalTool, "notarize", "submit", "", err)
	}
	if res.ExitCode != 0 {
		n.surface(res.Output)
		return errs.NewProcessError("notarize", line, res.ExitCode, res.Output)
	}

	id, ok := ExtractRequestID(res.Output)
	if !ok {
		session.Status = StatusServiceError
		n.record(ctx, session)
		return errs.Wrap(errs.ErrServiceProtocol, "notarize", "submit",
			"no request identifier in service response", nil)
	}
	session.RequestID = id
	session.Status = StatusSubmitted
	n.record(ctx, session)
	n.logger.Info("submitted for notarization", logging.String("request_id", id))
	return nil
}

func (n *Notarizer) poll(ctx context.Context, session *Session, creds Credentials) error {
	n.logger.Info("polling for notarization")

	for session.Attempts < n.maxPolls {
		session.Attempts++
		n.sleep(n.interval)

		line := fmt.Sprintf("xcrun altool --notarization-info %s -u %s -p %s",
			session.RequestID, creds.Username, creds.Password)
		res, err := n.runner.Run(ctx, execx.Command{Line: line, Timeout: n.timeout})
		if err != nil {
			return errs.Wrap(errs.ErrExternalTool, "notarize", "status query", "", err)
		}
		// The exit code of the status query is ignored: the response text is
		// the only contract the service offers.

		switch Classify(res.Output) {
		case VerdictInProgress:
			session.Status = StatusPolling
			n.logger.Debug("notarization in progress", logging.Int("attempt", session.Attempts))
			continue

		case VerdictInvalid:
			session.Status = StatusRejected
			n.record(ctx, session)
			n.logger.Error("apple rejected the request for notarization")
			n.surface(res.Output)
			n.surfaceHistory(ctx, creds)
			return errs.Wrap(errs.ErrExternalTool, "notarize", "status",
				"apple rejected the request for notarization", nil)

		case VerdictSuccess:
			session.Status = StatusSuccess
			n.record(ctx, session)
			n.logger.Info("successfully notarized", logging.Int("attempt", session.Attempts))
			return nil

		default:
			session.Status = StatusServiceError
			n.record(ctx, session)
			n.surface(res.Output)
			return errs.Wrap(errs.ErrServiceProtocol, "notarize", "status",
				"apple was unable to notarize", nil)
		}
	}

	session.Status = StatusTimedOut
	n.record(ctx, session)
	return errs.Wrap(errs.ErrServiceTimeout, "notarize", "poll",
		"apple did not respond to the request for notarization", nil)
}

// surfaceHistory fetches the notarization history for diagnostics after a
// rejection. Its own failure is logged but does not mask the rejection.
func (n *Notarizer) surfaceHistory(ctx context.Context, creds Credentials) {
	line := fmt.Sprintf("xcrun altool --notarization-history 0 -u %s -p %s", creds.Username, creds.Password)
	res, err := n.runner.Run(ctx, execx.Command{Line: line, Timeout: n.timeout})
	if err != nil || res.ExitCode != 0 {
		n.logger.Warn("unable to get notarization history", logging.Error(err), logging.Int(logging.FieldExitCode, res.ExitCode))
		return
	}
	n.surface(res.Output)
}

func (n *Notarizer) surface(output string) {
	if out := strings.TrimSpace(output); out != "" {
		n.logger.Info(out)
	}
}

func (n *Notarizer) record(ctx context.Context, session *Session) {
	if n.recorder == nil {
		return
	}
	if err := n.recorder.Record(ctx, *session); err != nil {
		n.logger.Warn("could not record notarization session", logging.Error(err))
	}
}
