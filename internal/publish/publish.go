// Package publish sends the diagnostics of a compilation run to other
// services.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/doctopics/internal/config"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/problems"
)

// ProblemEvent is the message published for each problem of a run.
type ProblemEvent struct {
	RunID     string               `json:"run_id"`
	Bundle    string               `json:"bundle"`
	Timestamp time.Time            `json:"timestamp"`
	Problem   problems.JSONProblem `json:"problem"`
}

// RunEvent closes the stream of problem events of one run.
type RunEvent struct {
	RunID        string    `json:"run_id"`
	Bundle       string    `json:"bundle"`
	Timestamp    time.Time `json:"timestamp"`
	Outcome      string    `json:"outcome"`
	ErrorCount   int       `json:"error_count"`
	WarningCount int       `json:"warning_count"`
}

// Publisher publishes the outcome of compilation runs.
type Publisher interface {
	PublishProblems(ctx context.Context, run RunEvent, list []problems.Problem) error
	Close() error
}

// NoopPublisher drops everything. It is used when publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishProblems(context.Context, RunEvent, []problems.Problem) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes one message per problem on "<subject>.<bundle>"
// and a closing run message on "<subject>.<bundle>.run".
type NATSPublisher struct {
	conn    conn
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.PublishConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("doctopics"))
	if err != nil {
		return nil, ferrors.PublishError("connect to NATS").Wrap(err).
			WithContext("url", cfg.URL).Build()
	}
	slog.Info("NATS publisher connected", slog.String("url", cfg.URL), slog.String("subject", cfg.Subject))
	return &NATSPublisher{conn: nc, subject: cfg.Subject}, nil
}

// New returns the publisher the configuration asks for.
func New(cfg config.PublishConfig) (Publisher, error) {
	if !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg)
}

// PublishProblems publishes every problem of a run followed by the run event,
// then flushes the connection.
func (p *NATSPublisher) PublishProblems(ctx context.Context, run RunEvent, list []problems.Problem) error {
	now := time.Now().UTC()
	subject := p.subject + "." + subjectToken(run.Bundle)
	for _, prob := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(ProblemEvent{RunID: run.RunID, Bundle: run.Bundle, Timestamp: now, Problem: problems.ToJSON(prob)})
		if err != nil {
			return fmt.Errorf("marshal problem event: %w", err)
		}
		if err := p.conn.Publish(subject, data); err != nil {
			return ferrors.PublishError("publish problem").Wrap(err).
				WithContext("subject", subject).Build()
		}
	}

	run.Timestamp = now
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := p.conn.Publish(subject+".run", data); err != nil {
		return ferrors.PublishError("publish run").Wrap(err).
			WithContext("subject", subject+".run").Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.PublishError("flush NATS connection").Wrap(err).Build()
	}
	slog.Debug("Published problems", logfields.RunID(run.RunID), logfields.Count(len(list)), slog.String("subject", subject))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// subjectToken turns a bundle identifier into a single subject token.
func subjectToken(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch r {
		case '.', ' ', '*', '>', '\t':
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
