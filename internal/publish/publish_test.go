package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/config"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/problems"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	sent       []message
	flushed    bool
	closed     bool
	publishErr error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.sent = append(f.sent, message{subject: subject, data: data})
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed = true
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(config.PublishConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	require.NoError(t, p.PublishProblems(context.Background(), RunEvent{RunID: "r"}, []problems.Problem{{Summary: "x"}}))
	require.NoError(t, p.Close())
}

func TestNATSPublisher_PublishesProblemsThenRun(t *testing.T) {
	fc := &fakeConn{}
	p := &NATSPublisher{conn: fc, subject: "doctopics.problems"}

	list := []problems.Problem{
		{Identifier: problems.UnresolvedTopicReference, Severity: problems.SeverityWarning, Summary: "no such topic", Source: "Guide.md", Line: 3},
	}
	run := RunEvent{RunID: "run-1", Bundle: "com.example.Kit", Outcome: "warning", WarningCount: 1}
	require.NoError(t, p.PublishProblems(context.Background(), run, list))

	require.Len(t, fc.sent, 2)
	assert.Equal(t, "doctopics.problems.com_example_Kit", fc.sent[0].subject)
	assert.Equal(t, "doctopics.problems.com_example_Kit.run", fc.sent[1].subject)
	assert.True(t, fc.flushed)

	var ev ProblemEvent
	require.NoError(t, json.Unmarshal(fc.sent[0].data, &ev))
	assert.Equal(t, "run-1", ev.RunID)
	assert.Equal(t, "unresolved-topic-reference", ev.Problem.Identifier)
	assert.Equal(t, "warning", ev.Problem.Severity)
	assert.Equal(t, 3, ev.Problem.Line)

	var done RunEvent
	require.NoError(t, json.Unmarshal(fc.sent[1].data, &done))
	assert.Equal(t, 1, done.WarningCount)
	assert.False(t, done.Timestamp.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNATSPublisher_Errors(t *testing.T) {
	fc := &fakeConn{publishErr: errors.New("connection closed")}
	p := &NATSPublisher{conn: fc, subject: "s"}
	err := p.PublishProblems(context.Background(), RunEvent{RunID: "r", Bundle: "b"}, nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection closed")
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, ferrors.CategoryPublish, ce.Category())
	assert.True(t, ce.IsTransient())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = &NATSPublisher{conn: &fakeConn{}, subject: "s"}
	err = p.PublishProblems(ctx, RunEvent{}, []problems.Problem{{Summary: "x"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSubjectToken(t *testing.T) {
	assert.Equal(t, "_", subjectToken(""))
	assert.Equal(t, "a_b_c", subjectToken("a.b c"))
}
