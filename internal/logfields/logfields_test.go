package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		val  string
	}{
		{RunID("r1"), KeyRunID, "r1"},
		{Stage("convert"), KeyStage, "convert"},
		{State("Converting"), KeyState, "Converting"},
		{Topic("/documentation/MyKit"), KeyTopic, "/documentation/MyKit"},
		{Kind("struct"), KeyKind, "struct"},
		{Link("doc:Foo"), KeyLink, "doc:Foo"},
		{Scope("/documentation/MyKit"), KeyScope, "/documentation/MyKit"},
		{Bundle("com.example"), KeyBundle, "com.example"},
		{Path("/tmp/x"), KeyPath, "/tmp/x"},
	}
	for _, c := range cases {
		assert.Equal(t, c.key, c.attr.Key)
		assert.Equal(t, c.val, c.attr.Value.String())
	}
}

func TestNumericHelpers(t *testing.T) {
	assert.Equal(t, int64(3), Count(3).Value.Int64())
	assert.Equal(t, int64(2), Batch(2).Value.Int64())
	assert.InDelta(t, 1.5, DurationMS(1.5).Value.Float64(), 0.0001)
}

func TestError(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
}
