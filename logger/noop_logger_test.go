package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ArdentAILabs/benchlock/types"
)

func TestNoOpLogger_DiscardsByDefault(t *testing.T) {
	l := NewNoOpLogger()

	// None of these should panic or emit anything.
	l.Debugw("a")
	l.Infow("b")
	l.Warnw("c")
	l.Errorw("d")
	l.Fatalw("e")

	assert.Same(t, l, l.With("k", "v"))
	assert.Same(t, l, l.WithHolderID(types.HolderID("h")))
	assert.Same(t, l, l.WithResource(types.ResourceID("r")))
	assert.Same(t, l, l.WithComponent("c"))
}

func TestNoOpLogger_Overrides(t *testing.T) {
	var got []string
	record := func(msg string, _ ...any) { got = append(got, msg) }

	l := &NoOpLogger{
		DebugwFunc: record,
		InfowFunc:  record,
		WarnwFunc:  record,
		ErrorwFunc: record,
		FatalwFunc: record,
	}

	l.Debugw("debug")
	l.Infow("info")
	l.Warnw("warn")
	l.Errorw("error")
	l.Fatalw("fatal")

	assert.Equal(t, []string{"debug", "info", "warn", "error", "fatal"}, got)
}
