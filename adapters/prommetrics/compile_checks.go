package prommetrics

import "github.com/goliatone/go-inbox/core"

var _ core.MetricsRecorder = (*Recorder)(nil)
