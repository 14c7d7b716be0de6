// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package log

import "fmt"

// Helper adds printf-style convenience methods on top of a Logger, the
// way every stage of the pipeline logs (pe.File.logger in the teacher).
type Helper struct {
	logger Logger
}

// NewHelper wraps logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, args ...interface{}) {
	h.logger.Log(level, "msg", fmt.Sprint(args...))
}

func (h *Helper) logf(level Level, format string, args ...interface{}) {
	h.logger.Log(level, "msg", fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func (h *Helper) Debug(args ...interface{}) { h.log(LevelDebug, args...) }

// Debugf logs at debug level with formatting.
func (h *Helper) Debugf(format string, args ...interface{}) { h.logf(LevelDebug, format, args...) }

// Info logs at info level.
func (h *Helper) Info(args ...interface{}) { h.log(LevelInfo, args...) }

// Infof logs at info level with formatting.
func (h *Helper) Infof(format string, args ...interface{}) { h.logf(LevelInfo, format, args...) }

// Warn logs at warn level.
func (h *Helper) Warn(args ...interface{}) { h.log(LevelWarn, args...) }

// Warnf logs at warn level with formatting.
func (h *Helper) Warnf(format string, args ...interface{}) { h.logf(LevelWarn, format, args...) }

// Error logs at error level.
func (h *Helper) Error(args ...interface{}) { h.log(LevelError, args...) }

// Errorf logs at error level with formatting.
func (h *Helper) Errorf(format string, args ...interface{}) { h.logf(LevelError, format, args...) }
