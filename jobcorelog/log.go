// Package jobcorelog is a thin logrus wrapper shared by the scheduling
// core. It exists so every package logs through one configurable
// *logrus.Logger instead of importing logrus directly, letting an
// embedding application redirect or silence scheduler logging with a
// single AddHook/SetOutput call.
package jobcorelog

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

// Log is the shared logger instance used by every package in this module.
var Log = logrus.New()

// AddHook registers hook with the shared logger.
func AddHook(hook logrus.Hook) {
	Log.AddHook(hook)
}

func Debug(args ...interface{}) { Log.Debug(args...) }

func Debugf(format string, args ...interface{}) { Log.Debugf(format, args...) }

func Info(args ...interface{}) { Log.Info(args...) }

func Infof(format string, args ...interface{}) { Log.Infof(format, args...) }

func Warn(args ...interface{}) { Log.Warn(args...) }

func Warnf(format string, args ...interface{}) { Log.Warnf(format, args...) }

func Error(args ...interface{}) { Log.Error(args...) }

func Errorf(format string, args ...interface{}) { Log.Errorf(format, args...) }

// Dump renders v with field names and nested structure, for cases where a
// %v/%+v would collapse a job table or listener slice into something
// useless for debugging. Only cheap to call at Debug level; callers should
// guard expensive dumps with Log.IsLevelEnabled(logrus.DebugLevel).
func Dump(v ...interface{}) string {
	return spew.Sdump(v...)
}
