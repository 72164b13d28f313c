package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/amork0112-rgb/frageedu/core"
)

// RollbarLogger reports to rollbar and mirrors every line to a zap logger.
type RollbarLogger struct {
	zl *zap.SugaredLogger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewZap builds the local sink: human readable in debug, JSON otherwise.
func NewZap(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug || conf.TestMode {
		cfg := zap.NewDevelopmentConfig()
		if conf.TestMode {
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		}
		return cfg.Build()
	}
	return zap.NewProductionConfig().Build()
}

func NewRollbarLogger(zl *zap.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{zl: zl.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes the zap buffer and waits for pending rollbar items.
func (l RollbarLogger) Sync() {
	_ = l.zl.Sync()
	rollbar.Wait()
}

// expected fmt: msg | error, map[string]interface{}, core.Person
func (l RollbarLogger) prepare(msg string, args []interface{}) (rbArgs, zapKVs []interface{}) {
	var personSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case core.Person:
			if !personSet { // only set one person
				rollbar.SetPerson(v.ID, v.Username, v.Email)
				zapKVs = append(zapKVs, "person", v.ID)
				personSet = true
			}
		case error:
			rbArgs = append(rbArgs, v)
			zapKVs = append(zapKVs, zap.Error(v))
		case map[string]interface{}:
			rbArgs = append(rbArgs, v)
			for k, val := range v {
				zapKVs = append(zapKVs, k, val)
			}
		default:
			rbArgs = append(rbArgs, v)
			zapKVs = append(zapKVs, "extra", v)
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return rbArgs, zapKVs
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rb, kvs := l.prepare(msg, args)
	rollbar.Debug(rb...)
	l.zl.Debugw(msg, kvs...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rb, kvs := l.prepare(msg, args)
	rollbar.Info(rb...)
	l.zl.Infow(msg, kvs...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rb, kvs := l.prepare(msg, args)
	rollbar.Warning(rb...)
	l.zl.Warnw(msg, kvs...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rb, kvs := l.prepare(msg, args)
	rollbar.Error(rb...)
	l.zl.Errorw(msg, kvs...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rb, kvs := l.prepare(msg, args)
	rollbar.Critical(rb...)
	rollbar.Wait()
	l.zl.Fatalw(msg, kvs...)
}
