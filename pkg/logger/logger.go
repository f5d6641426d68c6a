package logger

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	RequestIdKey contextKey = "request_id_ctx"
	RequestId    string     = "request_id"
)

// WithRequestId Create a copy of context with requestid added
func WithRequestId(ctx context.Context, requestId string) context.Context {
	return context.WithValue(ctx, RequestIdKey, Logger(ctx).WithFields(logrus.Fields{RequestId: requestId}))
}

// Logger Return a reference of logrus.Entry with request_id set field
func Logger(ctx context.Context) *logrus.Entry {
	if ctxLogger, ok := ctx.Value(RequestIdKey).(*logrus.Entry); ok {
		return ctxLogger
	}

	return logrus.NewEntry(logrus.StandardLogger())
}

// AddValueToContextLogger adds new key-value in the existing logger present in context
func AddValueToContextLogger(ctx context.Context, key string, value interface{}) context.Context {
	log := Logger(ctx)
	return context.WithValue(ctx, RequestIdKey, log.WithField(key, value))
}

// Init initializes logrus
func Init() {
	updateLog(logrus.StandardLogger(), os.Stdout)
}

// InitWithOutput initializes logrus writing to out, used by tests and the CLI
func InitWithOutput(out io.Writer) {
	updateLog(logrus.StandardLogger(), out)
}

func updateLog(log *logrus.Logger, out io.Writer) {
	log.Formatter = &logrus.JSONFormatter{}
	log.Out = out
	log.SetLevel(getLevel())
}

func getLevel() logrus.Level {
	debugMode, _ := strconv.ParseBool(os.Getenv("DEBUG_MODE"))
	if debugMode {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}
