package logging

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process-wide logrus logger. Level comes from
// LOG_LEVEL (default info), format from LOG_FORMAT ("json" or text).
func NewLogger() *logrus.Logger {
	log := logrus.New()

	levelName, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return log
}

type logrusPublisher struct {
	log *logrus.Logger
}

// NewLogrusPublisher adapts a logrus logger into a simulation event
// publisher. Events below the logger's level are filtered by logrus.
func NewLogrusPublisher(log *logrus.Logger) Publisher {
	if log == nil {
		log = NewLogger()
	}
	return &logrusPublisher{log: log}
}

func (p *logrusPublisher) Publish(_ context.Context, event Event) {
	if p == nil || p.log == nil {
		return
	}
	fields := logrus.Fields{
		"event":    string(event.Type),
		"tick":     event.Tick,
		"category": event.Category,
	}
	if event.RunID != "" {
		fields["runId"] = event.RunID
	}
	if event.Actor.ID != "" {
		fields["actor"] = event.Actor.ID
		fields["actorKind"] = string(event.Actor.Kind)
	}
	for k, v := range event.Extra {
		fields[k] = v
	}
	entry := p.log.WithFields(fields)
	switch event.Severity {
	case SeverityDebug:
		entry.Debug(string(event.Type))
	case SeverityWarn:
		entry.Warn(string(event.Type))
	case SeverityError:
		entry.Error(string(event.Type))
	default:
		entry.Info(string(event.Type))
	}
}
