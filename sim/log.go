package sim

import "github.com/sirupsen/logrus"

// LogSink receives policy-significant scheduler events: selections, run
// completion and the performance analysis. A nil sink discards everything.
type LogSink func(msg string, level logrus.Level)

// LogrusSink forwards sink events to logger.
func LogrusSink(logger *logrus.Logger) LogSink {
	return func(msg string, level logrus.Level) {
		logger.Log(level, msg)
	}
}

func (s LogSink) log(level logrus.Level, msg string) {
	if s != nil {
		s(msg, level)
	}
}
