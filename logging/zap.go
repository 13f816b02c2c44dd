package logging

import "go.uber.org/zap"

/*
ZapSink adapts a *zap.Logger to the Sink interface. This is the default
production sink: a caller who doesn't want to wire their own GUI or
file-rotation sink hierarchy can still get structured, leveled output.
*/
type ZapSink struct {
	log *zap.Logger
}

/*
NewZapSink wraps an existing zap logger. Passing nil uses zap.NewNop().
*/
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

/*
Log implements Sink.
*/
func (z *ZapSink) Log(level Level, event string, fields Fields) {
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}

	switch level {
	case Debug:
		z.log.Debug(event, zfields...)
	case Info:
		z.log.Info(event, zfields...)
	case Warning:
		z.log.Warn(event, zfields...)
	case Error:
		z.log.Error(event, zfields...)
	default:
		z.log.Info(event, zfields...)
	}
}
