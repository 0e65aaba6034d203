package logging

import (
	"fmt"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// transportLogger routes whatsmeow's printf-style logging into zap instead
// of letting the library write to the console on its own.
type transportLogger struct {
	z     *zap.Logger
	debug bool
}

// TransportLogger adapts z to the whatsmeow logger interface. Transport
// debug output is dropped unless debug is set; it is very chatty.
func TransportLogger(z *zap.Logger, debug bool) waLog.Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &transportLogger{z: z.Named("transport"), debug: debug}
}

func (l *transportLogger) Errorf(msg string, args ...interface{}) {
	l.z.Error(fmt.Sprintf(msg, args...))
}

func (l *transportLogger) Warnf(msg string, args ...interface{}) {
	l.z.Warn(fmt.Sprintf(msg, args...))
}

func (l *transportLogger) Infof(msg string, args ...interface{}) {
	l.z.Info(fmt.Sprintf(msg, args...))
}

func (l *transportLogger) Debugf(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.z.Debug(fmt.Sprintf(msg, args...))
}

func (l *transportLogger) Sub(module string) waLog.Logger {
	return &transportLogger{z: l.z.Named(module), debug: l.debug}
}
