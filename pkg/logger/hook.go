package logger

import (
	"fmt"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusContextHook хук, добавляющий в запись лога файл и строку вызова
type LogrusContextHook struct{}

// Levels уровни логирования, на которых срабатывает хук
func (LogrusContextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire ищет в стеке вызовов первый фрейм за пределами logrus и дописывает
// его координаты в поле source
func (LogrusContextHook) Fire(entry *logrus.Entry) error {
	pc := make([]uintptr, 16)
	n := runtime.Callers(4, pc)
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "github.com/sirupsen/logrus") {
			entry.Data["source"] = fmt.Sprintf("%s:%d", path.Base(frame.File), frame.Line)
			break
		}
		if !more {
			break
		}
	}
	return nil
}
