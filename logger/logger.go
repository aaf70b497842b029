/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger provides a small logrus-backed structured logger with a
// chained Entry builder, in the style used across the nabbar toolchain.
package logger

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	mu  sync.RWMutex
	lvl Level
	fld Fields
	log *logrus.Logger
}

func New() *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})

	return &Logger{
		lvl: InfoLevel,
		fld: NewFields(),
		log: l,
	}
}

func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lvl = lvl
	l.log.SetLevel(lvl.Logrus())
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.lvl
}

func (l *Logger) SetFields(f Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.fld = f
}

func (l *Logger) GetFields() Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.fld
}

func (l *Logger) logrus() *logrus.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.log
}

// Entry starts a new chained log event at the given level.
func (l *Logger) Entry(level Level, message string) *Entry {
	return &Entry{
		log:     l.logrus,
		Level:   level,
		Message: message,
		Fields:  NewFields().Merge(l.GetFields()),
	}
}

func (l *Logger) Debug(msg string, data interface{}, args ...interface{}) {
	l.Entry(DebugLevel, msg).DataSet(data).Log()
}

func (l *Logger) Info(msg string, data interface{}, args ...interface{}) {
	l.Entry(InfoLevel, msg).DataSet(data).Log()
}

func (l *Logger) Warning(msg string, data interface{}, args ...interface{}) {
	l.Entry(WarnLevel, msg).DataSet(data).Log()
}

func (l *Logger) Error(msg string, data interface{}, args ...interface{}) {
	l.Entry(ErrorLevel, msg).DataSet(data).Log()
}

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(New())
}

// GetDefault returns the process-wide default Logger.
func GetDefault() *Logger {
	return defaultLogger.Load().(*Logger)
}

// SetDefault replaces the process-wide default Logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}
