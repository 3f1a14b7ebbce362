// Copyright © 2017 Microsoft <wastore@microsoft.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package common

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"sync/atomic"

	"github.com/JeffreyRichter/enum/enum"
)

type LogLevel uint8

const (
	LogNone LogLevel = iota
	LogError
	LogWarning
	LogInfo
	LogDebug
)

var ELogLevel = LogLevel(LogNone)

func (LogLevel) None() LogLevel    { return LogLevel(LogNone) }
func (LogLevel) Error() LogLevel   { return LogLevel(LogError) }
func (LogLevel) Warning() LogLevel { return LogLevel(LogWarning) }
func (LogLevel) Info() LogLevel    { return LogLevel(LogInfo) }
func (LogLevel) Debug() LogLevel   { return LogLevel(LogDebug) }

func (ll LogLevel) String() string {
	return enum.StringInt(ll, reflect.TypeOf(ll))
}

// Logger is a small leveled logger, wrapping the standard library's log
// package rather than pulling in a third-party structured logger
// (see DESIGN.md).
type Logger struct {
	level  int32 // atomic, holds a LogLevel
	target *log.Logger
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{level: int32(level), target: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)}
}

func (l *Logger) SetLevel(level LogLevel) {
	atomic.StoreInt32(&l.level, int32(level))
}

func (l *Logger) enabled(level LogLevel) bool {
	return LogLevel(atomic.LoadInt32(&l.level)) >= level
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if l == nil || !l.enabled(level) {
		return
	}
	l.target.Printf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{})   { l.log(ELogLevel.Error(), format, args...) }
func (l *Logger) Warning(format string, args ...interface{}) { l.log(ELogLevel.Warning(), format, args...) }
func (l *Logger) Info(format string, args ...interface{})    { l.log(ELogLevel.Info(), format, args...) }
func (l *Logger) Debug(format string, args ...interface{})   { l.log(ELogLevel.Debug(), format, args...) }
