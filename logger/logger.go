package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/mensylisir/rolerun/common"
)

// Log is the global logger instance of RunLog.
var Log *RunLog

// RunLog wraps logrus.Logger for application-specific logging.
type RunLog struct {
	*logrus.Logger
}

// fieldsOrder is the display order for the standard fields on every entry.
var fieldsOrder = []string{
	common.SessionName, common.PlayName, common.RoleName, common.HostName, common.HandleName,
}

// InitGlobalLogger initializes the global Log variable.
// When outputPath is non-empty, entries are written to a daily-rotated file
// under that directory; otherwise they go to stdout.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	l, err := newLogger(outputPath, verbose, defaultLevel)
	if err != nil {
		return err
	}
	Log = &RunLog{Logger: l}
	return nil
}

// NewRunLog creates an independent RunLog instance with the same wiring as
// the global logger.
func NewRunLog(outputPath string, verbose bool, defaultLevel logrus.Level) (*RunLog, error) {
	l, err := newLogger(outputPath, verbose, defaultLevel)
	if err != nil {
		return nil, err
	}
	return &RunLog{Logger: l}, nil
}

func newLogger(outputPath string, verbose bool, defaultLevel logrus.Level) (*logrus.Logger, error) {
	l := logrus.New()

	level := defaultLevel
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(true)

	displayLevel := ShowAboveWarn
	if verbose {
		displayLevel = ShowAll
	}

	if outputPath == "" {
		l.SetFormatter(&Formatter{
			TimestampFormat:        "15:04:05",
			NoColors:               false,
			DisplayLevelName:       displayLevel,
			DisableCaller:          true,
			FieldsDisplayWithOrder: fieldsOrder,
		})
		l.SetOutput(os.Stdout)
		return l, nil
	}

	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
	}
	logFilePath := filepath.Join(outputPath, common.AppName+".log")

	writer, err := rotatelogs.New(
		logFilePath+".%Y%m%d", // Daily rotation
		rotatelogs.WithLinkName(logFilePath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
	}

	fileFormatter := &Formatter{
		TimestampFormat:        "2006-01-02 15:04:05.000 MST",
		NoColors:               true,
		DisplayLevelName:       displayLevel,
		FieldsDisplayWithOrder: fieldsOrder,
		CustomCallerFormatter: func(frame *runtime.Frame) string {
			return fmt.Sprintf(" [%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
		},
	}
	l.SetFormatter(fileFormatter)

	logWriters := lfshook.WriterMap{}
	for _, lvl := range logrus.AllLevels {
		if l.IsLevelEnabled(lvl) {
			logWriters[lvl] = writer
		}
	}
	l.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
	// File output goes through the hook; drop the default stream so entries
	// are not written twice.
	l.SetOutput(io.Discard)

	return l, nil
}

// NewDiscardEntry returns an entry backed by a logger that writes nowhere.
// Library components use it when the caller supplies no logger.
func NewDiscardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// SessionEntry derives an entry carrying the session field from the given
// entry, falling back to a discard entry when base is nil.
func SessionEntry(base *logrus.Entry, sessionName string) *logrus.Entry {
	if base == nil {
		base = NewDiscardEntry()
	}
	return base.WithField(common.SessionName, sessionName)
}
