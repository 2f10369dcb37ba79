// Package logs builds the process logger.
package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options selects the log level and the terminal writer.
type Options struct {
	Writer  io.Writer
	Verbose bool
	Quiet   bool

	// Journal forces the journal handler on or off. Nil means on only when
	// running as a systemd service.
	Journal *bool
}

// Level maps the verbosity flags to a slog level. Quiet wins over verbose.
func (o Options) Level() slog.Level {
	switch {
	case o.Quiet:
		return slog.LevelWarn
	case o.Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing text to the terminal, or to the systemd
// journal when the process is a service unit. Both are fanned out when a
// terminal writer is given and the journal is forced on.
func New(opts Options) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(opts.Level())

	service := isSystemdService()
	journal := service
	if opts.Journal != nil {
		journal = *opts.Journal
	}

	var handlers []slog.Handler

	var terminal slog.Handler
	if !service || opts.Journal != nil {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		terminal = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
		handlers = append(handlers, terminal)
	}

	if journal {
		h, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminal != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = terminal.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, h)
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// toJournalKey upper-cases a key and replaces anything the journal does not
// accept in field names.
func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

var cgroupFile = "/proc/self/cgroup"

func isSystemdService() bool {
	p, err := cgroupPath(cgroupFile)
	if err != nil {
		return false
	}
	return strings.HasSuffix(path.Dir(p), ".service") || strings.HasSuffix(p, ".service")
}

func cgroupPath(file string) (string, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	parts := strings.SplitN(strings.TrimSpace(string(content)), ":", 3)
	if len(parts) == 3 {
		return parts[2], nil
	}
	return "", nil
}
