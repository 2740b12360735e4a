// Package convlog writes chat transcripts as newline-delimited JSON.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Event is one transcript line.
type Event struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Config controls where transcripts go.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	MaxOpenFiles  int
}

// Logger accepts transcript events. Log never blocks.
type Logger interface {
	Log(Event)
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Event) {}

// Close implements Logger.
func (Noop) Close() error { return nil }

var (
	ansiPattern  = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
	unsafeName   = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// Clean strips terminal escapes and collapses runs of blanks.
func Clean(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

type fileLogger struct {
	cfg    Config
	log    *slog.Logger
	queue  chan Event
	done   chan struct{}
	files  *lru.Cache[string, *os.File] // evicted files are closed
	global *os.File

	closeOnce sync.Once
	mu        sync.RWMutex // guards closed against Log
	closed    bool
}

// New returns a Logger for cfg. A disabled config yields Noop.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	l, err := newFileLogger(cfg, logger)
	if err != nil {
		return nil, err
	}
	go l.run()
	return l, nil
}

func newFileLogger(cfg Config, logger *slog.Logger) (*fileLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.MaxOpenFiles <= 0 {
		cfg.MaxOpenFiles = 64
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileLogger{
		cfg:   cfg,
		log:   logger,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	files, err := lru.NewWithEvict(cfg.MaxOpenFiles, l.closeFile)
	if err != nil {
		return nil, fmt.Errorf("create conversation log file cache: %w", err)
	}
	l.files = files
	if cfg.GlobalEnabled {
		f, err := openAppend(cfg.GlobalPath)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Log queues e. A full queue drops the event with a warning.
func (l *fileLogger) Log(e Event) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Content == "" {
		e.Content = Clean(e.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- e:
	default:
		l.log.Warn("Conversation log queue full, dropping event", "user_id", e.UserID, "event_type", e.EventType)
	}
}

func (l *fileLogger) run() {
	defer close(l.done)
	for e := range l.queue {
		l.write(e)
	}
	l.files.Purge()
	if l.global != nil {
		if err := l.global.Close(); err != nil {
			l.log.Warn("failed to close global conversation log", "error", err)
		}
	}
}

func (l *fileLogger) write(e Event) {
	line, err := json.Marshal(e)
	if err != nil {
		l.log.Warn("failed to marshal conversation event", "error", err)
		return
	}
	line = append(line, '\n')

	f, err := l.userFile(e.UserID)
	if err != nil {
		l.log.Warn("failed to open conversation log", "user_id", e.UserID, "error", err)
	} else if _, err := f.Write(line); err != nil {
		l.log.Warn("failed to write conversation log", "user_id", e.UserID, "error", err)
	}
	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			l.log.Warn("failed to write global conversation log", "error", err)
		}
	}
}

func (l *fileLogger) userFile(userID string) (*os.File, error) {
	name := unsafeName.ReplaceAllString(userID, "_")
	if name == "" {
		name = "anonymous"
	}
	if f, ok := l.files.Get(name); ok {
		return f, nil
	}
	f, err := openAppend(filepath.Join(l.cfg.Dir, name+".ndjson"))
	if err != nil {
		return nil, err
	}
	l.files.Add(name, f)
	return f, nil
}

func (l *fileLogger) closeFile(_ string, f *os.File) {
	if err := f.Close(); err != nil {
		l.log.Warn("failed to close conversation log", "file", f.Name(), "error", err)
	}
}

// Close drains queued events and closes all files.
func (l *fileLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})
	<-l.done
	return nil
}
