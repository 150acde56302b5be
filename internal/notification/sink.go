package notification

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileSink appends one line per message to a log file. It stands in for a
// mail provider and is what the worker uses out of the box.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	if path == "" {
		path = filepath.Join("logs", "notifications.log")
	}
	return &FileSink{path: path}
}

func (s *FileSink) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open notification log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] to=%s | subject=%q | body=%q\n",
		time.Now().UTC().Format(time.RFC3339), m.To, m.Subject, strings.TrimSpace(m.Body))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write notification log: %w", err)
	}
	return nil
}
