package queue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Mailer delivers a welcome message.
type Mailer interface {
	SendWelcome(ctx context.Context, job WelcomeEmailJob) error
}

// FileMailer appends rendered messages to <Dir>/mail.log.  It stands in for
// an SMTP relay in environments without one.
type FileMailer struct {
	Dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileMailer returns a mailer writing under dir.
func NewFileMailer(dir string) *FileMailer {
	if dir == "" {
		dir = "logs"
	}
	return &FileMailer{Dir: dir, now: time.Now}
}

// Path is the file messages are appended to.
func (m *FileMailer) Path() string { return filepath.Join(m.Dir, "mail.log") }

func (m *FileMailer) SendWelcome(_ context.Context, job WelcomeEmailJob) error {
	if strings.TrimSpace(job.Email) == "" {
		return fmt.Errorf("welcome job without recipient")
	}
	msg := renderWelcome(job, m.now().UTC())

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", m.Dir, err)
	}
	f, err := os.OpenFile(m.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(msg); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}

func renderWelcome(job WelcomeEmailJob, sentAt time.Time) string {
	name := job.Name
	if name == "" {
		name = job.Email
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] To: %s\n", sentAt.Format(time.RFC3339), job.Email)
	b.WriteString("Subject: Welcome to the platform\n\n")
	fmt.Fprintf(&b, "Hello %s,\n\nYour account is ready. Sign in at %s\n", name, job.LoginURL)
	b.WriteString("----\n")
	return b.String()
}
