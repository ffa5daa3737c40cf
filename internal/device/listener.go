// Package device reads newline-delimited notifications from the sensor's
// serial endpoint, classifies them, and forwards recognized events to the
// session queue. It owns the open/retry policy: failure to open at startup is
// fatal, everything after that is absorbed with a backoff.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/focus-sentry/backend/internal/classify"
	"github.com/focus-sentry/backend/internal/session"
)

// maxLineBytes bounds a single pending line. The sensor emits short tokens;
// anything this long is garbage from a wedged link and gets dropped.
const maxLineBytes = 4096

type Config struct {
	Path         string
	BaudRate     int
	ReadTimeout  time.Duration // bound on a single blocking read
	RetryBackoff time.Duration // pause after a transient read error
}

// Listener is the background line source. It never touches session state;
// its only output is events pushed onto the queue.
type Listener struct {
	cfg        Config
	classifier *classify.Classifier
	queue      *session.Queue

	// open is swapped in tests to feed scripted bytes instead of a port.
	open func() (io.ReadCloser, error)
	port io.ReadCloser
}

func NewListener(cfg Config, classifier *classify.Classifier, queue *session.Queue) *Listener {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	l := &Listener{
		cfg:        cfg,
		classifier: classifier,
		queue:      queue,
	}
	l.open = l.openSerial
	return l
}

// Open acquires the serial endpoint. Callers treat an error as fatal: the
// process cannot do anything useful without its input source.
func (l *Listener) Open() error {
	port, err := l.open()
	if err != nil {
		return fmt.Errorf("opening device %s: %w", l.cfg.Path, err)
	}
	l.port = port
	log.Printf("[serial] listening on %s", l.cfg.Path)
	return nil
}

func (l *Listener) openSerial() (io.ReadCloser, error) {
	port, err := serial.Open(l.cfg.Path, &serial.Mode{BaudRate: l.cfg.BaudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(l.cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Run loops reading lines until ctx is cancelled. Transient read errors are
// logged and retried after a backoff; they never terminate the loop.
func (l *Listener) Run(ctx context.Context) {
	defer l.port.Close()

	buf := make([]byte, 256)
	var pending []byte

	for {
		select {
		case <-ctx.Done():
			log.Println("[serial] listener stopped")
			return
		default:
		}

		n, err := l.port.Read(buf)
		if err != nil {
			log.Printf("[serial] read error: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(l.cfg.RetryBackoff):
			}
			continue
		}
		if n == 0 {
			// Read timeout expired with nothing on the wire.
			continue
		}

		pending = append(pending, buf[:n]...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := pending[:i]
			pending = pending[i+1:]
			l.handleLine(line)
		}
		if len(pending) > maxLineBytes {
			log.Printf("[serial] dropping %d bytes without newline", len(pending))
			pending = nil
		}
	}
}

func (l *Listener) handleLine(raw []byte) {
	// Decode permissively: invalid byte sequences are stripped, never fatal.
	line := strings.ToValidUTF8(string(bytes.TrimRight(raw, "\r")), "")
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	kind, ok := l.classifier.Classify(line)
	if !ok {
		log.Printf("[serial] ignored line: %q", line)
		return
	}

	log.Printf("[serial] event %s (line %q)", kind, line)
	l.queue.Push(session.Event{Kind: kind, At: time.Now()})
}
