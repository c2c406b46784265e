package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Record statuses.
const (
	StatusPass     = "pass"
	StatusFail     = "fail"     // the strategy returned an error
	StatusMismatch = "mismatch" // the output failed verification
)

// Record captures the result of one strategy in a session log.
type Record struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	M         int       `json:"m"`
	K         int       `json:"k"`
	N         int       `json:"n"`
	Repeat    int       `json:"repeat"`
	NsPerOp   int64     `json:"ns_per_op,omitempty"`
	GFLOPS    float64   `json:"gflops,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionLogger appends records to a JSON file, rewriting it after every
// record so a crash loses nothing already measured.
type SessionLogger struct {
	mu      sync.Mutex
	records []Record
	path    string
}

// NewSessionLogger creates dir if needed and starts a session file named
// after session and the current time.
func NewSessionLogger(dir, session string) (*SessionLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	timestamp := time.Now().Format("20060102_150405")
	sl := &SessionLogger{
		path: filepath.Join(dir, fmt.Sprintf("%s_%s.json", session, timestamp)),
	}
	return sl, sl.flush()
}

// Path returns the session file path.
func (sl *SessionLogger) Path() string {
	return sl.path
}

// Log appends a record and flushes the session to disk.
func (sl *SessionLogger) Log(rec Record) error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	sl.records = append(sl.records, rec)
	return sl.flush()
}

// Records returns a copy of the records logged so far.
func (sl *SessionLogger) Records() []Record {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return append([]Record(nil), sl.records...)
}

func (sl *SessionLogger) flush() error {
	records := sl.records
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal records")
	}
	return errors.Wrapf(os.WriteFile(sl.path, data, 0644), "writing %s", sl.path)
}

// ReadSession loads the records of a session file.
func ReadSession(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading session log")
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return records, nil
}
