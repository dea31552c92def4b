// Package export flattens nested user/session records and writes them as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is the working-directory-relative output file
const DefaultPath = "output.csv"

// Header holds the column titles, in row order
var Header = []string{"ID", "First Name", "Last Name", "Session ID", "Login Time", "Logout Time"}

// WriteError reports a failure writing the export file
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write export %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Exporter writes flattened session rows to a configurable path
type Exporter struct {
	mu   sync.RWMutex
	path string
}

// New creates an exporter writing to path, or DefaultPath if empty
func New(path string) *Exporter {
	if path == "" {
		path = DefaultPath
	}
	return &Exporter{path: path}
}

// Path returns the current destination
func (e *Exporter) Path() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.path
}

// SetPath changes the destination for subsequent exports
func (e *Exporter) SetPath(path string) {
	if path == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.path = path
}

// Export flattens users and replaces the destination file with the result.
// It returns the number of data rows written. Any failure is a *WriteError;
// a partially written file is left as is.
func (e *Exporter) Export(users []UserRecord) (int, error) {
	path := e.Path()
	rows := Flatten(users)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, &WriteError{Path: path, Err: err}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return 0, &WriteError{Path: path, Err: err}
	}

	if err := f.Close(); err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	return len(rows), nil
}

// WriteCSV writes the header and one record per row
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			string(r.ID),
			r.FName,
			r.LName,
			string(r.SessionID),
			r.LoginTime,
			r.LogoutTime,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
