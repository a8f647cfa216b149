// Package export writes metadata rows as TSV and decoded leads as WAV.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/himanishpuri/museecg/pkg/museecg/muse"
	"github.com/himanishpuri/museecg/pkg/utils"
)

// TSVWriter streams metadata records to a tab-separated file with CRLF
// line endings and a fixed header.
type TSVWriter struct {
	file   *os.File
	writer *csv.Writer
	rows   int
}

// Open creates or truncates path, or appends to it when appendMode is set.
// The header is written unless rows are being appended to a file that
// already exists, even an empty one.
func Open(path string, appendMode bool) (*TSVWriter, error) {
	if err := utils.MakeDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	writeHeader := true
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
		writeHeader = !utils.FileExists(path)
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	w := newTSVWriter(file)
	if writeHeader {
		if err := w.writer.Write(muse.FieldNames); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	return w, nil
}

func newTSVWriter(f *os.File) *TSVWriter {
	cw := csv.NewWriter(f)
	cw.Comma = '\t'
	cw.UseCRLF = true
	return &TSVWriter{file: f, writer: cw}
}

// Write appends one record. Rows are buffered until Flush or Close.
func (w *TSVWriter) Write(r *muse.Record) error {
	if err := w.writer.Write(Row(r)); err != nil {
		return fmt.Errorf("failed to write row for %s: %w", r.FilePath, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of records written so far.
func (w *TSVWriter) Rows() int {
	return w.rows
}

// Flush writes buffered rows to the file.
func (w *TSVWriter) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the file.
func (w *TSVWriter) Close() error {
	flushErr := w.Flush()
	if err := w.file.Close(); err != nil {
		return err
	}
	return flushErr
}

// Row formats r in FieldNames order: strings cleaned, ints in decimal and
// nil as an empty field.
func Row(r *muse.Record) []string {
	fields := r.Fields()
	row := make([]string, len(fields))
	for i, f := range fields {
		switch v := f.Value.(type) {
		case nil:
			row[i] = ""
		case string:
			row[i] = CleanField(v)
		case int:
			row[i] = strconv.Itoa(v)
		default:
			row[i] = CleanField(fmt.Sprint(v))
		}
	}
	return row
}

var newlines = strings.NewReplacer("\r\n", `\n`, "\r", `\n`, "\n", `\n`)

// CleanField keeps a value on one line: CRLF, CR and LF all become the two
// characters \n.
func CleanField(s string) string {
	return newlines.Replace(s)
}
