package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pairCore/internal/model"
)

// JSONLWriter writes one JSON document per line.
type JSONLWriter struct {
	file   *os.File
	writer *bufio.Writer
}

// OpenJSONL opens path for writing, creating parent directories. Unless
// appendMode is set the file is truncated.
func OpenJSONL(path string, appendMode bool) (*JSONLWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return &JSONLWriter{file: file, writer: bufio.NewWriter(file)}, nil
}

func (w *JSONLWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (w *JSONLWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// JsonlStorage appends log records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Truncate empties the file so a new run does not append to an old one.
func (s *JsonlStorage) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := OpenJSONL(s.path, false)
	if err != nil {
		return err
	}
	return w.Close()
}

func (s *JsonlStorage) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := OpenJSONL(s.path, true)
	if err != nil {
		return err
	}
	for _, record := range logs {
		if err := w.Write(record); err != nil {
			w.Close()
			return fmt.Errorf("log %s/%d: %w", record.TxHash, record.LogIndex, err)
		}
	}
	return w.Close()
}
