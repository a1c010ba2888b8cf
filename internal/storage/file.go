package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists price records as one JSON object per line in a single
// append-ordered file. Appends never rewrite existing content; a crash during
// an append leaves at worst a torn trailing line, which readers skip, so the
// store is always observed in its pre-write or post-write state.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore opens (or prepares) the record file at path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("storage: file path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Append durably writes record after the current last record.
func (s *FileStore) Append(ctx context.Context, record PriceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	line := payload
	if tail, err := lastByte(file); err != nil {
		return fmt.Errorf("inspect store file: %w", err)
	} else if tail != 0 && tail != '\n' {
		// A previous append was cut short; start a fresh line so the
		// torn tail stays isolated.
		line = append([]byte{'\n'}, line...)
	}
	line = append(line, '\n')

	if _, err := file.Write(line); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync store file: %w", err)
	}
	return nil
}

// Latest returns the most recently appended record, or ok=false on an empty
// store. It never fails just because the store is empty.
func (s *FileStore) Latest(ctx context.Context) (PriceRecord, bool, error) {
	records, err := s.All(ctx)
	if err != nil {
		return PriceRecord{}, false, err
	}
	if len(records) == 0 {
		return PriceRecord{}, false, nil
	}
	return records[len(records)-1], true, nil
}

// All returns every readable record in append order. Undecodable lines
// (torn writes) are skipped.
func (s *FileStore) All(ctx context.Context) ([]PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	var records []PriceRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record PriceRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	return records, nil
}

// Count reports the number of readable records.
func (s *FileStore) Count(ctx context.Context) (int64, error) {
	records, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func lastByte(file *os.File) (byte, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	if info.Size() == 0 {
		return 0, nil
	}
	buf := make([]byte, 1)
	if _, err := file.ReadAt(buf, info.Size()-1); err != nil {
		return 0, err
	}
	return buf[0], nil
}

var _ PriceStore = (*FileStore)(nil)
