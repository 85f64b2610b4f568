package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"yieldScope/internal/model"
)

// Entry is one journal line.
type Entry struct {
	Kind       string          `json:"kind"`
	RecordedAt time.Time       `json:"recorded_at"`
	Payload    json.RawMessage `json:"payload"`
}

// JsonlJournal appends journal entries to a JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path, now: time.Now}
}

func (j *JsonlJournal) RecordStrategy(ctx context.Context, s *model.SmartStrategy) error {
	if s == nil {
		return nil
	}
	return j.append(ctx, KindStrategy, s)
}

func (j *JsonlJournal) RecordExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	if rec == nil {
		return nil
	}
	return j.append(ctx, KindExecution, rec)
}

func (j *JsonlJournal) append(ctx context.Context, kind string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	line, err := json.Marshal(Entry{Kind: kind, RecordedAt: j.now().UTC(), Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// LoadExecution returns the last execution entry journaled under id.
func (j *JsonlJournal) LoadExecution(ctx context.Context, id string) (*model.ExecutionRecord, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("execution id required")
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	j.mu.Lock()
	entries, err := ReadEntries(j.path)
	j.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var found *model.ExecutionRecord
	for _, e := range entries {
		if e.Kind != KindExecution {
			continue
		}
		var rec model.ExecutionRecord
		if err := json.Unmarshal(e.Payload, &rec); err != nil {
			return nil, false, fmt.Errorf("decode execution entry: %w", err)
		}
		if rec.ID == id {
			found = &rec
		}
	}
	return found, found != nil, nil
}

// ReadEntries loads every entry of a JSONL journal in file order.
func ReadEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
