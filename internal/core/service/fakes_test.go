package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

var errDiskFull = errors.New("disk full")

// fake SnapshotRepository
type memSnapshotRepo struct {
	mu       sync.Mutex
	records  []domain.ProductRecord
	saves    int
	failSave bool
	loadErr  error
}

func (m *memSnapshotRepo) Load(ctx context.Context) ([]domain.ProductRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.ProductRecord(nil), m.records...), nil
}

func (m *memSnapshotRepo) Save(ctx context.Context, records []domain.ProductRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errDiskFull
	}
	m.saves++
	m.records = append([]domain.ProductRecord(nil), records...)
	return nil
}

// fake AuditLogger + AuditReader
type memAuditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	fail    bool
}

func (m *memAuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errDiskFull
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAuditLog) ReadAll(ctx context.Context) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry{}, m.entries...), nil
}

type staticAuth map[domain.Role][2]string

func (a staticAuth) Authenticate(ctx context.Context, role domain.Role, username, password string) error {
	creds, ok := a[role]
	if !ok || creds[0] != username || creds[1] != password {
		return domain.ErrAuthentication
	}
	return nil
}

// fake line-based audit sink, stored as the text a log file would hold
type lineAuditLog struct {
	mu   sync.Mutex
	text strings.Builder
}

func (l *lineAuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.WriteString(entry.Line())
	l.text.WriteString("\n")
	return nil
}

func (l *lineAuditLog) ReadAll(ctx context.Context) ([]domain.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := []domain.AuditEntry{}
	for _, line := range strings.Split(strings.TrimSuffix(l.text.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		e, err := domain.ParseAuditLine(line, time.UTC)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
