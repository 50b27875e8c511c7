package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

const snapshotVersion = 1

type fileSnapshot struct {
	Version  int           `json:"version"`
	Products []fileProduct `json:"products"`
}

type fileProduct struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// legacy layout: {"<id>": {"name": ..., "quantity": ..., "price": ...}}
type legacyProduct struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// JSONFileAdapter stores the whole inventory as one JSON document.
type JSONFileAdapter struct {
	path string
}

func NewJSONFileAdapter(path string) *JSONFileAdapter {
	return &JSONFileAdapter{path: path}
}

func (a *JSONFileAdapter) Load(ctx context.Context) ([]domain.ProductRecord, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ProductRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []domain.ProductRecord{}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageCorrupt, a.path, err)
	}

	_, hasVersion := probe["version"]
	_, hasProducts := probe["products"]
	if !hasVersion || !hasProducts {
		records, err := decodeLegacy(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageCorrupt, a.path, err)
		}
		return records, nil
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStorageCorrupt, a.path, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", domain.ErrStorageCorrupt, a.path, snap.Version)
	}

	records := make([]domain.ProductRecord, 0, len(snap.Products))
	for _, p := range snap.Products {
		records = append(records, domain.ProductRecord{
			ID:       p.ID,
			Name:     p.Name,
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}
	return records, nil
}

// decodeLegacy walks the object token by token so the file's key order
// becomes the list order.
func decodeLegacy(data []byte) ([]domain.ProductRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, fmt.Errorf("expected object")
	}

	records := make([]domain.ProductRecord, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected product id, got %v", tok)
		}

		var p legacyProduct
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("product %q: %w", id, err)
		}
		records = append(records, domain.ProductRecord{
			ID:       id,
			Name:     p.Name,
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return records, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target, so a crash leaves either the old or the new snapshot.
func (a *JSONFileAdapter) Save(ctx context.Context, records []domain.ProductRecord) error {
	snap := fileSnapshot{
		Version:  snapshotVersion,
		Products: make([]fileProduct, 0, len(records)),
	}
	for _, r := range records {
		snap.Products = append(snap.Products, fileProduct{
			ID:       r.ID,
			Name:     r.Name,
			Quantity: r.Quantity,
			Price:    r.Price,
		})
	}

	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(a.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(a.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, a.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// AuditFileAdapter appends one text line per entry.
type AuditFileAdapter struct {
	path string
	loc  *time.Location
}

func NewAuditFileAdapter(path string) *AuditFileAdapter {
	return &AuditFileAdapter{path: path, loc: time.Local}
}

func (a *AuditFileAdapter) Record(ctx context.Context, entry domain.AuditEntry) error {
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrLogWrite, a.path, err)
	}

	if _, err := f.WriteString(entry.Line() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("%w: append: %w", domain.ErrLogWrite, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync: %w", domain.ErrLogWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", domain.ErrLogWrite, err)
	}
	return nil
}

func (a *AuditFileAdapter) ReadAll(ctx context.Context) ([]domain.AuditEntry, error) {
	f, err := os.Open(a.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.AuditEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.path, err)
	}
	defer f.Close()

	entries := make([]domain.AuditEntry, 0)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := domain.ParseAuditLine(line, a.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrStorageCorrupt, a.path, lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", a.path, err)
	}
	return entries, nil
}
