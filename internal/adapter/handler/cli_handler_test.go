package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/adapter/auth"
	"github.com/rl1809/stock-keeper/internal/adapter/storage"
	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
	"github.com/rl1809/stock-keeper/internal/port"
)

type brokenAudit struct{}

func (brokenAudit) Record(ctx context.Context, entry domain.AuditEntry) error {
	return errors.New("read-only file system")
}

type fixture struct {
	store   *service.RecordStore
	handler *CLIHandler
}

func newFixture(t *testing.T, audit port.AuditLogger, opts ...service.GateOption) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	store := service.NewRecordStore(storage.NewJSONFileAdapter(filepath.Join(dir, "inventory.json")), logger)
	require.NoError(t, store.Load(context.Background()))

	if audit == nil {
		fileAudit := storage.NewAuditFileAdapter(filepath.Join(dir, "staff_log.txt"))
		audit = fileAudit
		opts = append(opts, service.WithAuditReader(fileAudit))
	}

	gate := service.NewGate(store, audit, logger, opts...)
	creds := auth.NewStaticAdapter(map[domain.Role]auth.Credentials{
		domain.RoleAdmin: {Username: "admin", Password: "1234"},
		domain.RoleStaff: {Username: "staff", Password: "1111"},
	})
	return &fixture{store: store, handler: NewCLIHandler(gate, creds, 10, logger)}
}

func (f *fixture) run(t *testing.T, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, f.handler.Run(context.Background(), in, &out))
	return out.String()
}

func (f *fixture) seed(t *testing.T, id string, qty int, price string) {
	t.Helper()
	require.NoError(t, f.store.Add(context.Background(), domain.ProductRecord{
		ID: id, Name: "Item " + id, Quantity: qty, Price: decimal.RequireFromString(price),
	}))
}

func TestCLIHandler_AuthenticationFailed(t *testing.T) {
	tests := map[string][]string{
		"wrong password": {"1", "admin", "nope"},
		"wrong role":     {"2", "admin", "1234"},
		"unknown role":   {"3", "admin", "1234"},
	}

	for name, lines := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			out := f.run(t, lines...)
			require.Contains(t, out, "Authentication Failed!")
			require.NotContains(t, out, "Add Product")
		})
	}
}

func TestCLIHandler_AdminAddViewDelete(t *testing.T) {
	f := newFixture(t, nil)

	out := f.run(t,
		"1", "admin", "1234",
		"1", "P101", "Laptop", "5", "1200.50",
		"2",
		"4", "P101",
		"2",
		"6",
	)

	require.Contains(t, out, "Product Added Successfully!")
	require.Contains(t, out, "Product ID: P101")
	require.Contains(t, out, "Value: 6002.5")
	require.Contains(t, out, "Low Stock Alert!")
	require.Contains(t, out, "Total Inventory Value: 6002.5")
	require.Contains(t, out, "Product Deleted Successfully!")
	require.Contains(t, out, "Inventory is empty!")

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestCLIHandler_AddRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "P1", 3, "2")

	out := f.run(t,
		"1", "admin", "1234",
		"1", "   ",
		"1", "P1",
		"1", "P2", "Mouse", "many", "10",
		"1", "P3", "Cable", "-1", "10",
		"6",
	)

	require.Contains(t, out, "Product ID cannot be empty!")
	require.Contains(t, out, "Product ID already exists!")
	require.Contains(t, out, "Quantity must be an integer and price must be a number!")
	require.Contains(t, out, "Invalid input: invalid field: quantity cannot be negative")

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCLIHandler_StaffUpdateShowsInAdminLog(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t, "P101", 10, "1200")

	out := f.run(t,
		"2", "staff", "1111",
		"1",
		"2", "P101", "50",
		"2", "P999",
		"2", "P101", "lots",
		"4",
		"3",
	)
	require.Contains(t, out, "P101 | Item P101 | Qty: 10 | Price: 1200")
	require.NotContains(t, out, "Total Inventory Value")
	require.Contains(t, out, "Stock Updated!")
	require.Contains(t, out, "Product ID not found!")
	require.Contains(t, out, "Quantity must be a valid number!")
	require.Contains(t, out, "Invalid choice!")
	require.NotContains(t, out, "Delete Product")

	got, err := f.store.Get(context.Background(), "P101")
	require.NoError(t, err)
	require.Equal(t, 50, got.Quantity)

	out = f.run(t, "1", "admin", "1234", "5", "6")
	require.Contains(t, out, "--- Staff Activity Log ---")
	require.Contains(t, out, "- Staff updated stock of Product ID P101 to 50")
}

func TestCLIHandler_EmptyLog(t *testing.T) {
	f := newFixture(t, nil)
	out := f.run(t, "1", "admin", "1234", "5", "6")
	require.Contains(t, out, "No staff activity found.")
}

func TestCLIHandler_AuditFailure(t *testing.T) {
	t.Run("warn keeps the update", func(t *testing.T) {
		f := newFixture(t, brokenAudit{})
		f.seed(t, "P1", 1, "1")

		out := f.run(t, "2", "staff", "1111", "2", "P1", "7", "3")
		require.Contains(t, out, "Stock Updated!")
		require.Contains(t, out, "Warning: the activity log could not be written.")

		got, err := f.store.Get(context.Background(), "P1")
		require.NoError(t, err)
		require.Equal(t, 7, got.Quantity)
	})

	t.Run("revert cancels the update", func(t *testing.T) {
		f := newFixture(t, brokenAudit{}, service.WithAuditFailurePolicy(service.AuditFailureRevert))
		f.seed(t, "P1", 1, "1")

		out := f.run(t, "2", "staff", "1111", "2", "P1", "7", "3")
		require.Contains(t, out, "Stock update cancelled: the activity log could not be written.")
		require.NotContains(t, out, "Stock Updated!")

		got, err := f.store.Get(context.Background(), "P1")
		require.NoError(t, err)
		require.Equal(t, 1, got.Quantity)
	})
}

func TestCLIHandler_EndOfInputEndsSession(t *testing.T) {
	f := newFixture(t, nil)
	var out bytes.Buffer

	require.NoError(t, f.handler.Run(context.Background(), strings.NewReader("1\nadmin\n1234\n2"), &out))
	require.Contains(t, out.String(), "Inventory is empty!")

	out.Reset()
	require.NoError(t, f.handler.Run(context.Background(), strings.NewReader(""), &out))
	require.Contains(t, out.String(), "Who are you?")
}

func TestCLIHandler_CancelledContextEndsRun(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := f.handler.Run(ctx, strings.NewReader("1\nadmin\n1234\n1\nP1\nPen\n1\n1\n3\n"), &out)
	require.ErrorIs(t, err, context.Canceled)
	require.NotContains(t, out.String(), "Product Added Successfully!")

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestCLIHandler_CancelWhileWaitingForInput(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the pipe never delivers a line after login, so Run blocks at the menu
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	go func() {
		pw.Write([]byte("1\nadmin\n1234\n"))
	}()

	done := make(chan error, 1)
	go func() {
		done <- f.handler.Run(ctx, pr, io.Discard)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
