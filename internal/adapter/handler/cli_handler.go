package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stock-keeper/internal/core/domain"
	"github.com/rl1809/stock-keeper/internal/core/service"
	"github.com/rl1809/stock-keeper/internal/port"
)

// CLIHandler runs one interactive operator session against the gate.
type CLIHandler struct {
	gate      *service.Gate
	auth      port.Authenticator
	threshold int
	logger    *zap.Logger
}

func NewCLIHandler(gate *service.Gate, auth port.Authenticator, lowStockThreshold int, logger *zap.Logger) *CLIHandler {
	return &CLIHandler{
		gate:      gate,
		auth:      auth,
		threshold: lowStockThreshold,
		logger:    logger,
	}
}

type menuItem struct {
	label  string
	action func(context.Context, *console, domain.Role)
}

// console is the per-run input/output pair. Lines are read on a separate
// goroutine so a prompt can be abandoned when ctx is cancelled.
type console struct {
	ctx     context.Context
	lines   chan string
	readErr error // set before lines is closed
	out     io.Writer
}

func newConsole(ctx context.Context, in io.Reader, out io.Writer) *console {
	c := &console{ctx: ctx, lines: make(chan string), out: out}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case c.lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		c.readErr = sc.Err()
	}()
	return c
}

func (c *console) println(a ...any)               { fmt.Fprintln(c.out, a...) }
func (c *console) printf(format string, a ...any) { fmt.Fprintf(c.out, format, a...) }

// prompt returns false once input is exhausted or ctx is cancelled.
func (c *console) prompt(label string) (string, bool) {
	if c.ctx.Err() != nil {
		return "", false
	}
	fmt.Fprint(c.out, label)
	select {
	case line, ok := <-c.lines:
		return line, ok
	case <-c.ctx.Done():
		return "", false
	}
}

// err explains why prompt returned false.
func (c *console) err() error {
	if err := c.ctx.Err(); err != nil {
		fmt.Fprintln(c.out)
		return err
	}
	return c.readErr
}

// Run reads commands from in until the operator exits, input ends or ctx is
// cancelled. I/O failures on in and ctx.Err() are returned; operation errors
// are reported to out.
func (h *CLIHandler) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	c := newConsole(ctx, in, out)
	session := service.NewSession(h.auth, h.logger)
	defer session.Terminate()

	c.println("Who are you?")
	c.println("1. Admin")
	c.println("2. Staff")
	choice, ok := c.prompt("Enter choice: ")
	if !ok {
		return c.err()
	}
	username, ok := c.prompt("Enter username: ")
	if !ok {
		return c.err()
	}
	password, ok := c.prompt("Enter password: ")
	if !ok {
		return c.err()
	}

	var role domain.Role
	switch strings.TrimSpace(choice) {
	case "1":
		role = domain.RoleAdmin
	case "2":
		role = domain.RoleStaff
	}

	if err := session.Login(ctx, role, username, password); err != nil {
		c.println("Authentication Failed!")
		return nil
	}

	role, err := session.Role()
	if err != nil {
		return err
	}

	menu := h.menu(role)
	for {
		if ctx.Err() != nil {
			return c.err()
		}
		c.println()
		for i, item := range menu {
			c.printf("%d. %s\n", i+1, item.label)
		}
		c.printf("%d. Exit\n", len(menu)+1)

		choice, ok := c.prompt("Enter choice: ")
		if !ok {
			return c.err()
		}
		n, err := strconv.Atoi(strings.TrimSpace(choice))
		switch {
		case err != nil || n < 1 || n > len(menu)+1:
			c.println("Invalid choice!")
		case n == len(menu)+1:
			return nil
		default:
			menu[n-1].action(ctx, c, role)
		}
	}
}

func (h *CLIHandler) menu(role domain.Role) []menuItem {
	if role == domain.RoleAdmin {
		return []menuItem{
			{"Add Product", h.addProduct},
			{"View Products", h.viewProducts},
			{"Update Stock", h.updateStock},
			{"Delete Product", h.deleteProduct},
			{"View Staff Logs", h.viewLog},
		}
	}
	return []menuItem{
		{"View Products", h.viewProducts},
		{"Update Stock", h.updateStock},
	}
}

func (h *CLIHandler) addProduct(ctx context.Context, c *console, role domain.Role) {
	id, ok := c.prompt("Enter Product ID: ")
	if !ok {
		return
	}
	id = strings.TrimSpace(id)
	if id == "" {
		c.println("Product ID cannot be empty!")
		return
	}
	if _, err := h.gate.Get(ctx, role, id); err == nil {
		c.println("Product ID already exists!")
		return
	}

	name, ok := c.prompt("Enter Product Name: ")
	if !ok {
		return
	}
	rawQty, ok := c.prompt("Enter Quantity: ")
	if !ok {
		return
	}
	rawPrice, ok := c.prompt("Enter Price: ")
	if !ok {
		return
	}

	qty, qtyErr := strconv.Atoi(strings.TrimSpace(rawQty))
	price, priceErr := decimal.NewFromString(strings.TrimSpace(rawPrice))
	if qtyErr != nil || priceErr != nil {
		c.println("Quantity must be an integer and price must be a number!")
		return
	}

	record := domain.ProductRecord{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Quantity: qty,
		Price:    price,
	}
	if err := h.gate.Add(ctx, role, record); err != nil {
		h.report(c, err)
		return
	}
	c.println("Product Added Successfully!")
}

func (h *CLIHandler) deleteProduct(ctx context.Context, c *console, role domain.Role) {
	id, ok := c.prompt("Enter Product ID to delete: ")
	if !ok {
		return
	}
	if err := h.gate.Delete(ctx, role, strings.TrimSpace(id)); err != nil {
		h.report(c, err)
		return
	}
	c.println("Product Deleted Successfully!")
}

func (h *CLIHandler) updateStock(ctx context.Context, c *console, role domain.Role) {
	id, ok := c.prompt("Enter Product ID to update: ")
	if !ok {
		return
	}
	id = strings.TrimSpace(id)
	if _, err := h.gate.Get(ctx, role, id); err != nil {
		h.report(c, err)
		return
	}

	raw, ok := c.prompt("Enter new quantity: ")
	if !ok {
		return
	}
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		c.println("Quantity must be a valid number!")
		return
	}

	updated, err := h.gate.UpdateStock(ctx, role, id, qty)
	switch {
	case err == nil:
		c.println("Stock Updated!")
	case errors.Is(err, domain.ErrLogWrite) && updated.ID != "":
		c.println("Stock Updated!")
		c.println("Warning: the activity log could not be written.")
	case errors.Is(err, domain.ErrLogWrite):
		c.println("Stock update cancelled: the activity log could not be written.")
	default:
		h.report(c, err)
	}
}

func (h *CLIHandler) viewProducts(ctx context.Context, c *console, role domain.Role) {
	records, err := h.gate.List(ctx, role)
	if err != nil {
		h.report(c, err)
		return
	}
	if len(records) == 0 {
		c.println("Inventory is empty!")
		return
	}

	c.println()
	c.println("--- Product List ---")

	if !service.Authorize(role, domain.OpTotalValue) {
		for _, r := range records {
			c.printf("%s | %s | Qty: %d | Price: %s\n", r.ID, r.Name, r.Quantity, r.Price.String())
		}
		return
	}

	low, err := h.gate.LowStockAlert(ctx, role, h.threshold)
	if err != nil {
		h.report(c, err)
		return
	}
	isLow := make(map[string]bool, len(low))
	for _, r := range low {
		isLow[r.ID] = true
	}

	for _, r := range records {
		c.println()
		c.printf("Product ID: %s\n", r.ID)
		c.printf("Name: %s\n", r.Name)
		c.printf("Quantity: %d\n", r.Quantity)
		c.printf("Price: %s\n", r.Price.String())
		c.printf("Value: %s\n", r.Value().String())
		if isLow[r.ID] {
			c.println("Low Stock Alert!")
		}
	}

	total, err := h.gate.TotalValue(ctx, role)
	if err != nil {
		h.report(c, err)
		return
	}
	c.println()
	c.printf("Total Inventory Value: %s\n", total.String())
}

func (h *CLIHandler) viewLog(ctx context.Context, c *console, role domain.Role) {
	entries, err := h.gate.ViewLog(ctx, role)
	if err != nil {
		h.report(c, err)
		return
	}
	if len(entries) == 0 {
		c.println("No staff activity found.")
		return
	}
	c.println()
	c.println("--- Staff Activity Log ---")
	for _, e := range entries {
		c.println(e.Line())
	}
}

// report maps a core error to the message shown to the operator.
func (h *CLIHandler) report(c *console, err error) {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		c.println("Permission denied!")
	case errors.Is(err, domain.ErrNotFound):
		c.println("Product ID not found!")
	case errors.Is(err, domain.ErrDuplicateID):
		c.println("Product ID already exists!")
	case errors.Is(err, domain.ErrInvalidField):
		c.printf("Invalid input: %v\n", err)
	case errors.Is(err, domain.ErrStorageCorrupt):
		c.println("Stored data is unreadable!")
	default:
		h.logger.Error("operation failed", zap.Error(err))
		c.printf("Operation failed: %v\n", err)
	}
}
