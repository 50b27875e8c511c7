package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const auditTimeLayout = "2006-01-02 15:04:05"

type AuditEntry struct {
	Timestamp   time.Time
	ProductID   string
	NewQuantity int
	ActorRole   Role
}

// Line renders the entry in the human readable log form, e.g.
// "2026-02-11 10:30:25 - Staff updated stock of Product ID P101 to 50".
func (e AuditEntry) Line() string {
	return fmt.Sprintf("%s - %s updated stock of Product ID %s to %d",
		e.Timestamp.Format(auditTimeLayout), e.ActorRole, e.ProductID, e.NewQuantity)
}

// ParseAuditLine is the inverse of Line. Timestamps are read in loc.
func ParseAuditLine(line string, loc *time.Location) (AuditEntry, error) {
	ts, rest, ok := strings.Cut(line, " - ")
	if !ok {
		return AuditEntry{}, fmt.Errorf("malformed audit line %q", line)
	}
	t, err := time.ParseInLocation(auditTimeLayout, ts, loc)
	if err != nil {
		return AuditEntry{}, fmt.Errorf("malformed audit timestamp %q: %w", ts, err)
	}

	roleName, rest, ok := strings.Cut(rest, " updated stock of Product ID ")
	if !ok {
		return AuditEntry{}, fmt.Errorf("malformed audit line %q", line)
	}
	role, err := ParseRole(roleName)
	if err != nil {
		return AuditEntry{}, err
	}

	// product ids may contain spaces, the quantity is always the last token
	idx := strings.LastIndex(rest, " to ")
	if idx < 0 {
		return AuditEntry{}, fmt.Errorf("malformed audit line %q", line)
	}
	qty, err := strconv.Atoi(rest[idx+len(" to "):])
	if err != nil {
		return AuditEntry{}, fmt.Errorf("malformed audit quantity in %q: %w", line, err)
	}

	return AuditEntry{
		Timestamp:   t,
		ProductID:   rest[:idx],
		NewQuantity: qty,
		ActorRole:   role,
	}, nil
}
