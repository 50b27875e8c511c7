package domain

import (
	"fmt"
	"strings"
)

type Role int

const (
	RoleAdmin Role = iota + 1
	RoleStaff
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleStaff:
		return "Staff"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ParseRole accepts the role name in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "staff":
		return RoleStaff, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

type Operation string

const (
	OpAdd           Operation = "add"
	OpDelete        Operation = "delete"
	OpGet           Operation = "get"
	OpList          Operation = "list"
	OpUpdateStock   Operation = "updateStock"
	OpViewLog       Operation = "viewLog"
	OpTotalValue    Operation = "totalValue"
	OpLowStockAlert Operation = "lowStockAlert"
)

// Operations lists every operation the gate knows about.
var Operations = []Operation{
	OpAdd, OpDelete, OpGet, OpList, OpUpdateStock, OpViewLog, OpTotalValue, OpLowStockAlert,
}
