package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		identifier string
		want       bool
	}{
		{"employee_records", false},
		{"orders", false},
		{"Employee_Records", true},
		{"ORDERS", true},
		{"order", true},
		{"user", true},
		{"line items", true},
		{"audit-log", true},
		{"sales.q1", true},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsQuoting(tt.identifier))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "orders", QuoteIdentifier("orders"))
	assert.Equal(t, `"Orders"`, QuoteIdentifier("Orders"))
	assert.Equal(t, `"select"`, QuoteIdentifier("select"))
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		known []string
		want  string
	}{
		{
			name:  "restores case of known table",
			sql:   "SELECT * FROM employee_records",
			known: []string{"Employee_Records"},
			want:  `SELECT * FROM "Employee_Records"`,
		},
		{
			name:  "keeps keyword case",
			sql:   "select * from orders o join customers c on o.customer_id = c.id",
			known: []string{"Orders", "Customers"},
			want:  `select * from "Orders" o join "Customers" c on o.customer_id = c.id`,
		},
		{
			name:  "collapses whitespace after keyword",
			sql:   "SELECT id FROM\n    orders",
			known: []string{"Orders"},
			want:  `SELECT id FROM "Orders"`,
		},
		{
			name:  "leaves lowercase unknown table bare",
			sql:   "SELECT * FROM audit_log",
			known: []string{"Orders"},
			want:  "SELECT * FROM audit_log",
		},
		{
			name:  "quotes reserved word",
			sql:   "SELECT * FROM user",
			known: nil,
			want:  `SELECT * FROM "user"`,
		},
		{
			name:  "rewrites update and insert targets",
			sql:   "UPDATE orders SET total = 0; INSERT INTO customers (name) VALUES ('x')",
			known: []string{"Orders", "Customers"},
			want:  `UPDATE "Orders" SET total = 0; INSERT INTO "Customers" (name) VALUES ('x')`,
		},
		{
			name:  "ignores already quoted table",
			sql:   `SELECT * FROM "Orders"`,
			known: []string{"Orders"},
			want:  `SELECT * FROM "Orders"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.sql, tt.known))
		})
	}
}

func TestNormalizeQuery_Idempotent(t *testing.T) {
	known := []string{"Employee_Records", "departments"}
	sql := "SELECT e.name FROM employee_records e JOIN DEPARTMENTS d ON d.id = e.department_id"

	once := NormalizeQuery(sql, known)
	twice := NormalizeQuery(once, known)

	assert.Equal(t, once, twice)
	assert.Contains(t, once, `FROM "Employee_Records" e`)
	assert.Contains(t, once, "JOIN departments d")
}
