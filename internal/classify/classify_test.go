package classify

import (
	"database/sql"
	"strconv"
	"testing"

	"tabular/internal/config"
	"tabular/internal/table"
)

// intCol builds an Int64Column with n rows cycling over `distinct` values.
func intCol(name string, n, distinct int) *table.Int64Column {
	c := &table.Int64Column{ColName: name, Values: make([]sql.NullInt64, n)}
	for i := 0; i < n; i++ {
		c.Values[i] = sql.NullInt64{Int64: int64(i % distinct), Valid: true}
	}
	return c
}

func textCol(name string, n, distinct int) *table.TextColumn {
	c := &table.TextColumn{ColName: name, Values: make([]sql.NullString, n)}
	for i := 0; i < n; i++ {
		c.Values[i] = sql.NullString{String: "v" + strconv.Itoa(i%distinct), Valid: true}
	}
	return c
}

func TestRolesIdentifierVsMetric(t *testing.T) {
	t.Parallel()

	h := config.Default()
	typed := &table.TypedTable{Cols: []table.Column{
		intCol("order_id", 100, 95), // 95% unique over 100 rows
		intCol("amount", 100, 40),   // 40% unique
	}}

	roles := Roles(typed, h)
	if roles["order_id"] != table.RoleIdentifier {
		t.Errorf("order_id = %s, want Identifier", roles["order_id"])
	}
	if roles["amount"] != table.RoleNumericMetric {
		t.Errorf("amount = %s, want Numeric metric", roles["amount"])
	}
}

func TestRolesTextIdentifierVsDimension(t *testing.T) {
	t.Parallel()

	h := config.Default()
	typed := &table.TypedTable{Cols: []table.Column{
		textCol("sku", 100, 95),
		textCol("region", 100, 4),
	}}

	roles := Roles(typed, h)
	if roles["sku"] != table.RoleIdentifier {
		t.Errorf("sku = %s, want Identifier", roles["sku"])
	}
	if roles["region"] != table.RoleCategoricalDimension {
		t.Errorf("region = %s, want Categorical dimension", roles["region"])
	}
}

// Below the row floor, uniqueness is meaningless: a fully unique 5-row
// column is not an identifier.
func TestRolesSmallTableNoIdentifier(t *testing.T) {
	t.Parallel()

	typed := &table.TypedTable{Cols: []table.Column{intCol("id", 5, 5)}}
	roles := Roles(typed, config.Default())
	if roles["id"] != table.RoleNumericMetric {
		t.Errorf("id = %s, want Numeric metric on a 5-row table", roles["id"])
	}
}

func TestRolesTimestampAndBoolean(t *testing.T) {
	t.Parallel()

	ts := &table.TimestampColumn{ColName: "when", Values: make([]sql.NullTime, 20)}
	bo := &table.BooleanColumn{ColName: "active", Values: make([]sql.NullBool, 20)}
	for i := range bo.Values {
		bo.Values[i] = sql.NullBool{Bool: i%2 == 0, Valid: true}
	}

	roles := Roles(&table.TypedTable{Cols: []table.Column{ts, bo}}, config.Default())
	if roles["when"] != table.RoleDateTime {
		t.Errorf("when = %s", roles["when"])
	}
	// Booleans classify with the numerics and can never be unique enough
	// to become identifiers.
	if roles["active"] != table.RoleNumericMetric {
		t.Errorf("active = %s, want Numeric metric", roles["active"])
	}
}

func TestOrientationMostlyNumericIsWide(t *testing.T) {
	t.Parallel()

	typed := &table.TypedTable{Cols: []table.Column{
		intCol("m1", 10, 10),
		intCol("m2", 10, 10),
		intCol("m3", 10, 10),
		textCol("name", 10, 10),
	}}
	if got := Orientation(typed, config.Default()); got != table.Wide {
		t.Errorf("Orientation = %s, want wide", got)
	}
}

func TestOrientationVariableValueIsLong(t *testing.T) {
	t.Parallel()

	typed := &table.TypedTable{Cols: []table.Column{
		textCol("entity", 10, 5),
		textCol("variable", 10, 3),
		textCol("value", 10, 10),
		intCol("count_n", 10, 10),
	}}
	if got := Orientation(typed, config.Default()); got != table.Long {
		t.Errorf("Orientation = %s, want long", got)
	}
}

func TestOrientationNonNumericMajorityIsLong(t *testing.T) {
	t.Parallel()

	typed := &table.TypedTable{Cols: []table.Column{
		textCol("a", 10, 5),
		textCol("b", 10, 5),
		textCol("c", 10, 5),
		intCol("n", 10, 10),
	}}
	if got := Orientation(typed, config.Default()); got != table.Long {
		t.Errorf("Orientation = %s, want long", got)
	}
}

func TestOrientationDefaultWide(t *testing.T) {
	t.Parallel()

	// 2 numeric of 4 (50% share each way): no rule fires, default wide.
	typed := &table.TypedTable{Cols: []table.Column{
		intCol("m1", 10, 10),
		intCol("m2", 10, 10),
		textCol("a", 10, 5),
		textCol("b", 10, 5),
	}}
	if got := Orientation(typed, config.Default()); got != table.Wide {
		t.Errorf("Orientation = %s, want wide", got)
	}

	if got := Orientation(&table.TypedTable{}, config.Default()); got != table.Wide {
		t.Errorf("empty table Orientation = %s, want wide", got)
	}
}
