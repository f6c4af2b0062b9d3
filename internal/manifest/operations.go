package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lockplane/lockstep/database"
	"github.com/lockplane/lockstep/operation"
)

// OperationSpec is one entry of a migration's operations or backward list.
// Which fields apply depends on Type.
type OperationSpec struct {
	Type        string                  `toml:"type"`
	Table       string                  `toml:"table"`
	Name        string                  `toml:"name"`
	From        string                  `toml:"from"`
	To          string                  `toml:"to"`
	Fields      []FieldSpec             `toml:"fields"`
	Field       *FieldSpec              `toml:"field"`
	Changes     *ChangesSpec            `toml:"changes"`
	Reverse     *ChangesSpec            `toml:"reverse"`
	Index       *IndexSpec              `toml:"index"`
	Constraint  *ConstraintSpec         `toml:"constraint"`
	Description string                  `toml:"description"`
	SQL         []string                `toml:"sql"`
	ReverseSQL  []string                `toml:"reverse_sql"`
	OnlyFor     []string                `toml:"only_for"`
	Portable    map[string]PortableSpec `toml:"portable"`
}

type FieldSpec struct {
	Name       string         `toml:"name"`
	Type       string         `toml:"type"`
	Length     int            `toml:"length"`
	Precision  int            `toml:"precision"`
	Scale      int            `toml:"scale"`
	Nullable   *bool          `toml:"nullable"`
	PrimaryKey bool           `toml:"primary_key"`
	Unique     bool           `toml:"unique"`
	Default    *string        `toml:"default"`
	References *ReferenceSpec `toml:"references"`
}

type ReferenceSpec struct {
	Table    string `toml:"table"`
	Column   string `toml:"column"`
	OnDelete string `toml:"on_delete"`
	OnUpdate string `toml:"on_update"`
}

type ChangesSpec struct {
	Type        string  `toml:"type"`
	Length      int     `toml:"length"`
	Precision   int     `toml:"precision"`
	Scale       int     `toml:"scale"`
	Nullable    *bool   `toml:"nullable"`
	Default     *string `toml:"default"`
	DropDefault bool    `toml:"drop_default"`
}

// IndexSpec columns may carry a direction: "created_at desc".
type IndexSpec struct {
	Name    string   `toml:"name"`
	Columns []string `toml:"columns"`
	Unique  bool     `toml:"unique"`
	Where   string   `toml:"where"`
}

type ConstraintSpec struct {
	Name       string   `toml:"name"`
	Kind       string   `toml:"kind"`
	Expression string   `toml:"expression"`
	Columns    []string `toml:"columns"`
	RefTable   string   `toml:"ref_table"`
	RefColumns []string `toml:"ref_columns"`
	OnDelete   string   `toml:"on_delete"`
	OnUpdate   string   `toml:"on_update"`
}

type PortableSpec struct {
	SQL        []string `toml:"sql"`
	ReverseSQL []string `toml:"reverse_sql"`
}

func (s OperationSpec) build() (operation.Operation, error) {
	switch s.Type {
	case "create_table":
		fields, err := buildFields(s.Fields)
		if err != nil {
			return nil, err
		}
		return operation.CreateTable(s.Table, fields...), nil

	case "drop_table":
		op := operation.DropTable(s.Table)
		if s.Fields != nil {
			fields, err := buildFields(s.Fields)
			if err != nil {
				return nil, err
			}
			op.WithFields(fields...)
		}
		return op, nil

	case "rename_table":
		return operation.RenameTable(s.From, s.To), nil

	case "add_field":
		field, err := s.Field.build()
		if err != nil {
			return nil, err
		}
		return operation.AddField(s.Table, field), nil

	case "remove_field":
		op := operation.RemoveField(s.Table, s.Name)
		if s.Field != nil {
			field, err := s.Field.build()
			if err != nil {
				return nil, err
			}
			op.WithDefinition(field)
		}
		return op, nil

	case "rename_field":
		return operation.RenameField(s.Table, s.From, s.To), nil

	case "alter_field":
		return s.buildAlterField()

	case "add_index":
		return operation.AddIndex(s.Table, s.Index.build()), nil

	case "remove_index":
		op := operation.RemoveIndex(s.Table, s.Name)
		if s.Index != nil {
			op.WithDefinition(s.Index.build())
		}
		return op, nil

	case "add_constraint":
		c, err := s.Constraint.build()
		if err != nil {
			return nil, err
		}
		return operation.AddConstraint(s.Table, c), nil

	case "remove_constraint":
		op := operation.RemoveConstraint(s.Table, s.Name)
		if s.Constraint != nil {
			c, err := s.Constraint.build()
			if err != nil {
				return nil, err
			}
			op.WithDefinition(c)
		}
		return op, nil

	case "run_sql":
		return s.buildRunSQL(), nil

	default:
		return nil, fmt.Errorf("unknown operation type %q", s.Type)
	}
}

func (s OperationSpec) buildAlterField() (operation.Operation, error) {
	op := operation.AlterField(s.Table, s.Name)

	changes, err := s.Changes.build()
	if err != nil {
		return nil, err
	}
	op.Changes = changes

	if s.Reverse != nil {
		reverse, err := s.Reverse.build()
		if err != nil {
			return nil, fmt.Errorf("reverse: %w", err)
		}
		op.WithReverse(reverse)
	}

	return op, nil
}

func (s OperationSpec) buildRunSQL() operation.Operation {
	var op *operation.RunSQLOp

	if s.Portable != nil {
		op = operation.PortableSQL()

		backends := make([]string, 0, len(s.Portable))
		for backend := range s.Portable {
			backends = append(backends, backend)
		}
		sort.Strings(backends)

		for _, backend := range backends {
			p := s.Portable[backend]
			if p.ReverseSQL != nil {
				op.ForStatements(backend, p.SQL, p.ReverseSQL)
			} else {
				op.For(backend, p.SQL...)
			}
		}
	} else {
		op = operation.RunSQL(s.SQL...)
		if s.ReverseSQL != nil {
			op.WithReverse(s.ReverseSQL...)
		}
		if len(s.OnlyFor) > 0 {
			op.OnlyFor(s.OnlyFor...)
		}
	}

	if s.Description != "" {
		op.WithDescription(s.Description)
	}
	return op
}

func buildFields(specs []FieldSpec) ([]database.Field, error) {
	fields := make([]database.Field, 0, len(specs))
	for _, spec := range specs {
		f, err := spec.build()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (s *FieldSpec) build() (database.Field, error) {
	t, err := parseType(s.Type, s.Length, s.Precision, s.Scale)
	if err != nil {
		return database.Field{}, fmt.Errorf("field %s: %w", s.Name, err)
	}

	f := database.NewField(s.Name, t)
	if s.Nullable != nil && !*s.Nullable {
		f = f.NotNull()
	}
	if s.PrimaryKey {
		f = f.AsPrimaryKey()
	}
	if s.Unique {
		f = f.AsUnique()
	}
	if s.Default != nil {
		f = f.WithDefault(*s.Default)
	}

	if ref := s.References; ref != nil {
		onDelete, err := parseAction(ref.OnDelete)
		if err != nil {
			return database.Field{}, fmt.Errorf("field %s: %w", s.Name, err)
		}
		onUpdate, err := parseAction(ref.OnUpdate)
		if err != nil {
			return database.Field{}, fmt.Errorf("field %s: %w", s.Name, err)
		}
		f = f.ReferencesColumn(ref.Table, ref.Column).OnDelete(onDelete).OnUpdate(onUpdate)
	}

	return f, nil
}

func (s *ChangesSpec) build() (database.FieldChanges, error) {
	var c database.FieldChanges

	if s.Type != "" {
		t, err := parseType(s.Type, s.Length, s.Precision, s.Scale)
		if err != nil {
			return c, err
		}
		c = c.SetType(t)
	}
	if s.Nullable != nil {
		c = c.SetNullable(*s.Nullable)
	}

	switch {
	case s.Default != nil && s.DropDefault:
		return c, fmt.Errorf("default and drop_default are mutually exclusive")
	case s.Default != nil:
		c = c.SetDefault(*s.Default)
	case s.DropDefault:
		c = c.DropDefault()
	}

	if c.IsEmpty() {
		return c, fmt.Errorf("no changes given")
	}
	return c, nil
}

func (s *IndexSpec) build() database.Index {
	idx := database.NewIndex(s.Name)
	for _, col := range s.Columns {
		name, dir, _ := strings.Cut(col, " ")
		if strings.EqualFold(dir, "desc") {
			idx = idx.ColumnDesc(name)
		} else {
			idx = idx.Column(name)
		}
	}
	if s.Unique {
		idx = idx.AsUnique()
	}
	if s.Where != "" {
		idx = idx.Filter(s.Where)
	}
	return idx
}

func (s *ConstraintSpec) build() (database.Constraint, error) {
	switch s.Kind {
	case "check":
		if s.Expression == "" {
			return database.Constraint{}, fmt.Errorf("check constraint %s needs an expression", s.Name)
		}
		return database.Check(s.Name, s.Expression), nil

	case "unique":
		if len(s.Columns) == 0 {
			return database.Constraint{}, fmt.Errorf("unique constraint %s needs columns", s.Name)
		}
		return database.Unique(s.Name, s.Columns...), nil

	case "foreign_key":
		if len(s.Columns) == 0 || s.RefTable == "" || len(s.RefColumns) != len(s.Columns) {
			return database.Constraint{}, fmt.Errorf("foreign key %s needs columns, ref_table and matching ref_columns", s.Name)
		}
		onDelete, err := parseAction(s.OnDelete)
		if err != nil {
			return database.Constraint{}, err
		}
		onUpdate, err := parseAction(s.OnUpdate)
		if err != nil {
			return database.Constraint{}, err
		}
		return database.ForeignKeyTo(s.Name, s.Columns, s.RefTable, s.RefColumns).
			WithOnDelete(onDelete).
			WithOnUpdate(onUpdate), nil

	default:
		return database.Constraint{}, fmt.Errorf("unknown constraint kind %q", s.Kind)
	}
}

var simpleTypes = map[string]database.FieldType{
	"serial":      database.Serial,
	"bigserial":   database.BigSerial,
	"integer":     database.Integer,
	"bigint":      database.BigInt,
	"smallint":    database.SmallInt,
	"text":        database.Text,
	"boolean":     database.Boolean,
	"timestamp":   database.Timestamp,
	"timestamptz": database.TimestampTZ,
	"date":        database.Date,
	"time":        database.Time,
	"uuid":        database.UUID,
	"json":        database.JSON,
	"jsonb":       database.JSONB,
	"binary":      database.Binary,
	"real":        database.Real,
	"double":      database.DoublePrecision,
}

func parseType(name string, length, precision, scale int) (database.FieldType, error) {
	switch name {
	case "varchar":
		if length <= 0 {
			return database.FieldType{}, fmt.Errorf("varchar requires a length")
		}
		return database.VarChar(length), nil
	case "decimal":
		if precision <= 0 {
			return database.FieldType{}, fmt.Errorf("decimal requires a precision")
		}
		if scale > precision {
			return database.FieldType{}, fmt.Errorf("decimal scale %d exceeds precision %d", scale, precision)
		}
		return database.Decimal(precision, scale), nil
	}

	if t, ok := simpleTypes[name]; ok {
		return t, nil
	}
	return database.FieldType{}, fmt.Errorf("unknown field type %q", name)
}

func parseAction(name string) (database.ReferentialAction, error) {
	switch name {
	case "", "no_action":
		return database.NoAction, nil
	case "restrict":
		return database.Restrict, nil
	case "cascade":
		return database.Cascade, nil
	case "set_null":
		return database.SetNull, nil
	case "set_default":
		return database.SetDefault, nil
	default:
		return database.NoAction, fmt.Errorf("unknown referential action %q", name)
	}
}
