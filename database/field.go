package database

import "fmt"

// TypeKind identifies a portable column type.
type TypeKind int

const (
	KindSerial TypeKind = iota
	KindBigSerial
	KindInteger
	KindBigInt
	KindSmallInt
	KindText
	KindVarChar
	KindBoolean
	KindTimestamp
	KindTimestampTZ
	KindDate
	KindTime
	KindUUID
	KindJSON
	KindJSONB
	KindBinary
	KindReal
	KindDoublePrecision
	KindDecimal
)

// FieldType is a portable column type. Length applies to VarChar; Precision
// and Scale apply to Decimal.
type FieldType struct {
	Kind      TypeKind
	Length    int
	Precision int
	Scale     int
}

var (
	Serial          = FieldType{Kind: KindSerial}
	BigSerial       = FieldType{Kind: KindBigSerial}
	Integer         = FieldType{Kind: KindInteger}
	BigInt          = FieldType{Kind: KindBigInt}
	SmallInt        = FieldType{Kind: KindSmallInt}
	Text            = FieldType{Kind: KindText}
	Boolean         = FieldType{Kind: KindBoolean}
	Timestamp       = FieldType{Kind: KindTimestamp}
	TimestampTZ     = FieldType{Kind: KindTimestampTZ}
	Date            = FieldType{Kind: KindDate}
	Time            = FieldType{Kind: KindTime}
	UUID            = FieldType{Kind: KindUUID}
	JSON            = FieldType{Kind: KindJSON}
	JSONB           = FieldType{Kind: KindJSONB}
	Binary          = FieldType{Kind: KindBinary}
	Real            = FieldType{Kind: KindReal}
	DoublePrecision = FieldType{Kind: KindDoublePrecision}
)

// VarChar returns a variable-length string type limited to n characters.
func VarChar(n int) FieldType {
	return FieldType{Kind: KindVarChar, Length: n}
}

// Decimal returns an exact numeric type.
func Decimal(precision, scale int) FieldType {
	return FieldType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

// IsSerial reports whether the type is an auto-incrementing integer.
func (t FieldType) IsSerial() bool {
	return t.Kind == KindSerial || t.Kind == KindBigSerial
}

func (t FieldType) String() string {
	switch t.Kind {
	case KindSerial:
		return "serial"
	case KindBigSerial:
		return "bigserial"
	case KindInteger:
		return "integer"
	case KindBigInt:
		return "bigint"
	case KindSmallInt:
		return "smallint"
	case KindText:
		return "text"
	case KindVarChar:
		return fmt.Sprintf("varchar(%d)", t.Length)
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindJSONB:
		return "jsonb"
	case KindBinary:
		return "binary"
	case KindReal:
		return "real"
	case KindDoublePrecision:
		return "double precision"
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	default:
		return "unknown"
	}
}

// ReferentialAction is the ON DELETE / ON UPDATE behavior of a foreign key.
type ReferentialAction int

const (
	NoAction ReferentialAction = iota
	Restrict
	Cascade
	SetNull
	SetDefault
)

// SQL returns the keyword form used in DDL.
func (a ReferentialAction) SQL() string {
	switch a {
	case Restrict:
		return "RESTRICT"
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// ForeignKey is a single-column reference attached to a Field.
type ForeignKey struct {
	Table    string
	Column   string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Field describes a table column. Builder methods return modified copies, so
// a Field value can be shared freely.
type Field struct {
	Name       string
	Type       FieldType
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    *string
	References *ForeignKey
}

// NewField returns a nullable column definition.
func NewField(name string, fieldType FieldType) Field {
	return Field{
		Name:     name,
		Type:     fieldType,
		Nullable: true,
	}
}

// NotNull marks the column NOT NULL.
func (f Field) NotNull() Field {
	f.Nullable = false
	return f
}

// AsPrimaryKey marks the column as the primary key. Primary keys are never
// nullable.
func (f Field) AsPrimaryKey() Field {
	f.PrimaryKey = true
	f.Nullable = false
	return f
}

// AsUnique adds a UNIQUE constraint to the column.
func (f Field) AsUnique() Field {
	f.Unique = true
	return f
}

// WithDefault sets the column default to a literal SQL expression.
func (f Field) WithDefault(expr string) Field {
	f.Default = &expr
	return f
}

// ReferencesColumn adds a foreign key to table(column).
func (f Field) ReferencesColumn(table, column string) Field {
	f.References = &ForeignKey{Table: table, Column: column}
	return f
}

// OnDelete sets the ON DELETE action of the column's foreign key, if any.
func (f Field) OnDelete(action ReferentialAction) Field {
	if f.References != nil {
		fk := *f.References
		fk.OnDelete = action
		f.References = &fk
	}
	return f
}

// OnUpdate sets the ON UPDATE action of the column's foreign key, if any.
func (f Field) OnUpdate(action ReferentialAction) Field {
	if f.References != nil {
		fk := *f.References
		fk.OnUpdate = action
		f.References = &fk
	}
	return f
}

// FieldChanges lists the column attributes an ALTER should change. Nil
// entries are left untouched.
type FieldChanges struct {
	Type     *FieldType
	Nullable *bool
	// Default is only consulted when DefaultSet is true; a nil Default with
	// DefaultSet drops the column default.
	Default    *string
	DefaultSet bool
}

// IsEmpty reports whether no change is requested.
func (c FieldChanges) IsEmpty() bool {
	return c.Type == nil && c.Nullable == nil && !c.DefaultSet
}

// SetType changes the column type.
func (c FieldChanges) SetType(t FieldType) FieldChanges {
	c.Type = &t
	return c
}

// SetNullable changes the column nullability.
func (c FieldChanges) SetNullable(nullable bool) FieldChanges {
	c.Nullable = &nullable
	return c
}

// SetDefault changes the column default to a literal SQL expression.
func (c FieldChanges) SetDefault(expr string) FieldChanges {
	c.Default = &expr
	c.DefaultSet = true
	return c
}

// DropDefault removes the column default.
func (c FieldChanges) DropDefault() FieldChanges {
	c.Default = nil
	c.DefaultSet = true
	return c
}
