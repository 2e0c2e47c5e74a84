package u256

import (
	"context"
	"fmt"
	"reflect"

	"github.com/holiman/uint256"
	"gorm.io/gorm/schema"
)

// SerializerName is the gorm tag value: `gorm:"serializer:u256"`.
const SerializerName = "u256"

func init() {
	schema.RegisterSerializer(SerializerName, Serializer{})
}

// Serializer stores *uint256.Int fields as base-10 strings. Columns should use a
// text type (varchar(78)) so SQLite does not coerce large values into REAL.
type Serializer struct{}

func (Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	v := new(uint256.Int)
	switch raw := dbValue.(type) {
	case nil:
	case string:
		if err := v.SetFromDecimal(raw); err != nil {
			return fmt.Errorf("u256: scan %s: %w", field.Name, err)
		}
	case []byte:
		if err := v.SetFromDecimal(string(raw)); err != nil {
			return fmt.Errorf("u256: scan %s: %w", field.Name, err)
		}
	case int64:
		if raw < 0 {
			return fmt.Errorf("u256: scan %s: negative value %d", field.Name, raw)
		}
		v.SetUint64(uint64(raw))
	default:
		return fmt.Errorf("u256: scan %s: unsupported type %T", field.Name, dbValue)
	}
	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(v))
	return nil
}

func (Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	switch v := fieldValue.(type) {
	case *uint256.Int:
		return String(v), nil
	case uint256.Int:
		return v.Dec(), nil
	case nil:
		return "0", nil
	default:
		return nil, fmt.Errorf("u256: value %s: unsupported type %T", field.Name, fieldValue)
	}
}
