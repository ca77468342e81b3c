package handler

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/codex-grpc-rrhh/internal/core/employee"
)

// decoder は google.protobuf.Struct のリクエストからフィールドを取り出します。
// 型が合わないフィールドはエラーとして蓄積し、err でまとめて返します。
type decoder struct {
	fields map[string]*structpb.Value
	errs   map[string]string
}

func newDecoder(req *structpb.Struct) *decoder {
	return &decoder{fields: req.GetFields(), errs: map[string]string{}}
}

func (d *decoder) value(name string) (*structpb.Value, bool) {
	v, ok := d.fields[name]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func (d *decoder) fail(name, msg string) {
	if _, exists := d.errs[name]; !exists {
		d.errs[name] = msg
	}
}

func (d *decoder) stringPtr(name string) *string {
	v, ok := d.value(name)
	if !ok {
		return nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		d.fail(name, "debe ser texto")
		return nil
	}
	out := s.StringValue
	return &out
}

func (d *decoder) str(name string) string {
	if p := d.stringPtr(name); p != nil {
		return *p
	}
	return ""
}

func (d *decoder) boolPtr(name string) *bool {
	v, ok := d.value(name)
	if !ok {
		return nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		out := k.BoolValue
		return &out
	case *structpb.Value_StringValue:
		out, err := strconv.ParseBool(strings.TrimSpace(k.StringValue))
		if err != nil {
			d.fail(name, "debe ser verdadero o falso")
			return nil
		}
		return &out
	default:
		d.fail(name, "debe ser verdadero o falso")
		return nil
	}
}

func (d *decoder) integer(name string) int64 {
	v, ok := d.value(name)
	if !ok {
		return 0
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		if k.NumberValue != math.Trunc(k.NumberValue) {
			d.fail(name, "debe ser un número entero")
			return 0
		}
		return int64(k.NumberValue)
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(k.StringValue), 10, 64)
		if err != nil {
			d.fail(name, "debe ser un número entero")
			return 0
		}
		return n
	default:
		d.fail(name, "debe ser un número entero")
		return 0
	}
}

func (d *decoder) datePtr(name string) *time.Time {
	p := d.stringPtr(name)
	if p == nil {
		return nil
	}
	t, err := employee.ParseDate(*p)
	if err != nil {
		d.fail(name, "formato de fecha inválido, use AAAA-MM-DD")
		return nil
	}
	return &t
}

func (d *decoder) date(name string) time.Time {
	if p := d.datePtr(name); p != nil {
		return *p
	}
	return time.Time{}
}

func (d *decoder) err() error {
	if len(d.errs) == 0 {
		return nil
	}
	names := make([]string, 0, len(d.errs))
	for name := range d.errs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, d.errs[name]))
	}
	return status.Error(codes.InvalidArgument, strings.Join(parts, "; "))
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func toStructList(items []map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
