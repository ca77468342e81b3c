package audit

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/wI2L/jsondiff"
)

// FieldChange はフィールド単位の変更前後の値です。
type FieldChange struct {
	Before string `json:"antes"`
	After  string `json:"después"`
}

// Changes は台帳に保存する変更内容です。値は string または FieldChange です。
type Changes map[string]any

// Detail は説明文のみを持つペイロードを生成します。
func Detail(text string) Changes {
	return Changes{"detalle": text}
}

// Snapshot はエンティティの全フィールドを field → 文字列値 として返します。
func Snapshot(entity Auditable) Changes {
	fields := entity.AuditFields()
	out := make(Changes, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Value
	}
	return out
}

// Diff は 2 つのスナップショットを比較し、値が異なるフィールドのみを返します。
func Diff(previous, current Auditable) (Changes, error) {
	if previous.AuditModel() != current.AuditModel() {
		return nil, ErrModelMismatch
	}

	before := fieldMap(previous.AuditFields())
	after := fieldMap(current.AuditFields())

	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil, err
	}

	out := make(Changes, len(patch))
	for _, op := range patch {
		switch op.Type {
		case jsondiff.OperationReplace, jsondiff.OperationAdd, jsondiff.OperationRemove:
		default:
			continue
		}
		name := pointerKey(string(op.Path))
		if name == "" {
			continue
		}
		out[name] = FieldChange{Before: before[name], After: after[name]}
	}
	return out, nil
}

// Detect は操作に応じて記録すべき変更内容を決定します。explicit が指定されていればそれを優先します。
func Detect(action Action, current, previous Auditable, explicit Changes) (Changes, error) {
	if explicit != nil {
		return explicit, nil
	}

	switch action {
	case ActionEdit:
		if previous == nil {
			return nil, ErrPreviousRequired
		}
		return Diff(previous, current)
	case ActionCreate:
		return Snapshot(current), nil
	default:
		return nil, ErrChangesRequired
	}
}

// Serialize は変更内容をキー順でソートされた 2 スペースインデントの JSON に変換します。
func (c Changes) Serialize() (string, error) {
	if c == nil {
		c = Changes{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func fieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

// pointerKey は RFC 6901 の単一セグメントのポインタをキー名に戻します。
func pointerKey(path string) string {
	key := strings.TrimPrefix(path, "/")
	if strings.Contains(key, "/") {
		return ""
	}
	key = strings.ReplaceAll(key, "~1", "/")
	return strings.ReplaceAll(key, "~0", "~")
}
