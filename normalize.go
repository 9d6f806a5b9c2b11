package docxtemplar

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	isoLayout     = "2006-01-02"
	displayLayout = "02-01-2006"
)

// Record — сырая запись сотрудника/договора: разрежённая, с историческими алиасами ключей.
// Значения: string, числа, bool, nil, time.Time или строки дат ISO.
type Record map[string]any

// rawString нормализует сырое значение в строку.
// Второй результат false, если значение считается пустым:
// nil, "undefined", "null" и строки из пробелов.
func rawString(v any) (string, bool) {
	var s string
	switch vv := v.(type) {
	case nil:
		return "", false
	case string:
		s = vv
	case float64:
		if vv == float64(int64(vv)) {
			s = strconv.FormatInt(int64(vv), 10)
		} else {
			s = strconv.FormatFloat(vv, 'f', -1, 64)
		}
	case float32:
		s = strconv.FormatFloat(float64(vv), 'f', -1, 32)
	case int:
		s = strconv.Itoa(vv)
	case int64:
		s = strconv.FormatInt(vv, 10)
	case json.Number:
		s = vv.String()
	case bool:
		s = strconv.FormatBool(vv)
	case time.Time:
		if vv.IsZero() {
			return "", false
		}
		s = vv.Format(time.RFC3339)
	case *time.Time:
		if vv == nil {
			return "", false
		}
		return rawString(*vv)
	default:
		s = fmt.Sprintf("%v", vv)
	}
	s = strings.TrimSpace(s)
	switch s {
	case "", "undefined", "null":
		return "", false
	}
	return s, true
}

// formatDate переводит ISO-дату (YYYY-MM-DD, допускается время после 'T' или пробела)
// в вид DD-MM-YYYY. Некорректный ввод даёт пустую строку.
func formatDate(iso string) string {
	iso = strings.TrimSpace(iso)
	if len(iso) < len(isoLayout) {
		return ""
	}
	if len(iso) > len(isoLayout) {
		switch iso[len(isoLayout)] {
		case 'T', ' ':
		default:
			return ""
		}
	}
	t, err := time.Parse(isoLayout, iso[:len(isoLayout)])
	if err != nil {
		return ""
	}
	return t.Format(displayLayout)
}

// toString приводит результат выражения к строке.
func toString(v any) string {
	s, _ := rawString(v)
	return s
}
