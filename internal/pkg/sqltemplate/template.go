// Package sqltemplate подставляет переменные окружения в пользовательский SQL.
//
// Подстановка литеральная: строки оборачиваются в одинарные кавычки без экранирования,
// nil превращается в NULL, числа и булевы значения вставляются как есть.
// Пользователь, выполняющий запрос, владеет базой, поэтому параметризация не применяется.
package sqltemplate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Merge заменяет каждое вхождение {{name}} литералом значения.
// Неизвестные плейсхолдеры остаются как есть.
func Merge(template string, vars map[string]any) string {
	if template == "" || len(vars) == 0 {
		return template
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{{"+k+"}}", Literal(vars[k]))
	}
	return out
}

// Literal рендерит значение как SQL-литерал
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case json.Number:
		return val.String()
	case string:
		return "'" + val + "'"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Placeholders возвращает имена переменных, на которые ссылается шаблон, без повторов
func Placeholders(template string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Unresolved - плейсхолдеры шаблона, для которых нет значения в vars
func Unresolved(template string, vars map[string]any) []string {
	var missing []string
	for _, name := range Placeholders(template) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
