package domain

// Environment связывает источники данных с подключениями и задает переменные шаблонов
type Environment struct {
	ID              int64            `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	Variables       Variables        `json:"variables,omitempty" yaml:"variables"`
	Connections     map[int64]int64  `json:"connections,omitempty" yaml:"connections"`
	SubEnvironments []SubEnvironment `json:"subEnvironments,omitempty" yaml:"subEnvironments"`
}

// SubEnvironment - вложенный набор переменных, перекрывающий переменные окружения
type SubEnvironment struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Variables Variables `json:"variables,omitempty" yaml:"variables"`
}

// ResolveVariables возвращает переменные окружения, перекрытые переменными подокружения.
// subID == 0 означает "без подокружения".
func (e *Environment) ResolveVariables(subID int64) (Variables, bool) {
	out := make(Variables, len(e.Variables))
	for k, v := range e.Variables {
		out[k] = v
	}
	if subID == 0 {
		return out, true
	}
	for _, sub := range e.SubEnvironments {
		if sub.ID != subID {
			continue
		}
		for k, v := range sub.Variables {
			out[k] = v
		}
		return out, true
	}
	return out, false
}

// ConnectionFor возвращает подключение источника данных с учетом переопределения в окружении
func (e *Environment) ConnectionFor(ds DataSource) int64 {
	if e != nil {
		if id, ok := e.Connections[ds.ID]; ok && id != 0 {
			return id
		}
	}
	return ds.DefaultConnectionID
}
