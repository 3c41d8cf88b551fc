package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Тип data-driven свойства
const (
	PropertyCategorical = "categorical"
	PropertyNumeric     = "numeric"
)

// PaintProperty - значение paint-свойства: либо константа, либо привязка к колонке
type PaintProperty struct {
	Value  any    `json:"value,omitempty"`
	Column string `json:"column,omitempty"`
	Type   string `json:"type,omitempty"`
	// Raw - исходное описание data-driven свойства (цвета, интервалы) для рендерера
	Raw json.RawMessage `json:"-"`
}

// DataDriven - свойство вычисляется из колонки результата
func (p *PaintProperty) DataDriven() bool {
	return p != nil && p.Column != ""
}

func (p *PaintProperty) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Column string `json:"column"`
			Type   string `json:"type"`
			Value  any    `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Column, p.Type, p.Value = obj.Column, obj.Type, obj.Value
		p.Raw = append(json.RawMessage(nil), data...)
		return nil
	}
	return json.Unmarshal(data, &p.Value)
}

func (p PaintProperty) MarshalJSON() ([]byte, error) {
	if p.Column == "" {
		return json.Marshal(p.Value)
	}
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(map[string]any{"column": p.Column, "type": p.Type})
}

type CirclePaint struct {
	Color       *PaintProperty `json:"circleColor,omitempty"`
	StrokeColor *PaintProperty `json:"circleStrokeColor,omitempty"`
	StrokeWidth *PaintProperty `json:"circleStrokeWidth,omitempty"`
	Blur        *PaintProperty `json:"circleBlur,omitempty"`
	Opacity     *PaintProperty `json:"circleOpacity,omitempty"`
	Radius      *PaintProperty `json:"circleRadius,omitempty"`
}

type LinePaint struct {
	Color   *PaintProperty `json:"lineColor,omitempty"`
	Width   *PaintProperty `json:"lineWidth,omitempty"`
	Blur    *PaintProperty `json:"lineBlur,omitempty"`
	Opacity *PaintProperty `json:"lineOpacity,omitempty"`
}

type FillPaint struct {
	Color        *PaintProperty `json:"fillColor,omitempty"`
	OutlineColor *PaintProperty `json:"fillOutlineColor,omitempty"`
	Opacity      *PaintProperty `json:"fillOpacity,omitempty"`
}

type FillExtrusionPaint struct {
	Color   *PaintProperty `json:"fillExtrusionColor,omitempty"`
	Height  *PaintProperty `json:"fillExtrusionHeight,omitempty"`
	Opacity *PaintProperty `json:"fillExtrusionOpacity,omitempty"`
}

// Style - стиль слоя. Заполнен ровно один paint-набор, соответствующий Kind.
type Style struct {
	Kind          GeometryKind
	Circle        *CirclePaint
	Line          *LinePaint
	Fill          *FillPaint
	FillExtrusion *FillExtrusionPaint
}

// ParseStyle разбирает сохраненный стиль (плоский объект с camelCase ключами).
// Берутся только ключи набора, соответствующего kind; остальные игнорируются.
func ParseStyle(kind GeometryKind, raw []byte) (Style, error) {
	style := Style{Kind: kind}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return style, nil
	}

	var target any
	switch kind {
	case KindPoint:
		style.Circle = &CirclePaint{}
		target = style.Circle
	case KindLine:
		style.Line = &LinePaint{}
		target = style.Line
	case KindPolygon:
		style.Fill = &FillPaint{}
		target = style.Fill
	case KindExtrudedPolygon:
		style.FillExtrusion = &FillExtrusionPaint{}
		target = style.FillExtrusion
	default:
		return style, fmt.Errorf("style: unknown geometry kind %q", kind)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return style, fmt.Errorf("style: %w", err)
	}
	return style, nil
}

func (s Style) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case KindPoint:
		return json.Marshal(s.Circle)
	case KindLine:
		return json.Marshal(s.Line)
	case KindPolygon:
		return json.Marshal(s.Fill)
	case KindExtrudedPolygon:
		return json.Marshal(s.FillExtrusion)
	}
	return []byte("null"), nil
}

// Properties возвращает свойства активного набора в фиксированном порядке
func (s Style) Properties() []*PaintProperty {
	switch {
	case s.Kind == KindPoint && s.Circle != nil:
		c := s.Circle
		return []*PaintProperty{c.Color, c.StrokeColor, c.StrokeWidth, c.Blur, c.Opacity, c.Radius}
	case s.Kind == KindLine && s.Line != nil:
		l := s.Line
		return []*PaintProperty{l.Color, l.Width, l.Blur, l.Opacity}
	case s.Kind == KindPolygon && s.Fill != nil:
		f := s.Fill
		return []*PaintProperty{f.Color, f.OutlineColor, f.Opacity}
	case s.Kind == KindExtrudedPolygon && s.FillExtrusion != nil:
		f := s.FillExtrusion
		return []*PaintProperty{f.Color, f.Height, f.Opacity}
	}
	return nil
}

// Columns - колонки, нужные data-driven свойствам стиля, без повторов
func (s Style) Columns() []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, p := range s.Properties() {
		if !p.DataDriven() {
			continue
		}
		name := strings.TrimSpace(p.Column)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cols = append(cols, name)
	}
	return cols
}
