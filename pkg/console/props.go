package console

import (
	"context"
	"sort"
	"strings"

	"github.com/phroun/pawconsole/pkg/conlog"
)

// Kind is the value type of a view property.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindUint
	KindString
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	}
	return "unknown"
}

// Enum maps enumeration symbols to their integer values.
type Enum map[string]int64

func (e Enum) symbol(n int64) (string, bool) {
	for name, v := range e {
		if v == n {
			return name, true
		}
	}
	return "", false
}

type property struct {
	kind Kind
	enum Enum
	get  func(v *View) any
	set  func(v *View, value any)
}

// LineWrapModes names the lineWrapMode values.
var LineWrapModes = Enum{"NoWrap": int64(NoWrap), "WidgetWidth": int64(WidgetWidth)}

var properties = map[string]property{
	"updateRefreshRate": {
		kind: KindInt,
		get:  func(v *View) any { return int64(v.refreshRate) },
		set:  func(v *View, value any) { v.refreshRate = int(value.(int64)) },
	},
	"maximumBlockCount": {
		kind: KindUint,
		get:  func(v *View) any { return v.maxBlocks },
		set: func(v *View, value any) {
			v.maxBlocks = value.(uint64)
			v.trimBlocks()
			v.scheduleRender()
		},
	},
	"lineWrapMode": {
		kind: KindEnum,
		enum: LineWrapModes,
		get:  func(v *View) any { return int64(v.settings.LineWrap) },
		set: func(v *View, value any) {
			v.settings.LineWrap = LineWrap(value.(int64))
			v.applySettings()
		},
	},
	"readOnly": {
		kind: KindBool,
		get:  func(v *View) any { return v.settings.ReadOnly },
		set: func(v *View, value any) {
			v.settings.ReadOnly = value.(bool)
			v.applySettings()
		},
	},
	"windowTitle": {
		kind: KindString,
		get:  func(v *View) any { return v.Title() },
		set:  func(v *View, value any) { v.SetTitle(value.(string)) },
	},
}

// PropertyNames lists the view properties in sorted order.
func PropertyNames() []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PropertyKind returns the kind of a named property.
func PropertyKind(name string) (Kind, error) {
	p, ok := properties[name]
	if !ok {
		return 0, &PropertyError{Name: name, Err: ErrPropertyNotFound}
	}
	return p.kind, nil
}

// GetProperty reads a view property on the GUI thread. Enums read back as
// their symbol.
func (h *Host) GetProperty(ctx context.Context, v *View, name string) (any, error) {
	p, ok := properties[name]
	if !ok {
		return nil, &PropertyError{Name: name, Err: ErrPropertyNotFound}
	}
	var value any
	err := h.DispatchSync(ctx, v, func(_ context.Context, v *View) {
		value = p.get(v)
	})
	if err != nil {
		return nil, err
	}
	if p.kind == KindEnum {
		if sym, ok := p.enum.symbol(value.(int64)); ok {
			return sym, nil
		}
	}
	return value, nil
}

// SetProperty writes a view property on the GUI thread. The value is
// converted to the property's kind first; a value that does not fit gives
// a PropertyError wrapping ErrTypeMismatch.
func (h *Host) SetProperty(ctx context.Context, v *View, name string, value any) error {
	p, ok := properties[name]
	if !ok {
		return &PropertyError{Name: name, Err: ErrPropertyNotFound}
	}
	converted, ok := convert(p, value)
	if !ok {
		return &PropertyError{Name: name, Err: ErrTypeMismatch}
	}
	err := h.DispatchSync(ctx, v, func(_ context.Context, v *View) {
		p.set(v, converted)
	})
	if err == nil {
		h.log.Info(conlog.CatProperty, "%s = %v", name, value)
	}
	return err
}

func convert(p property, value any) (any, bool) {
	switch p.kind {
	case KindBool:
		b, ok := value.(bool)
		return b, ok
	case KindString:
		s, ok := value.(string)
		return s, ok
	case KindInt:
		return toInt64(value)
	case KindUint:
		switch n := value.(type) {
		case uint:
			return uint64(n), true
		case uint32:
			return uint64(n), true
		case uint64:
			return n, true
		}
		if i, ok := toInt64(value); ok && i >= 0 {
			return uint64(i), true
		}
		return nil, false
	case KindEnum:
		if s, ok := value.(string); ok {
			for name, n := range p.enum {
				if strings.EqualFold(name, s) {
					return n, true
				}
			}
			return nil, false
		}
		if i, ok := toInt64(value); ok {
			if _, known := p.enum.symbol(i); known {
				return i, true
			}
		}
		return nil, false
	}
	return nil, false
}

func toInt64(value any) (int64, bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
