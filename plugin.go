package rexx

import (
	"context"
	"fmt"
	"plugin"
)

// RegisterFunctionFromLibrary registers the function symbol exported by
// the Go plugin at library under name. The symbol is either a function
// with the signature of NativeFunction or a variable of that type.
func (s *Session) RegisterFunctionFromLibrary(name, library, symbol string) error {
	p, err := plugin.Open(library)
	if err != nil {
		return fmt.Errorf("rexx: open %s: %w", library, err)
	}
	sym, err := p.Lookup(symbol)
	if err != nil {
		return fmt.Errorf("rexx: %s: %w", library, err)
	}
	fn, err := nativeFunction(sym)
	if err != nil {
		return fmt.Errorf("rexx: %s: %w", library, err)
	}
	s.RegisterFunction(name, fn)
	return nil
}

func nativeFunction(sym any) (NativeFunction, error) {
	switch fn := sym.(type) {
	case NativeFunction:
		return fn, nil
	case *NativeFunction:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	case func(context.Context, string, []Arg) (string, bool, error):
		return fn, nil
	case *func(context.Context, string, []Arg) (string, bool, error):
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("symbol of type %T is not a native function", sym)
}
