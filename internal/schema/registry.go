package schema

import "fmt"

// SymbolID is the numeric identifier for a symbol. IDs are assigned
// densely starting at 1 so payloads stay compact and symbol state can
// live in slices.
type SymbolID uint32

// Symbol describes a tradable instrument by exchange code.
type Symbol struct {
	ID   SymbolID
	Code string
}

// Registry stores symbol mappings in a compact form. It is built once
// at startup from the configured universe and read-only afterwards.
type Registry struct {
	symbols      []Symbol
	symbolByCode map[string]SymbolID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		symbolByCode: make(map[string]SymbolID),
	}
}

// AddSymbol registers a new symbol code and returns its ID.
func (r *Registry) AddSymbol(code string) (SymbolID, error) {
	if code == "" {
		return 0, fmt.Errorf("symbol code is empty")
	}
	if id, ok := r.symbolByCode[code]; ok {
		return id, fmt.Errorf("symbol already exists: %s", code)
	}
	id := SymbolID(len(r.symbols) + 1)
	r.symbols = append(r.symbols, Symbol{ID: id, Code: code})
	r.symbolByCode[code] = id
	return id, nil
}

// Symbol returns the symbol by ID.
func (r *Registry) Symbol(id SymbolID) (Symbol, bool) {
	if id == 0 || int(id) > len(r.symbols) {
		return Symbol{}, false
	}
	return r.symbols[id-1], true
}

// Code returns the exchange code for an ID, or "?" when unknown.
func (r *Registry) Code(id SymbolID) string {
	s, ok := r.Symbol(id)
	if !ok {
		return "?"
	}
	return s.Code
}

// SymbolCount returns the number of symbols in the registry.
func (r *Registry) SymbolCount() int {
	return len(r.symbols)
}

// SymbolAt returns the symbol by zero-based index.
func (r *Registry) SymbolAt(index int) (Symbol, bool) {
	if index < 0 || index >= len(r.symbols) {
		return Symbol{}, false
	}
	return r.symbols[index], true
}

// SymbolIDByCode returns the symbol ID for an exchange code.
func (r *Registry) SymbolIDByCode(code string) (SymbolID, bool) {
	id, ok := r.symbolByCode[code]
	return id, ok
}
