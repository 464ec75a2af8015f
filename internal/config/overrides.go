package config

import "sync"

// Overrides layers values from the environment and command-line flags over
// a base store. Reads prefer an override; writes go to the base and drop
// the override for that key.
type Overrides struct {
	mu     sync.RWMutex
	base   Preferences
	values map[string]any
}

// WithOverrides wraps base. A nil map is treated as empty.
func WithOverrides(base Preferences, values map[string]any) *Overrides {
	o := &Overrides{base: base, values: make(map[string]any, len(values))}
	for k, v := range values {
		o.values[k] = v
	}
	return o
}

// Set adds or replaces an override
func (o *Overrides) Set(key string, value any) {
	o.mu.Lock()
	o.values[key] = value
	o.mu.Unlock()
}

func (o *Overrides) lookup(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.values[key]
	return v, ok
}

func (o *Overrides) drop(key string) {
	o.mu.Lock()
	delete(o.values, key)
	o.mu.Unlock()
}

func (o *Overrides) String(key string) string {
	if v, ok := o.lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return o.base.String(key)
}

func (o *Overrides) SetString(key string, value string) {
	o.drop(key)
	o.base.SetString(key, value)
}

func (o *Overrides) Int(key string) int {
	if v, ok := o.lookup(key); ok {
		if i, ok := v.(int); ok {
			return i
		}
	}
	return o.base.Int(key)
}

func (o *Overrides) SetInt(key string, value int) {
	o.drop(key)
	o.base.SetInt(key, value)
}

func (o *Overrides) BoolWithFallback(key string, fallback bool) bool {
	if v, ok := o.lookup(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return o.base.BoolWithFallback(key, fallback)
}

func (o *Overrides) SetBool(key string, value bool) {
	o.drop(key)
	o.base.SetBool(key, value)
}
