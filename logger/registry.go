package logger

import "sync"

// registry caches component loggers derived from the global logger.
var registry = &componentLoggers{loggers: make(map[string]*Logger)}

type componentLoggers struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

// Get returns the logger for a component, tagging the global logger with
// the component name on first use.
func Get(name string) *Logger {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if l, ok := registry.loggers[name]; ok {
		return l
	}
	l := GetGlobalLogger().WithComponent(name)
	registry.loggers[name] = l
	return l
}

// Register pins the logger returned by Get for name until the next Init.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	registry.loggers[name] = l
	registry.mu.Unlock()
}

func (r *componentLoggers) reset() {
	r.mu.Lock()
	clear(r.loggers)
	r.mu.Unlock()
}
