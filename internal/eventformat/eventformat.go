// Package eventformat namespaces application event names the way the
// broadcasting server names them.
package eventformat

import "strings"

// DefaultNamespace is prepended to event names which are not absolute.
const DefaultNamespace = "App.Events"

// Formatter formats event names against a namespace.
type Formatter struct {
	namespace string
}

// New creates Formatter. An empty namespace disables prefixing.
func New(namespace string) *Formatter {
	return &Formatter{namespace: namespace}
}

// Namespace returns the configured namespace.
func (f *Formatter) Namespace() string {
	return f.namespace
}

// Format returns the wire name of an event. Names starting with "." or "\"
// are absolute: the leading character is stripped and no namespace is added.
// Dots in the result are replaced with backslashes.
func (f *Formatter) Format(event string) string {
	if strings.HasPrefix(event, ".") || strings.HasPrefix(event, `\`) {
		return event[1:]
	}
	if f.namespace != "" {
		event = f.namespace + "." + event
	}
	return strings.ReplaceAll(event, ".", `\`)
}
