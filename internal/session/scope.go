// Package session tracks which conversation is active for a page
// context and keeps that binding persisted per scope.
package session

// Scope is the namespace a conversation binding is persisted under.
// A page either runs the global assistant or is pinned to one open
// document; the scope never changes for the lifetime of the page.
type Scope struct {
	document string
}

// GlobalScope returns the scope for the global assistant.
func GlobalScope() Scope {
	return Scope{}
}

// DocumentScope returns the scope pinned to the named document.
func DocumentScope(filename string) Scope {
	return Scope{document: filename}
}

// Resolve picks the scope for a page context. An empty document name
// always resolves to the global scope.
func Resolve(document string) Scope {
	if document == "" {
		return GlobalScope()
	}
	return DocumentScope(document)
}

// IsGlobal reports whether this is the global scope.
func (s Scope) IsGlobal() bool {
	return s.document == ""
}

// Document returns the pinned document name, or "" for the global scope.
func (s Scope) Document() string {
	return s.document
}

// Key returns the durable storage key the binding lives under.
func (s Scope) Key() string {
	if s.document == "" {
		return "conversation:global"
	}
	return "conversation:document:" + s.document
}

// String returns a short label for logs.
func (s Scope) String() string {
	if s.document == "" {
		return "global"
	}
	return "document:" + s.document
}
