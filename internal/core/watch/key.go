package watch

// Key joins a scope (type, package, controller) and an operation name into
// the conventional "{scope}.{name}" statistics key.
func Key(scope, name string) string {
	if scope == "" {
		return name
	}
	if name == "" {
		return scope
	}
	return scope + "." + name
}
