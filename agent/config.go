package agent

// Config returns a copy of the agent's configuration map.
func (a *Agent) Config() map[string]any {
	out := make(map[string]any, len(a.config))
	for k, v := range a.config {
		out[k] = v
	}
	return out
}

// ConfigString returns a string setting, or def when missing or of another type.
func (a *Agent) ConfigString(key, def string) string {
	if v, ok := a.config[key].(string); ok {
		return v
	}
	return def
}

// ConfigInt returns an integer setting. YAML and JSON decoders produce int,
// int64 or float64 depending on the source, all of which are accepted.
func (a *Agent) ConfigInt(key string, def int) int {
	switch v := a.config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// ConfigBool returns a boolean setting, or def.
func (a *Agent) ConfigBool(key string, def bool) bool {
	if v, ok := a.config[key].(bool); ok {
		return v
	}
	return def
}
