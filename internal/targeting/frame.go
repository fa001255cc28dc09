package targeting

// Frame is the data the "var" operator resolves against: the caller's
// evaluation context fields plus the reserved "$flagd" namespace exposed
// during evaluation of a flag.
type Frame struct {
	Data map[string]any
}

// NewFrame builds a Frame from context fields, augmented with
// $flagd.flagKey and $flagd.timestamp.
func NewFrame(contextFields map[string]any, flagKey string, unixSeconds int64) Frame {
	data := make(map[string]any, len(contextFields)+1)
	for k, v := range contextFields {
		data[k] = v
	}
	data["$flagd"] = map[string]any{
		"flagKey":   flagKey,
		"timestamp": unixSeconds,
	}
	return Frame{Data: data}
}

// FlagKey returns the current flag key from the reserved $flagd namespace,
// or "" if absent (e.g. evaluating outside a flag context, such as in
// tests).
func (f Frame) FlagKey() string {
	flagd, ok := f.Data["$flagd"].(map[string]any)
	if !ok {
		return ""
	}
	key, _ := flagd["flagKey"].(string)
	return key
}

// TargetingKey returns the "targetingKey" field from the frame, the
// conventional field name EvaluationContext.AsMap exposes it under.
func (f Frame) TargetingKey() string {
	key, _ := f.Data["targetingKey"].(string)
	return key
}
