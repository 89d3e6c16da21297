package core

import "pkt.systems/pslog"

// Diagnostic reports an operation that was ignored because its inputs did not
// resolve. The store state is unchanged when a diagnostic is emitted.
type Diagnostic struct {
	Op    string
	Err   error
	Attrs map[string]any
}

func logDiagnostics(logger pslog.Logger) func(Diagnostic) {
	return func(d Diagnostic) {
		keyvals := make([]any, 0, 4+2*len(d.Attrs))
		keyvals = append(keyvals, "op", d.Op, "err", d.Err)
		for k, v := range d.Attrs {
			keyvals = append(keyvals, k, v)
		}
		logger.Debug("store operation ignored", keyvals...)
	}
}
