package bridge

// execOptions carries the per-statement flags. The zero value matches the
// default behavior: no commit, close the session afterwards, return the
// full result.
type execOptions struct {
	one      bool
	commit   bool
	keepOpen bool
}

// Option adjusts how a single Execute call behaves.
type Option func(*execOptions)

// One cuts the returned rowset down to its first row. An empty result
// becomes an error.
func One() Option {
	return func(o *execOptions) { o.one = true }
}

// Commit makes the statement's work durable before the call returns.
func Commit() Option {
	return func(o *execOptions) { o.commit = true }
}

// KeepOpen leaves the session open after the statement instead of closing
// it, so later statements reuse it and uncommitted work survives.
func KeepOpen() Option {
	return func(o *execOptions) { o.keepOpen = true }
}

func applyOptions(opts []Option) execOptions {
	var options execOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
