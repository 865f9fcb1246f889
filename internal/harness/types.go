package harness

// TraceEvent is one executed command.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Command string `json:"command"` // "write", "read" or "run"
	Target  string `json:"target"`  // buffer name, or kernel name for run
	Detail  string `json:"detail,omitempty"`
}

// Failure is the error that stopped a flow.
type Failure struct {
	// Step is the flow index of the failing step, or -1 when the failure
	// happened before submission (for example a translation error).
	Step    int    `json:"step"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists the commands that completed, in order.
	Trace []TraceEvent `json:"trace"`

	// Buffers holds the formatted elements of the last read of each buffer.
	Buffers map[string][]string `json:"buffers"`

	// Sources maps kernel names to generated source.
	Sources map[string]string `json:"sources,omitempty"`

	// Keys maps kernel names to structural program keys.
	Keys map[string]string `json:"keys,omitempty"`

	// Compiles is the number of native compilations the provider performed.
	Compiles int `json:"compiles"`

	Failure *Failure `json:"failure,omitempty"`

	Errors []string `json:"errors,omitempty"`

	// values holds unformatted read results for assertions.
	values map[string][][]float64
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Buffers: map[string][]string{},
		Sources: map[string]string{},
		Keys:    map[string]string{},
		Errors:  []string{},
		values:  map[string][][]float64{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a completed command.
func (r *Result) AddTrace(seq int64, command, target, detail string) {
	r.Trace = append(r.Trace, TraceEvent{Seq: seq, Command: command, Target: target, Detail: detail})
}
