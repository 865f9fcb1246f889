package harness

import (
	"fmt"
	"math"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Command, ev.Target, ev.Detail)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns one
// message per failure. A flow failure that no error_code assertion expects
// is itself reported.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var msgs []string
	expectsFailure := false
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertBufferEquals:
			err = assertBufferEquals(result, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertErrorCode:
			expectsFailure = true
			err = assertErrorCode(result, a)
		case AssertCompiles:
			err = assertCompiles(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if result.Failure != nil && !expectsFailure {
		msgs = append(msgs, fmt.Sprintf("unexpected failure at step %d: %s", result.Failure.Step, result.Failure.Message))
	}
	return msgs
}

func assertBufferEquals(result *Result, a Assertion) error {
	got, ok := result.values[a.Buffer]
	if !ok {
		return &AssertionError{
			Type:     AssertBufferEquals,
			Expected: fmt.Sprintf("buffer %s to be read", a.Buffer),
			Actual:   "no completed read",
			Trace:    result.Trace,
		}
	}
	want, err := parseAssertValues(a.Values)
	if err != nil {
		return err
	}
	if len(got) != len(want) {
		return &AssertionError{
			Type:     AssertBufferEquals,
			Expected: fmt.Sprintf("%d elements in %s", len(want), a.Buffer),
			Actual:   fmt.Sprintf("%d elements", len(got)),
		}
	}
	for i := range want {
		if !rowEqual(got[i], want[i], a.Tolerance) {
			return &AssertionError{
				Type:     AssertBufferEquals,
				Expected: fmt.Sprintf("%s[%d] = %v", a.Buffer, i, want[i]),
				Actual:   result.Buffers[a.Buffer][i],
			}
		}
	}
	return nil
}

// parseAssertValues parses expected values without a kind; the component
// count is checked against the actual rows.
func parseAssertValues(raw []any) ([][]float64, error) {
	rows := make([][]float64, len(raw))
	for i, item := range raw {
		if list, ok := item.([]any); ok {
			row := make([]float64, len(list))
			for c, comp := range list {
				x, err := toNumber(comp)
				if err != nil {
					return nil, fmt.Errorf("values[%d][%d]: %w", i, c, err)
				}
				row[c] = x
			}
			rows[i] = row
			continue
		}
		x, err := toNumber(item)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		rows[i] = []float64{x}
	}
	return rows, nil
}

func rowEqual(got, want []float64, tol float64) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			return false
		}
	}
	return true
}

// assertTraceOrder checks that the named commands completed in order.
// Entries are "kind target", for example "run copy". Other commands may
// appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Commands) && a.Commands[next] == ev.Command+" "+ev.Target {
			next++
		}
	}
	if next == len(a.Commands) {
		return nil
	}
	actual := make([]string, len(trace))
	for i, ev := range trace {
		actual[i] = ev.Command + " " + ev.Target
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Commands, ", "),
		Actual:   strings.Join(actual, ", "),
		Trace:    trace,
	}
}

func assertErrorCode(result *Result, a Assertion) error {
	if result.Failure == nil {
		return &AssertionError{Type: AssertErrorCode, Expected: a.Code, Actual: "no failure"}
	}
	if result.Failure.Code != a.Code {
		return &AssertionError{Type: AssertErrorCode, Expected: a.Code, Actual: result.Failure.Code + ": " + result.Failure.Message}
	}
	if a.Step != nil && *a.Step != result.Failure.Step {
		return &AssertionError{
			Type:     AssertErrorCode,
			Expected: fmt.Sprintf("%s at step %d", a.Code, *a.Step),
			Actual:   fmt.Sprintf("%s at step %d", result.Failure.Code, result.Failure.Step),
		}
	}
	return nil
}

func assertCompiles(result *Result, a Assertion) error {
	if result.Compiles != a.Count {
		return &AssertionError{
			Type:     AssertCompiles,
			Expected: fmt.Sprintf("%d native compiles", a.Count),
			Actual:   fmt.Sprintf("%d", result.Compiles),
		}
	}
	return nil
}
