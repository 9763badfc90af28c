package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/richard-senior/matchpredict/internal/processor"
	"github.com/richard-senior/matchpredict/pkg/podds"
)

// DefaultTimeout bounds a single tool call
const DefaultTimeout = 5 * time.Minute

// Toolbox binds the tool handlers to a processor
type Toolbox struct {
	Processor *processor.Processor
	Timeout   time.Duration
}

func NewToolbox(p *processor.Processor) *Toolbox {
	return &Toolbox{Processor: p, Timeout: DefaultTimeout}
}

func (tb *Toolbox) context() (context.Context, context.CancelFunc) {
	if tb.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), tb.Timeout)
}

// argsMap converts tool params to a map of arguments
func argsMap(params any) (map[string]any, error) {
	if params == nil {
		return nil, fmt.Errorf("no params given")
	}
	m, ok := params.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("couldn't format the parameters as a map")
	}
	return m, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// intArg reads an integral number. Missing arguments give 0.
func intArg(args map[string]any, name string) (int, error) {
	switch v := args[name].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a whole number"}
		}
		if math.Abs(v) > math.MaxInt32 {
			return 0, &podds.InvalidParameterError{Name: name, Value: v, Reason: "out of range"}
		}
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a whole number"}
		}
		return n, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a whole number"}
		}
		return n, nil
	default:
		return 0, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a number"}
	}
}

// maxExactFloat is the largest integer a JSON number decoded as float64 keeps exactly
const maxExactFloat = 1 << 53

// seedArg reads a non-negative seed. Seeds above 2^53 must be passed as a
// decimal string. Returns nil when the argument is absent.
func seedArg(args map[string]any, name string) (*uint64, error) {
	var seed uint64
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case float64:
		if v != math.Trunc(v) || v < 0 || v > maxExactFloat {
			return nil, &podds.InvalidParameterError{Name: name, Value: v,
				Reason: "must be a whole number between 0 and 2^53, pass larger seeds as a string"}
		}
		seed = uint64(v)
	case int:
		if v < 0 {
			return nil, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must not be negative"}
		}
		seed = uint64(v)
	case json.Number, string:
		str := strings.TrimSpace(fmt.Sprint(v))
		n, err := strconv.ParseUint(str, 10, 64)
		if err != nil {
			return nil, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a non-negative 64 bit integer"}
		}
		seed = n
	default:
		return nil, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a number"}
	}
	return &seed, nil
}

// boolArg returns nil when the argument is absent
func boolArg(args map[string]any, name string) (*bool, error) {
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be true or false"}
		}
		return &b, nil
	default:
		return nil, &podds.InvalidParameterError{Name: name, Value: v, Reason: "must be a boolean"}
	}
}
