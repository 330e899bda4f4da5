package outliers

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardanlabs/hampel/hampel"
	"github.com/ardanlabs/hampel/metrics"
)

// Request is an outlier detection request for a single metric series.
type Request struct {
	Metrics []metrics.Metric
	Params  hampel.Params
}

// Response holds the outliers positions in the request metrics and their
// times.
type Response struct {
	Indices []int
	Times   []time.Time
}

// Struct layout:
//
//	request:  {metrics: [{time, name, value}], window_size, n_sigma, c}
//	response: {indices: [], times: []}
//
// Times are RFC 3339 strings with nanoseconds.

func (r Request) toStruct() (*structpb.Struct, error) {
	ms := make([]interface{}, len(r.Metrics))
	for i, m := range r.Metrics {
		ms[i] = map[string]interface{}{
			"time":  m.Time.UTC().Format(time.RFC3339Nano),
			"name":  m.Name,
			"value": m.Value,
		}
	}

	return structpb.NewStruct(map[string]interface{}{
		"metrics":     ms,
		"window_size": r.Params.WindowSize,
		"n_sigma":     r.Params.NSigma,
		"c":           r.Params.C,
	})
}

func requestFromStruct(s *structpb.Struct) (Request, error) {
	var r Request

	mv, ok := s.GetFields()["metrics"]
	if !ok {
		return r, fmt.Errorf("%w: missing metrics", hampel.ErrInvalidInput)
	}
	list := mv.GetListValue()
	if list == nil {
		return r, fmt.Errorf("%w: metrics must be a list", hampel.ErrInvalidInput)
	}

	for i, v := range list.GetValues() {
		m, err := metricFromValue(v)
		if err != nil {
			return r, fmt.Errorf("metric %d: %w", i, err)
		}
		r.Metrics = append(r.Metrics, m)
	}

	raw := make(map[string]any)
	for _, key := range []string{"window_size", "n_sigma", "c"} {
		v, ok := s.GetFields()[key]
		if !ok {
			continue
		}
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return r, fmt.Errorf("%w: %s must be a number", hampel.ErrInvalidParameter, key)
		}
		raw[key] = v.GetNumberValue()
	}

	// JSON numbers have no integer type, a whole window_size is an integer
	if f, ok := raw["window_size"].(float64); ok {
		if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return r, fmt.Errorf("%w: window_size must be an integer, got %v", hampel.ErrInvalidParameter, f)
		}
		raw["window_size"] = int(f)
	}

	p, err := hampel.ParseParams(raw)
	if err != nil {
		return r, err
	}
	r.Params = p

	return r, nil
}

func metricFromValue(v *structpb.Value) (metrics.Metric, error) {
	var m metrics.Metric

	st := v.GetStructValue()
	if st == nil {
		return m, fmt.Errorf("%w: metric must be an object", hampel.ErrInvalidInput)
	}
	fields := st.GetFields()

	ts, err := time.Parse(time.RFC3339Nano, fields["time"].GetStringValue())
	if err != nil {
		return m, fmt.Errorf("%w: bad time: %s", hampel.ErrInvalidInput, err)
	}

	value, ok := fields["value"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return m, fmt.Errorf("%w: value must be a number", hampel.ErrInvalidInput)
	}

	m.Time = ts
	m.Name = fields["name"].GetStringValue()
	m.Value = value.NumberValue
	return m, nil
}

func (r Response) toStruct() (*structpb.Struct, error) {
	indices := make([]interface{}, len(r.Indices))
	for i, idx := range r.Indices {
		indices[i] = idx
	}

	times := make([]interface{}, len(r.Times))
	for i, t := range r.Times {
		times[i] = t.UTC().Format(time.RFC3339Nano)
	}

	return structpb.NewStruct(map[string]interface{}{
		"indices": indices,
		"times":   times,
	})
}

func responseFromStruct(s *structpb.Struct) (Response, error) {
	var r Response

	for _, v := range s.GetFields()["indices"].GetListValue().GetValues() {
		r.Indices = append(r.Indices, int(v.GetNumberValue()))
	}

	for _, v := range s.GetFields()["times"].GetListValue().GetValues() {
		t, err := time.Parse(time.RFC3339Nano, v.GetStringValue())
		if err != nil {
			return r, fmt.Errorf("bad outlier time: %w", err)
		}
		r.Times = append(r.Times, t)
	}

	return r, nil
}
