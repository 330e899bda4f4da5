package outliers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardanlabs/hampel/hampel"
	"github.com/ardanlabs/hampel/metrics"
)

// Recorder stores request metrics and the detected outliers. Adding a metric
// already stored (same name and time) must not duplicate it.
// *metrics.DB is a Recorder.
type Recorder interface {
	Add(metrics.Metric) error
	SaveOutliers(ctx context.Context, name string, times []time.Time, p hampel.Params) error
}

// Server implements the Outliers service.
type Server struct {
	log *zap.Logger

	m   sync.Mutex // guards rec
	rec Recorder
}

// NewServer returns a new Server, rec can be nil.
func NewServer(log *zap.Logger, rec Recorder) *Server {
	return &Server{
		log: log,
		rec: rec,
	}
}

// Detect returns the outliers of the request metrics.
func (s *Server) Detect(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		s.log.Warn("bad request", zap.Error(err))
		return nil, statusError(err)
	}

	series, name, err := toSeries(req.Metrics)
	if err != nil {
		s.log.Warn("bad metrics", zap.Error(err))
		return nil, statusError(err)
	}

	indices, err := hampel.Detect(series, req.Params)
	if err != nil {
		s.log.Warn("detect", zap.String("name", name), zap.Error(err))
		return nil, statusError(err)
	}

	resp := Response{
		Indices: indices,
		Times:   series.LabelsAt(indices),
	}
	s.log.Debug("detect",
		zap.String("name", name),
		zap.Int("size", series.Len()),
		zap.Ints("indices", indices),
	)

	if err := s.record(ctx, name, req, resp.Times); err != nil {
		s.log.Error("record", zap.String("name", name), zap.Error(err))
		return nil, status.Errorf(codes.Internal, "can't record outliers: %s", err)
	}

	out, err := resp.toStruct()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "can't encode response: %s", err)
	}
	return out, nil
}

// record stores the request metrics and outliers, goroutine safe
func (s *Server) record(ctx context.Context, name string, req Request, times []time.Time) error {
	if s.rec == nil {
		return nil
	}

	s.m.Lock()
	defer s.m.Unlock()

	for _, m := range req.Metrics {
		if err := s.rec.Add(m); err != nil {
			return err
		}
	}
	return s.rec.SaveOutliers(ctx, name, times, req.Params)
}

// toSeries returns metrics as a time labeled series, all metrics must have
// the same, non empty, name.
func toSeries(ms []metrics.Metric) (hampel.Labeled[time.Time], string, error) {
	s := hampel.Labeled[time.Time]{
		Index:  make([]time.Time, len(ms)),
		Values: make([]float64, len(ms)),
	}

	var name string
	for i, m := range ms {
		if m.Name == "" {
			return s, "", fmt.Errorf("%w: metric %d without a name", hampel.ErrInvalidInput, i)
		}
		if i == 0 {
			name = m.Name
		}
		if m.Name != name {
			return s, "", fmt.Errorf("%w: mixed metric names %q and %q", hampel.ErrInvalidInput, name, m.Name)
		}
		s.Index[i] = m.Time
		s.Values[i] = m.Value
	}

	return s, name, nil
}

// statusError converts hampel errors to gRPC status errors.
func statusError(err error) error {
	switch {
	case errors.Is(err, hampel.ErrInvalidInput), errors.Is(err, hampel.ErrInvalidParameter):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, hampel.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
