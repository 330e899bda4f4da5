// Package api provides the HTTP interface for storing metrics and querying
// their outliers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ardanlabs/hampel/hampel"
	"github.com/ardanlabs/hampel/metrics"
)

// Store is where metrics are kept, *metrics.DB is a Store.
type Store interface {
	Add(metrics.Metric) error
	Series(ctx context.Context, name string) (hampel.Labeled[time.Time], error)
	SaveOutliers(ctx context.Context, name string, times []time.Time, p hampel.Params) error
}

// Outliers is the reply of GET /outliers.
type Outliers struct {
	Name    string      `json:"name"`
	Indices []int       `json:"indices"`
	Times   []time.Time `json:"times"`
	Lower   []float64   `json:"lower"`
	Upper   []float64   `json:"upper"`
}

// Handler serves:
//
//	POST /metric    store a metric
//	GET  /outliers  outliers of a metric, ?name=CPU[&window_size=5&n_sigma=3&c=1.4826]
//	GET  /health
type Handler struct {
	log    *zap.Logger
	params hampel.Params
	mux    *http.ServeMux

	m  sync.Mutex // guards db
	db Store
}

// NewHandler returns a handler using db. p are the default filter parameters.
func NewHandler(log *zap.Logger, db Store, p hampel.Params) *Handler {
	h := Handler{
		log:    log,
		params: p,
		db:     db,
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("/metric", h.handleMetric)
	h.mux.HandleFunc("/outliers", h.handleOutliers)
	h.mux.HandleFunc("/health", h.handleHealth)
	return &h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleMetric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()

	var m metrics.Metric
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		h.log.Warn("json decode", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if m.Name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	if m.Time.IsZero() {
		m.Time = time.Now().UTC()
	}

	if err := h.insert(m); err != nil {
		h.log.Error("add", zap.String("name", m.Name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Write([]byte("OK\n"))
}

// insert metric to database, goroutine safe
func (h *Handler) insert(m metrics.Metric) error {
	h.m.Lock()
	defer h.m.Unlock()
	return h.db.Add(m)
}

func (h *Handler) handleOutliers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}

	p, err := h.queryParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := h.detect(r.Context(), name, p)
	switch {
	case errors.Is(err, hampel.ErrInvalidInput), errors.Is(err, hampel.ErrInvalidParameter):
		h.log.Warn("detect", zap.String("name", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error("detect", zap.String("name", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		h.log.Error("json encode", zap.Error(err))
	}
}

// queryParams returns the handler parameters overridden by the query.
func (h *Handler) queryParams(r *http.Request) (hampel.Params, error) {
	p := h.params
	q := r.URL.Query()

	if v := q.Get("window_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.New("window_size must be an integer")
		}
		p.WindowSize = n
	}

	for key, dest := range map[string]*float64{"n_sigma": &p.NSigma, "c": &p.C} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, errors.New(key + " must be a number")
		}
		*dest = f
	}

	return p, p.Validate()
}

// detect runs the filter over the stored series of name and records the
// outliers.
func (h *Handler) detect(ctx context.Context, name string, p hampel.Params) (Outliers, error) {
	f, err := hampel.New(p)
	if err != nil {
		return Outliers{}, err
	}

	h.m.Lock()
	defer h.m.Unlock()

	series, err := h.db.Series(ctx, name)
	if err != nil {
		return Outliers{}, err
	}

	if _, err := f.Apply(series); err != nil {
		return Outliers{}, err
	}

	indices, err := f.Indices()
	if err != nil {
		return Outliers{}, err
	}
	lower, upper, err := f.Boundaries()
	if err != nil {
		return Outliers{}, err
	}

	out := Outliers{
		Name:    name,
		Indices: indices,
		Times:   series.LabelsAt(indices),
		Lower:   lower,
		Upper:   upper,
	}

	if err := h.db.SaveOutliers(ctx, name, out.Times, p); err != nil {
		return Outliers{}, err
	}
	h.log.Info("outliers", zap.String("name", name), zap.Int("size", series.Len()), zap.Int("count", len(indices)))

	return out, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK\n"))
}
