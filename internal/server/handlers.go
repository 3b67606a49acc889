package server

import (
	"encoding/json"
	"net/http"
	"runtime"

	"github.com/matzehuels/windprofile/pkg/buildinfo"
	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/pipeline"
	"github.com/matzehuels/windprofile/pkg/wind"
)

// DepthRequest asks for τ at (p, z). Without z the depth along the whole
// ray p is returned.
type DepthRequest struct {
	Wind    wind.Config `json:"wind"`
	P       float64     `json:"p"`
	Z       *float64    `json:"z,omitempty"`
	Coarsen float64     `json:"coarsen,omitempty"`
}

// PointsRequest asks for τ at the paired coordinates (p[k], z[k]).
type PointsRequest struct {
	Wind    wind.Config `json:"wind"`
	P       []float64   `json:"p"`
	Z       []float64   `json:"z"`
	Coarsen float64     `json:"coarsen,omitempty"`
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid request body: %v", err)
	}
	return nil
}

// decodeOptions reads pipeline options and bounds the requested workers
// to the CPUs of the server.
func decodeOptions(r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	if err := decode(r, &opts); err != nil {
		return opts, err
	}
	if n := runtime.GOMAXPROCS(0); opts.Workers <= 0 || opts.Workers > n {
		opts.Workers = n
	}
	return opts, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.counters == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeNotFound, "statistics are not enabled"))
		return
	}
	writeJSON(w, http.StatusOK, s.counters.Snapshot())
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	var req DepthRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := pipeline.Options{Wind: req.Wind, Coarsen: req.Coarsen}

	var (
		res *pipeline.DepthResult
		err error
	)
	if req.Z == nil {
		res, err = s.runner.TotalDepth(r.Context(), opts, req.P)
	} else {
		res, err = s.runner.Depth(r.Context(), opts, req.P, *req.Z)
	}
	s.respond(w, r, res, err)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	var req PointsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := pipeline.Options{Wind: req.Wind, Coarsen: req.Coarsen, Workers: runtime.GOMAXPROCS(0)}
	res, err := s.runner.Points(r.Context(), opts, req.P, req.Z)
	s.respond(w, r, res, err)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Grid(r.Context(), opts)
	s.respond(w, r, res, err)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Compare(r.Context(), opts)
	s.respond(w, r, res, err)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Profile(r.Context(), opts)
	s.respond(w, r, res, err)
}

func (s *Server) handleTransmission(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Transmission(r.Context(), opts)
	s.respond(w, r, res, err)
}

func (s *Server) handleLuminosity(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Luminosity(r.Context(), opts)
	s.respond(w, r, res, err)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Sweep(r.Context(), opts, nil)
	s.respond(w, r, res, err)
}

// respond writes res, or the error if err is set.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, res any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
