package server

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/tyler180/nfl-rushing-stats/internal/pfr"
	"github.com/tyler180/nfl-rushing-stats/internal/pipeline"
	"github.com/tyler180/nfl-rushing-stats/internal/stats"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html.tmpl"))

var errBadYear = errors.New("year not offered")

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type downloadJSON struct {
	Filename string `json:"filename"`
	Href     string `json:"href"`
}

type viewJSON struct {
	Year              int          `json:"year"`
	Rows              int          `json:"rows"`
	Cols              int          `json:"cols"`
	Dimension         string       `json:"dimension"`
	Table             stats.Table  `json:"table"`
	TeamOptions       []string     `json:"team_options"`
	Positions         []string     `json:"positions"`
	SelectedTeams     []string     `json:"selected_teams"`
	SelectedPositions []string     `json:"selected_positions"`
	Download          downloadJSON `json:"download"`
	Error             string       `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "rushing-dashboard",
	})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"years": s.years})
}

func (s *Server) handleRushing(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := s.run.Run(r.Context(), req)
	respondJSON(w, http.StatusOK, viewJSON{
		Year:              v.Year,
		Rows:              v.Rows,
		Cols:              v.Cols,
		Dimension:         v.Dimension(),
		Table:             v.Table,
		TeamOptions:       nonNil(v.TeamOptions),
		Positions:         v.Positions,
		SelectedTeams:     v.Selection.Teams.Sorted(),
		SelectedPositions: v.Selection.Positions.Sorted(),
		Download:          downloadJSON{Filename: v.Artifact.Filename, Href: v.Artifact.Href()},
		Error:             v.Error,
	})
}

func (s *Server) handleRushingCSV(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	v := s.run.Run(r.Context(), req)
	if v.Error != "" {
		respondError(w, http.StatusBadGateway, v.Error)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, v.Artifact.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(v.Artifact.CSV))
}

type teamOption struct {
	Abbr     string
	Name     string
	Selected bool
}

type posOption struct {
	Code     string
	Selected bool
}

type cell struct {
	Text string
	Href string
}

type yearOption struct {
	Year     int
	Selected bool
}

type indexPage struct {
	View      pipeline.View
	Years     []yearOption
	Teams     []teamOption
	Positions []posOption
	Header    []string
	Records   [][]cell
	Download  template.HTML
	Error     string
	NoData    bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v := s.run.Run(r.Context(), req)

	page := indexPage{View: v, Header: v.Table.Columns}
	for _, y := range s.years {
		page.Years = append(page.Years, yearOption{Year: y, Selected: y == v.Year})
	}
	for _, abbr := range v.TeamOptions {
		page.Teams = append(page.Teams, teamOption{
			Abbr:     abbr,
			Name:     pfr.TeamName(abbr, v.Year),
			Selected: v.Selection.Teams.Has(abbr),
		})
	}
	for _, p := range v.Positions {
		page.Positions = append(page.Positions, posOption{Code: p, Selected: v.Selection.Positions.Has(p)})
	}
	for i := range v.Table.Rows {
		page.Records = append(page.Records, recordCells(v.Table, i, v.Year))
	}
	page.Error = v.Error
	page.NoData = v.NoData()
	if !page.NoData {
		// Anchor escapes its attributes; data: URIs would otherwise become #ZgotmplZ
		page.Download = template.HTML(v.Artifact.Anchor())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, page); err != nil {
		s.logger.ErrorContext(r.Context(), "render index", "err", err)
	}
}

// recordCells renders row i, linking franchise codes in Tm to their season page.
func recordCells(t stats.Table, i, year int) []cell {
	rec := t.Record(i)
	out := make([]cell, len(rec))
	for j, text := range rec {
		out[j] = cell{Text: text}
		if t.Columns[j] == stats.ColTeam {
			if u, ok := pfr.TeamURL(text, year); ok {
				out[j].Href = u
			}
		}
	}
	return out
}

// parseRequest reads year, team and pos. An absent team/pos parameter means
// the default selection; a present but blank one means the empty set.
// Team codes belong to the season in "shown": when the form is resubmitted
// for another year they are dropped and the new season's teams apply.
func (s *Server) parseRequest(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := pipeline.Request{Year: s.defaultYear()}

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("bad year %q", raw)
		}
		req.Year = y
	}
	if !s.allow[req.Year] {
		return pipeline.Request{}, fmt.Errorf("%w: %d", errBadYear, req.Year)
	}

	req.Teams = setParam(q["team"])
	if shown := strings.TrimSpace(q.Get("shown")); shown != "" && shown != strconv.Itoa(req.Year) {
		req.Teams = nil
	}
	req.Positions = setParam(q["pos"])
	return req, nil
}

func (s *Server) defaultYear() int {
	if len(s.years) == 0 {
		return 0
	}
	return s.years[0]
}

// setParam merges repeated and comma-separated values; nil when absent.
func setParam(vals []string) stats.Set {
	if vals == nil {
		return nil
	}
	out := stats.Set{}
	for _, v := range vals {
		for k := range stats.ParseSet(v) {
			out[k] = struct{}{}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
