// Package web contains the HTTP frontend of the employee directory
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/empdir/pkg/employee"
	"github.com/Luzifer/empdir/pkg/resolver"
	"github.com/Luzifer/empdir/pkg/storage"
	"github.com/Luzifer/empdir/pkg/theme"
)

//go:embed templates/*.html
var templateFS embed.FS

type (
	// Config holds the settings fixed at startup
	Config struct {
		Color    theme.Color
		UserName string
	}

	// BackgroundResolver yields the URL of the page background image
	BackgroundResolver interface {
		BackgroundURL(ctx context.Context) string
	}

	// EmployeeStore persists employee records
	EmployeeStore interface {
		Add(ctx context.Context, e employee.Employee) error
		Get(ctx context.Context, id string) (employee.Employee, error)
		Ping(ctx context.Context) error
	}

	// Server serves the pages of the directory
	Server struct {
		cfg        Config
		background BackgroundResolver
		employees  EmployeeStore
		images     storage.Storage
		tpl        *template.Template
	}

	pageData struct {
		Title           string
		Color           template.CSS
		ColorName       string
		BackgroundImage string
		UserName        string

		Name     string
		Employee employee.Employee
	}
)

// New creates a Server. images is the cache the background resolver
// stores its downloads in.
func New(cfg Config, background BackgroundResolver, employees EmployeeStore, images storage.Storage) (*Server, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}

	return &Server{
		cfg:        cfg,
		background: background,
		employees:  employees,
		images:     images,
		tpl:        tpl,
	}, nil
}

// Router returns the handler serving all routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleAddForm).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/about", s.handleAbout).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/addemp", s.handleAddEmployee).Methods(http.MethodPost)
	r.HandleFunc("/getemp", s.handleGetForm).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/fetchdata", s.handleFetchEmployee).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc(resolver.LocalURLPrefix+"{filename}", s.handleImage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return r
}

func (s *Server) page(r *http.Request, title string) pageData {
	return pageData{
		Title:           title,
		Color:           template.CSS(s.cfg.Color.Code), //#nosec:G203 // Color codes are a fixed set
		ColorName:       s.cfg.Color.Name,
		BackgroundImage: s.background.BackgroundURL(r.Context()),
		UserName:        s.cfg.UserName,
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	buf := new(bytes.Buffer)
	if err := s.tpl.ExecuteTemplate(buf, name, data); err != nil {
		logrus.WithError(err).WithField("template", name).Error("rendering template")
		http.Error(w, "Unable to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logrus.WithError(err).Debug("writing response")
	}
}
