package web

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/empdir/pkg/employee"
	"github.com/Luzifer/empdir/pkg/storage/local"
)

func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "addemp.html", s.page(r, "Add Employee"))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, "about.html", s.page(r, "About"))
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "getemp.html", s.page(r, "Get Employee"))
}

func (s *Server) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Unable to parse form", http.StatusBadRequest)
		return
	}

	e := employee.Employee{
		ID:           strings.TrimSpace(r.PostFormValue("emp_id")),
		FirstName:    strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:     strings.TrimSpace(r.PostFormValue("last_name")),
		PrimarySkill: strings.TrimSpace(r.PostFormValue("primary_skill")),
		Location:     strings.TrimSpace(r.PostFormValue("location")),
	}
	logger := logrus.WithField("emp_id", e.ID)

	var mfe employee.MissingFieldError
	switch err := s.employees.Add(r.Context(), e); {
	case err == nil:
		logger.Info("employee added")

	case errors.As(err, &mfe):
		http.Error(w, mfe.Error(), http.StatusBadRequest)
		return

	case errors.Is(err, employee.ErrAlreadyExists):
		http.Error(w, "Employee ID is already taken", http.StatusConflict)
		return

	default:
		logger.WithError(err).Error("adding employee")
		http.Error(w, "Unable to store employee", http.StatusInternalServerError)
		return
	}

	data := s.page(r, "Employee Added")
	data.Name = e.FullName()
	s.render(w, "addempoutput.html", data)
}

func (s *Server) handleFetchEmployee(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.FormValue("emp_id"))
	if id == "" {
		http.Error(w, "required field emp_id is missing", http.StatusBadRequest)
		return
	}

	e, err := s.employees.Get(r.Context(), id)
	switch {
	case err == nil:
		// Found

	case errors.Is(err, employee.ErrNotFound):
		http.Error(w, "Employee not found", http.StatusNotFound)
		return

	default:
		logrus.WithError(err).WithField("emp_id", id).Error("fetching employee")
		http.Error(w, "Unable to fetch employee", http.StatusInternalServerError)
		return
	}

	data := s.page(r, "Employee "+e.ID)
	data.Employee = e
	s.render(w, "getempoutput.html", data)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	if !local.IsServable(filename) {
		http.NotFound(w, r)
		return
	}

	logger := logrus.WithField("file", filename)

	metadata, err := s.images.LoadMeta(r.Context(), filename)
	switch {
	case err == nil:
		// Cached

	case errors.Is(err, os.ErrNotExist):
		http.NotFound(w, r)
		return

	default:
		logger.WithError(err).Error("loading image metadata")
		http.Error(w, "Unable to access cached image", http.StatusInternalServerError)
		return
	}

	f, err := s.images.GetFile(r.Context(), filename)
	if err != nil {
		logger.WithError(err).Error("opening cached image")
		http.Error(w, "Unable to access cached image", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.WithError(err).Error("closing cached image (leaked fd)")
		}
	}()

	contentType := metadata.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(filename))
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("X-Last-Cached", metadata.LastCached.UTC().Format(http.TimeFormat))

	http.ServeContent(w, r, filename, metadata.LastModified, f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.employees.Ping(r.Context()); err != nil {
		logrus.WithError(err).Warn("health check failed")
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK\n"))
}
