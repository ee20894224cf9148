package server

import (
	"net/http"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/go-chi/chi/v5"
)

// serviceSummary describes one imported service
type serviceSummary struct {
	Key      string `json:"key"`
	URI      string `json:"uri"`
	Version  string `json:"version,omitempty"`
	Elements int    `json:"elements"`
}

// elementSummary is a metadata element without its subtree
type elementSummary struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /services
func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	keys := s.service.ServiceKeys()
	services := make([]serviceSummary, 0, len(keys))
	for _, key := range keys {
		view := s.service.View(key)
		services = append(services, serviceSummary{
			Key:      serviceName(key),
			URI:      view.GetURI(),
			Version:  view.GetODataVersion(),
			Elements: view.Len(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// GET /services/{key}/namespaces
func (s *Server) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"namespaces": view.GetNamespaces()})
}

// GET /services/{key}/roots
func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	roots := view.GetRootMetadataElements()
	out := make([]elementSummary, 0, len(roots))
	for _, root := range roots {
		out = append(out, elementSummary{Path: root.Path, Name: root.Name, Kind: root.Kind})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"roots": out})
}

// GET /services/{key}/element?path=
func (s *Server) handleElement(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	m, ok := s.element(w, r, view)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// GET /services/{key}/locations?path=
func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	path, ok := s.requirePath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"path":      path,
		"locations": view.GetMetadataElementLocations(path),
	})
}

// GET /services/{key}/target-kinds?path=
func (s *Server) handleTargetKinds(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}
	m, ok := s.element(w, r, view)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"path":        m.Path,
		"targetKinds": view.GetEdmTargetKinds(m.Path),
	})
}

// view resolves the {key} URL parameter to an imported service
func (s *Server) view(w http.ResponseWriter, r *http.Request) (service.View, bool) {
	name := chi.URLParam(r, "key")
	key := name
	if name == DefaultServiceName {
		key = service.DefaultKey
	}
	for _, known := range s.service.ServiceKeys() {
		if known == key {
			return s.service.View(key), true
		}
	}
	s.writeError(w, http.StatusNotFound, "SERVICE_NOT_FOUND", "unknown service: "+name)
	return service.View{}, false
}

// element resolves the path query parameter to a metadata element
func (s *Server) element(w http.ResponseWriter, r *http.Request, view service.View) (*csdl.MetadataElement, bool) {
	path, ok := s.requirePath(w, r)
	if !ok {
		return nil, false
	}
	m := view.GetMetadataElement(path)
	if m == nil {
		s.writeError(w, http.StatusNotFound, "ELEMENT_NOT_FOUND", "no metadata element at "+path)
		return nil, false
	}
	return m, true
}

func serviceName(key string) string {
	if key == service.DefaultKey {
		return DefaultServiceName
	}
	return key
}
