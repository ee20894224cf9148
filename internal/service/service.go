// Package service indexes converted metadata trees for path lookups.
//
// Each import replaces one unit of the index wholesale. Units are keyed by a service
// key; the empty key addresses the default service. Lookups either go through an
// explicit View or through the scoped active selection set by UseService.
package service

import (
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/metadata"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"go.uber.org/zap"
)

// DefaultKey addresses the default service
const DefaultKey = ""

// Options configures a Service
type Options struct {
	// URIMap maps document URIs as stored in the index to the URIs reported by
	// location lookups
	URIMap map[string]string
	// CDS switches target kind derivation to CDS element kinds
	CDS bool
	// ODataVersion applies to units imported without a detected version ("2.0" or "4.0")
	ODataVersion string
	Logger       *zap.Logger
}

// unit is one imported metadata set with its derived lookup structures
type unit struct {
	uri      string
	version  string
	roots    []*csdl.MetadataElement
	elements map[string]*csdl.MetadataElement
	// namespaces holds the namespaces of all root elements
	namespaces map[string]struct{}
	// actionNames maps unsigned action and function names to their overload paths
	// in document order
	actionNames map[string][]string
}

// Service is the metadata lookup index. It is safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	opts   Options
	logger *zap.Logger
	units  map[string]*unit
	active string
}

// New creates an empty index
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	uriMap := make(map[string]string, len(opts.URIMap))
	for k, v := range opts.URIMap {
		uriMap[k] = v
	}
	opts.URIMap = uriMap
	return &Service{
		opts:   opts,
		logger: logger,
		units:  map[string]*unit{},
	}
}

// Import replaces the default service with roots
func (s *Service) Import(roots []*csdl.MetadataElement, uri string) {
	s.store(DefaultKey, buildUnit(roots, uri, ""))
}

// ImportServiceMetadata stores roots under key, replacing any previous import for it
func (s *Service) ImportServiceMetadata(roots []*csdl.MetadataElement, uri, key string) {
	s.store(key, buildUnit(roots, uri, ""))
}

// ImportDocument converts a parsed metadata document and stores it under key,
// remembering the OData version detected from the document
func (s *Service) ImportDocument(doc *xmlast.Document, uri, key string) []*csdl.MetadataElement {
	roots := metadata.Convert(doc, uri)
	s.store(key, buildUnit(roots, uri, metadata.DetectVersion(doc)))
	return roots
}

// Remove drops the unit stored under key
func (s *Service) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.units, key)
}

func (s *Service) store(key string, u *unit) {
	s.mu.Lock()
	s.units[key] = u
	s.mu.Unlock()

	s.logger.Debug("imported service metadata",
		zap.String("key", key),
		zap.String("uri", u.uri),
		zap.String("version", u.version),
		zap.Int("elements", len(u.elements)),
		zap.Int("namespaces", len(u.namespaces)),
	)
}

func buildUnit(roots []*csdl.MetadataElement, uri, version string) *unit {
	u := &unit{
		uri:         uri,
		version:     version,
		roots:       append([]*csdl.MetadataElement(nil), roots...),
		elements:    map[string]*csdl.MetadataElement{},
		namespaces:  map[string]struct{}{},
		actionNames: map[string][]string{},
	}
	for _, root := range roots {
		if ns := namespaceOf(root.Path); ns != "" {
			u.namespaces[ns] = struct{}{}
		}
		root.Walk(func(m *csdl.MetadataElement) {
			u.elements[m.Path] = m
		})
		if root.Kind == csdl.ElementAction || root.Kind == csdl.ElementFunction {
			name := StripSignature(root.Path)
			u.actionNames[name] = append(u.actionNames[name], root.Path)
		}
	}
	return u
}

// StripSignature removes a trailing "(...)" overload signature from a path segment
func StripSignature(segment string) string {
	if idx := strings.IndexByte(segment, '('); idx >= 0 {
		return segment[:idx]
	}
	return segment
}

func namespaceOf(rootPath string) string {
	name := StripSignature(rootPath)
	if idx := strings.LastIndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return ""
}

// UseService makes key the active service for unqualified lookups. The returned
// function restores the previous selection.
func (s *Service) UseService(key string) (restore func()) {
	s.mu.Lock()
	previous := s.active
	s.active = key
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.active = previous
			s.mu.Unlock()
		})
	}
}

// ActiveService returns the key used by unqualified lookups
func (s *Service) ActiveService() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ServiceKeys returns the keys of all imported units, sorted
func (s *Service) ServiceKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.units))
	for key := range s.units {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// View returns a lookup handle bound to key, independent of the active selection
func (s *Service) View(key string) View {
	return View{service: s, key: key}
}

func (s *Service) current() View {
	return s.View(s.ActiveService())
}

// GetMetadataElement looks up path in the active service
func (s *Service) GetMetadataElement(path string) *csdl.MetadataElement {
	return s.current().GetMetadataElement(path)
}

// GetEdmTargetKinds returns the target kinds of path in the active service
func (s *Service) GetEdmTargetKinds(path string) []string {
	return s.current().GetEdmTargetKinds(path)
}

// GetMetadataElementLocations returns the locations of path in the active service
func (s *Service) GetMetadataElementLocations(path string) []position.Location {
	return s.current().GetMetadataElementLocations(path)
}

// GetRootMetadataElements returns the root elements of the active service
func (s *Service) GetRootMetadataElements() []*csdl.MetadataElement {
	return s.current().GetRootMetadataElements()
}

// GetNamespaces returns the namespaces of the active service
func (s *Service) GetNamespaces() []string {
	return s.current().GetNamespaces()
}

// GetURI returns the document URI of the active service
func (s *Service) GetURI() string {
	return s.current().GetURI()
}

// GetActionOverloads returns the overload paths of an unsigned action or function name
// in the active service
func (s *Service) GetActionOverloads(name string) []string {
	return s.current().GetActionOverloads(name)
}

// VisitMetadataElements walks every element of the active service
func (s *Service) VisitMetadataElements(fn func(*csdl.MetadataElement)) {
	s.current().VisitMetadataElements(fn)
}
