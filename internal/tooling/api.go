// Package tooling provides a programmatic API for editor integration.
// It keeps open documents converted and indexed, and answers definition, hover,
// symbol, diagnostic and formatting queries over them. The API is safe for
// concurrent use.
package tooling

import (
	"errors"
	"fmt"
	"sync"

	"github.com/conduit-lang/edmxtools/internal/annotation"
	"github.com/conduit-lang/edmxtools/internal/cache"
	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/metadata"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/printer"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"go.uber.org/zap"
)

// ErrDocumentNotFound is returned for queries on a document that is not open
var ErrDocumentNotFound = errors.New("document not found")

// DocumentKind tells annotation files and service metadata documents apart
type DocumentKind int

const (
	// DocumentKindAnnotation is a file of <Annotations> blocks
	DocumentKindAnnotation DocumentKind = iota
	// DocumentKindMetadata is a service metadata document declaring types or a container
	DocumentKindMetadata
)

func (k DocumentKind) String() string {
	if k == DocumentKindMetadata {
		return "metadata"
	}
	return "annotation"
}

// Config holds configuration for the tooling API
type Config struct {
	Converter annotation.Options
	Printer   printer.Options
	// Service receives imported metadata documents. A new one is created when nil.
	Service *service.Service
	Logger  *zap.Logger
}

// Document is an open document with its converted model
type Document struct {
	URI     string
	Content string
	// Version tracks document changes (incremented on each update)
	Version int
	Kind    DocumentKind
	XML     *xmlast.Document
	// Annotations is set for annotation documents
	Annotations *csdl.AnnotationFile
	// Metadata holds the root elements of a metadata document
	Metadata []*csdl.MetadataElement
}

// API provides thread-safe access to the converters for editor integration
type API struct {
	documents map[string]*Document
	docsMutex sync.RWMutex

	// symbolIndex holds the targets of open annotation documents
	symbolIndex *SymbolIndex

	cache   *cache.DocumentCache
	service *service.Service
	config  Config
	logger  *zap.Logger
}

// NewAPI creates a tooling API with default converter and printer options
func NewAPI() *API {
	return NewAPIWithConfig(Config{Printer: printer.DefaultOptions()})
}

// NewAPIWithConfig creates a tooling API with custom configuration
func NewAPIWithConfig(config Config) *API {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := config.Service
	if svc == nil {
		svc = service.New(service.Options{Logger: logger})
	}
	return &API{
		documents:   make(map[string]*Document),
		symbolIndex: NewSymbolIndex(),
		cache:       cache.New(),
		service:     svc,
		config:      config,
		logger:      logger,
	}
}

// Service returns the metadata index the API imports into
func (a *API) Service() *service.Service {
	return a.service
}

// OpenDocument parses and converts a document and caches it under uri.
// Metadata documents are imported into the service under their URI and as the
// default service.
func (a *API) OpenDocument(uri, content string) (*Document, error) {
	return a.UpdateDocument(uri, content, 1)
}

// UpdateDocument replaces the content of a document
func (a *API) UpdateDocument(uri, content string, version int) (*Document, error) {
	if uri == "" {
		return nil, fmt.Errorf("open document: empty uri")
	}

	a.docsMutex.RLock()
	old, exists := a.documents[uri]
	a.docsMutex.RUnlock()
	if exists && old.Content == content {
		a.docsMutex.Lock()
		old.Version = version
		a.docsMutex.Unlock()
		return old, nil
	}

	doc := a.load(uri, content)
	doc.Version = version

	a.docsMutex.Lock()
	a.documents[uri] = doc
	a.docsMutex.Unlock()

	a.indexTargets(doc)
	if doc.Kind == DocumentKindMetadata {
		a.service.ImportServiceMetadata(doc.Metadata, uri, uri)
		a.service.ImportServiceMetadata(doc.Metadata, uri, service.DefaultKey)
	}
	a.logger.Debug("document loaded",
		zap.String("uri", uri),
		zap.Stringer("kind", doc.Kind),
		zap.Int("version", version),
		zap.Int("problems", len(doc.XML.Problems)),
	)
	return doc, nil
}

// load converts content, reusing the cached conversion when content is unchanged
func (a *API) load(uri, content string) *Document {
	doc := &Document{URI: uri, Content: content}
	if entry, ok := a.cache.Lookup(uri, content); ok {
		doc.XML = entry.Document
		switch value := entry.Value.(type) {
		case *csdl.AnnotationFile:
			doc.Kind = DocumentKindAnnotation
			doc.Annotations = value
		case []*csdl.MetadataElement:
			doc.Kind = DocumentKindMetadata
			doc.Metadata = value
		}
		return doc
	}

	doc.XML = xmlast.Parse(content)
	doc.Kind = Classify(doc.XML)
	if doc.Kind == DocumentKindMetadata {
		doc.Metadata = metadata.Convert(doc.XML, uri)
		a.cache.Set(uri, content, doc.XML, doc.Metadata)
	} else {
		doc.Annotations = annotation.Convert(doc.XML, uri, a.config.Converter)
		a.cache.Set(uri, content, doc.XML, doc.Annotations)
	}
	return doc
}

// GetDocument retrieves an open document
func (a *API) GetDocument(uri string) (*Document, bool) {
	a.docsMutex.RLock()
	defer a.docsMutex.RUnlock()

	doc, exists := a.documents[uri]
	return doc, exists
}

// CloseDocument forgets a document. The metadata it contributed stays imported
// under the default key until another metadata document replaces it.
func (a *API) CloseDocument(uri string) {
	a.docsMutex.Lock()
	doc, exists := a.documents[uri]
	delete(a.documents, uri)
	a.docsMutex.Unlock()

	a.cache.Invalidate(uri)
	a.symbolIndex.RemoveDocument(uri)
	if exists && doc.Kind == DocumentKindMetadata {
		a.service.Remove(uri)
	}
}

func (a *API) document(uri string) (*Document, error) {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, uri)
	}
	return doc, nil
}

// Classify reports whether a parsed document is service metadata: an edmx:Edmx
// root whose schemas declare an entity type or an entity container
func Classify(doc *xmlast.Document) DocumentKind {
	if doc == nil || doc.Root == nil || doc.Root.Name != csdl.ElementEdmx {
		return DocumentKindAnnotation
	}
	for _, ds := range doc.Root.Children(csdl.ElementDataServices) {
		for _, schema := range ds.Children(csdl.ElementSchema) {
			if schema.FirstChild(csdl.ElementEntityType) != nil || schema.FirstChild(csdl.ElementEntityContainer) != nil {
				return DocumentKindMetadata
			}
		}
	}
	return DocumentKindAnnotation
}

// targetAt returns the target whose Target attribute value contains pos
func targetAt(file *csdl.AnnotationFile, pos position.Position) *csdl.Target {
	if file == nil {
		return nil
	}
	for _, target := range file.Targets {
		if target.NameRange != nil && target.NameRange.Contains(pos) {
			return target
		}
	}
	return nil
}
