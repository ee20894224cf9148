package service

import (
	"sort"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
)

// cdsTargetKinds translates CDS element kinds into EDM target kinds
var cdsTargetKinds = map[string][]string{
	"service":  {csdl.ElementEntityContainer},
	"entity":   {csdl.ElementEntitySet, csdl.ElementEntityType},
	"element":  {csdl.ElementProperty},
	"action":   {csdl.ElementAction},
	"function": {csdl.ElementFunction},
	"param":    {csdl.ElementParameter},
	"type":     {csdl.ElementComplexType, csdl.ElementTypeDefinition},
	"aspect":   {csdl.ElementComplexType},
}

// View is a lookup handle bound to one service key. Lookups on a key that was never
// imported return nil or empty results.
type View struct {
	service *Service
	key     string
}

// Key returns the service key the view is bound to
func (v View) Key() string {
	return v.key
}

func (v View) unit() *unit {
	v.service.mu.RLock()
	defer v.service.mu.RUnlock()
	return v.service.units[v.key]
}

// GetMetadataElement returns the element at path. When there is no exact match the
// first segment is treated as an unsigned action or function name and each overload
// is tried in turn.
func (v View) GetMetadataElement(path string) *csdl.MetadataElement {
	u := v.unit()
	if u == nil {
		return nil
	}
	if m, ok := u.elements[path]; ok {
		return m
	}
	for _, candidate := range overloadCandidates(u, path) {
		if m, ok := u.elements[candidate]; ok {
			return m
		}
	}
	return nil
}

// overloadCandidates substitutes each overload of the first path segment
func overloadCandidates(u *unit, path string) []string {
	first, rest := path, ""
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		first, rest = path[:idx], path[idx:]
	}
	overloads := u.actionNames[first]
	candidates := make([]string, 0, len(overloads))
	for _, overload := range overloads {
		candidates = append(candidates, overload+rest)
	}
	return candidates
}

// GetMetadataElementLocations returns the location of the element at path, or the
// locations of all overloads when path addresses an unsigned action or function.
// The result is never nil.
func (v View) GetMetadataElementLocations(path string) []position.Location {
	locations := []position.Location{}
	u := v.unit()
	if u == nil {
		return locations
	}
	var found []*csdl.MetadataElement
	if m, ok := u.elements[path]; ok {
		found = append(found, m)
	} else {
		for _, candidate := range overloadCandidates(u, path) {
			if m, ok := u.elements[candidate]; ok {
				found = append(found, m)
			}
		}
	}
	for _, m := range found {
		if m.Location == nil {
			continue
		}
		loc := *m.Location
		if mapped, ok := v.service.opts.URIMap[loc.URI]; ok {
			loc.URI = mapped
		}
		locations = append(locations, loc)
	}
	return locations
}

// GetEdmTargetKinds returns the annotation target kinds of the element at path
func (v View) GetEdmTargetKinds(path string) []string {
	m := v.GetMetadataElement(path)
	if m == nil {
		return nil
	}
	var kinds []string
	if v.service.opts.CDS {
		kinds = append(kinds, cdsTargetKinds[m.Kind]...)
		if m.Kind == "element" && m.IsEntityType {
			kinds = append([]string{csdl.ElementNavigationProperty}, kinds...)
		}
	} else {
		kinds = append(kinds, m.Kind)
		if m.Kind == csdl.ElementFunctionImport && v.version() == "2.0" {
			// V2 has no actions; function imports stand in for them
			kinds = append(kinds, csdl.ElementAction)
		}
	}
	if m.IsCollectionValued || m.Kind == csdl.ElementEntitySet {
		kinds = append(kinds, csdl.KindCollection)
	}
	return kinds
}

func (v View) version() string {
	if u := v.unit(); u != nil && u.version != "" {
		return u.version
	}
	return v.service.opts.ODataVersion
}

// GetRootMetadataElements returns the root elements in document order
func (v View) GetRootMetadataElements() []*csdl.MetadataElement {
	u := v.unit()
	if u == nil {
		return nil
	}
	return append([]*csdl.MetadataElement(nil), u.roots...)
}

// GetNamespaces returns the sorted namespaces of the root elements
func (v View) GetNamespaces() []string {
	u := v.unit()
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.namespaces))
	for ns := range u.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// GetURI returns the URI the unit was imported from
func (v View) GetURI() string {
	if u := v.unit(); u != nil {
		return u.uri
	}
	return ""
}

// GetODataVersion returns the OData version used for target kind derivation
func (v View) GetODataVersion() string {
	return v.version()
}

// GetActionOverloads returns the overload paths of an unsigned action or function name
func (v View) GetActionOverloads(name string) []string {
	u := v.unit()
	if u == nil {
		return nil
	}
	return append([]string(nil), u.actionNames[name]...)
}

// VisitMetadataElements walks every element depth-first in document order
func (v View) VisitMetadataElements(fn func(*csdl.MetadataElement)) {
	u := v.unit()
	if u == nil {
		return
	}
	for _, root := range u.roots {
		root.Walk(fn)
	}
}

// Len returns the number of indexed elements
func (v View) Len() int {
	if u := v.unit(); u != nil {
		return len(u.elements)
	}
	return 0
}
