package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conduit-lang/edmxtools/internal/metadata"
	"github.com/conduit-lang/edmxtools/internal/service"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMetadata = `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
  <edmx:DataServices>
    <Schema Namespace="NS" xmlns="http://docs.oasis-open.org/odata/ns/edm">
      <EntityType Name="Department">
        <Key><PropertyRef Name="ID"/></Key>
        <Property Name="ID" Type="Edm.String"/>
        <Property Name="Tags" Type="Collection(Edm.String)"/>
      </EntityType>
      <EntityContainer Name="Container">
        <EntitySet Name="Departments" EntityType="NS.Department"/>
      </EntityContainer>
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := service.New(service.Options{})
	roots := svc.ImportDocument(xmlast.Parse(testMetadata), "file:///metadata.xml", service.DefaultKey)
	require.NotEmpty(t, roots)
	svc.ImportServiceMetadata(metadata.ConvertText(testMetadata, "file:///other.xml"), "file:///other.xml", "other")
	return New(svc, Options{Host: "localhost", Port: 4004})
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func errorCode(body map[string]any) string {
	detail, _ := body["error"].(map[string]any)
	code, _ := detail["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, body := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestListServices(t *testing.T) {
	s := newTestServer(t)
	rec, body := get(t, s, "/services")
	require.Equal(t, http.StatusOK, rec.Code)

	services, ok := body["services"].([]any)
	require.True(t, ok)
	require.Len(t, services, 2)

	first := services[0].(map[string]any)
	assert.Equal(t, DefaultServiceName, first["key"])
	assert.Equal(t, "file:///metadata.xml", first["uri"])
	assert.Equal(t, "4.0", first["version"])
	assert.Greater(t, first["elements"].(float64), float64(0))

	second := services[1].(map[string]any)
	assert.Equal(t, "other", second["key"])
	assert.Equal(t, "file:///other.xml", second["uri"])
	assert.NotContains(t, second, "version")
}

func TestServiceRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "namespaces",
			target: "/services/default/namespaces",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"NS"}, body["namespaces"])
			},
		},
		{
			name:   "roots",
			target: "/services/other/roots",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				roots := body["roots"].([]any)
				require.Len(t, roots, 2)
				assert.Equal(t, "NS.Department", roots[0].(map[string]any)["path"])
				assert.Equal(t, "EntityType", roots[0].(map[string]any)["kind"])
			},
		},
		{
			name:   "element",
			target: "/services/default/element?path=NS.Department/ID",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "NS.Department/ID", body["path"])
				assert.Equal(t, "Property", body["kind"])
			},
		},
		{
			name:   "target kinds of a collection property",
			target: "/services/default/target-kinds?path=NS.Department/Tags",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"Property", "Collection"}, body["targetKinds"])
			},
		},
		{
			name:   "locations",
			target: "/services/default/locations?path=NS.Department",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				locations := body["locations"].([]any)
				require.Len(t, locations, 1)
				assert.Equal(t, "file:///metadata.xml", locations[0].(map[string]any)["uri"])
			},
		},
		{
			name:   "locations of an unknown path are empty",
			target: "/services/default/locations?path=NS.Missing",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Empty(t, body["locations"])
			},
		},
		{
			name:   "unknown service",
			target: "/services/nope/namespaces",
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "SERVICE_NOT_FOUND", errorCode(body))
			},
		},
		{
			name:   "unknown element",
			target: "/services/default/element?path=NS.Missing",
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "ELEMENT_NOT_FOUND", errorCode(body))
			},
		},
		{
			name:   "missing path",
			target: "/services/default/element",
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "MISSING_PATH", errorCode(body))
			},
		},
		{
			name:   "unknown route",
			target: "/nothing",
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "NOT_FOUND", errorCode(body))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, s, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			tt.check(t, body)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t)
	h := s.recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestAddr(t *testing.T) {
	s := New(service.New(service.Options{}), Options{Host: "127.0.0.1", Port: 8080})
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
}
