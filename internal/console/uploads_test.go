package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"housingadmin/console/internal/client"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/session"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfData = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
)

type request struct {
	Method string
	Path   string
	Body   map[string]any
}

// backend is a fake REST backend that answers from canned bodies keyed by
// "METHOD /path" and records everything it receives.
type backend struct {
	mu       sync.Mutex
	requests []request
	replies  map[string]string
	failures map[string]int
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{replies: map[string]string{}, failures: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.requests = append(b.requests, request{Method: r.Method, Path: r.URL.Path, Body: body})
		reply, ok := b.replies[key]
		status := b.failures[key]
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"backend refused"}`))
			return
		}
		if !ok {
			reply = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) calls(method, path string) []request {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []request
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func workspace(t *testing.T, srv *httptest.Server) *Workspace {
	t.Helper()
	clients := client.NewSet(srv.URL, client.DefaultPaths, session.Static("tok"))
	return NewWorkspace(clients, nil, logrus.New())
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	args := m.Called(key, contentType)
	return args.String(0), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordUploadFailure(ctx context.Context, resource, file, reason string) error {
	return m.Called(resource, file).Error(0)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	args := m.Called(address)
	return args.Get(0).(float64), args.Get(1).(float64), args.Error(2)
}

func TestAddUser(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["GET /users/getall"] = `[{"_id":"u1","firstName":"Old","lastName":"User"}]`
	b.replies["POST /users/create"] = `{"data":{"_id":"u2","firstName":"Ana","lastName":"Silva","email":"ana@example.com"}}`

	ws := workspace(t, srv)
	require.NoError(t, ws.Users.Load(context.Background()))

	form := resource.NewForm[models.User, UserDraft](ws.Users, validation.New(), nil)
	form.Begin(validUser(), "")
	created, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u2", created.ID)

	creates := b.calls(http.MethodPost, "/users/create")
	require.Len(t, creates, 1)
	assert.Equal(t, map[string]any{
		"firstName":     "Ana",
		"lastName":      "Silva",
		"email":         "ana@example.com",
		"contactNumber": "+94771234567",
		"address":       "12 Main St",
		"password":      "secret1",
	}, creates[0].Body)

	rows := ws.Users.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "u2", rows[1].Item.ID)
}

func TestAddUser_InvalidNeverReachesBackend(t *testing.T) {
	b, srv := newBackend(t)
	ws := workspace(t, srv)

	d := validUser()
	d.Email = "not-an-email"
	form := resource.NewForm[models.User, UserDraft](ws.Users, validation.New(), nil)
	form.Begin(d, "")

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, resource.ErrValidation)
	assert.Equal(t, validation.FieldErrors{"email": "Invalid email format"}, form.Errors())
	assert.Empty(t, b.calls(http.MethodPost, "/users/create"))
}

func TestEditUser_BlankPasswordOmitted(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["GET /users/getall"] = `[{"_id":"u1","firstName":"Ana","lastName":"Silva","email":"ana@example.com","contactNumber":"+94771234567","address":"12 Main St"}]`
	b.replies["PUT /users/update/u1"] = `{"_id":"u1","firstName":"Anna","lastName":"Silva"}`

	ws := workspace(t, srv)
	require.NoError(t, ws.Users.Load(context.Background()))
	existing, ok := ws.Users.Get("u1")
	require.True(t, ok)

	d := UserDraftFrom(existing)
	d.FirstName = "Anna"
	form := resource.NewForm[models.User, UserDraft](ws.Users, validation.New(), nil)
	form.Begin(d, "u1")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	updates := b.calls(http.MethodPut, "/users/update/u1")
	require.Len(t, updates, 1)
	assert.NotContains(t, updates[0].Body, "password")
	assert.Equal(t, "Anna", updates[0].Body["firstName"])

	got, _ := ws.Users.Get("u1")
	assert.Equal(t, "Anna", got.FirstName)
}

func TestEditUser_BackendFailureKeepsDraft(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["GET /users/getall"] = `[{"_id":"u1","firstName":"Ana"}]`
	b.failures["PUT /users/update/u1"] = http.StatusConflict

	ws := workspace(t, srv)
	require.NoError(t, ws.Users.Load(context.Background()))

	d := validUser()
	form := resource.NewForm[models.User, UserDraft](ws.Users, validation.New(), nil)
	form.Begin(d, "u1")
	_, err := form.Submit(context.Background())

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "backend refused", apiErr.Message)
	assert.Equal(t, d, form.Draft())
	assert.Equal(t, "u1", form.EditingID())
}

func TestCreateProperty_PartialUploadFailure(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["POST /properties/create"] = `{"_id":"p1","userId":"u1","status":"Pending"}`

	uploader := &MockUploader{}
	uploader.On("Upload", mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "u1/") }), "image/png").
		Return("https://cdn/u1/a.png", nil).Once()
	uploader.On("Upload", mock.Anything, "image/png").
		Return("https://cdn/u1/c.png", nil).Once()

	recorder := &MockRecorder{}
	recorder.On("RecordUploadFailure", "properties", "notes.pdf").Return(nil).Once()

	uploads := &Uploads{
		Images:   storage.NewBatch(uploader, storage.ImagePolicy, logrus.New()),
		Failures: recorder,
		Logger:   logrus.New(),
	}

	ws := workspace(t, srv)
	var skipped []storage.Failure
	form := resource.NewForm[models.Property, PropertyDraft](ws.Properties, validation.New(), uploads.Property(&skipped))

	d := validProperty()
	d.Files = []storage.File{
		{Name: "a.png", Data: pngData},
		{Name: "notes.pdf", Data: pdfData},
		{Name: "c.png", Data: pngData},
	}
	form.Begin(d, "")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, skipped, 1)
	assert.Equal(t, "notes.pdf", skipped[0].Name)
	assert.ErrorIs(t, skipped[0].Err, storage.ErrTypeNotAllowed)

	creates := b.calls(http.MethodPost, "/properties/create")
	require.Len(t, creates, 1)
	photos := creates[0].Body["photos"].([]any)
	require.Len(t, photos, 2)
	assert.Equal(t, "https://cdn/u1/a.png", photos[0].(map[string]any)["url"])
	assert.Equal(t, "https://cdn/u1/c.png", photos[1].(map[string]any)["url"])
	assert.Equal(t, "Pending", creates[0].Body["status"])

	uploader.AssertNumberOfCalls(t, "Upload", 2)
	recorder.AssertExpectations(t)
}

func TestCreateProperty_Geocoding(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["POST /properties/create"] = `{"_id":"p1"}`

	geocoder := &MockGeocoder{}
	geocoder.On("Geocode", "12 Main St").Return(6.9, 79.8, nil).Once()

	uploads := &Uploads{Geocoder: geocoder}
	ws := workspace(t, srv)
	form := resource.NewForm[models.Property, PropertyDraft](ws.Properties, nil, uploads.Property(nil))
	form.Begin(validProperty(), "")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	body := b.calls(http.MethodPost, "/properties/create")[0].Body
	assert.Equal(t, 6.9, body["lat"])
	assert.Equal(t, 79.8, body["lng"])
}

func TestCreateProperty_GeocodingFailureDoesNotBlock(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["POST /properties/create"] = `{"_id":"p1"}`

	geocoder := &MockGeocoder{}
	geocoder.On("Geocode", mock.Anything).Return(0.0, 0.0, errors.New("no results")).Once()

	uploads := &Uploads{Geocoder: geocoder}
	ws := workspace(t, srv)
	form := resource.NewForm[models.Property, PropertyDraft](ws.Properties, nil, uploads.Property(nil))
	form.Begin(validProperty(), "")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	body := b.calls(http.MethodPost, "/properties/create")[0].Body
	assert.NotContains(t, body, "lat")
}

func TestCreateReport_DocumentFailureBlocks(t *testing.T) {
	b, srv := newBackend(t)

	uploader := &MockUploader{}
	uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("bucket offline")).Once()
	uploads := &Uploads{Documents: storage.NewBatch(uploader, storage.DocumentPolicy, logrus.New())}

	ws := workspace(t, srv)
	form := resource.NewForm[models.Report, ReportDraft](ws.Reports, nil, uploads.Report())
	form.Begin(ReportDraft{Title: "Inspection", UserID: "u1", File: &storage.File{Name: "r.pdf", Data: pdfData}}, "")

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, resource.ErrValidation)
	assert.Contains(t, form.Errors()["document"], "bucket offline")
	assert.Empty(t, b.calls(http.MethodPost, "/reports/create"))
}

func TestCreateReport(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["POST /reports/create"] = `{"_id":"r1","title":"Inspection"}`

	uploader := &MockUploader{}
	uploader.On("Upload", mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "inspection/") }), "application/pdf").
		Return("https://cdn/inspection/r.pdf", nil).Once()
	uploads := &Uploads{Documents: storage.NewBatch(uploader, storage.DocumentPolicy, logrus.New())}

	ws := workspace(t, srv)
	form := resource.NewForm[models.Report, ReportDraft](ws.Reports, nil, uploads.Report())
	form.Begin(ReportDraft{Title: "Inspection", UserID: "u1", File: &storage.File{Name: "r.pdf", Data: pdfData}}, "")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	body := b.calls(http.MethodPost, "/reports/create")[0].Body
	assert.Equal(t, map[string]any{
		"name":     "r.pdf",
		"url":      "https://cdn/inspection/r.pdf",
		"fileType": "application/pdf",
	}, body["document"])
}

func TestCreateListing_Images(t *testing.T) {
	b, srv := newBackend(t)
	b.replies["POST /houses/create"] = `{"_id":"h1"}`

	uploader := &MockUploader{}
	uploader.On("Upload", mock.MatchedBy(func(k string) bool { return strings.HasPrefix(k, "sea-view/") }), "image/png").
		Return("https://cdn/sea-view/a.png", nil).Once()
	uploads := &Uploads{Images: storage.NewBatch(uploader, storage.ImagePolicy, nil)}

	ws := workspace(t, srv)
	form := resource.NewForm[models.Listing, ListingDraft](ws.Listings, nil, uploads.Listing(nil))
	form.Begin(ListingDraft{
		Title: "Sea View", Description: "Nice", Price: 10, Address: "Beach Rd", PropertyType: "Villa",
		Images: []string{"https://cdn/old.png"},
		Files:  []storage.File{{Name: "a.png", Data: bytes.Clone(pngData)}},
	}, "")
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	body := b.calls(http.MethodPost, "/houses/create")[0].Body
	assert.Equal(t, []any{"https://cdn/old.png", "https://cdn/sea-view/a.png"}, body["images"])
}
