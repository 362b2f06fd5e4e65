// Package testhelpers builds requests and reads responses for handler tests.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

// Citizen returns a citizen caller with a fresh id.
func Citizen() api.Caller {
	return api.Caller{ID: primitive.NewObjectID(), Username: "citizen", Role: workflow.RoleCitizen}
}

// Officer returns an officer caller with a fresh id.
func Officer() api.Caller {
	return api.Caller{ID: primitive.NewObjectID(), Username: "officer", Role: workflow.RoleOfficer}
}

// JSON encodes v as a request body.
func JSON(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// Request builds a request made by caller with the given route variables.
// A nil caller makes an anonymous request.
func Request(method, target string, body io.Reader, caller *api.Caller, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		req = req.WithContext(api.WithCaller(req.Context(), *caller))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

// Upload is one file of a multipart request.
type Upload struct {
	Field   string
	Name    string
	Content []byte
}

// Multipart builds a multipart request whose "data" field holds payload as JSON.
func Multipart(t *testing.T, method, target string, payload interface{}, files []Upload, caller *api.Caller) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	b, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("data", string(b)))
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.Field, f.Name)
		require.NoError(t, err)
		_, err = fw.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := Request(method, target, &buf, caller, nil)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// Decode reads the JSON response body into v.
func Decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

// ErrorMessage returns the message of an error response.
func ErrorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorMessageResponse
	Decode(t, rr, &resp)
	return resp.Response.Message
}

// PNG is the smallest valid PNG, for upload tests.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
