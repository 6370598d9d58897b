package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + filepath.ToSlash(path))
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var payload interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestRubricUploadContract(t *testing.T) {
	schema := compileSchema(t, "rubric_upload.schema.json")
	a := setupRubricApp(t, 50)
	auth := bearer(t, 7, "teacher")

	for _, expected := range []int{fiber.StatusCreated, fiber.StatusAccepted} {
		lines, err := json.Marshal(map[string]interface{}{"lines": rubricLines(), "source_name": "rubric.docx"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v2/exams/5/rubric", bytes.NewReader(lines))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)

		resp, err := a.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, expected, resp.StatusCode)
		validateBody(t, schema, resp)
	}
}

func TestMetricListContract(t *testing.T) {
	schema := compileSchema(t, "metric_list.schema.json")
	a := setupRubricApp(t, 50)
	auth := bearer(t, 7, "teacher")
	a.uploadLines(t, 5, rubricLines(), auth)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/exams/5/metrics", nil)
	req.Header.Set("Authorization", auth)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	validateBody(t, schema, resp)
}
