package controllers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvBody = "officialName,branch,orgType\nDepartment of Justice,EXECUTIVE,DEPARTMENT\n"

func TestCsvPayload_RawBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/gov/api/organizations/import", strings.NewReader(csvBody))
	r.Header.Set("Content-Type", "text/csv")

	payload, err := csvPayload(r, 1<<20)
	require.NoError(t, err)
	defer func() { _ = payload.Close() }()

	got, err := io.ReadAll(payload)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(got))
}

func TestCsvPayload_MultipartFileField(t *testing.T) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "orgs.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	r := httptest.NewRequest("POST", "/gov/api/organizations/import", &buf)
	r.Header.Set("Content-Type", form.FormDataContentType())

	payload, err := csvPayload(r, 1<<20)
	require.NoError(t, err)
	defer func() { _ = payload.Close() }()

	got, err := io.ReadAll(payload)
	require.NoError(t, err)
	assert.Equal(t, csvBody, string(got))
}

func TestCsvPayload_MultipartWithoutFileField(t *testing.T) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "orgs"))
	require.NoError(t, form.Close())

	r := httptest.NewRequest("POST", "/gov/api/organizations/import", &buf)
	r.Header.Set("Content-Type", form.FormDataContentType())

	_, err := csvPayload(r, 1<<20)
	assert.Error(t, err)
}
