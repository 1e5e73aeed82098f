package storage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("receipt", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["receipt"][0]
}

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ref, err := ls.Save(fileHeader(t, "Receipt.PNG", []byte("png-bytes")), "receipts/12")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "receipts/12/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	path, err := ls.FullPath(ref)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, ls.Delete(ref))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ls.Delete(ref), "deleting twice is fine")
}

func TestLocalStorage_FullPathRejectsTraversal(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = ls.FullPath("../../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = ls.FullPath("/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidReference)
}
