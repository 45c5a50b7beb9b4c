package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sahilchouksey/course-market/services/storage"
	"github.com/sahilchouksey/course-market/utils/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPDF writes a minimal PDF with empty pages
func testPDF(pages int) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>"}
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestUploadService(t *testing.T) (*UploadService, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStore(root, "http://localhost:8080")
	require.NoError(t, err)
	return NewUploadService(store), root
}

func TestUploadImage(t *testing.T) {
	svc, root := newTestUploadService(t)

	result, err := svc.Upload(context.Background(), pngHeader, UploadPurposeGeneral)
	require.NoError(t, err)
	assert.Equal(t, "image/png", result.ContentType)
	assert.Regexp(t, `^images/\d+_[0-9a-f]{8}\.png$`, result.Key)
	assert.Equal(t, "http://localhost:8080/uploads/"+result.Key, result.URL)

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(result.Key)))
	assert.NoError(t, err)
}

func TestUploadPDF(t *testing.T) {
	svc, _ := newTestUploadService(t)

	result, err := svc.Upload(context.Background(), testPDF(1), UploadPurposeCertificateTemplate)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Key, "documents/"))
	assert.True(t, strings.HasSuffix(result.Key, ".pdf"))
	assert.Equal(t, 1, result.PageCount)

	// Certificate templates are capped at two pages
	_, err = svc.Upload(context.Background(), testPDF(3), UploadPurposeCertificateTemplate)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = svc.Upload(context.Background(), pngHeader, UploadPurposeCertificateTemplate)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestUploadRejects(t *testing.T) {
	svc, _ := newTestUploadService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, nil, UploadPurposeGeneral)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = svc.Upload(ctx, []byte("just some text"), UploadPurposeGeneral)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	big := make([]byte, MaxUploadSize+1)
	copy(big, pngHeader)
	_, err = svc.Upload(ctx, big, UploadPurposeGeneral)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	// PDF header with a broken body
	_, err = svc.Upload(ctx, []byte("%PDF-1.4\ngarbage"), UploadPurposeGeneral)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}
