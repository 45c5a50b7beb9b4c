package pdfvalidation

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildPDF writes a minimal PDF with the given number of empty pages and a
// correct cross-reference table
func buildPDF(pages int) []byte {
	var objects []string
	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
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

func TestValidatePDFBytesAcceptsValidFile(t *testing.T) {
	result := ValidatePDFBytes(buildPDF(2), UploadLimits)

	assert.True(t, result.Valid, result.Error)
	assert.Equal(t, 2, result.PageCount)
}

func TestValidatePDFBytesIgnoresTrailingGarbage(t *testing.T) {
	content := append(buildPDF(1), []byte("garbage after eof")...)

	result := ValidatePDFBytes(content, UploadLimits)
	assert.True(t, result.Valid, result.Error)
}

func TestValidatePDFBytesRejectsMissingHeader(t *testing.T) {
	result := ValidatePDFBytes([]byte("hello world"), UploadLimits)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "missing PDF header")
}

func TestValidatePDFBytesRejectsTooManyPages(t *testing.T) {
	result := ValidatePDFBytes(buildPDF(3), CertificateTemplateLimits)

	assert.False(t, result.Valid)
	assert.Equal(t, 3, result.PageCount)
	assert.Contains(t, result.Error, "certificate template")
}

func TestValidatePDFBytesRejectsOversizedFile(t *testing.T) {
	content := make([]byte, 6*1024*1024)
	copy(content, "%PDF-1.4")

	result := ValidatePDFBytes(content, UploadLimits)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "5MB")
}

func TestValidatePDFBytesRejectsCorruptBody(t *testing.T) {
	result := ValidatePDFBytes([]byte("%PDF-1.4\nnot really a pdf\n%%EOF"), UploadLimits)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Error)
}
