package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether b starts with the PDF header.
func IsPDF(b []byte) bool {
	return bytes.HasPrefix(b, pdfMagic)
}

func SniffMimeHTTP(b []byte) string {
	if IsPDF(b) {
		return "application/pdf"
	}
	if len(b) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(b)
}

// PickMIME returns the explicit type if set, otherwise sniffs data.
func PickMIME(explicit string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	return SniffMimeHTTP(data)
}

// SHA256Hex is the content address of an uploaded document.
func SHA256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
