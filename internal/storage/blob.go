package storage

import (
	"bytes"
	"io"
	"path"
)

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}

// ReportKey is where an exported report for classID is archived.
func ReportKey(classID, fileName string) string {
	return path.Join("reports", path.Base("/"+classID), path.Base("/"+fileName))
}

// ArchiveReport stores a rendered report and returns its canonical key.
func ArchiveReport(bs BlobStore, classID, fileName string, body []byte) (string, error) {
	return bs.Put(ReportKey(classID, fileName), bytes.NewReader(body))
}
