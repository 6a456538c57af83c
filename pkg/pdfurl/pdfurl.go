// Package pdfurl rewrites file-hosting share links into URLs a PDF
// renderer can fetch directly. Every function is total: input that does
// not match a known pattern is returned as is.
package pdfurl

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	driveHost        = "drive.google.com"
	driveDirectPfx   = "https://drive.google.com/uc?export=view&id="
	dropboxHost      = "dropbox.com"
	dropboxShareHost = "www.dropbox.com"
	dropboxRawHost   = "dl.dropboxusercontent.com"
)

var (
	drivePathID  = regexp.MustCompile(`/file/d/([^/?#]+)`)
	driveQueryID = regexp.MustCompile(`[?&]id=([^&#]+)`)
)

// ConvertToDirect returns a direct-fetch form of a Google Drive or
// Dropbox share link. Applying it twice yields the same result.
func ConvertToDirect(raw string) string {
	switch {
	case raw == "":
		return raw
	case strings.Contains(raw, driveHost):
		return convertGoogleDrive(raw)
	case strings.Contains(raw, dropboxHost):
		return convertDropbox(raw)
	default:
		return raw
	}
}

func convertGoogleDrive(raw string) string {
	if strings.Contains(raw, driveHost+"/uc?export=view") {
		return raw
	}
	id, ok := ExtractGoogleDriveFileID(raw)
	if !ok {
		return raw
	}
	return driveDirectPfx + id
}

// convertDropbox switches the preview flag to download and moves share
// links onto the raw content host. Only the host and the dl query value
// are touched.
func convertDropbox(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	if q.Get("dl") == "0" {
		q.Set("dl", "1")
		u.RawQuery = q.Encode()
	}
	if strings.EqualFold(u.Host, dropboxShareHost) {
		u.Host = dropboxRawHost
	}
	return u.String()
}

// ExtractGoogleDriveFileID returns the file id of a Drive link in either
// the /file/d/{id} or the ?id={id} form.
func ExtractGoogleDriveFileID(raw string) (string, bool) {
	if !strings.Contains(raw, driveHost) {
		return "", false
	}
	if m := drivePathID.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if m := driveQueryID.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}

// GoogleDrivePreviewURL is the provider-hosted viewer used as an iframe
// fallback when the direct link cannot be loaded.
func GoogleDrivePreviewURL(fileID string) string {
	return "https://" + driveHost + "/file/d/" + fileID + "/preview"
}
