package main

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// extensionTypes pins the declared type for extensions whose sniffed type
// differs from what the archive accepts.
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
}

// detectContentType sniffs the file and falls back to its extension when the
// content is ambiguous.
func detectContentType(path string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if declared, ok := extensionTypes[ext]; ok {
		for m := detected; m != nil; m = m.Parent() {
			if m.Is(declared) {
				return declared, nil
			}
		}
	}

	sniffed := baseType(detected.String())
	if sniffed != "application/octet-stream" {
		return sniffed, nil
	}
	if declared, ok := extensionTypes[ext]; ok {
		return declared, nil
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return baseType(byExt), nil
	}
	return sniffed, nil
}

func baseType(value string) string {
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = value[:i]
	}
	return strings.TrimSpace(value)
}
