// Package models holds the records exchanged with the file server.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FileRecord is one entry of the server's file listing.
// Identity is Name; the server keeps names unique.
type FileRecord struct {
	Name string `json:"name"`
	// Size is the server's display string, in KB, possibly with thousands
	// separators ("2,048").
	Size         string `json:"size"`
	LastModified string `json:"lastModified"`
}

// SizeKB parses Size, stripping thousands separators.
// Malformed sizes yield 0.
func (f FileRecord) SizeKB() float64 {
	return ParseSizeKB(f.Size)
}

// SizeBytes is SizeKB converted to bytes, truncated.
func (f FileRecord) SizeBytes() int64 {
	return int64(f.SizeKB() * 1024)
}

// ParseSizeKB converts the server's size string to a number of KB.
// "1,024" -> 1024, "" or "n/a" -> 0. Negative and non-finite values are
// treated as malformed.
func ParseSizeKB(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v != v || v > 1e300 {
		return 0
	}
	return v
}

// fileRecordWire accepts a size sent as either a JSON string or a number.
type fileRecordWire struct {
	Name         *string         `json:"name"`
	Size         json.RawMessage `json:"size"`
	LastModified json.RawMessage `json:"lastModified"`
}

// DecodeFileList parses the listing body: a JSON array of
// {name, size, lastModified}. A body that is not an array is an error.
// Individual entries degrade instead: a missing or non-string size becomes
// "0", a missing lastModified becomes "". Entries without a usable name are
// skipped and counted in skipped.
func DecodeFileList(data []byte) (records []FileRecord, skipped int, err error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("invalid file list JSON: %w", err)
	}

	records = make([]FileRecord, 0, len(raw))
	for _, item := range raw {
		var w fileRecordWire
		if err := json.Unmarshal(item, &w); err != nil || w.Name == nil || *w.Name == "" {
			skipped++
			continue
		}
		records = append(records, FileRecord{
			Name:         *w.Name,
			Size:         looseString(w.Size, "0"),
			LastModified: looseString(w.LastModified, ""),
		})
	}
	return records, skipped, nil
}

// looseString returns a JSON string's value, a JSON number's literal text,
// or def for anything else.
func looseString(raw json.RawMessage, def string) string {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return def
}
