package dirsnap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

const (
	// CreatedUTCLayout formats created_utc: microseconds, literal Z, always UTC.
	CreatedUTCLayout = "2006-01-02T15:04:05.000000Z"
	createdAtLayout  = "2006-01-02 15:04:05"
	baseNameLayout   = "2006-01-02_15-04-05"

	ZipExt      = ".zip"
	MetadataExt = ".json"
)

// Metadata is the JSON sidecar describing one snapshot.
type Metadata struct {
	CreatedUTC             string   `json:"created_utc"`
	CreatedAt              string   `json:"created_at"`
	Comment                string   `json:"comment"`
	CommentFilenameSegment string   `json:"comment_filename_segment"`
	ZipFilename            string   `json:"zip_filename"`
	ArchivedFiles          []string `json:"archived_files"`
	EmptyDirectories       []string `json:"empty_directories"`
}

// NewMetadata builds the record for a snapshot created at now.
// The file and directory lists are copied and sorted.
func NewMetadata(now time.Time, comment, segment, zipFilename string, files, emptyDirs []string) *Metadata {
	return &Metadata{
		CreatedUTC:             now.UTC().Format(CreatedUTCLayout),
		CreatedAt:              now.Local().Format(createdAtLayout),
		Comment:                comment,
		CommentFilenameSegment: segment,
		ZipFilename:            zipFilename,
		ArchivedFiles:          sortedCopy(files),
		EmptyDirectories:       sortedCopy(emptyDirs),
	}
}

// CreatedTime parses CreatedUTC.
func (m *Metadata) CreatedTime() (time.Time, error) {
	t, err := time.Parse(CreatedUTCLayout, m.CreatedUTC)
	if err == nil {
		return t, nil
	}
	if t, err2 := time.Parse(time.RFC3339Nano, m.CreatedUTC); err2 == nil {
		return t.UTC(), nil
	}
	return time.Time{}, err
}

// BaseName returns the shared base filename of a snapshot's zip and JSON files:
// {local YYYY-MM-DD_HH-MM-SS}_{segment}.
func BaseName(now time.Time, segment string) string {
	return now.Local().Format(baseNameLayout) + "_" + segment
}

// EncodeMetadata renders m as indented JSON with a trailing newline.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// requiredMetadataKeys must be present in every metadata record.
var requiredMetadataKeys = []string{"created_utc", "zip_filename", "archived_files", "empty_directories"}

// DecodeMetadata parses and validates a metadata record.
// The returned lists are sorted regardless of their order on disk.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	for _, key := range requiredMetadataKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("missing required field %q", key)
		}
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}
	if m.CreatedUTC == "" {
		return nil, fmt.Errorf("empty created_utc")
	}
	if _, err := m.CreatedTime(); err != nil {
		return nil, fmt.Errorf("invalid created_utc %q: %w", m.CreatedUTC, err)
	}
	if m.ZipFilename == "" {
		return nil, fmt.Errorf("empty zip_filename")
	}

	m.ArchivedFiles = sortedCopy(m.ArchivedFiles)
	m.EmptyDirectories = sortedCopy(m.EmptyDirectories)
	return &m, nil
}

// sortedCopy returns a sorted copy of s; never nil, so JSON encodes [] rather than null.
func sortedCopy(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	slices.Sort(out)
	return out
}
