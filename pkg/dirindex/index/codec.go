package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Snapshot errors.
var (
	// ErrCorruptSnapshot is returned when a snapshot cannot be parsed or
	// does not describe a valid tree.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")

	// ErrPersistFailure is returned when a snapshot cannot be written.
	ErrPersistFailure = errors.New("persisting snapshot")
)

// record is the JSON shape of one entry. Field order is the key order on
// disk. Folders always carry children (possibly empty) and files always
// carry a hash, so the pointer fields decide which key is written.
type record struct {
	Type         string              `json:"type"`
	Name         string              `json:"name"`
	RelativePath string              `json:"relative_path"`
	Size         int64               `json:"size"`
	UpdatedAt    string              `json:"updated_at"`
	CreatedAt    string              `json:"created_at"`
	Hash         *string             `json:"hash,omitempty"`
	Children     *map[string]*record `json:"children,omitempty"`
}

// legacyTimeFormat covers timestamps written without a zone offset.
const legacyTimeFormat = "2006-01-02T15:04:05.999999999"

func toRecord(e Entry) *record {
	m := e.Info()
	r := &record{
		Type:         e.Kind().String(),
		Name:         m.Name,
		RelativePath: m.RelativePath,
		Size:         m.Size,
		UpdatedAt:    types.FormatTime(m.UpdatedAt),
		CreatedAt:    types.FormatTime(m.CreatedAt),
	}

	switch v := e.(type) {
	case *File:
		hash := v.Hash
		r.Hash = &hash
	case *Folder:
		children := make(map[string]*record, len(v.Children))
		for name, child := range v.Children {
			children[name] = toRecord(child)
		}
		r.Children = &children
	}
	return r
}

// fromRecord converts r. Children are checked against the key they are
// stored under; the root has no key.
func fromRecord(r *record, key string, child bool) (Entry, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: null entry %q", ErrCorruptSnapshot, key)
	}
	if child && (key == "" || r.Name != key) {
		return nil, fmt.Errorf("%w: entry %q is named %q", ErrCorruptSnapshot, key, r.Name)
	}

	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s created_at: %w", ErrCorruptSnapshot, r.RelativePath, err)
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s updated_at: %w", ErrCorruptSnapshot, r.RelativePath, err)
	}

	meta := Meta{
		Name:         r.Name,
		RelativePath: r.RelativePath,
		Size:         r.Size,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}

	switch r.Type {
	case KindFile.String():
		f := &File{Meta: meta}
		if r.Hash != nil {
			f.Hash = *r.Hash
		}
		return f, nil

	case KindFolder.String():
		folder := &Folder{Meta: meta, Children: make(map[string]Entry)}
		if r.Children != nil {
			for name, child := range *r.Children {
				e, err := fromRecord(child, name, true)
				if err != nil {
					return nil, err
				}
				folder.Children[name] = e
			}
		}
		return folder, nil

	default:
		return nil, fmt.Errorf("%w: %q has unknown type %q", ErrCorruptSnapshot, r.RelativePath, r.Type)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var legacyErr error
		t, legacyErr = time.Parse(legacyTimeFormat, s)
		if legacyErr != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

// Encode writes the canonical JSON form of root: two-space indent, keys
// of every children object in sorted order, no HTML escaping.
func Encode(w io.Writer, root *Folder) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(toRecord(root))
}

// Decode reads a snapshot. The top-level entry must be a folder.
func Decode(r io.Reader) (*Folder, error) {
	var rec record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	e, err := fromRecord(&rec, "", false)
	if err != nil {
		return nil, err
	}
	root, ok := e.(*Folder)
	if !ok {
		return nil, fmt.Errorf("%w: root is a %s", ErrCorruptSnapshot, e.Kind())
	}
	return root, nil
}

// Marshal returns the canonical encoding of root.
func Marshal(root *Folder) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads the snapshot at path. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func Load(path string) (*Folder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	root, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return root, nil
}
