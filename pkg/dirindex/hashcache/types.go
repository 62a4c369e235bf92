package hashcache

import (
	"bytes"
	"encoding/gob"
)

// KeySeparator separates the algorithm from the file path in keys.
const KeySeparator = '\x00'

// Digest is a cached content digest and the file state it was computed
// from.
type Digest struct {
	Size   int64  // file size in bytes
	Mtime  int64  // modification time as UnixNano
	Digest string // lowercase hex
}

// Encode serializes the digest using gob.
func (d *Digest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob bytes into the digest.
func (d *Digest) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(d)
}

// MakeKey builds <algorithm>\x00<absolute path>.
func MakeKey(algorithm, path string) []byte {
	return []byte(algorithm + string(KeySeparator) + path)
}

// ParseKey splits a key into algorithm and path.
func ParseKey(key []byte) (algorithm, path string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix shared by every key of an algorithm.
func MakeKeyPrefix(algorithm string) []byte {
	return []byte(algorithm + string(KeySeparator))
}
