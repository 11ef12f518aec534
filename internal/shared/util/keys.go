// Package util builds the storage keys shared by the object stores and the
// profile repositories.
package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// maxFileNameLen bounds the file name part of an object key, in bytes.
const maxFileNameLen = 120

// ErrInvalidFileName is returned for names that are empty once cleaned or
// that try to climb out of the owner namespace.
var ErrInvalidFileName = errors.New("invalid file name")

// OwnerKey returns a stable, path-safe namespace for an owner id. Guest and
// account ids hash to the same fixed-length shape.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}

// SafeFileName replaces separators and control characters and trims the
// name to maxFileNameLen, keeping the extension.
func SafeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if cleaned == "" {
		return "", ErrInvalidFileName
	}
	if len(cleaned) <= maxFileNameLen {
		return cleaned, nil
	}

	ext := path.Ext(cleaned)
	if len(ext) >= maxFileNameLen {
		ext = ""
	}
	stem := strings.ToValidUTF8(cleaned[:maxFileNameLen-len(ext)], "")
	return stem + ext, nil
}

// NewObjectKey returns "<owner key>/<random hex>_<safe name>". Two calls never
// return the same key.
func NewObjectKey(ownerID, fileName string) (string, error) {
	name, err := SafeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(OwnerKey(ownerID), fmt.Sprintf("%s_%s", randomID(), name)), nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
