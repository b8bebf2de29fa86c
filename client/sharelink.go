package client

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dexgs/transpo-go/crypto"
)

// A share link carries everything a recipient needs:
//
//	https://host/<id>[?nopass|?password=pw]#<key>
//
// The key rides in the URL fragment, which HTTP clients never send to the
// server.

// ErrInvalidShareLink indicates a link that could not be parsed.
var ErrInvalidShareLink = errors.New("invalid share link")

// ShareLink is a parsed Transpo share link.
type ShareLink struct {
	ServerURL  string
	ID         string
	Key        crypto.Key
	NoPassword bool
}

// BuildShareLink formats the link for a completed upload. Uploads without
// a password carry the "?nopass" marker so clients can skip the password
// prompt.
func BuildShareLink(serverURL, id string, key crypto.Key, passwordProtected bool) string {
	marker := "?nopass"
	if passwordProtected {
		marker = ""
	}
	return fmt.Sprintf("%s/%s%s#%s",
		strings.TrimSuffix(serverURL, "/"), id, marker, crypto.EncodeKey(key))
}

// ParseShareLink extracts the server URL, upload ID and key from a link.
func ParseShareLink(link string) (*ShareLink, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShareLink, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidShareLink, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidShareLink)
	}

	id := strings.Trim(u.Path, "/")
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: missing upload ID", ErrInvalidShareLink)
	}

	key, err := crypto.DecodeKey(u.Fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShareLink, err)
	}

	_, noPass := u.Query()["nopass"]

	return &ShareLink{
		ServerURL:  u.Scheme + "://" + u.Host,
		ID:         id,
		Key:        key,
		NoPassword: noPass,
	}, nil
}

// FallbackName synthesizes a file name for a download whose name record is
// empty, as it is for multi-file archives. Zip archives get the matching
// extension.
func FallbackName(id, mime string) string {
	name := "transpo_" + id
	if mime == "application/zip" {
		name += ".zip"
	}
	return name
}
