// Package apikey provides a before hook that admits requests carrying a
// known API key.
package apikey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tjfontaine/hookgate/internal/core/domain"
	"github.com/tjfontaine/hookgate/internal/core/ports"
)

// DefaultHeader is consulted when no header is configured. A bearer token
// in the Authorization header is also accepted.
const DefaultHeader = "x-api-key"

// Handler implements ports.NamedHandler using SHA-256 key hashes.
type Handler struct {
	name   string
	header string
	hashes map[string]struct{}
}

// Hash returns the hex SHA-256 of an API key, as stored in configuration.
func Hash(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// New creates a handler admitting keys whose hash is in keyHashes.
func New(name, header string, keyHashes []string) (*Handler, error) {
	if len(keyHashes) == 0 {
		return nil, fmt.Errorf("api key handler %s: key_hashes required", name)
	}
	if header == "" {
		header = DefaultHeader
	}

	hashes := make(map[string]struct{}, len(keyHashes))
	for _, h := range keyHashes {
		hashes[strings.ToLower(h)] = struct{}{}
	}

	return &Handler{
		name:   name,
		header: strings.ToLower(header),
		hashes: hashes,
	}, nil
}

// Name returns the handler identifier.
func (h *Handler) Name() string {
	return h.name
}

// Handle blocks requests without a valid key. Navigations carry no headers
// and are blocked too; scope the handler to requests.
func (h *Handler) Handle(ctx context.Context, hc *domain.HookContext) (domain.Decision, error) {
	req, ok := hc.Request()
	if !ok {
		return domain.Block("missing API key"), nil
	}

	token := req.Headers[h.header]
	if token == "" {
		if auth := req.Headers["authorization"]; len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	if token == "" {
		return domain.Block("missing API key"), nil
	}

	if _, ok := h.hashes[Hash(token)]; !ok {
		return domain.Block("invalid API key"), nil
	}
	return domain.Allow(), nil
}

// Ensure Handler implements the interface.
var _ ports.NamedHandler = (*Handler)(nil)
