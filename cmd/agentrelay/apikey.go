package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/northfold/agentrelay/pkg/store"
)

// apiKeyBearerAdapter satisfies both api.TokenVerifier and api.APIKeyVerifier
// by hashing the caller-supplied credential and looking it up in the same
// APIKeyStore: a bearer token and a static API key are both just opaque keys
// from the store's point of view.
type apiKeyBearerAdapter struct {
	store store.APIKeyStore
}

func (a apiKeyBearerAdapter) VerifyToken(ctx context.Context, token string) (string, error) {
	return a.verify(ctx, token)
}

func (a apiKeyBearerAdapter) VerifyAPIKey(ctx context.Context, key string) (string, error) {
	return a.verify(ctx, key)
}

func (a apiKeyBearerAdapter) verify(ctx context.Context, raw string) (string, error) {
	key, err := a.store.GetByHashedKey(ctx, hashKey(raw))
	if err != nil {
		return "", err
	}
	return key.UserID, nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
