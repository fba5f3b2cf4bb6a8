package keygen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// License keys look like OLLYR-XXXX-XXXX-XXXX-XXXX and sub-license keys like
// OLLYS-XXXX-XXXX-XXXX-XXXX. The prefixes are disjoint, so a key can never
// collide across the two namespaces by construction; within a namespace the
// database unique constraint is the real guarantee and the existence probe
// here only keeps retries off the constraint in the common case.
const (
	licensePrefix    = "OLLYR"
	subLicensePrefix = "OLLYS"

	codeLength   = 10
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	maxKeyAttempts  = 5
	maxCodeAttempts = 20
)

// ErrKeyspaceExhausted is returned when every generation attempt collided
// with an existing credential. With 64 bits of entropy per key this only
// happens if the storage probe is lying.
var ErrKeyspaceExhausted = errors.New("credential keyspace exhausted")

// KeyStore is the minimal storage interface the generator probes for
// collisions.
type KeyStore interface {
	LicenseKeyExists(ctx context.Context, key string) (bool, error)
	SubLicenseKeyExists(ctx context.Context, key string) (bool, error)
	RedeemCodeExists(ctx context.Context, code string) (bool, error)
}

// Stores composes the per-table repositories into a single KeyStore.
type Stores struct {
	Licenses interface {
		LicenseKeyExists(ctx context.Context, key string) (bool, error)
	}
	SubLicenses interface {
		SubLicenseKeyExists(ctx context.Context, key string) (bool, error)
	}
	RedeemCodes interface {
		RedeemCodeExists(ctx context.Context, code string) (bool, error)
	}
}

func (s Stores) LicenseKeyExists(ctx context.Context, key string) (bool, error) {
	return s.Licenses.LicenseKeyExists(ctx, key)
}

func (s Stores) SubLicenseKeyExists(ctx context.Context, key string) (bool, error) {
	return s.SubLicenses.SubLicenseKeyExists(ctx, key)
}

func (s Stores) RedeemCodeExists(ctx context.Context, code string) (bool, error) {
	return s.RedeemCodes.RedeemCodeExists(ctx, code)
}

type Generator struct {
	store KeyStore
}

func New(store KeyStore) *Generator {
	return &Generator{store: store}
}

// LicenseKey returns a fresh OLLYR key unique at return time.
func (g *Generator) LicenseKey(ctx context.Context) (string, error) {
	return g.uniqueKey(ctx, licensePrefix, g.store.LicenseKeyExists)
}

// SubLicenseKey returns a fresh OLLYS key unique at return time.
func (g *Generator) SubLicenseKey(ctx context.Context) (string, error) {
	return g.uniqueKey(ctx, subLicensePrefix, g.store.SubLicenseKeyExists)
}

func (g *Generator) uniqueKey(ctx context.Context, prefix string, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key := formatKey(prefix)
		taken, err := exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("probe %s key: %w", prefix, err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrKeyspaceExhausted
}

// RedeemCode returns a fresh human-enterable code unique among redeem codes.
// The code keyspace is much smaller than the key keyspace (36^10), so the
// retry budget is larger.
func (g *Generator) RedeemCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		taken, err := g.store.RedeemCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("probe redeem code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrKeyspaceExhausted
}

// formatKey derives the four hex groups from a fresh UUID's random bytes.
func formatKey(prefix string) string {
	id := uuid.New()
	h := strings.ToUpper(hex.EncodeToString(id[:]))
	return fmt.Sprintf("%s-%s-%s-%s-%s", prefix, h[0:4], h[4:8], h[8:12], h[12:16])
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
