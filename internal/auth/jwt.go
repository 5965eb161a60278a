package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JWTValidator verifies HMAC-SHA256 signed bearer tokens against a shared
// secret (security.jwt_secret, §6). No JWT library appears anywhere in the
// example pack, so this checks only the one algorithm the proxy issues
// against itself — it is not a general-purpose JWT library and rejects
// anything signed with "alg" other than HS256.
type JWTValidator struct {
	Secret string
}

type jwtClaims struct {
	Exp int64 `json:"exp"`
}

func (v JWTValidator) Validate(token string) error {
	if v.Secret == "" {
		return ErrUnauthorized
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrUnauthorized
	}
	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil || !strings.Contains(string(header), `"HS256"`) {
		return ErrUnauthorized
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	want := mac.Sum(nil)
	got, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || !hmac.Equal(want, got) {
		return ErrUnauthorized
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrUnauthorized
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ErrUnauthorized
	}
	if claims.Exp != 0 && time.Now().Unix() > claims.Exp {
		return fmt.Errorf("%w: token expired", ErrUnauthorized)
	}
	return nil
}
