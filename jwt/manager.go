package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the single algorithm a Manager signs and accepts.
type SigningMethod string

const (
	// MethodHS256 signs with HMAC-SHA256 using PrivateKey as the shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodHS384 signs with HMAC-SHA384.
	MethodHS384 SigningMethod = "hs384"
	// MethodHS512 signs with HMAC-SHA512.
	MethodHS512 SigningMethod = "hs512"
	// MethodEd25519 signs with EdDSA over Ed25519 keys.
	MethodEd25519 SigningMethod = "ed25519"
)

const minHMACSecretBytes = 32

var (
	// ErrExpired is returned by Decode when the signature is valid but exp has elapsed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned by Decode for every other verification failure.
	ErrInvalid = errors.New("token invalid")
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	MaxFutureIAT  time.Duration
	// Now overrides the clock used for iat/exp and for verification.
	Now func() time.Time
}

// Manager issues and verifies access and refresh tokens.
//
// A Manager holds one key and one algorithm and is safe for concurrent use.
type Manager struct {
	config Config
	method jwt.SigningMethod
	sign   interface{}
	verify interface{}
}

// Claims is the decoded payload of an access or refresh token.
// Refresh tokens carry a non-empty ID (jti); access tokens do not.
type Claims struct {
	jwt.RegisteredClaims
}

// JTI returns the refresh token identifier, empty for access tokens.
func (c *Claims) JTI() string {
	return c.ID
}

// RefreshToken is a freshly minted refresh token and its identifier.
type RefreshToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Pair is an access token and a refresh token minted for the same subject.
type Pair struct {
	Access          string
	AccessExpiresAt time.Time
	Refresh         RefreshToken
}

// NewManager validates cfg and resolves the signing and verification keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256, MethodHS384, MethodHS512:
		if len(cfg.PrivateKey) < minHMACSecretBytes {
			return nil, fmt.Errorf("%s requires a secret of at least %d bytes", cfg.SigningMethod, minHMACSecretBytes)
		}
		m.method = hmacMethod(cfg.SigningMethod)
		m.sign = cfg.PrivateKey
		m.verify = cfg.PrivateKey
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires private key")
		}
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.sign = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verify = pub
		} else {
			m.verify = priv.Public()
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// CreateAccess signs {sub, iat, exp} for subject and returns the token and its expiry.
func (j *Manager) CreateAccess(subject string) (string, time.Time, error) {
	now := j.config.Now()
	exp := now.Add(j.config.AccessTTL)
	token, err := j.signClaims(subject, "", now, exp)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, jwt.NewNumericDate(exp).Time, nil
}

// CreateRefresh signs {sub, iat, exp, jti} for subject with a fresh random jti.
func (j *Manager) CreateRefresh(subject string) (RefreshToken, error) {
	now := j.config.Now()
	exp := now.Add(j.config.RefreshTTL)
	jti := uuid.NewString()
	token, err := j.signClaims(subject, jti, now, exp)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: token, JTI: jti, ExpiresAt: jwt.NewNumericDate(exp).Time}, nil
}

// RefreshPair mints an access token and a refresh token for subject.
func (j *Manager) RefreshPair(subject string) (Pair, error) {
	access, accessExp, err := j.CreateAccess(subject)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := j.CreateRefresh(subject)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, AccessExpiresAt: accessExp, Refresh: refresh}, nil
}

// Decode verifies algorithm, signature and expiry and returns the claims.
//
// Decode returns ErrExpired only when the signature is valid and now >= exp.
// Every other failure is reported as ErrInvalid wrapping the parser error.
func (j *Manager) Decode(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.verify, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalid)
	}
	if claims.IssuedAt != nil {
		maxAllowed := j.config.Now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalid)
		}
	}

	return claims, nil
}

func (j *Manager) signClaims(subject, jti string, now, exp time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    j.config.Issuer,
		},
	}
	return jwt.NewWithClaims(j.method, claims).SignedString(j.sign)
}

func hmacMethod(m SigningMethod) jwt.SigningMethod {
	switch m {
	case MethodHS384:
		return jwt.SigningMethodHS384
	case MethodHS512:
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
