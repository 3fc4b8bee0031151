// ABOUTME: Signed, expiring admin links embedded in escalation payloads
// ABOUTME: HS256 JWT in a query parameter; the admin UI verifies on open

package escalate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetime of an admin link. Long enough for an overnight page,
// short enough that a leaked link goes stale.
const DefaultLinkTTL = 24 * time.Hour

var (
	ErrInvalidLink = errors.New("invalid admin link")
	ErrExpiredLink = errors.New("admin link expired")
)

// LinkSigner mints and verifies admin deep links for escalated orders.
type LinkSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewLinkSigner creates a signer. baseURL is the admin UI origin, e.g.
// "https://admin.example.com". A zero ttl uses DefaultLinkTTL.
func NewLinkSigner(secret []byte, baseURL string, ttl time.Duration) *LinkSigner {
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}
	return &LinkSigner{
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Sign returns the order's admin URL with an expiring token attached.
func (s *LinkSigner) Sign(orderID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": orderID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing admin link: %w", err)
	}
	return fmt.Sprintf("%s/orders/%s?token=%s", s.baseURL, url.PathEscape(orderID), url.QueryEscape(token)), nil
}

// Verify checks a link token and returns the order id it was minted for.
func (s *LinkSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredLink
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidLink
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidLink
	}
	return sub, nil
}
