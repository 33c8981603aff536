package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/interpretreflect/internal/auth"
)

const secret = "test-secret"

var now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func sign(t *testing.T, key string, sub string, exp time.Time) string {
	t.Helper()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

// unsigned builds an alg=none token with an empty signature.
func unsigned(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestVerifier(t *testing.T) {
	Convey("Given a verifier with a secret", t, func() {
		v := auth.NewVerifier(secret, func() time.Time { return now })

		Convey("When the token is valid", func() {
			tok := sign(t, secret, "user-1", now.Add(time.Hour))
			s, err := v.Verify(tok)

			Convey("Then the session carries the subject", func() {
				So(err, ShouldBeNil)
				So(s.UserID, ShouldEqual, "user-1")
				So(s.Token, ShouldEqual, tok)
				So(s.ExpiresAt.Equal(now.Add(time.Hour)), ShouldBeTrue)
			})
		})

		Convey("When the token has expired", func() {
			_, err := v.Verify(sign(t, secret, "user-1", now.Add(-time.Minute)))

			Convey("Then the session is expired", func() {
				So(errors.Is(err, auth.ErrSessionExpired), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "session expired, please refresh")
			})
		})

		Convey("When the signature is wrong", func() {
			_, err := v.Verify(sign(t, "other", "user-1", now.Add(time.Hour)))

			Convey("Then it is unauthenticated", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			})
		})

		Convey("When the subject is missing", func() {
			_, err := v.Verify(sign(t, secret, "", now.Add(time.Hour)))

			Convey("Then it is unauthenticated", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			})
		})

		Convey("When the token is unsigned", func() {
			_, err := v.Verify(unsigned(t, "user-1", now.Add(time.Hour)))

			Convey("Then it is unauthenticated", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			})
		})

		Convey("When the token is garbage", func() {
			_, err := v.Verify("not-a-jwt")

			Convey("Then it is unauthenticated", func() {
				So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			})
		})
	})

	Convey("Given a verifier without a secret", t, func() {
		v := auth.NewVerifier("", func() time.Time { return now })

		Convey("Then any signature is accepted but expiry still applies", func() {
			s, err := v.Verify(sign(t, "whatever", "user-2", now.Add(time.Hour)))
			So(err, ShouldBeNil)
			So(s.UserID, ShouldEqual, "user-2")

			_, err = v.Verify(sign(t, "whatever", "user-2", now.Add(-time.Hour)))
			So(errors.Is(err, auth.ErrSessionExpired), ShouldBeTrue)
		})

		Convey("Then an unsigned token is still refused", func() {
			_, err := v.Verify(unsigned(t, "user-2", now.Add(time.Hour)))
			So(errors.Is(err, auth.ErrUnauthenticated), ShouldBeTrue)
			So(errors.Is(err, jwt.ErrTokenUnverifiable), ShouldBeTrue)
		})
	})
}

func TestBearerToken(t *testing.T) {
	Convey("Given authorization headers", t, func() {
		r := httptest.NewRequest("GET", "/", nil)

		Convey("Then a bearer token is extracted case-insensitively", func() {
			r.Header.Set("Authorization", "bearer abc.def")
			tok, ok := auth.BearerToken(r)
			So(ok, ShouldBeTrue)
			So(tok, ShouldEqual, "abc.def")
		})

		Convey("And other schemes are ignored", func() {
			r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
			_, ok := auth.BearerToken(r)
			So(ok, ShouldBeFalse)
		})

		Convey("And an empty bearer is ignored", func() {
			r.Header.Set("Authorization", "Bearer ")
			_, ok := auth.BearerToken(r)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestKeyProvider(t *testing.T) {
	Convey("Given a key provider", t, func() {
		p := auth.KeyProvider{AnonKey: "anon", ServiceKey: "service"}
		ctx := context.Background()

		Convey("When there is no session", func() {
			c := p.Credential(ctx)

			Convey("Then the anonymous key is used", func() {
				So(c, ShouldResemble, auth.Credential{APIKey: "anon", Bearer: "anon"})
			})
		})

		Convey("When a session is present", func() {
			c := p.Credential(auth.WithSession(ctx, auth.Session{UserID: "u", Token: "jwt"}))

			Convey("Then the session token is the bearer", func() {
				So(c, ShouldResemble, auth.Credential{APIKey: "anon", Bearer: "jwt"})
			})
		})

		Convey("When running background work", func() {
			sctx := auth.WithServiceRole(auth.WithSession(ctx, auth.Session{UserID: "u", Token: "jwt"}))

			Convey("Then the service key wins", func() {
				So(p.Credential(sctx), ShouldResemble, auth.Credential{APIKey: "service", Bearer: "service"})
			})

			Convey("And without a service key the session is used", func() {
				p.ServiceKey = ""
				So(p.Credential(sctx).Bearer, ShouldEqual, "jwt")
			})
		})

		Convey("Then user ids are read from the session", func() {
			So(auth.UserIDFrom(ctx), ShouldEqual, "")
			So(auth.UserIDFrom(auth.WithSession(ctx, auth.Session{UserID: "u"})), ShouldEqual, "u")
		})
	})
}
