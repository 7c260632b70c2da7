package access

import (
	"errors"
	"testing"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("adam", secret)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	got, err := UserNameFromToken(tok, secret)
	if err != nil {
		t.Fatalf("UserNameFromToken error: %v", err)
	}
	if got != "adam" {
		t.Fatalf("user mismatch: got %q want %q", got, "adam")
	}
}

func TestGenerateToken_UniquePerCall(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	a, err := GenerateToken("ewa", secret)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateToken("ewa", secret)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("two logins produced the same token")
	}
}

func TestUserNameFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", []byte("right-secret"))
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = UserNameFromToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrUnauthenticated) {
		t.Fatalf("expected common.ErrUnauthenticated, got %v", err)
	}
}

func TestUserNameFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := UserNameFromToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrUnauthenticated) {
		t.Fatalf("expected common.ErrUnauthenticated, got %v", err)
	}
}

func TestUserNameFromToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserName: "adam"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := UserNameFromToken(tok, []byte("k")); !errors.Is(err, common.ErrUnauthenticated) {
		t.Fatalf("expected common.ErrUnauthenticated, got %v", err)
	}
}

func TestUserNameFromToken_MissingUser(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := UserNameFromToken(tok, secret); !errors.Is(err, common.ErrUnauthenticated) {
		t.Fatalf("expected common.ErrUnauthenticated, got %v", err)
	}
}
