package passhash

import (
	"strings"
	"testing"
)

// Low iteration count keeps the test fast; the KDF is the same code path.
const testIters = 1_000

func TestHashAndVerify(t *testing.T) {
	enc, err := HashPasswordWithIters("correct horse", testIters)
	if err != nil {
		t.Fatalf("HashPasswordWithIters: %v", err)
	}
	if !strings.HasPrefix(enc, "pbkdf2_sha256$") {
		t.Fatalf("unexpected encoding prefix: %s", enc)
	}

	ok, err := VerifyPassword("correct horse", enc)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword("wrong horse", enc)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("wrong password must not verify")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := HashPasswordWithIters("same", testIters)
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashPasswordWithIters("same", testIters)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ by salt")
	}
}

func TestVerify_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"pbkdf2_sha256$abc$salt$dk",
		"pbkdf2_sha256$1000$salt",
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", // legacy sha256 hex
	}
	for _, c := range cases {
		if ok, err := VerifyPassword("x", c); err == nil && ok {
			t.Fatalf("malformed hash %q verified", c)
		}
	}
}

func TestIsEncoded(t *testing.T) {
	enc, err := HashPasswordWithIters("x", testIters)
	if err != nil {
		t.Fatal(err)
	}
	if !IsEncoded(enc) {
		t.Fatalf("expected IsEncoded true for %s", enc)
	}
	if IsEncoded("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824") {
		t.Fatalf("legacy hex digest must not be treated as encoded")
	}
}
