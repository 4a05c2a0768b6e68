package auth

import "testing"

func TestHashPassword_NonDeterministic(t *testing.T) {
	p := "correct horse battery staple"
	h1, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for same password")
	}
}

func TestVerifyPassword(t *testing.T) {
	p := "correct horse battery staple"
	h, err := HashPassword(p)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword(h, p)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword(h, "wrong password")
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, err := hashPasswordWithParams("pw", argon2Params{memory: 1024, iterations: 1, parallelism: 1, saltLen: 16, keyLen: 32})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !NeedsRehash(weak) {
		t.Fatalf("expected weak hash to need rehash")
	}

	strong, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if NeedsRehash(strong) {
		t.Fatalf("expected default hash to be current")
	}
	if !NeedsRehash("not-a-hash") {
		t.Fatalf("expected malformed hash to need rehash")
	}
}
