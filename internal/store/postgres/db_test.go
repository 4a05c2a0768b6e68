package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrateDSN(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "postgres://u:p@localhost:5432/db?sslmode=disable", want: "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{in: "postgresql://localhost/db", want: "pgx5://localhost/db"},
		{in: "pgx5://localhost/db", want: "pgx5://localhost/db"},
		{in: "host=localhost dbname=db", wantErr: true},
	}
	for _, tc := range cases {
		got, err := migrateDSN(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("migrateDSN(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("migrateDSN(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("migrateDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatalf("no up migrations embedded")
	}
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("escapeLike = %q", got)
	}
}

func TestUUIDBytesToString(t *testing.T) {
	b := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	if got := uuidBytesToString(b); got != "12345678-9abc-def0-0123-456789abcdef" {
		t.Fatalf("uuidBytesToString = %q", got)
	}
}
