package db

import (
	"context"
	"testing"
)

func TestMigrateURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{in: "postgres://u:p@db:5432/spacebook?sslmode=disable", want: "pgx5://u:p@db:5432/spacebook?sslmode=disable"},
		{in: "postgresql://u:p@db:5432/spacebook", want: "pgx5://u:p@db:5432/spacebook"},
		{in: "pgx5://u:p@db:5432/spacebook", want: "pgx5://u:p@db:5432/spacebook"},
	}
	for _, tc := range cases {
		if got := MigrateURL(tc.in); got != tc.want {
			t.Fatalf("MigrateURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadyCheckWithoutPool(t *testing.T) {
	if err := ReadyCheck(nil)(context.Background()); err == nil {
		t.Fatal("expected error for nil pool")
	}
}
