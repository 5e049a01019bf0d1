package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	q := `UPDATE character_index SET name = ?, alias = ? WHERE seq = ?`
	if got := SQLite.rebind(q); got != q {
		t.Fatalf("sqlite must keep ? placeholders, got %s", got)
	}
	want := `UPDATE character_index SET name = $1, alias = $2 WHERE seq = $3`
	if got := Postgres.rebind(q); got != want {
		t.Fatalf("postgres rebind = %s, want %s", got, want)
	}
}
