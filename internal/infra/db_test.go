package infra

import "testing"

func TestPoolMaxConns(t *testing.T) {
	cases := []struct {
		workers int64
		want    int32
	}{
		{workers: 1, want: 8},
		{workers: 4, want: 8},
		{workers: 8, want: 12},
		{workers: 32, want: 36},
	}
	for _, tc := range cases {
		if got := poolMaxConns(tc.workers); got != tc.want {
			t.Fatalf("poolMaxConns(%d) = %d, want %d", tc.workers, got, tc.want)
		}
	}
}
