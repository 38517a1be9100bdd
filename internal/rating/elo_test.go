package rating

import "testing"

// TestApply verifies the rating movement for a spread of matchups
func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		winner     int
		loser      int
		wantWinner int
		wantLoser  int
	}{
		{"equal ratings", 1200, 1200, 1216, 1184},
		{"favorite wins", 1600, 1200, 1603, 1197},
		{"upset win", 1200, 1600, 1229, 1571},
		{"huge favorite wins", 2400, 1200, 2400, 1200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, l := Apply(tt.winner, tt.loser)
			if w != tt.wantWinner || l != tt.wantLoser {
				t.Errorf("Apply(%d, %d) = %d, %d; want %d, %d",
					tt.winner, tt.loser, w, l, tt.wantWinner, tt.wantLoser)
			}
		})
	}
}

// TestApplyZeroSum verifies the winner's gain matches the loser's drop
func TestApplyZeroSum(t *testing.T) {
	for _, pair := range [][2]int{{1200, 1200}, {1500, 1100}, {900, 2100}} {
		w, l := Apply(pair[0], pair[1])
		if (w - pair[0]) != (pair[1] - l) {
			t.Errorf("Apply(%d, %d): gain %d != drop %d", pair[0], pair[1], w-pair[0], pair[1]-l)
		}
	}
}

// TestExpectedBounds sanity-checks the expected score curve
func TestExpectedBounds(t *testing.T) {
	if e := Expected(1200, 1200); e != 0.5 {
		t.Errorf("equal ratings should expect 0.5, got %f", e)
	}
	if e := Expected(2000, 1000); e < 0.99 {
		t.Errorf("strong favorite should expect near 1, got %f", e)
	}
	if e := Expected(1000, 2000); e > 0.01 {
		t.Errorf("heavy underdog should expect near 0, got %f", e)
	}
}
