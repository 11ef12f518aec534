package pipeline

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Stage
		want     bool
	}{
		{StageIdle, StageValidating, true},
		{StageValidating, StageUploading, true},
		{StageUploading, StageAnalyzing, true},
		{StageAnalyzing, StageSaving, true},
		{StageSaving, StageComplete, true},
		{StageValidating, StageFailed, true},
		{StageSaving, StageFailed, true},
		{StageIdle, StageFailed, false},
		{StageIdle, StageUploading, false},
		{StageUploading, StageSaving, false},
		{StageComplete, StageFailed, false},
		{StageFailed, StageValidating, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}
