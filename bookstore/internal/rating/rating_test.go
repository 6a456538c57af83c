package rating_test

import (
	"math"
	"testing"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/rating"
	"github.com/stretchr/testify/require"
)

func TestApply_Scenario(t *testing.T) {
	t.Parallel()

	agg := rating.Aggregate{}
	steps := []struct {
		stars int
		want  rating.Aggregate
	}{
		{stars: 5, want: rating.Aggregate{Average: 5, Count: 1}},
		{stars: 3, want: rating.Aggregate{Average: 4, Count: 2}},
		{stars: 4, want: rating.Aggregate{Average: 4, Count: 3}},
	}
	for _, st := range steps {
		var err error
		agg, err = rating.Apply(agg, st.stars)
		require.NoError(t, err)
		require.Equal(t, st.want.Count, agg.Count)
		require.InDelta(t, st.want.Average, agg.Average, 1e-9)
	}
}

func TestApply_MatchesArithmeticMean(t *testing.T) {
	t.Parallel()

	seqs := [][]int{
		{1},
		{1, 5},
		{2, 2, 3, 5, 1, 4, 4, 4},
		{5, 5, 5, 5, 5, 5, 5, 5, 5, 1},
	}
	for _, seq := range seqs {
		agg := rating.Aggregate{}
		sum := 0
		for _, r := range seq {
			var err error
			agg, err = rating.Apply(agg, r)
			require.NoError(t, err)
			sum += r
		}
		require.Equal(t, len(seq), agg.Count)
		require.InDelta(t, float64(sum)/float64(len(seq)), agg.Average, 1e-9)
	}
}

func TestApply_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	start := rating.Aggregate{Average: 3.5, Count: 2}
	for _, stars := range []int{0, 6, -1} {
		got, err := rating.Apply(start, stars)
		require.ErrorIs(t, err, errs.ErrInvalidRating)
		require.Equal(t, start, got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      float64
		want    int
		wantErr bool
	}{
		{in: 1, want: 1},
		{in: 5, want: 5},
		{in: 3, want: 3},
		{in: 0, wantErr: true},
		{in: 6, wantErr: true},
		{in: 4.5, wantErr: true},
		{in: -2, wantErr: true},
		{in: math.NaN(), wantErr: true},
		{in: math.Inf(1), wantErr: true},
	}
	for _, tt := range tests {
		got, err := rating.Validate(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, errs.ErrInvalidRating, "input %v", tt.in)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}
}
