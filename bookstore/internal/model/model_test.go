package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

func TestPrice_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    model.Price
		wantErr bool
	}{
		{name: "number", in: `12.5`, want: 12.5},
		{name: "string", in: `"12.50"`, want: 12.5},
		{name: "empty string", in: `""`, want: 0},
		{name: "null", in: `null`, want: 0},
		{name: "largest storable", in: `"9999999999.99"`, want: 9999999999.99},
		{name: "not a number", in: `"abc"`, wantErr: true},
		{name: "infinity string", in: `"Inf"`, wantErr: true},
		{name: "nan string", in: `"NaN"`, wantErr: true},
		{name: "too large string", in: `"1e20"`, wantErr: true},
		{name: "too large number", in: `1e10`, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p model.Price
			err := json.Unmarshal([]byte(tt.in), &p)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, p)
		})
	}
}
