package catalog

import (
	"reflect"
	"testing"
)

func TestNormalizeAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  map[string]string
		want map[string]string
	}{
		{
			name: "mixed case mount color key",
			raw:  map[string]string{"mountColor": "Snow White"},
			want: map[string]string{"mountColor": "snow-white"},
		},
		{
			name: "lowercase mount color alias",
			raw:  map[string]string{"mountcolor": "dark gray"},
			want: map[string]string{"mountColor": "dark-grey"},
		},
		{
			name: "colour alias and slugged value",
			raw:  map[string]string{"Colour": " Natural Oak "},
			want: map[string]string{"color": "natural-oak"},
		},
		{
			name: "unknown keys pass through lowercased",
			raw:  map[string]string{"Substrate": "Museum Board"},
			want: map[string]string{"substrate": "museum board"},
		},
		{
			name: "nil map yields empty map",
			raw:  nil,
			want: map[string]string{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NormalizeAttributes(tc.raw)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("NormalizeAttributes() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeAttributesIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []map[string]string{
		{"mountColor": "Dark Grey", "mountcolor": "dark gray"},
		{"color": "gray", "edge": " 19mm "},
		{"paperType": "Enhanced Matte", "PAPERTYPE": "enhanced matte"},
		{"wrap": "Black", "glaze": "Acrylic"},
	}

	for _, raw := range inputs {
		once := NormalizeAttributes(raw)
		twice := NormalizeAttributes(once)
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("NormalizeAttributes not idempotent: %v != %v (input %v)", once, twice, raw)
		}
	}
}
