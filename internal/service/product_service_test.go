package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFilter_OmitsPriceMin(t *testing.T) {
	data, err := json.Marshal(DefaultFilter())
	require.NoError(t, err)
	require.JSONEq(t, `{"category":null,"brand":null,"price_max":null,"keywords":[]}`, string(data))
}

func TestExtractFilter(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		brand    string
		keywords []string
		fallback bool
	}{
		{name: "plain json", raw: `{"category":"laptop","brand":"ASUS","price_max":1200,"price_min":null,"keywords":["gaming"]}`, brand: "ASUS", keywords: []string{"gaming"}},
		{name: "fenced json", raw: "```json\n{\"brand\":\"Dell\",\"keywords\":[]}\n```", brand: "Dell", keywords: []string{}},
		{name: "prose", raw: "Sure! Here are the filters.", fallback: true},
		{name: "truncated", raw: `{"brand":"ASUS"`, fallback: true},
		{name: "array", raw: `["ASUS"]`, fallback: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{filter: tt.raw}
			filter, err := NewProductService(gen).ExtractFilter(context.Background(), "gaming laptop under 1200")
			require.NoError(t, err)
			if tt.fallback {
				require.Equal(t, DefaultFilter(), filter)
				return
			}
			require.NotNil(t, filter.Brand)
			require.Equal(t, tt.brand, *filter.Brand)
			require.Equal(t, tt.keywords, filter.Keywords)
		})
	}
}

func TestExtractFilter_ModelErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewProductService(&fakeGenerator{genErr: boom}).ExtractFilter(context.Background(), "x")
	require.ErrorIs(t, err, boom)
}

func TestSearchProducts_IgnoresFilter(t *testing.T) {
	svc := NewProductService(&fakeGenerator{})
	brand := "Apple"
	filter := DefaultFilter()
	filter.Brand = &brand
	a := svc.Search(context.Background(), DefaultFilter())
	b := svc.Search(context.Background(), filter)
	require.Equal(t, a, b)
	require.Len(t, a, 2)
	require.Equal(t, "ASUS Gaming Laptop", a[0].Name)
	require.Equal(t, 1150.0, a[0].Price)
	require.Equal(t, "ASUS TUF Book", a[1].Name)
	require.Equal(t, 980.0, a[1].Price)
}
