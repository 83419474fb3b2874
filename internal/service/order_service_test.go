package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractOrderID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "hash prefixed", in: "where is #5502?", want: "5502", ok: true},
		{name: "bare digits", in: "order 5501 please", want: "5501", ok: true},
		{name: "first match wins", in: "#5503 or #5501", want: "5503", ok: true},
		{name: "too short", in: "order 123", ok: false},
		{name: "capped at ten digits", in: "123456789012", want: "1234567890", ok: true},
		{name: "no digits", in: "where is my order?", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractOrderID(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOrderLookup_Partitions(t *testing.T) {
	svc := NewOrderService()
	ctx := context.Background()

	found := svc.Lookup(ctx, "#5502")
	require.NotNil(t, found.Record)
	require.Equal(t, "Processing", found.Record.Status)
	require.Equal(t, "2 days", found.Record.Expected)
	require.Equal(t, []string{"Laptop"}, found.Record.Items)

	missing := svc.Lookup(ctx, "where is my order")
	require.Nil(t, missing.Record)
	require.Equal(t, `Missing Order ID. Please provide your order number like "#5501".`, missing.Payload())

	unknown := svc.Lookup(ctx, "#9999")
	require.Nil(t, unknown.Record)
	require.Equal(t, "No order found for ID #9999", unknown.Payload())

	padded := svc.Lookup(ctx, "order 05501")
	require.NotNil(t, padded.Record)
	require.Equal(t, "Shipped", padded.Record.Status)
}

func TestOrderLookup_RecordNotShared(t *testing.T) {
	svc := NewOrderService()
	first := svc.Lookup(context.Background(), "5501")
	first.Record.Status = "changed"
	second := svc.Lookup(context.Background(), "5501")
	require.Equal(t, "Shipped", second.Record.Status)
}
