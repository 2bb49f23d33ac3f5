package core

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/suppliers/internal/dataset"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    dataset.Filter
		wantErr bool
	}{
		{in: "Material=contains:M-1", want: dataset.Filter{Column: "Material", Operator: dataset.OpContains, Value: "M-1"}},
		{in: "Soma de Saldo=gte:100", want: dataset.Filter{Column: "Soma de Saldo", Operator: dataset.OpGreaterEq, Value: "100"}},
		{in: "Material=EQ:M-100", want: dataset.Filter{Column: "Material", Operator: dataset.OpEquals, Value: "M-100"}},
		{in: "Primeiro Fornecedor=Acme", want: dataset.Filter{Column: "Primeiro Fornecedor", Operator: dataset.OpContains, Value: "Acme"}},
		{in: "Hora=10:30", want: dataset.Filter{Column: "Hora", Operator: dataset.OpContains, Value: "10:30"}},
		{in: "Material=eq:a=b", want: dataset.Filter{Column: "Material", Operator: dataset.OpEquals, Value: "a=b"}},
		{in: "Material", wantErr: true},
		{in: "=eq:x", wantErr: true},
		{in: "Material=eq:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				if !errors.Is(err, dataset.ErrInvalidQuery) {
					t.Fatalf("ParseFilter(%q) error = %v, want ErrInvalidQuery", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFilter(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		in      string
		want    dataset.SortSpec
		wantErr bool
	}{
		{in: "Material", want: dataset.SortSpec{Column: "Material"}},
		{in: "Material:asc", want: dataset.SortSpec{Column: "Material"}},
		{in: "Soma de Saldo:desc", want: dataset.SortSpec{Column: "Soma de Saldo", Desc: true}},
		{in: "Soma de Saldo:DESC", want: dataset.SortSpec{Column: "Soma de Saldo", Desc: true}},
		{in: "Material:sideways", wantErr: true},
		{in: ":desc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSort(tt.in)
			if tt.wantErr {
				if !errors.Is(err, dataset.ErrInvalidQuery) {
					t.Fatalf("ParseSort(%q) error = %v, want ErrInvalidQuery", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSort(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseSort(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
