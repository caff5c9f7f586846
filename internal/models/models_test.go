package models

import "testing"

func TestDealValidate(t *testing.T) {
	valid := Deal{
		Date:         "2025-12-16",
		ScripCode:    "500325",
		SecurityName: "RELIANCE",
		ClientName:   "SOME FUND LLP",
		Side:         SideBuy,
		Quantity:     1000,
		Price:        245.5,
		Type:         TypeBulk,
		Exchange:     ExchangeBSE,
	}

	tests := []struct {
		name    string
		mutate  func(d *Deal)
		wantErr bool
	}{
		{
			name:    "valid deal",
			mutate:  func(d *Deal) {},
			wantErr: false,
		},
		{
			name:    "empty date",
			mutate:  func(d *Deal) { d.Date = "" },
			wantErr: true,
		},
		{
			name:    "source-native date",
			mutate:  func(d *Deal) { d.Date = "16/12/2025" },
			wantErr: true,
		},
		{
			name:    "empty scrip code",
			mutate:  func(d *Deal) { d.ScripCode = "" },
			wantErr: true,
		},
		{
			name:    "lowercase side",
			mutate:  func(d *Deal) { d.Side = "buy" },
			wantErr: true,
		},
		{
			name:    "unknown exchange",
			mutate:  func(d *Deal) { d.Exchange = "LSE" },
			wantErr: true,
		},
		{
			name:    "negative quantity",
			mutate:  func(d *Deal) { d.Quantity = -1 },
			wantErr: true,
		},
		{
			name:    "negative price",
			mutate:  func(d *Deal) { d.Price = -0.5 },
			wantErr: true,
		},
		{
			name:    "empty type allowed",
			mutate:  func(d *Deal) { d.Type = "" },
			wantErr: false,
		},
		{
			name:    "unknown type",
			mutate:  func(d *Deal) { d.Type = "odd-lot" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDealKey(t *testing.T) {
	d := Deal{
		Date:       "2025-12-16",
		ScripCode:  "500325",
		ClientName: "SOME FUND LLP",
		Side:       SideBuy,
		Exchange:   ExchangeBSE,
	}

	want := "2025-12-16|500325|SOME FUND LLP|BUY|BSE"
	if got := d.Key(); got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}

	// Same trade reported with a different price still has the same identity.
	other := d
	other.Price = 999
	other.Quantity = 5
	if other.Key() != d.Key() {
		t.Error("Key() should ignore quantity and price")
	}

	// Flipping the side changes the identity.
	other = d
	other.Side = SideSell
	if other.Key() == d.Key() {
		t.Error("Key() should include the side")
	}
}

func TestDealValue(t *testing.T) {
	d := Deal{Quantity: 1000, Price: 245.5}
	if got := d.Value(); got != 245500.0 {
		t.Errorf("Value() = %f, want 245500", got)
	}
}
