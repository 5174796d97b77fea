package poi

import "testing"

func TestMatchesTab(t *testing.T) {
	tests := []struct {
		category string
		tab      Tab
		want     bool
	}{
		// shop
		{"retail.books", TabShop, true},
		{"duty-free.liquor", TabShop, true},
		{"shop", TabShop, true},
		{"shop.souvenirs", TabShop, true},
		{"eat.cafe", TabShop, false},

		// dine
		{"eat.cafe", TabDine, true},
		{"food.fast-food", TabDine, true},
		{"restaurant.mexican", TabDine, true},
		{"cafe.coffee", TabDine, true},
		{"restaurant", TabDine, true},
		{"retail.books", TabDine, false},

		// relax
		{"services.lounge.airline", TabRelax, true},
		{"relax", TabRelax, true},
		{"amenities.spa", TabRelax, true},
		{"services.security.checkpoint", TabRelax, false},

		// case and whitespace
		{"Retail.Books", TabShop, true},
		{" eat.cafe ", TabDine, true},

		// categories outside every tab
		{"gate", TabShop, false},
		{"gate", TabDine, false},
		{"gate", TabRelax, false},
		{"", TabShop, false},
	}

	for _, tt := range tests {
		if got := MatchesTab(tt.category, tt.tab); got != tt.want {
			t.Errorf("MatchesTab(%q, %q) = %v, want %v", tt.category, tt.tab, got, tt.want)
		}
	}
}

func TestValidTab(t *testing.T) {
	for _, s := range []string{"shop", "dine", "relax"} {
		if !ValidTab(s) {
			t.Errorf("ValidTab(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "gates", "Shop"} {
		if ValidTab(s) {
			t.Errorf("ValidTab(%q) = true, want false", s)
		}
	}
}
