package browser

import (
	"encoding/json"
	"fmt"
	"os"
)

// Selectors holds the ordered candidate lists for every control the
// session must locate. The lists are configuration, not code: a different
// target site is a data change.
type Selectors struct {
	Username        []string `json:"username"`
	Password        []string `json:"password"`
	LoginSubmit     []string `json:"login_submit"`
	FormName        []string `json:"form_name"`
	FormSKU         []string `json:"form_sku"`
	FormPrice       []string `json:"form_price"`
	FormDescription []string `json:"form_description"`
	FormCategory    []string `json:"form_category"`
	FormMainImage   []string `json:"form_main_image"`
	FormExtraImages []string `json:"form_extra_images"`
	FormSubmit      []string `json:"form_submit"`
	Success         []string `json:"success"`
	ListingExtract  string   `json:"listing_extract"`
}

// DefaultSelectors covers common admin-panel markup. Candidates are tried
// in order; the first that resolves wins.
func DefaultSelectors() Selectors {
	return Selectors{
		Username: []string{
			`input[name="username"]`,
			`input[name="email"]`,
			`input[type="email"]`,
			`#username`,
			`#email`,
		},
		Password: []string{
			`input[name="password"]`,
			`input[type="password"]`,
			`#password`,
		},
		LoginSubmit: []string{
			`button[type="submit"]`,
			`input[type="submit"]`,
		},
		FormName:        []string{`input[name="name"]`, `#product-name`},
		FormSKU:         []string{`input[name="sku"]`, `#product-sku`},
		FormPrice:       []string{`input[name="price"]`, `#product-price`},
		FormDescription: []string{`textarea[name="description"]`, `#product-description`},
		FormCategory:    []string{`input[name="category"]`, `select[name="category"]`},
		FormMainImage:   []string{`input[type="file"][name="main_image"]`, `input[type="file"]`},
		FormExtraImages: []string{`input[type="file"][name="extra_images"]`},
		FormSubmit:      []string{`button[type="submit"]`, `input[type="submit"]`},
		Success: []string{
			`.success-message`,
			`.alert-success`,
			`.notice--success`,
		},
		ListingExtract: `Array.from(document.querySelectorAll('.product-row')).map(row => ({
			sku: row.querySelector('.sku')?.textContent?.trim() ?? '',
			name: row.querySelector('.name')?.textContent?.trim() ?? '',
			price: row.querySelector('.price')?.textContent?.trim() ?? '',
			status: row.querySelector('.status')?.textContent?.trim() ?? ''
		})).filter(p => p.sku !== '')`,
	}
}

// LoadSelectors reads a selector table from a JSON file. An empty path
// returns the defaults; fields missing from the file keep their defaults.
func LoadSelectors(path string) (Selectors, error) {
	selectors := DefaultSelectors()
	if path == "" {
		return selectors, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return selectors, fmt.Errorf("failed to read selectors file: %w", err)
	}
	if err := json.Unmarshal(data, &selectors); err != nil {
		return selectors, fmt.Errorf("failed to parse selectors file: %w", err)
	}
	return selectors, nil
}
