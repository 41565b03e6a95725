package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Product field constraints, mirrored from the backend schema.
const (
	MaxProductNameLength        = 255
	MaxProductDescriptionLength = 1000
)

// Product is a catalogue entry as shown on the products screen.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Active      bool    `json:"active" table:"wide"`
}

// ProductInput holds the editable fields of a product form.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
}

// Validate checks the input against the backend's field constraints.
func (in ProductInput) Validate() error {
	var problems []string
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "Product name is required")
	} else if utf8.RuneCountInString(name) > MaxProductNameLength {
		problems = append(problems, fmt.Sprintf("Product name must be less than %d characters", MaxProductNameLength))
	}
	if utf8.RuneCountInString(in.Description) > MaxProductDescriptionLength {
		problems = append(problems, fmt.Sprintf("Description must be less than %d characters", MaxProductDescriptionLength))
	}
	if in.Price < 0 {
		problems = append(problems, "Price must be greater than or equal to 0")
	}
	if in.Quantity < 0 {
		problems = append(problems, "Stock quantity must be greater than or equal to 0")
	}
	if len(problems) > 0 {
		return ErrInvalidInput.WithDetails(strings.Join(problems, "; "))
	}
	return nil
}
