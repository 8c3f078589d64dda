package domain

// Member is a storefront customer account. Addresses created for a member are
// seeded from these fields.
type Member struct {
	ID          int64  `json:"id"`
	Tstamp      int64  `json:"tstamp"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	DateOfBirth int64  `json:"dateOfBirth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Company     string `json:"company,omitempty"`
	Street      string `json:"street,omitempty"`
	Postal      string `json:"postal,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email"`
}

// Row returns the member columns keyed by column name.
func (m *Member) Row() Row {
	return Row{
		"id":          m.ID,
		"tstamp":      m.Tstamp,
		"firstname":   m.FirstName,
		"lastname":    m.LastName,
		"dateOfBirth": m.DateOfBirth,
		"gender":      m.Gender,
		"company":     m.Company,
		"street":      m.Street,
		"postal":      m.Postal,
		"city":        m.City,
		"state":       m.State,
		"country":     m.Country,
		"phone":       m.Phone,
		"email":       m.Email,
	}
}
