package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name  string `json:"name" validate:"required,nomarkup"`
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age" validate:"gte=0,lte=150"`
}

func TestValidate_Success(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "alice@example.com", Age: 30}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := testStruct{Email: "alice@example.com", Age: 30}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["name"])
}

func TestValidate_InvalidEmail(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "not-an-email", Age: 30}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid email address", valErr.Fields()["email"])
}

func TestValidate_OutOfRange(t *testing.T) {
	s := testStruct{Name: "Alice", Email: "alice@example.com", Age: 200}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["age"], "150")
}

func TestValidate_MultipleErrors(t *testing.T) {
	err := Validate(testStruct{})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'name'")
	assert.Contains(t, err.Error(), "is required")
}

func TestValidate_NoMarkup(t *testing.T) {
	s := testStruct{Name: `<script>alert(1)</script>`, Email: "alice@example.com"}
	err := Validate(s)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must not contain markup", valErr.Fields()["name"])

	s.Name = "Smith & Sons"
	assert.NoError(t, Validate(s))
}

type locationStruct struct {
	Country     string `json:"country" validate:"omitempty,country"`
	Subdivision string `json:"subdivision" validate:"omitempty,subdivision"`
}

func TestValidate_Country(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"us", true},
		{"US", true},
		{"ch", true},
		{"zz", false},
		{"usa", false},
		{"1", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := Validate(locationStruct{Country: tt.code})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Contains(t, valErr.Fields()["country"], "ISO 3166-1")
		})
	}
}

func TestValidate_Subdivision(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"US-IL", true},
		{"us-il", true},
		{"CH-ZH", true},
		{"GB-LND", true},
		{"US", false},
		{"US-", false},
		{"ZZ-IL", false},
		{"US-ILLINOIS", false},
		{"US-I L", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := Validate(locationStruct{Subdivision: tt.code})
			assert.Equal(t, tt.valid, err == nil, "%v", err)
		})
	}
}

type minMaxStruct struct {
	Short string `validate:"min=3"`
	Long  string `validate:"max=5"`
}

func TestValidate_MinMaxUsesGoNameWithoutJSONTag(t *testing.T) {
	err := Validate(minMaxStruct{Short: "ab", Long: "toolongstring"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Short"], "at least 3")
	assert.Contains(t, fields["Long"], "at most 5")
}

type oneofStruct struct {
	FieldSet string `json:"fieldset" validate:"oneof=billing shipping"`
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(oneofStruct{FieldSet: "invoice"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["fieldset"], "one of")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"name":"Alice","email":"alice@example.com","age":25}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.NoError(t, err)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, "alice@example.com", s.Email)
	assert.Equal(t, 25, s.Age)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	body := `{"name":"Alice","email":"alice@example.com","admin":true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"name":"","email":"bad","age":25}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s testStruct
	err := DecodeAndValidate(req, &s)

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
