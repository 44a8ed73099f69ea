package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"clean ISBN-13", "9780593085172", "9780593085172", true},
		{"hyphenated ISBN-13", "978-0-593-08517-2", "9780593085172", true},
		{"spaced ISBN-13", "978 0 593 08517 2", "9780593085172", true},
		{"clean ISBN-10", "0316098094", "0316098094", true},
		{"lowercase check digit", "080442957x", "080442957X", true},
		{"ASIN", "B000APZNR0", "B000APZNR0", true},
		{"lowercase ASIN", "b005lwqcj0", "B005LWQCJ0", true},
		{"too short", "12345", "", false},
		{"X in the middle", "12X4567890", "", false},
		{"empty", "", "", false},
		{"words", "The Hobbit", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := Normalize(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"978-0-593-08517-2",
		"0-8044-2957-x",
		"b000apznr0",
		"9781250176202",
	}
	for _, in := range inputs {
		once, ok := Normalize(in)
		if !assert.True(t, ok, in) {
			continue
		}
		twice, ok := Normalize(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindISBN13, KindOf("9780593085172"))
	assert.Equal(t, KindISBN10, KindOf("080442957X"))
	assert.Equal(t, KindASIN, KindOf("B000APZNR0"))
	assert.Equal(t, KindUnknown, KindOf("hello"))
	assert.Equal(t, "ISBN-13", KindISBN13.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestPossibleASIN(t *testing.T) {
	assert.True(t, PossibleASIN("B073NXRMWJ"))
	assert.False(t, PossibleASIN("9781640637344"))
	assert.False(t, PossibleASIN(""))
}

func TestISBNConversion(t *testing.T) {
	tests := []struct {
		isbn10 string
		isbn13 string
	}{
		{"0306406152", "9780306406157"},
		{"080442957X", "9780804429573"},
	}

	for _, tt := range tests {
		t.Run(tt.isbn10, func(t *testing.T) {
			assert.Equal(t, tt.isbn13, ToISBN13(tt.isbn10))
			assert.Equal(t, tt.isbn10, ToISBN10(tt.isbn13))
			assert.Equal(t, tt.isbn10, ToISBN10(ToISBN13(tt.isbn10)))
		})
	}
}

func TestISBNConversionPassesThroughOtherValues(t *testing.T) {
	assert.Equal(t, "9791234567896", ToISBN10("9791234567896"))
	assert.Equal(t, "B000APZNR0", ToISBN13("B000APZNR0"))
	assert.Equal(t, "123", ToISBN13("123"))
}

func TestVariants(t *testing.T) {
	assert.Equal(t, []string{"0306406152", "9780306406157"}, Variants("0306406152"))
	assert.Equal(t, []string{"0306406152", "9780306406157"}, Variants("9780306406157"))
	assert.Equal(t, []string{"9791234567896"}, Variants("9791234567896"))
	assert.Nil(t, Variants(""))
}
