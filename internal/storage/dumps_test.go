package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/shelfscan/internal/models"
)

func TestParseSecondaryISBNs(t *testing.T) {
	tests := []struct {
		name string
		line string
		want models.SecondaryISBN
	}{
		{"three fields", "9780593085172|1|2", models.SecondaryISBN{ISBN: "9780593085172", Status: 1, Priority: "2"}},
		{"three fields empty priority", "9780593085172|0|", models.SecondaryISBN{ISBN: "9780593085172"}},
		{"two fields", "9780593085172|n", models.SecondaryISBN{ISBN: "9780593085172", Priority: "n"}},
		{"four fields", "0593085175|9780593085172|3|B08FF8Z1WQ", models.SecondaryISBN{ISBN: "9780593085172", Priority: "3", ASIN: "B08FF8Z1WQ"}},
		{"windows line ending", "9780593085172|0|1\r", models.SecondaryISBN{ISBN: "9780593085172", Priority: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, skipped, err := ParseSecondaryISBNs(strings.NewReader(tt.line + "\n"))
			require.NoError(t, err)
			assert.Zero(t, skipped)
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

func TestParseSecondaryISBNsSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		"9780593085172|0|1",
		"",
		"just-one-field",
		"9780306406157|notanumber|1",
		"a|b|c|d|e",
		"|0|1",
		"0575114959|2|",
	}, "\n")

	got, skipped, err := ParseSecondaryISBNs(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 4, skipped)
	require.Len(t, got, 2)
	assert.Equal(t, "0575114959", got[1].ISBN)
	assert.Equal(t, 2, got[1].Status)
}

func TestParseSecondaryASINs(t *testing.T) {
	input := strings.Join([]string{
		"B000APZNR0|0575114959",
		"B07XJ8C8F5|1|9780593085172",
		"B08FF8Z1WQ|9780306406157|2",
		"B00TESTAAA|",
		"B00TESTBBB||n",
		"lonely",
	}, "\n")

	got, skipped, err := ParseSecondaryASINs(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []models.SecondaryASIN{
		{ASIN: "B000APZNR0", ISBN: "0575114959"},
		{ASIN: "B07XJ8C8F5", ISBN: "9780593085172"},
		{ASIN: "B08FF8Z1WQ", ISBN: "9780306406157"},
		{ASIN: "B00TESTAAA"},
		{ASIN: "B00TESTBBB"},
	}, got)
}

func TestParseKnownIdentifiers(t *testing.T) {
	input := `# exported catalogue
978-0-306-40615-7
0-316-09809-4

b07xj8c8f5
not an id
`
	got, skipped, err := ParseKnownIdentifiers(strings.NewReader(input), "export")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, got, 3)

	assert.Equal(t, "9780306406157", got[0].Value)
	assert.Equal(t, "ISBN-13", got[0].Kind)
	assert.Equal(t, "0316098094", got[1].Value)
	assert.Equal(t, "ISBN-10", got[1].Kind)
	assert.Equal(t, "B07XJ8C8F5", got[2].Value)
	assert.Equal(t, "ASIN", got[2].Kind)
	assert.Equal(t, "export", got[2].Source)
}
