package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCSV(t *testing.T) {
	data := []byte("date,title,amount,category,transaction_type,account\n" +
		"2024-03-01,Coffee Shop,-4.50,Dining,EXPENSE,Checking\n" +
		"\n" +
		"2024-03-02,Paycheck,2500.00,,,Checking\n")

	doc, err := ExtractCSV(data)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)

	assert.Equal(t, 0, doc.Lines[0].Index)
	assert.Equal(t, []string{"2024-03-01", "Coffee Shop", "-4.50", "Dining", "EXPENSE", "Checking"}, doc.Lines[0].Fields)
	assert.Equal(t, 1, doc.Lines[1].Index)
	assert.Empty(t, doc.Warnings)
}

func TestExtractCSVStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"date,title,amount,category,transaction_type,account\n"+
			"2024-03-01,Coffee Shop,-4.50,,,Checking\n")...)

	doc, err := ExtractCSV(data)
	require.NoError(t, err)
	assert.Len(t, doc.Lines, 1)
}

func TestExtractCSVRejectsWrongHeader(t *testing.T) {
	_, err := ExtractCSV([]byte("Date,Description,Debit,Credit\n1/2/2024,x,1,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestExtractCSVShortRowPadded(t *testing.T) {
	data := []byte("date,title,amount,category,transaction_type,account\n" +
		"2024-03-01,Coffee Shop,-4.50\n")

	doc, err := ExtractCSV(data)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Len(t, doc.Lines[0].Fields, 6)
}

func TestExtractCSVMalformedRowWarns(t *testing.T) {
	data := []byte("date,title,amount,category,transaction_type,account\n" +
		"2024-03-01,\"unterminated,-4.50\n" +
		"2024-03-02,Fine Row,-1.00,,,Checking\n")

	doc, err := ExtractCSV(data)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Warnings)
}
