package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{"0", 0},
		{"0.00", 0},
		{"1", 100},
		{"0.05", 5},
		{"0.5", 50},
		{"123.4", 12340},
		{"123.40", 12340},
		{"5000.00", 500000},
		{"100.00", 10000},
		{"50.50", 5050},
		{"92233720368547758.07", 9223372036854775807},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"-1",
		"-0.50",
		"1.234",
		"1.2.3",
		"abc",
		"12a",
		"1,000",
		".5",
		"12.",
		" 12",
		"1e2",
		"92233720368547758.08",
	}
	for _, in := range malformed {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestStringRendering(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{50, "0.50"},
		{100, "1.00"},
		{12340, "123.40"},
		{500000, "5000.00"},
		{14600, "146.00"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, tc.in.String())
	}
}

func TestRoundTrip(t *testing.T) {
	// decode(encode(s)) must equal s normalized to two fraction digits.
	cases := map[string]string{
		"0":       "0.00",
		"7":       "7.00",
		"0.3":     "0.30",
		"123.4":   "123.40",
		"123.45":  "123.45",
		"5000.00": "5000.00",
	}
	for in, normalized := range cases {
		a, err := Parse(in)
		require.NoError(t, err)
		require.Equal(t, normalized, a.String())

		again, err := Parse(a.String())
		require.NoError(t, err)
		require.Equal(t, a, again)
	}
}

func TestJSONBoundary(t *testing.T) {
	type payload struct {
		Goal Amount `json:"goal"`
	}

	out, err := json.Marshal(payload{Goal: 12340})
	require.NoError(t, err)
	require.JSONEq(t, `{"goal":"123.40"}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"goal":"5000.00"}`), &in))
	require.Equal(t, Amount(500000), in.Goal)

	require.Error(t, json.Unmarshal([]byte(`{"goal":"12.345"}`), &in))
}

func TestScanAndValue(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan(int64(5050)))
	require.Equal(t, Amount(5050), a)

	require.NoError(t, a.Scan([]byte("14600")))
	require.Equal(t, Amount(14600), a)

	v, err := Amount(99).Value()
	require.NoError(t, err)
	require.Equal(t, int64(99), v)

	require.Error(t, a.Scan("not-a-number-type"))
}

func TestArithmeticStaysExact(t *testing.T) {
	gross1, fee1 := MustParse("100.00"), MustParse("3.00")
	gross2, fee2 := MustParse("50.50"), MustParse("1.50")

	net := gross1.Sub(fee1).Add(gross2.Sub(fee2))
	require.Equal(t, Amount(14600), net)
	require.Equal(t, "146.00", net.String())
}
