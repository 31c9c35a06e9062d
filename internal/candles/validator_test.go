package candles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-strategy-lab/internal/domain"
)

func raw(ts int64, o, h, l, c, v string) domain.RawCandle {
	return domain.RawCandle{TimestampMs: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestValidate_SortsAscending(t *testing.T) {
	input := []domain.RawCandle{
		raw(3000, "10", "11", "9", "10", "1"),
		raw(1000, "10", "11", "9", "10", "1"),
		raw(2000, "10", "11", "9", "10", "1"),
	}

	out, err := Validate(input, Config{MinCandles: 1})
	require.NoError(t, err)
	require.Len(t, out, 3)

	for i := 1; i < len(out); i++ {
		assert.True(t, out[i-1].Timestamp.Before(out[i].Timestamp), "candles not sorted at %d", i)
	}
}

func TestValidate_DropsMalformedRecords(t *testing.T) {
	input := []domain.RawCandle{
		raw(1000, "10", "11", "9", "10", "1"),    // valid
		raw(2000, "10", "9", "9", "10", "1"),     // high < open
		raw(3000, "10", "11", "10.5", "10", "1"), // low > close
		raw(4000, "abc", "11", "9", "10", "1"),   // non-numeric
		raw(5000, "10", "11", "9", "10", "-1"),   // negative volume
		raw(6000, "10", "11", "9", "", "1"),      // missing close
		raw(0, "10", "11", "9", "10", "1"),       // missing timestamp
		raw(7000, "0", "0", "0", "0", "1"),       // non-positive prices
		raw(8000, "10", "12", "8", "11", "0"),    // valid
	}

	out, report, err := ValidateWithReport(input, Config{MinCandles: 1})
	require.NoError(t, err)

	assert.Len(t, out, 2)
	assert.Equal(t, 9, report.Received)
	assert.Equal(t, 7, report.Rejected)
}

func TestValidate_KeepsDuplicateTimestamps(t *testing.T) {
	input := []domain.RawCandle{
		raw(1000, "10", "11", "9", "10", "1"),
		raw(1000, "20", "21", "19", "20", "1"),
	}

	out, err := Validate(input, Config{MinCandles: 1})
	require.NoError(t, err)
	require.Len(t, out, 2)

	// Stable sort keeps input order for equal timestamps
	assert.Equal(t, "10", out[0].Open.String())
	assert.Equal(t, "20", out[1].Open.String())
}

func TestValidate_TruncatesToMostRecent(t *testing.T) {
	var input []domain.RawCandle
	for i := int64(1); i <= 10; i++ {
		input = append(input, raw(i*1000, "10", "11", "9", "10", "1"))
	}

	out, report, err := ValidateWithReport(input, Config{MinCandles: 1, MaxCandles: 4})
	require.NoError(t, err)

	require.Len(t, out, 4)
	assert.Equal(t, 6, report.Truncated)
	assert.Equal(t, int64(7000), out[0].Timestamp.UnixMilli())
	assert.Equal(t, int64(10000), out[3].Timestamp.UnixMilli())
}

func TestValidate_SingleCandleBelowDefaultMinimum(t *testing.T) {
	input := []domain.RawCandle{raw(1000, "10", "11", "9", "10", "1")}

	_, err := Validate(input, Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 1, insufficient.Got)
	assert.Equal(t, domain.DefaultMinCandles, insufficient.Min)
}

func TestValidate_Empty(t *testing.T) {
	_, err := Validate(nil, Config{MinCandles: 1})
	assert.True(t, errors.Is(err, ErrInsufficientData))
}
