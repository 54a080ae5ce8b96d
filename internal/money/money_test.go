package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromWon(t *testing.T) {
	assert.Equal(t, 30000.0, FromWon(300_000_000))
	assert.Equal(t, 0.5, FromWon(5000))
}

func TestFormatManwon(t *testing.T) {
	cases := map[float64]string{
		0:        "0원",
		7000:     "7,000만원",
		30000:    "3억원",
		35000:    "3억 5,000만원",
		74477.8:  "7억 4,478만원",
		-2500:    "-2,500만원",
		1250000:  "125억원",
		12345678: "1,234억 5,678만원",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatManwon(in), "input %v", in)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 40.0, Percent(0.4))
	assert.Equal(t, 59.7, Percent(0.59718))
	assert.Equal(t, 0.0, Percent(0))
}
