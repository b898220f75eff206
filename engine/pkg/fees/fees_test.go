package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatehouse_Fees_SplitTruncatesSmallAmounts(t *testing.T) {
	t.Parallel()

	// 4% and 8% of 10 both truncate to 0.
	p := Percents{Protocol: 4, Subject: 8, Referral: 0}

	legs, err := Split(p, 10, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), legs.Protocol)
	require.Equal(t, uint64(0), legs.Subject)
	require.Equal(t, uint64(0), legs.Referral)
}

func TestGatehouse_Fees_SplitReferralZeroWithoutReferrer(t *testing.T) {
	t.Parallel()

	p := Percents{Protocol: 4, Subject: 8, Referral: 5}

	legs, err := Split(p, 1000, false)
	require.NoError(t, err)
	require.Equal(t, uint64(40), legs.Protocol)
	require.Equal(t, uint64(80), legs.Subject)
	require.Equal(t, uint64(0), legs.Referral)

	legs, err = Split(p, 1000, true)
	require.NoError(t, err)
	require.Equal(t, uint64(50), legs.Referral)
}

func TestGatehouse_Fees_Conservation(t *testing.T) {
	t.Parallel()

	p := Percents{Protocol: 33, Subject: 33, Referral: 34}

	for _, gross := range []uint64{0, 1, 2, 3, 7, 10, 99, 100, 101, 12345, 1 << 40} {
		legs, err := Split(p, gross, true)
		require.NoError(t, err)
		require.LessOrEqual(t, legs.Sum(), gross, "legs exceed gross %d", gross)
	}
}

func TestGatehouse_Fees_SplitOverflow(t *testing.T) {
	t.Parallel()

	p := Percents{Protocol: 4, Subject: 8, Referral: 0}

	_, err := Split(p, math.MaxUint64, false)
	require.Error(t, err)
}

func TestGatehouse_Fees_PercentsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Percents{Protocol: 50, Subject: 40, Referral: 10}.Validate())
	require.Error(t, Percents{Protocol: 50, Subject: 41, Referral: 10}.Validate())
	require.NoError(t, Percents{}.Validate())
}
