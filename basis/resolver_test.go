package basis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkallas/cryptotax/tax"
)

func TestRecordAcquisitionFansOut(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalWarn)
	_, err := r.RecordAcquisition("BTC", d("1"), d("30000"), day(0), "tx1")
	require.NoError(t, err)
	_, err = r.RecordAcquisition("BTC", d("1"), d("40000"), day(60), "tx2")
	require.NoError(t, err)

	// Both trackers see every acquisition, so the method can change
	// between runs without re-processing history.
	assert.True(t, r.FIFO().TotalRemaining("BTC").Equal(d("2")))
	p, ok := r.WeightedAverage().Position("BTC")
	require.True(t, ok)
	assert.True(t, p.TotalAmount.Equal(d("2")))
	assert.True(t, p.TotalCost.Equal(d("70000")))
}

func TestResolveDisposalFIFO(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalWarn)
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := r.RecordAcquisition("BTC", d("1"), d("30000"), jan, "tx1")
	require.NoError(t, err)
	_, err = r.RecordAcquisition("BTC", d("1"), d("40000"), mar, "tx2")
	require.NoError(t, err)

	res, err := r.ResolveDisposal(tax.MethodFIFO, "BTC", d("1"), d("44800"), jun)
	require.NoError(t, err)

	assert.True(t, res.TotalCostBasis.Equal(d("30000")))
	assert.True(t, res.Gain.Equal(d("14800")))
	require.Len(t, res.MatchedLots, 1)
	assert.Equal(t, jan, res.MatchedLots[0].AcquisitionDate)
	assert.True(t, res.Unmatched.IsZero())
}

func TestResolveDisposalWeightedAverage(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalWarn)
	_, err := r.RecordAcquisition("BTC", d("1"), d("30000"), day(0), "tx1")
	require.NoError(t, err)
	_, err = r.RecordAcquisition("BTC", d("1"), d("40000"), day(60), "tx2")
	require.NoError(t, err)

	res, err := r.ResolveDisposal(tax.MethodWeightedAverage, "BTC", d("1"), d("44800"), day(150))
	require.NoError(t, err)

	assert.True(t, res.TotalCostBasis.Equal(d("35000")))
	assert.True(t, res.AverageCostUsed.Equal(d("35000")))
	assert.True(t, res.Gain.Equal(d("9800")))
	assert.Empty(t, res.MatchedLots)
}

func TestResolveDisposalNoBasis(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalWarn)
	res, err := r.ResolveDisposal(tax.MethodFIFO, "BTC", d("0.5"), d("20000"), day(0))
	require.NoError(t, err)

	// Nothing on record: the full proceeds are gain.
	assert.True(t, res.TotalCostBasis.IsZero())
	assert.True(t, res.Gain.Equal(d("20000")))
	assert.True(t, res.Unmatched.Equal(d("0.5")))
}

func TestOverDisposalErrorPolicy(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalError)
	_, err := r.RecordAcquisition("BTC", d("1"), d("30000"), day(0), "tx1")
	require.NoError(t, err)

	_, err = r.ResolveDisposal(tax.MethodFIFO, "BTC", d("2"), d("90000"), day(10))
	var over *ErrOverDisposal
	require.ErrorAs(t, err, &over)
	assert.True(t, over.Available.Equal(d("1")))

	// The rejected disposal must not have touched any state.
	assert.True(t, r.FIFO().TotalRemaining("BTC").Equal(d("1")))

	_, err = r.ResolveDisposal(tax.MethodWeightedAverage, "BTC", d("2"), d("90000"), day(10))
	require.ErrorAs(t, err, &over)
	p, ok := r.WeightedAverage().Position("BTC")
	require.True(t, ok)
	assert.True(t, p.TotalAmount.Equal(d("1")))
}

func TestResolveDisposalUnknownMethod(t *testing.T) {
	t.Parallel()

	r := NewResolver(OverDisposalWarn)
	_, err := r.ResolveDisposal(tax.CostBasisMethod("lifo"), "BTC", d("1"), d("1"), day(0))
	assert.Error(t, err)
}
