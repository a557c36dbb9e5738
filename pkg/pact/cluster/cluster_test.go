package cluster_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/lyb5215659/pact-optimizer/pkg/pact/cluster"
)

type fakeInfo struct {
	delay time.Duration
	types map[string]cluster.InstanceTypeDescription
	err   error
}

func (f *fakeInfo) ListInstanceTypes(ctx context.Context) (map[string]cluster.InstanceTypeDescription, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.types, f.err
}

func TestResolverFetchSucceeds(t *testing.T) {
	info := &fakeInfo{types: map[string]cluster.InstanceTypeDescription{
		"m5.large": {InstanceType: cluster.InstanceType{Identifier: "m5.large"}, MaxAvailableInstances: 4},
	}}
	r := cluster.NewResolver(info, 50*time.Millisecond)

	got, err := r.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestResolverFetchTimesOut(t *testing.T) {
	info := &fakeInfo{delay: 50 * time.Millisecond}
	r := cluster.NewResolver(info, 5*time.Millisecond)

	_, err := r.Fetch(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, cluster.ErrClusterInfo))
	require.Contains(t, err.Error(), "timeout")
}

func TestResolverFetchEmptyInstanceMap(t *testing.T) {
	info := &fakeInfo{types: map[string]cluster.InstanceTypeDescription{}}
	r := cluster.NewResolver(info, 50*time.Millisecond)

	_, err := r.Fetch(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, cluster.ErrClusterInfo))
}

func TestPickPrefersMoreInstancesWithoutMuchLessMemory(t *testing.T) {
	small := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "small"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 1_000_000_000, Cores: 4},
		MaxAvailableInstances: 10,
	}
	large := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "large"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 2_000_000_000, Cores: 8},
		MaxAvailableInstances: 4,
	}

	best, err := cluster.Pick([]cluster.InstanceTypeDescription{large, small})
	require.NoError(t, err)
	require.Equal(t, "small", best.InstanceType.Identifier, "10 instances at comparable aggregate memory beats 4 bigger instances")
}

func TestPickPrefersMuchMoreMemoryAtComparableCores(t *testing.T) {
	modest := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "modest"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 1_000_000_000, Cores: 4},
		MaxAvailableInstances: 4,
	}
	huge := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "huge"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 10_000_000_000, Cores: 4},
		MaxAvailableInstances: 4,
	}

	best, err := cluster.Pick([]cluster.InstanceTypeDescription{modest, huge})
	require.NoError(t, err)
	require.Equal(t, "huge", best.InstanceType.Identifier)
}

func TestPickSkipsDescriptionsWithoutHardware(t *testing.T) {
	bare := cluster.InstanceTypeDescription{MaxAvailableInstances: 100}
	real := cluster.InstanceTypeDescription{
		InstanceType:          cluster.InstanceType{Identifier: "real"},
		Hardware:              cluster.Hardware{FreeMemoryBytes: 1, Cores: 1},
		MaxAvailableInstances: 1,
	}

	best, err := cluster.Pick([]cluster.InstanceTypeDescription{bare, real})
	require.NoError(t, err)
	require.Equal(t, "real", best.InstanceType.Identifier)
}

func TestPickErrorsWhenNothingHasHardware(t *testing.T) {
	_, err := cluster.Pick([]cluster.InstanceTypeDescription{{MaxAvailableInstances: 5}})
	require.Error(t, err)
	require.True(t, errors.Is(err, cluster.ErrClusterInfo))
}

func TestUsableMemoryAppliesReserve(t *testing.T) {
	got := cluster.UsableMemory(cluster.Hardware{FreeMemoryBytes: 100})
	require.Equal(t, int64(96), got)
}
