package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/relaybridge/zulip-relay/internal/biz/domain"
	"github.com/stretchr/testify/require"
)

func TestMuteStore_StartsEmpty(t *testing.T) {
	s := NewMuteStore()
	require.NotNil(t, s.Current())
	require.Empty(t, s.Current().StreamIDs())
	require.Zero(t, s.SelfID())
}

func TestMuteStore_ReplaceWholeSnapshot(t *testing.T) {
	s := NewMuteStore()
	s.Replace(domain.NewMuteSnapshot([]int64{1, 2}, nil, time.Now()))
	require.Equal(t, []int64{1, 2}, s.Current().StreamIDs())

	s.Replace(domain.NewMuteSnapshot([]int64{3}, nil, time.Now()))
	require.Equal(t, []int64{3}, s.Current().StreamIDs())

	s.Replace(nil)
	require.Empty(t, s.Current().StreamIDs())

	s.SetSelfID(42)
	require.EqualValues(t, 42, s.SelfID())
}

// Readers must only ever observe one of the published snapshots in full.
func TestMuteStore_ConcurrentReaders(t *testing.T) {
	s := NewMuteStore()
	even := domain.NewMuteSnapshot([]int64{2, 4, 6, 8}, nil, time.Now())
	odd := domain.NewMuteSnapshot([]int64{1, 3, 5, 7}, nil, time.Now())
	s.Replace(even)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan []int64, 1)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ids := s.Current().StreamIDs()
				if len(ids) != 4 || ids[0]%2 != ids[3]%2 {
					select {
					case errs <- ids:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		if i%2 == 0 {
			s.Replace(odd)
		} else {
			s.Replace(even)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case ids := <-errs:
		t.Fatalf("observed mixed snapshot %v", ids)
	default:
	}
}
