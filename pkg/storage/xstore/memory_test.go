package xstore_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xmutex/pkg/storage/xstore"
)

func TestOpenMemory_Validation(t *testing.T) {
	_, err := xstore.OpenMemory("")
	assert.ErrorIs(t, err, xstore.ErrEmptyName)
	_, err = xstore.OpenMemory("   ")
	assert.ErrorIs(t, err, xstore.ErrEmptyName)
}

func TestOpenMemory_SameNameSharesState(t *testing.T) {
	ctx := context.Background()

	a, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer a.Close()

	b, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, "c", "k", []byte("v")))

	got, exists, err := b.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.True(t, exists)
	assert.Equal(t, []byte("v"), got)
}

func TestMemory_GetAbsent(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	_, exists, err := st.Get(ctx, "c", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemory_UpdateWriteAndDecline(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	// 不存在 → 写入
	wrote, err := st.Update(ctx, "c", "k", func(current []byte, exists bool) ([]byte, bool, error) {
		assert.Nil(t, current)
		assert.False(t, exists)
		return []byte("v1"), true, nil
	})
	require.NoError(t, err)
	assert.True(t, wrote)

	// 放弃写入 → (false, nil) 且值不变
	wrote, err = st.Update(ctx, "c", "k", func(current []byte, exists bool) ([]byte, bool, error) {
		assert.Equal(t, []byte("v1"), current)
		assert.True(t, exists)
		return nil, false, nil
	})
	require.NoError(t, err)
	assert.False(t, wrote)

	got, _, err := st.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestMemory_UpdateDecideError(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	wantErr := assert.AnError
	_, err = st.Update(ctx, "c", "k", func([]byte, bool) ([]byte, bool, error) {
		return nil, false, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestMemory_UpdateAtomicUnderConcurrency(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	const workers = 64

	// 每个协程在一次 Update 内读取计数并加一；
	// 事务原子性成立时终值必为 workers
	g := new(errgroup.Group)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := st.Update(ctx, "c", "counter", func(current []byte, exists bool) ([]byte, bool, error) {
				n := 0
				if exists {
					v, err := strconv.Atoi(string(current))
					if err != nil {
						return nil, false, err
					}
					n = v
				}
				return []byte(strconv.Itoa(n + 1)), true, nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, _, err := st.Get(ctx, "c", "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(got))
}

func TestMemory_DecideCannotMutateStore(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Put(ctx, "c", "k", []byte("abc")))

	_, err = st.Update(ctx, "c", "k", func(current []byte, _ bool) ([]byte, bool, error) {
		current[0] = 'X' // 拿到的是副本
		return nil, false, nil
	})
	require.NoError(t, err)

	got, _, err := st.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestMemory_Closed(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = st.Get(ctx, "c", "k")
	assert.ErrorIs(t, err, xstore.ErrStoreClosed)
	assert.ErrorIs(t, st.Put(ctx, "c", "k", nil), xstore.ErrStoreClosed)
	_, err = st.Update(ctx, "c", "k", func([]byte, bool) ([]byte, bool, error) { return nil, false, nil })
	assert.ErrorIs(t, err, xstore.ErrStoreClosed)
	assert.ErrorIs(t, st.Health(ctx), xstore.ErrStoreClosed)

	// Close 幂等
	require.NoError(t, st.Close())
}

func TestMemory_CloseRemovesFromRegistry(t *testing.T) {
	ctx := context.Background()

	a, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, a.Put(ctx, "c", "k", []byte("v")))
	require.NoError(t, a.Close())

	// 关闭后再次打开得到全新的空存储
	b, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer b.Close()

	_, exists, err := b.Get(ctx, "c", "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemory_OpValidation(t *testing.T) {
	ctx := context.Background()

	st, err := xstore.OpenMemory(t.Name())
	require.NoError(t, err)
	defer st.Close()

	decide := func([]byte, bool) ([]byte, bool, error) { return nil, false, nil }

	//nolint:staticcheck // 刻意传 nil 验证防御
	_, err = st.Update(nil, "c", "k", decide)
	assert.ErrorIs(t, err, xstore.ErrNilContext)

	_, err = st.Update(ctx, "", "k", decide)
	assert.ErrorIs(t, err, xstore.ErrEmptyCollection)

	_, err = st.Update(ctx, "c", " ", decide)
	assert.ErrorIs(t, err, xstore.ErrEmptyKey)

	_, err = st.Update(ctx, "c", "k", nil)
	assert.ErrorIs(t, err, xstore.ErrNilDecide)
}
