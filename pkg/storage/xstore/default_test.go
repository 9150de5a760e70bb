package xstore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xmutex/pkg/storage/xstore"
)

func TestDefaultPath(t *testing.T) {
	path, err := xstore.DefaultPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(xstore.DefaultStoreName, xstore.DefaultStoreName+".db"),
		filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
