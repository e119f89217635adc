package checks

import (
	"context"
	"errors"
	"testing"

	"mixer-report/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func objects(objs ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objs))
	for _, o := range objs {
		ch <- o
	}
	close(ch)
	return ch
}

func withPrefix(prefix string) any {
	return mock.MatchedBy(func(o minio.ListObjectsOptions) bool { return o.Prefix == prefix })
}

func TestCheckExports(t *testing.T) {
	ctx := context.Background()
	prefixes := map[string]string{"batch": "exports/sand/", "windows": "exports/booking/"}

	t.Run("Bucket Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "mixer").Return(false, nil)

		_, err := CheckExports(ctx, mockClient, "mixer", prefixes)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("Marker Only Counts As Missing", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "mixer").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "mixer", withPrefix("exports/sand/")).
			Return(objects(minio.ObjectInfo{Key: "exports/sand/2025-03-14.xlsx"}))
		mockClient.On("ListObjects", mock.Anything, "mixer", withPrefix("exports/booking/")).
			Return(objects(minio.ObjectInfo{Key: "exports/booking/"}))

		missing, err := CheckExports(ctx, mockClient, "mixer", prefixes)
		require.NoError(t, err)
		assert.Equal(t, []string{"windows"}, missing)
	})

	t.Run("Found Stops Listing", func(t *testing.T) {
		var listCtx context.Context
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "mixer").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "mixer", mock.Anything).
			Run(func(args mock.Arguments) { listCtx = args.Get(0).(context.Context) }).
			Return(objects(
				minio.ObjectInfo{Key: "exports/sand/2025-03-14.xlsx"},
				minio.ObjectInfo{Key: "exports/sand/2025-03-15.xlsx"},
			))

		missing, err := CheckExports(ctx, mockClient, "mixer", map[string]string{"batch": "exports/sand/"})
		require.NoError(t, err)
		assert.Empty(t, missing)
		require.NotNil(t, listCtx)
		assert.ErrorIs(t, listCtx.Err(), context.Canceled)
	})

	t.Run("List Error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "mixer").Return(true, nil)
		mockClient.On("ListObjects", mock.Anything, "mixer", mock.Anything).
			Return(objects(minio.ObjectInfo{Err: errors.New("access denied")}))

		_, err := CheckExports(ctx, mockClient, "mixer", prefixes)
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestFixExports(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "mixer", "exports/booking/", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, nil)

	err := FixExports(context.Background(), mockClient, "mixer", zap.NewNop(),
		map[string]string{"windows": "exports/booking"}, []string{"windows"})
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}
