package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client lets each test customize S3 operations through function fields
type mockS3Client struct {
	GetObjectFunc     func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2Func func(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

func (m *mockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(""))}, nil
}

func (m *mockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.ListObjectsV2Func != nil {
		return m.ListObjectsV2Func(ctx, params, optFns...)
	}
	return &s3.ListObjectsV2Output{}, nil
}

func TestS3Bucket_List(t *testing.T) {
	calls := 0
	mock := &mockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			assert.Equal(t, "datasets", aws.ToString(params.Bucket))
			assert.Equal(t, "v1/ds/", aws.ToString(params.Prefix))
			if params.ContinuationToken == nil {
				return &s3.ListObjectsV2Output{
					Contents: []types.Object{
						{Key: aws.String("v1/ds/")},
						{Key: aws.String("v1/ds/a.jpg")},
					},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("page-2"),
				}, nil
			}
			assert.Equal(t, "page-2", aws.ToString(params.ContinuationToken))
			return &s3.ListObjectsV2Output{
				Contents:    []types.Object{{Key: aws.String("v1/ds/b.jpg")}},
				IsTruncated: aws.Bool(false),
			}, nil
		},
	}

	bucket := NewS3BucketWithClient(mock, "datasets")
	keys, err := bucket.List(context.Background(), "v1/ds/")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1/ds/a.jpg", "v1/ds/b.jpg"}, keys)
	assert.Equal(t, 2, calls)
}

func TestS3Bucket_ListPrefixes(t *testing.T) {
	mock := &mockS3Client{
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			assert.Equal(t, "/", aws.ToString(params.Delimiter))
			return &s3.ListObjectsV2Output{
				CommonPrefixes: []types.CommonPrefix{
					{Prefix: aws.String("v1/")},
					{Prefix: aws.String("v2/")},
				},
			}, nil
		},
	}

	store := NewStore(NewS3BucketWithClient(mock, "datasets"))
	versions, err := store.ListVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, versions)
}

func TestS3Bucket_Get(t *testing.T) {
	tests := []struct {
		name     string
		mockFunc func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
		want     string
		wantErr  error
	}{
		{
			name: "reads the body",
			mockFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				assert.Equal(t, "v1/ds/a.jpg", aws.ToString(params.Key))
				return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("image"))}, nil
			},
			want: "image",
		},
		{
			name: "maps NoSuchKey",
			mockFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, &types.NoSuchKey{}
			},
			wantErr: ErrObjectNotFound,
		},
		{
			name: "passes other errors through",
			mockFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
				return nil, context.DeadlineExceeded
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := NewS3BucketWithClient(&mockS3Client{GetObjectFunc: tt.mockFunc}, "datasets")
			data, err := bucket.Get(context.Background(), "v1/ds/a.jpg")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}
