package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	deleted []string
	delErr  error
	headErr error
	bucket  string
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	if f.delErr != nil {
		return nil, f.delErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func withFakeClient(t *testing.T, fake *fakeS3) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3Client
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3Client = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minio", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}
	return &opts
}

func testOptions() Options {
	return Options{
		Region:       "us-east-1",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		BaseEndpoint: "http://127.0.0.1:9000",
		Bucket:       "resdex-bucket",
	}
}

func TestNewS3ObjectStore_AppliesEndpoint(t *testing.T) {
	opts := withFakeClient(t, &fakeS3{})

	_, err := NewS3ObjectStore(context.Background(), testOptions())
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3ObjectStore_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3ObjectStore(context.Background(), testOptions())
	assert.ErrorContains(t, err, "aws config: no config")
}

func TestDeleteObject(t *testing.T) {
	fake := &fakeS3{}
	withFakeClient(t, fake)
	st, err := NewS3ObjectStore(context.Background(), testOptions())
	require.NoError(t, err)

	require.NoError(t, st.DeleteObject(context.Background(), "docs/a b.pdf"))
	assert.Equal(t, []string{"docs/a b.pdf"}, fake.deleted)
	assert.Equal(t, "resdex-bucket", fake.bucket)

	fake.delErr = errors.New("denied")
	err = st.DeleteObject(context.Background(), "x")
	assert.ErrorContains(t, err, "denied")
}

func TestExists(t *testing.T) {
	fake := &fakeS3{}
	withFakeClient(t, fake)
	st, err := NewS3ObjectStore(context.Background(), testOptions())
	require.NoError(t, err)

	ok, err := st.Exists(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	fake.headErr = &types.NotFound{}
	ok, err = st.Exists(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	fake.headErr = errors.New("timeout")
	_, err = st.Exists(context.Background(), "a.pdf")
	assert.ErrorContains(t, err, "timeout")
}
