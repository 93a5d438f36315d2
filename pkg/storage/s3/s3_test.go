// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package s3

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

type fakeAPI struct {
	objects map[string]string
	headErr error
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(data))}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestPrefixedKeys(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{objects: map[string]string{}}
	s := NewWithClient(api, "archives", "/apollo/")

	require.NoError(t, s.PutObject(ctx, "export-DEV.zip", strings.NewReader("zip"), "application/zip", 3))
	assert.Equal(t, "zip", api.objects["archives/apollo/export-DEV.zip"])
	assert.Equal(t, "s3://archives/apollo/export-DEV.zip", s.Location("export-DEV.zip"))

	ok, err := s.ObjectExists(ctx, "export-DEV.zip")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.GetObject(ctx, "export-DEV.zip")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "zip", string(data))
}

func TestObjectExists(t *testing.T) {
	ctx := context.Background()

	s := NewWithClient(&fakeAPI{objects: map[string]string{}}, "archives", "")
	ok, err := s.ObjectExists(ctx, "missing.zip")
	require.NoError(t, err)
	assert.False(t, ok)

	s = NewWithClient(&fakeAPI{headErr: errors.New("access denied")}, "archives", "")
	_, err = s.ObjectExists(ctx, "any.zip")
	assert.ErrorContains(t, err, "head object")
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorContains(t, err, "bucket")

	_, err = New(Config{Bucket: "b", AccessKey: "only-key"})
	assert.ErrorContains(t, err, "together")
}
