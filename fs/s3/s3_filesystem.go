package fss3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	db "github.com/sayden/fqsort"
	"github.com/thehivecorporation/log"
)

// InitS3 returns a filesystem storing blocks as objects of cfg.S3Config.Bucket under
// cfg.S3Config.Prefix. When an endpoint is configured (minio, S3ninja...) path style
// addressing is used. Static credentials are only used when both keys are configured,
// otherwise the default AWS credential chain applies.
func InitS3(cfg *db.Config) (db.Filesystem, error) {
	opts := []func(*s3config.LoadOptions) error{
		s3config.WithRegion(cfg.S3Config.Region),
	}
	if provider := credentialsProvider(cfg.S3Config); provider != nil {
		opts = append(opts, s3config.WithCredentialsProvider(provider))
	}

	s3Cfg, err := s3config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, errors.Join(errors.New("error loading S3 config"), err)
	}

	client := s3.NewFromConfig(s3Cfg, func(o *s3.Options) {
		if cfg.S3Config.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Config.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Fs{
		client: client,
		bucket: cfg.S3Config.Bucket,
		prefix: strings.Trim(cfg.S3Config.Prefix, "/"),
	}, nil
}

func credentialsProvider(c db.S3Config) aws.CredentialsProvider {
	if c.AccessKey == "" || c.SecretKey == "" {
		return nil
	}
	return credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")
}

type s3Fs struct {
	client *s3.Client
	bucket string
	prefix string
}

// key places name under the prefix folder. The separator is kept even for an empty name so
// listing "jobs/" never matches "jobs-old/".
func (s *s3Fs) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// s3BlockWriter buffers a whole block and uploads it on Close. Blocks are bounded by the sort
// memory budget, and PutObject needs a seekable body on plain HTTP endpoints.
type s3BlockWriter struct {
	bytes.Buffer
	fs  *s3Fs
	key string
}

func (w *s3BlockWriter) Close() error {
	_, err := w.fs.client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(w.fs.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.Bytes()),
	})
	if err != nil {
		return errors.Join(fmt.Errorf("error uploading block '%s' to S3", w.key), err)
	}

	log.WithFields(log.Fields{"bucket": w.fs.bucket, "size": w.Len()}).Debugf("Uploaded block '%s'", w.key)
	return nil
}

func (s *s3Fs) Create(name string) (io.WriteCloser, error) {
	return &s3BlockWriter{fs: s, key: s.key(name)}, nil
}

func (s *s3Fs) Open(name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, errors.Join(db.ErrBlockNotFound, err)
		}
		return nil, errors.Join(errors.New("error getting obj from S3"), err)
	}

	return out.Body, nil
}

func (s *s3Fs) Remove(name string) error {
	log.Debugf("Removing block data in 's3://%s/%s'", s.bucket, s.key(name))

	_, err := s.client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return errors.Join(errors.New("error deleting obj from S3"), err)
	}

	return nil
}

func (s *s3Fs) List(prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	names := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.TODO())
		if err != nil {
			return nil, errors.Join(errors.New("error listing objects in S3"), err)
		}
		if page.KeyCount != nil {
			log.WithField("items", *page.KeyCount).Debug("Iterating page")
		}

		for _, object := range page.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(object.Key), s.key("")))
		}
	}
	sort.Strings(names)

	return names, nil
}
