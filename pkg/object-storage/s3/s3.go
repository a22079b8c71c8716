package s3

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DEFAULT_PRESIGN_EXPIRE = time.Hour

type S3 struct {
	Endpoint string
	Region   string
	Bucket   string
	ak       string
	sk       string
	cli      *s3.Client

	usePathStyle  bool
	presignExpire time.Duration
}

type Option func(*S3)

// WithPathStyle MinIO 需要路径样式 URL（endpoint/bucket 而不是 bucket.endpoint）
func WithPathStyle(v bool) Option {
	return func(s *S3) {
		s.usePathStyle = v
	}
}

func WithPresignExpire(d time.Duration) Option {
	return func(s *S3) {
		if d > 0 {
			s.presignExpire = d
		}
	}
}

func NewS3Client(endpoint, region, bucket, ak, sk string, opts ...Option) (*S3, error) {
	cli := &S3{
		Endpoint:      endpoint,
		Region:        region,
		Bucket:        bucket,
		ak:            ak,
		sk:            sk,
		presignExpire: DEFAULT_PRESIGN_EXPIRE,
	}
	for _, opt := range opts {
		opt(cli)
	}

	if _, err := cli.DefaultConfig(context.Background()); err != nil {
		return nil, err
	}
	return cli, nil
}

func (s *S3) DefaultConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: s.ak, SecretAccessKey: s.sk,
			},
		}),
		config.WithRegion(s.Region),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
	if err != nil {
		return aws.Config{}, err
	}

	s.cli = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s.usePathStyle
	})
	return cfg, nil
}

// ObjectKey 去掉 minio://bucket/key 中的 bucket 前缀
func (s *S3) ObjectKey(object string) string {
	object = strings.TrimPrefix(object, "/")
	if s.Bucket != "" && strings.HasPrefix(object, s.Bucket+"/") {
		return strings.TrimPrefix(object, s.Bucket+"/")
	}
	return object
}

// PresignGetObject 生成对象的临时访问地址
func (s *S3) PresignGetObject(ctx context.Context, object string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	req, err := s3.NewPresignClient(s.cli).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.ObjectKey(object)),
	}, s3.WithPresignExpires(s.presignExpire))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (s *S3) GetObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Upload 归档上传的原始文件
func (s *S3) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := manager.NewUploader(s.cli).Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.ObjectKey(key)),
		Body:   body,
	})
	return err
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.ObjectKey(key)),
	})
	return err
}

// GenRawFilePath 原始文件的归档路径
func GenRawFilePath(knowledgeID, fileType string) string {
	if fileType == "" {
		fileType = "txt"
	}
	return "airag/raw/" + knowledgeID + "." + fileType
}
