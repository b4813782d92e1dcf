// Package s3fs serves object-store paths such as s3://bucket/key as files.
//
// Reads are lazy ranged GETs, so seeking is cheap and only the bytes actually
// read are transferred. Writes are buffered in memory and uploaded in a
// single PUT when the file is closed; only sequential writes are supported.
package s3fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"tokenprep/internal/port"
)

// Client is the subset of the S3 API used here. *s3.S3 implements it.
type Client interface {
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Options describes the connection to the object store.
type Options struct {
	Region         string
	Endpoint       string
	ForcePathStyle bool
}

// FS opens objects as files.
type FS struct {
	client Client
}

// New connects to S3 (or an S3-compatible endpoint) using the default
// credential chain.
func New(opts Options) (*FS, error) {
	cfg := &aws.Config{
		Region:           aws.String(opts.Region),
		S3ForcePathStyle: aws.Bool(opts.ForcePathStyle),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store session: %w", err)
	}
	return NewWithClient(s3.New(sess)), nil
}

func NewWithClient(client Client) *FS {
	return &FS{client: client}
}

// SplitPath splits scheme://bucket/key into bucket and key.
func SplitPath(name string) (bucket, key string, err error) {
	i := strings.Index(name, "://")
	if i < 0 {
		return "", "", fmt.Errorf("not an object store path: %s", name)
	}
	rest := name[i+3:]
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", fmt.Errorf("object store path needs bucket and key: %s", name)
	}
	return rest[:slash], rest[slash+1:], nil
}

// OpenFile opens an object. O_RDONLY reads an existing object;
// O_WRONLY (with O_CREATE) replaces the object on Close. perm is ignored.
func (s *FS) OpenFile(ctx context.Context, name string, flag int, _ os.FileMode) (port.File, error) {
	bucket, key, err := SplitPath(name)
	if err != nil {
		return nil, &iofs.PathError{Op: "open", Path: name, Err: err}
	}

	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, &iofs.PathError{Op: "open", Path: name, Err: translate(err)}
		}
		return &File{
			ctx:    ctx,
			client: s.client,
			name:   name,
			bucket: bucket,
			key:    key,
			size:   aws.Int64Value(out.ContentLength),
		}, nil
	case os.O_WRONLY:
		if flag&os.O_APPEND != 0 {
			return nil, &iofs.PathError{Op: "open", Path: name, Err: errors.ErrUnsupported}
		}
		return &File{
			ctx:     ctx,
			client:  s.client,
			name:    name,
			bucket:  bucket,
			key:     key,
			writing: true,
		}, nil
	default:
		return nil, &iofs.PathError{Op: "open", Path: name, Err: errors.ErrUnsupported}
	}
}

func translate(err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return fmt.Errorf("%w: %s", iofs.ErrNotExist, aerr.Message())
		case "Forbidden", "AccessDenied":
			return fmt.Errorf("%w: %s", iofs.ErrPermission, aerr.Message())
		}
	}
	return err
}

// File is an open object.
type File struct {
	ctx    context.Context
	client Client
	name   string
	bucket string
	key    string

	size int64
	off  int64
	body io.ReadCloser

	writing bool
	buf     bytes.Buffer
	closed  bool
}

func (f *File) Name() string { return f.name }

// Size returns the object size without a request.
func (f *File) Size() (int64, error) {
	if f.writing {
		return int64(f.buf.Len()), nil
	}
	return f.size, nil
}

func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.writing {
		return 0, &iofs.PathError{Op: "read", Path: f.name, Err: errors.ErrUnsupported}
	}
	if f.off >= f.size {
		return 0, io.EOF
	}
	if f.body == nil {
		out, err := f.client.GetObjectWithContext(f.ctx, &s3.GetObjectInput{
			Bucket: aws.String(f.bucket),
			Key:    aws.String(f.key),
			Range:  aws.String(fmt.Sprintf("bytes=%d-", f.off)),
		})
		if err != nil {
			return 0, &iofs.PathError{Op: "read", Path: f.name, Err: translate(err)}
		}
		f.body = out.Body
	}
	n, err := f.body.Read(p)
	f.off += int64(n)
	if err == io.EOF && f.off < f.size {
		// body ended early; reopen from the new offset on the next read
		f.body.Close()
		f.body = nil
		err = nil
	}
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.writing {
		return 0, &iofs.PathError{Op: "write", Path: f.name, Err: errors.ErrUnsupported}
	}
	if f.off != int64(f.buf.Len()) {
		return 0, &iofs.PathError{Op: "write", Path: f.name, Err: errors.ErrUnsupported}
	}
	n, _ := f.buf.Write(p)
	f.off += int64(n)
	return n, nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	size, _ := f.Size()
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = size + offset
	default:
		return 0, &iofs.PathError{Op: "seek", Path: f.name, Err: errors.New("invalid whence")}
	}
	if abs < 0 {
		return 0, &iofs.PathError{Op: "seek", Path: f.name, Err: errors.New("negative position")}
	}
	if abs != f.off && f.body != nil {
		f.body.Close()
		f.body = nil
	}
	f.off = abs
	return abs, nil
}

// Abort closes the file without uploading anything written to it.
func (f *File) Abort() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	if f.body != nil {
		f.body.Close()
		f.body = nil
	}
	f.buf.Reset()
	return nil
}

// Close releases the read stream, or uploads the buffered object.
func (f *File) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	if f.body != nil {
		f.body.Close()
		f.body = nil
	}
	if !f.writing {
		return nil
	}
	_, err := f.client.PutObjectWithContext(f.ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
		Body:   bytes.NewReader(f.buf.Bytes()),
	})
	if err != nil {
		return &iofs.PathError{Op: "close", Path: f.name, Err: translate(err)}
	}
	return nil
}
