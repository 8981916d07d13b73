package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/vytor/quests/internal/errors"
	"github.com/vytor/quests/internal/logger"
	"github.com/vytor/quests/internal/storage"
	"github.com/vytor/quests/internal/worker"
)

// UploadResult is the outcome of one file of an upload request.
type UploadResult struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
}

// UploadService stores media files through the upload pool.
type UploadService interface {
	// UploadFiles stores every file and reports each outcome separately.
	UploadFiles(ctx context.Context, files []storage.File) []UploadResult
	// Store stores every file and groups the URLs by form field. It fails if
	// any file fails.
	Store(ctx context.Context, files []storage.File) (map[string][]string, error)
}

type uploadService struct {
	uploader storage.Uploader
	pool     *worker.Pool
}

// NewUploadService creates a new UploadService
func NewUploadService(uploader storage.Uploader, pool *worker.Pool) UploadService {
	return &uploadService{uploader: uploader, pool: pool}
}

type uploadJob struct {
	uploader storage.Uploader
	file     storage.File
	url      string
}

func (j *uploadJob) Name() string { return "upload:" + j.file.Field }

func (j *uploadJob) Run(ctx context.Context) error {
	url, err := j.uploader.Upload(ctx, j.file)
	if err != nil {
		return err
	}
	j.url = url
	return nil
}

func (s *uploadService) run(ctx context.Context, files []storage.File) ([]*uploadJob, []error) {
	jobs := make([]*uploadJob, len(files))
	queued := make([]worker.Job, len(files))
	for i, f := range files {
		jobs[i] = &uploadJob{uploader: s.uploader, file: f}
		queued[i] = jobs[i]
	}
	return jobs, s.pool.RunAll(ctx, queued)
}

func (s *uploadService) UploadFiles(ctx context.Context, files []storage.File) []UploadResult {
	log := logger.FromContext(ctx)
	log.Debug("uploading %d files", len(files))

	jobs, errs := s.run(ctx, files)
	results := make([]UploadResult, len(files))
	for i, job := range jobs {
		results[i] = UploadResult{Field: job.file.Field, Name: job.file.Name, URL: job.url}
		if errs[i] != nil {
			log.Warn("upload of %s failed: %v", job.file.Name, errs[i])
			results[i].URL = ""
			results[i].Error = uploadReason(errs[i])
		}
	}
	return results
}

func (s *uploadService) Store(ctx context.Context, files []storage.File) (map[string][]string, error) {
	log := logger.FromContext(ctx)
	urls := make(map[string][]string)
	if len(files) == 0 {
		return urls, nil
	}
	log.Debug("storing %d files", len(files))

	jobs, errs := s.run(ctx, files)
	var fields []errors.FieldError
	for i, job := range jobs {
		err := errs[i]
		switch {
		case err == nil:
			urls[job.file.Field] = append(urls[job.file.Field], job.url)
		case stderrors.Is(err, storage.ErrUnsupportedType):
			fields = append(fields, errors.FieldError{Record: i, Field: job.file.Field, Reason: uploadReason(err)})
		default:
			log.Error("failed to store %s: %v", job.file.Name, err)
			return nil, errors.NewInternalError(fmt.Errorf("store %s: %w", job.file.Name, err))
		}
	}
	if len(fields) > 0 {
		return nil, errors.NewValidationFailed(fields...)
	}
	return urls, nil
}

func uploadReason(err error) string {
	if stderrors.Is(err, storage.ErrUnsupportedType) {
		return "unsupported media type"
	}
	return "upload failed"
}
