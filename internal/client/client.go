// Package client implements the typed HTTP API client: multipart video
// submissions with progress reporting and timeout handling, plus a generic
// authenticated fetch for admin endpoints. Every operation returns a Result
// and never leaks raw transport errors to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"igait-client/internal/config"
	"igait-client/internal/domain"
	"igait-client/internal/validation"
	"igait-client/pkg/result"
)

const (
	submitSuccessMessage     = "Success! Your submission has been received. You will receive an email with your results shortly."
	contributeSuccessMessage = "Your submission has been received! Thank you for contributing to iGait research."

	timeoutMessage  = "Request timed out. Your files might be too large or your connection is slow."
	networkMessage  = "Network error. Please check your internet connection."
	fileReadMessage = "Could not read the selected video files. Please check the files and try again."
)

// TokenProvider supplies a bearer token for authenticated calls. An Err
// means there is no usable session; it propagates before any network call.
type TokenProvider interface {
	IDToken(ctx context.Context) result.Result[string]
}

// ProgressFunc receives upload progress as a percentage. Within one
// submission, reported values never decrease and end at 100 on success.
type ProgressFunc func(percent int)

// Client is the iGait HTTP API client.
type Client struct {
	cfg       *config.Config
	tokens    TokenProvider
	validator *validation.Validator
	http      *http.Client
	logger    *zap.Logger
}

// New creates a Client. The HTTP client carries no timeout of its own; each
// request is bounded by the configured request timeout through its context.
func New(cfg *config.Config, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		cfg:       cfg,
		tokens:    tokens,
		validator: validation.New(cfg.MaxVideoSizeMB, cfg.VideoExtensions),
		http:      &http.Client{},
		logger:    logger,
	}
}

// SubmitContribution validates and uploads a full screening submission.
// Video bytes stream through the request; their progress is mapped into the
// 5–90 band so callers can distinguish transfer from pre/post-processing.
func (c *Client) SubmitContribution(ctx context.Context, req domain.ContributionRequest, onProgress ProgressFunc) result.Result[string] {
	validated := c.validator.ValidateSubmission(req)
	if validated.IsErr() {
		return result.Err[string](validated.Error())
	}
	req = validated.Value()

	requestID := uuid.NewString()
	c.logger.Info("submitting contribution",
		zap.String("request_id", requestID),
		zap.String("uid", req.UID),
		zap.Int64("front_bytes", req.FrontVideo.Size),
		zap.Int64("side_bytes", req.SideVideo.Size))

	progress := newProgressTracker(onProgress)
	progress.report(5)

	fields := []formField{
		{"uid", req.UID},
		{"age", strconv.Itoa(req.Age)},
		{"ethnicity", req.Ethnicity},
		{"sex", req.Sex},
		{"height", fmt.Sprintf("%d'%d", req.HeightFeet, req.HeightInches)},
		{"weight", strconv.Itoa(req.Weight)},
		{"email", req.Email},
	}
	if req.RequiresApproval {
		fields = append(fields, formField{"requires_approval", "true"})
	}

	body, contentType := multipartBody(fields,
		[]filePart{
			{"fileuploadfront", req.FrontVideo},
			{"fileuploadside", req.SideVideo},
		},
		progress.fileProgress(req.FrontVideo.Size+req.SideVideo.Size))

	res := c.postMultipart(ctx, c.cfg.UploadURL(), body, contentType)
	if res.IsErr() {
		c.logger.Warn("submission failed",
			zap.String("request_id", requestID),
			zap.String("error", res.Error().FullMessage()))
		return res
	}

	progress.report(100)
	c.logger.Info("submission accepted", zap.String("request_id", requestID))
	return result.Ok(submitSuccessMessage)
}

// SubmitResearchContribution uploads the reduced research form. Progress is
// reported as coarse milestones since the payload is small.
func (c *Client) SubmitResearchContribution(ctx context.Context, req domain.ResearchContributionRequest, onProgress ProgressFunc) result.Result[string] {
	validated := c.validator.ValidateResearchSubmission(req)
	if validated.IsErr() {
		return result.Err[string](validated.Error())
	}
	req = validated.Value()

	requestID := uuid.NewString()
	c.logger.Info("submitting research contribution",
		zap.String("request_id", requestID),
		zap.String("uid", req.UID))

	progress := newProgressTracker(onProgress)
	progress.report(10)

	body, contentType := multipartBody(
		[]formField{
			{"uid", req.UID},
			{"name", req.Name},
			{"email", req.Email},
		},
		[]filePart{
			{"fileuploadfront", req.FrontVideo},
			{"fileuploadside", req.SideVideo},
		},
		nil)

	progress.report(20)

	res := c.postMultipart(ctx, c.cfg.ContributeURL(), body, contentType)
	if res.IsErr() {
		return res
	}

	progress.report(80)
	progress.report(100)
	return result.Ok(contributeSuccessMessage)
}

// postMultipart sends the body and classifies every failure mode into a
// distinct user-readable error.
func (c *Client) postMultipart(ctx context.Context, url string, body io.Reader, contentType string) result.Result[string] {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return result.Err[string](result.From(err).WithContext("Submission failed"))
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return result.Err[string](classifyTransportError(ctx, err).WithContext("Submission failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyText := readBodyText(resp.Body)
		return result.Err[string](
			result.Newf("Server error (%d): %s", resp.StatusCode, bodyText).
				WithContext("Submission failed"))
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return result.Ok("")
}

// classifyTransportError separates the client-side timeout, local file
// failures surfaced through the request body, and plain connectivity
// failures. Raw transport text never reaches the user.
func classifyTransportError(ctx context.Context, err error) *result.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result.New(timeoutMessage)
	}
	if errors.Is(err, context.Canceled) {
		return result.New("Request was cancelled")
	}
	var srcErr *sourceError
	if errors.As(err, &srcErr) {
		return result.New(fileReadMessage)
	}
	return result.New(networkMessage)
}

func readBodyText(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return "Unknown error"
	}
	return string(bytes.TrimSpace(data))
}

// RequestOptions tunes an AuthenticatedFetch call.
type RequestOptions struct {
	Method string
	Body   io.Reader
	Header http.Header
}

// AuthenticatedFetch performs a bearer-authenticated JSON request and
// decodes the response into T. An auth failure short-circuits before any
// network traffic.
func AuthenticatedFetch[T any](ctx context.Context, c *Client, url string, opts *RequestOptions) result.Result[T] {
	token := c.tokens.IDToken(ctx)
	if token.IsErr() {
		return result.Err[T](token.Error())
	}

	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, url, opts.Body)
	if err != nil {
		return result.Err[T](result.From(err).WithContext("API request failed"))
	}
	for key, values := range opts.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.Value())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return result.Err[T](classifyTransportError(ctx, err).WithContext("API request failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyText := readBodyText(resp.Body)
		return result.Err[T](
			result.Newf("API error (%d): %s", resp.StatusCode, bodyText).
				WithContext("API request failed"))
	}

	return result.Try(func() (T, error) {
		var value T
		err := json.NewDecoder(resp.Body).Decode(&value)
		return value, err
	}, "API request failed")
}

// RerunJob asks the backend to re-process a job starting from a stage.
// Administrators only.
func (c *Client) RerunJob(ctx context.Context, userID string, jobIndex, stage int) result.Result[domain.RerunResponse] {
	payload, err := json.Marshal(map[string]any{
		"user_id":   userID,
		"job_index": jobIndex,
		"stage":     stage,
	})
	if err != nil {
		return result.Err[domain.RerunResponse](result.From(err).WithContext("API request failed"))
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return AuthenticatedFetch[domain.RerunResponse](ctx, c, c.cfg.APIBaseURL+"/rerun", &RequestOptions{
		Method: http.MethodPost,
		Body:   bytes.NewReader(payload),
		Header: header,
	})
}

// JobFiles fetches the presigned artifact URLs for a job, grouped by stage.
// Administrators only.
func (c *Client) JobFiles(ctx context.Context, jobID string) result.Result[domain.JobFilesResponse] {
	return AuthenticatedFetch[domain.JobFilesResponse](ctx, c, c.cfg.APIBaseURL+"/files/"+jobID, nil)
}
