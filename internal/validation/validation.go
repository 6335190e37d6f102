// Package validation provides the field-level checks that gate every
// submission before any network traffic. Each check returns a Result so the
// caller decides how to surface the failure.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"igait-client/internal/domain"
	"igait-client/pkg/result"
)

// Basic local@domain.tld shape. This is a UX gate, not a deliverability
// guarantee.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator bundles the configured file limits with a struct-tag validator
// for range checks.
type Validator struct {
	maxVideoSizeMB  int64
	videoExtensions []string
	structValidator *validator.Validate
}

// New creates a Validator with the given video limits. Extensions are
// matched case-insensitively against the end of the filename.
func New(maxVideoSizeMB int64, videoExtensions []string) *Validator {
	return &Validator{
		maxVideoSizeMB:  maxVideoSizeMB,
		videoExtensions: videoExtensions,
		structValidator: validator.New(),
	}
}

// ValidateEmail trims and checks an email address.
func ValidateEmail(email string) result.Result[string] {
	trimmed := strings.TrimSpace(email)

	if len(trimmed) == 0 {
		return result.Err[string](result.New("Email is required"))
	}
	if !emailPattern.MatchString(trimmed) {
		return result.Err[string](result.New("Invalid email format"))
	}

	return result.Ok(trimmed)
}

// ValidateRequired rejects an empty-after-trim string, naming the field.
func ValidateRequired(value, fieldName string) result.Result[string] {
	trimmed := strings.TrimSpace(value)

	if len(trimmed) == 0 {
		return result.Err[string](result.Newf("%s is required", fieldName))
	}

	return result.Ok(trimmed)
}

// ValidatePassword checks minimum password length.
func ValidatePassword(password string) result.Result[string] {
	if len(password) < 6 {
		return result.Err[string](result.New("Password must be at least 6 characters"))
	}
	return result.Ok(password)
}

// ValidatePasswordMatch checks that a password and its confirmation agree.
func ValidatePasswordMatch(password, confirmation string) result.Result[string] {
	if password != confirmation {
		return result.Err[string](result.New("Passwords do not match"))
	}
	return result.Ok(password)
}

// ValidateRange checks an integer against an inclusive range, naming the
// field in the failure message.
func ValidateRange(value, min, max int, fieldName string) result.Result[int] {
	if value < min || value > max {
		return result.Err[int](result.Newf("%s must be between %d and %d", fieldName, min, max))
	}
	return result.Ok(value)
}

// ValidateVideoFile checks a selected video for emptiness, size, and type.
// A file passes the type check when either its MIME type has a video prefix
// or its filename carries a recognized extension.
func (v *Validator) ValidateVideoFile(file domain.VideoFile, fieldName string) result.Result[domain.VideoFile] {
	if file.Size == 0 {
		return result.Err[domain.VideoFile](result.Newf("The %s file is empty", fieldName))
	}

	maxBytes := v.maxVideoSizeMB * 1024 * 1024
	if file.Size > maxBytes {
		sizeMB := float64(file.Size) / (1024 * 1024)
		return result.Err[domain.VideoFile](result.Newf(
			"The %s file is too large (%.1fMB). Maximum size is %dMB",
			fieldName, sizeMB, v.maxVideoSizeMB))
	}

	hasValidMimeType := strings.HasPrefix(file.ContentType, "video/")

	fileName := strings.ToLower(file.Name)
	hasValidExtension := false
	for _, ext := range v.videoExtensions {
		if strings.HasSuffix(fileName, ext) {
			hasValidExtension = true
			break
		}
	}

	if !hasValidMimeType && !hasValidExtension {
		return result.Err[domain.VideoFile](result.Newf(
			"The %s file doesn't appear to be a valid video. Supported formats: %s",
			fieldName, strings.Join(v.videoExtensions, ", ")))
	}

	return result.Ok(file)
}

// ValidateSubmission runs the field validators in fixed order and returns
// the first failure wrapped with an "Invalid submission" frame. On success
// the returned request carries the trimmed email.
func (v *Validator) ValidateSubmission(req domain.ContributionRequest) result.Result[domain.ContributionRequest] {
	emailRes := ValidateEmail(req.Email)
	if emailRes.IsErr() {
		return result.Err[domain.ContributionRequest](emailRes.Error().WithContext("Invalid submission"))
	}
	req.Email = emailRes.Value()

	checks := []result.Result[int]{
		ValidateRange(req.Age, 1, 115, "Age"),
		ValidateRange(req.Weight, 1, 500, "Weight"),
		ValidateRange(req.HeightFeet, 1, 8, "Height (feet)"),
		ValidateRange(req.HeightInches, 0, 11, "Height (inches)"),
	}
	for _, check := range checks {
		if check.IsErr() {
			return result.Err[domain.ContributionRequest](check.Error().WithContext("Invalid submission"))
		}
	}

	if res := v.ValidateVideoFile(req.FrontVideo, "front video"); res.IsErr() {
		return result.Err[domain.ContributionRequest](res.Error().WithContext("Invalid submission"))
	}
	if res := v.ValidateVideoFile(req.SideVideo, "side video"); res.IsErr() {
		return result.Err[domain.ContributionRequest](res.Error().WithContext("Invalid submission"))
	}

	return result.Ok(req)
}

// ValidateResearchSubmission validates the reduced research form: email,
// name, then both videos.
func (v *Validator) ValidateResearchSubmission(req domain.ResearchContributionRequest) result.Result[domain.ResearchContributionRequest] {
	emailRes := ValidateEmail(req.Email)
	if emailRes.IsErr() {
		return result.Err[domain.ResearchContributionRequest](emailRes.Error().WithContext("Invalid submission"))
	}
	req.Email = emailRes.Value()

	nameRes := ValidateRequired(req.Name, "Name")
	if nameRes.IsErr() {
		return result.Err[domain.ResearchContributionRequest](nameRes.Error().WithContext("Invalid submission"))
	}
	req.Name = nameRes.Value()

	if res := v.ValidateVideoFile(req.FrontVideo, "front video"); res.IsErr() {
		return result.Err[domain.ResearchContributionRequest](res.Error().WithContext("Invalid submission"))
	}
	if res := v.ValidateVideoFile(req.SideVideo, "side video"); res.IsErr() {
		return result.Err[domain.ResearchContributionRequest](res.Error().WithContext("Invalid submission"))
	}

	return result.Ok(req)
}

// Struct runs go-playground struct-tag validation, flattening tag failures
// into one readable error.
func (v *Validator) Struct(s any) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
}
