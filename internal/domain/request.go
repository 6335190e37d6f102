package domain

import "io"

// VideoFile is the client-side handle to a video selected for upload.
// Open is deferred so validation can run on name/size/type without touching
// the file contents.
type VideoFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// ContributionRequest is the full demographic + file payload for a
// screening submission. Every field is range-checked before any network
// traffic happens.
type ContributionRequest struct {
	UID              string    `validate:"required"`
	Email            string    `validate:"required"`
	Age              int       `validate:"min=1,max=115"`
	Sex              string    `validate:"required"`
	Ethnicity        string    `validate:"required"`
	HeightFeet       int       `validate:"min=1,max=8"`
	HeightInches     int       `validate:"min=0,max=11"`
	Weight           int       `validate:"min=1,max=500"`
	Role             string    `validate:"required"`
	FrontVideo       VideoFile `validate:"-"`
	SideVideo        VideoFile `validate:"-"`
	RequiresApproval bool
}

// ResearchContributionRequest is the reduced payload for the research data
// collection form. No demographics.
type ResearchContributionRequest struct {
	UID        string `validate:"required"`
	Name       string `validate:"required"`
	Email      string `validate:"required"`
	FrontVideo VideoFile
	SideVideo  VideoFile
}

// RerunResponse is the backend's reply to an admin rerun request.
type RerunResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ObjectsDeleted int    `json:"objects_deleted"`
}

// FileEntry is a stage artifact with its presigned download URL.
type FileEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// JobFilesResponse maps pipeline stages to their artifact files.
type JobFilesResponse struct {
	Stages map[string][]FileEntry `json:"stages"`
}
