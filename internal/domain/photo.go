package domain

import "time"

// JobState tracks a CaptureJob through the pipeline. Jobs are not stored.
type JobState string

const (
	JobCaptured          JobState = "captured"
	JobUploadingOriginal JobState = "uploading-original"
	JobInvokingProvider  JobState = "invoking-provider"
	JobPolling           JobState = "polling"
	JobDownloadingResult JobState = "downloading-result"
	JobPersisting        JobState = "persisting"
	JobDone              JobState = "done"
	JobFailed            JobState = "failed"
)

// CaptureJob is one guest-photo-to-result attempt.
type CaptureJob struct {
	ID          string
	Image       []byte
	ContentType string
	// DeclaredFormat is the extension or MIME subtype the client claimed.
	DeclaredFormat string
	// EffectKey selects an EffectDefinition; empty means pass-through.
	EffectKey  string
	NormalName string
	ScreenID   string
	ScreenType string
	EventID    string
	StandID    string
	State      JobState
}

// PhotoRecord is the persisted row describing a finished photo.
type PhotoRecord struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	OriginalURL   string    `json:"originalUrl,omitempty"`
	EventID       string    `json:"eventId"`
	StandID       string    `json:"standId"`
	ScreenType    string    `json:"screenType"`
	FilterName    string    `json:"filterName,omitempty"`
	MagicalEffect string    `json:"magicalEffect,omitempty"`
	NormalEffect  string    `json:"normalEffect,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PersistResult is returned by a successful dual write.
type PersistResult struct {
	Record   PhotoRecord
	Path     string
	Category string
}
