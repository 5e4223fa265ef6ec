// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"time"
)

type (
	AuthStatus string
	Phase      string
	EventKind  string
)

const (
	AuthAuthorized    AuthStatus = "authorized"
	AuthDenied        AuthStatus = "denied"
	AuthRestricted    AuthStatus = "restricted"
	AuthLimited       AuthStatus = "limited"
	AuthNotDetermined AuthStatus = "not_determined"
)

// AuthErrors - причина отказа в доступе для каждого статуса кроме authorized
var AuthErrors = map[AuthStatus]error{
	AuthDenied:        ErrAccessDenied,
	AuthRestricted:    ErrAccessRestricted,
	AuthLimited:       ErrAccessLimited,
	AuthNotDetermined: ErrAccessNotDetermined,
}

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhasePurging Phase = "purging"
)

// подсостояния фазы ready
const (
	ShowingPhoto = "showing_photo"
	ShowingBlank = "showing_blank"
)

//---------------------

// Photo is one library item under review. Identity is the ID alone.
type Photo struct {
	ID                string    `json:"id"`
	MarkedForDeletion bool      `json:"marked_for_deletion"`
	CapturedAt        time.Time `json:"captured_at,omitempty"`
}

// Flags is the persisted {id -> marked} snapshot.
type Flags map[string]bool

// ReviewState is a detached copy of the workflow state.
type ReviewState struct {
	Phase     Phase   `json:"phase"`
	Showing   string  `json:"showing,omitempty"`
	CurrentID string  `json:"current_id,omitempty"`
	Pending   int     `json:"pending_deletion"`
	Photos    []Photo `json:"photos"`
}

// PurgeResult is what the caller of a purge gets back on success.
type PurgeResult struct {
	BatchID string   `json:"batch_id,omitempty"`
	Deleted int      `json:"deleted"`
	IDs     []string `json:"-"`
	Message string   `json:"message"`
}

//-------------------

const (
	EventPhotoReady EventKind = "photo_ready"
	EventTrashCount EventKind = "trash_count"
	EventError      EventKind = "error"
)

// Event is the single tagged type of the stream consumed by screens.
// For photo_ready a nil Image together with Blank=true means "nothing to show".
type Event struct {
	Seq     uint64      `json:"seq"`
	Kind    EventKind   `json:"kind"`
	PhotoID string      `json:"photo_id,omitempty"`
	Image   image.Image `json:"-"`
	Blank   bool        `json:"blank,omitempty"`
	Count   int         `json:"count"`
	Message string      `json:"message,omitempty"`
	At      time.Time   `json:"at"`
}

//-------------------

// PurgeRecord - запись аудита удаления, уходит в кафку и оседает в БД
type PurgeRecord struct {
	BatchID  string      `json:"batch_id"`
	Deleted  int         `json:"deleted"`
	PhotoIDs StringSlice `json:"photo_ids"`
	Source   string      `json:"source"`
	PurgedAt time.Time   `json:"purged_at"`
}

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Order string `form:"order"`
}

const (
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500            error = errors.New("something went wrong. Try again later")          // 500
	ErrIncorrectQuery       error = errors.New("incorrect query parameters")                     // 400
	ErrConfirmRequired      error = errors.New("deletion must be confirmed")                     // 400
	ErrPhotoNotFound        error = errors.New("specified photo doesn't exist")                  // 404
	ErrAccessDenied         error = errors.New("photo access permission denied")                 // 403
	ErrAccessRestricted     error = errors.New("photo access is restricted")                     // 403
	ErrAccessLimited        error = errors.New("photo access is limited to a selection")         // 403
	ErrAccessNotDetermined  error = errors.New("photo access permission not determined")         // 403
	ErrImageFetch           error = errors.New("error fetching image")                           // только в событиях
	ErrDeletionNotPermitted error = errors.New("deletion not permitted")                         // 403 или 500
	ErrDeletionDeclined     error = errors.New("deletion declined by the user")                  // 403
	ErrWorkflowBusy         error = errors.New("another reload or purge is in progress")         // 409
	ErrWorkflowStopped      error = errors.New("review workflow is not running")                 // 500
)

// DeletionRefused reports whether a failed purge was a refusal (user or
// permissions) rather than an I/O failure.
func DeletionRefused(err error) bool {
	return errors.Is(err, ErrDeletionDeclined) ||
		errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, fs.ErrPermission)
}

// PurgeFailureMessage is the text a screen shows for a failed purge.
func PurgeFailureMessage(err error) string {
	if DeletionRefused(err) {
		return "You did not allow these photos to be deleted"
	}
	return "Photos could not be deleted: " + err.Error()
}

//--------------------

const JPEG = "image/jpeg"

//--------------------

// StringSlice is stored as a JSON array (JSONB in postgres, TEXT in sqlite).
type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*s = []string{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("invalid type %T for StringSlice", value)
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSON to StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal StringSlice to JSON: %w", err)
	}

	return res, nil
}
