package entity

import (
	"fmt"
	"time"

	"github.com/joseph-ayodele/fineprint/constants"
)

// Regulation is the aggregate persisted as one document: versions, their change records and comments.
type Regulation struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Status      constants.RegulationStatus `json:"status"`
	Versions    []Version                  `json:"versions"`
	Comments    []Comment                  `json:"comments"`
	VersionSeq  int                        `json:"version_seq"` // highest N ever issued as "vN"
	Revision    int64                      `json:"revision"`    // optimistic concurrency token
	CreatedAt   time.Time                  `json:"created_at"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// Version is one uploaded snapshot of a regulation.
type Version struct {
	ID            string         `json:"id"`
	Label         string         `json:"version"`
	UploadDate    time.Time      `json:"upload_date"`
	FileName      string         `json:"file_name"`
	StorageKey    string         `json:"storage_key"`
	PageCount     int            `json:"page_count"`
	EnactingRange *PageRange     `json:"enacting_range,omitempty"`
	BaseVersionID string         `json:"base_version_id,omitempty"`
	Changes       []ChangeRecord `json:"detailed_changes"`
}

// ChangeRecord is one detected, classified difference between two versions.
type ChangeRecord struct {
	ID             string                   `json:"id"`
	Summary        string                   `json:"summary"`
	Analysis       string                   `json:"analysis"`
	Change         string                   `json:"change"`
	BeforeQuote    string                   `json:"before_quote"`
	AfterQuote     string                   `json:"after_quote"`
	BeforePage     *int                     `json:"before_page,omitempty"`
	AfterPage      *int                     `json:"after_page,omitempty"`
	Type           constants.ChangeType     `json:"type"`
	Classification constants.Classification `json:"classification"`
	Confidence     float64                  `json:"confidence"`
	Status         constants.ChangeStatus   `json:"status"`
	Comments       []Comment                `json:"comments"`
}

// Comment is an append-only note by a user.
type Comment struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"comment"`
	CreatedAt time.Time `json:"timestamp"`
}

// PageRange is an inclusive, 1-based page interval.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports 1 <= Start <= End <= total.
func (r PageRange) Valid(total int) bool {
	return r.Start >= 1 && r.Start <= r.End && r.End <= total
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// LatestVersion returns the newest version, or nil for a regulation without versions.
func (r *Regulation) LatestVersion() *Version {
	if len(r.Versions) == 0 {
		return nil
	}
	return &r.Versions[len(r.Versions)-1]
}

// NextVersionID issues the next "vN". Numbers are never reused, even after a version is deleted.
func (r *Regulation) NextVersionID() string {
	if r.VersionSeq < len(r.Versions) {
		r.VersionSeq = len(r.Versions)
	}
	r.VersionSeq++
	return fmt.Sprintf("v%d", r.VersionSeq)
}

// FindVersion returns the index of the version with id, or -1.
func (r *Regulation) FindVersion(id string) int {
	for i := range r.Versions {
		if r.Versions[i].ID == id {
			return i
		}
	}
	return -1
}

// FindChange returns the index of the change with id, or -1.
func (v *Version) FindChange(id string) int {
	for i := range v.Changes {
		if v.Changes[i].ID == id {
			return i
		}
	}
	return -1
}

// StorageKeys lists every object store key referenced by the regulation.
func (r *Regulation) StorageKeys() []string {
	keys := make([]string, 0, len(r.Versions))
	for _, v := range r.Versions {
		if v.StorageKey != "" {
			keys = append(keys, v.StorageKey)
		}
	}
	return keys
}

// NextCommentID numbers comments sequentially within one list. Lists are append-only.
func NextCommentID(existing []Comment) string {
	return fmt.Sprintf("comment-%d", len(existing)+1)
}

// ChangeID formats the authoritative id of the n-th (1-based) change record.
func ChangeID(n int) string {
	return fmt.Sprintf("change-%d", n)
}

// Clone deep-copies the aggregate so callers can mutate it without aliasing stored state.
func (r *Regulation) Clone() *Regulation {
	if r == nil {
		return nil
	}
	out := *r
	out.Comments = cloneComments(r.Comments)
	if r.Versions != nil {
		out.Versions = make([]Version, len(r.Versions))
		for i, v := range r.Versions {
			out.Versions[i] = v.Clone()
		}
	}
	return &out
}

// Clone deep-copies a version.
func (v Version) Clone() Version {
	out := v
	if v.EnactingRange != nil {
		pr := *v.EnactingRange
		out.EnactingRange = &pr
	}
	if v.Changes != nil {
		out.Changes = make([]ChangeRecord, len(v.Changes))
		for i, c := range v.Changes {
			out.Changes[i] = c.Clone()
		}
	}
	return out
}

// Clone deep-copies a change record.
func (c ChangeRecord) Clone() ChangeRecord {
	out := c
	out.BeforePage = cloneInt(c.BeforePage)
	out.AfterPage = cloneInt(c.AfterPage)
	out.Comments = cloneComments(c.Comments)
	return out
}

func cloneComments(in []Comment) []Comment {
	if in == nil {
		return nil
	}
	out := make([]Comment, len(in))
	copy(out, in)
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
